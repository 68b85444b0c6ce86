package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ibernabel/lamas-backend/internal/domain/creditrisk"
	"github.com/ibernabel/lamas-backend/internal/domain/customer"
	"github.com/ibernabel/lamas-backend/internal/domain/loanapp"
	"github.com/ibernabel/lamas-backend/internal/scoring"
)

// writeError maps domain errors onto the HTTP surface. Workflow violations
// are 422 so clients can tell "bad request shape" from "valid request, state
// does not allow it"; gateway failures are 502 and flagged retryable.
func writeError(c *gin.Context, err error) {
	var validationErr *loanapp.ValidationError
	var customerValidationErr *customer.ValidationError
	var transitionErr *loanapp.InvalidTransitionError
	var notEvaluableErr *scoring.NotEvaluableError
	var gatewayErr *scoring.GatewayError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "field": validationErr.Field, "message": validationErr.Message})
	case errors.As(err, &customerValidationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "field": customerValidationErr.Field, "message": customerValidationErr.Message})
	case errors.Is(err, loanapp.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "loan_application_not_found"})
	case errors.Is(err, loanapp.ErrCustomerNotFound), errors.Is(err, customer.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "customer_not_found"})
	case errors.Is(err, creditrisk.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "credit_risk_not_found"})
	case errors.Is(err, customer.ErrNIDTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "nid_already_registered"})
	case errors.Is(err, loanapp.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent_update", "message": "the application changed while processing, retry"})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_transition", "message": transitionErr.Error()})
	case errors.As(err, &notEvaluableErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not_evaluable", "message": notEvaluableErr.Error()})
	case errors.As(err, &gatewayErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "scoring_gateway_unavailable", "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := parseID(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return id, true
}

func actorID(c *gin.Context) *int64 {
	v, ok := c.Get("user_id")
	if !ok {
		return nil
	}
	id, ok := v.(int64)
	if !ok {
		return nil
	}
	return &id
}
