package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ibernabel/lamas-backend/internal/domain/loanapp"
	"github.com/ibernabel/lamas-backend/internal/scoring"
)

type LoanApplicationHandler struct {
	apps    *loanapp.Service
	scoring *scoring.Service
}

func NewLoanApplicationHandler(apps *loanapp.Service, scoringSvc *scoring.Service) *LoanApplicationHandler {
	return &LoanApplicationHandler{apps: apps, scoring: scoringSvc}
}

type createApplicationRequest struct {
	CustomerID int64               `json:"customer_id" binding:"required"`
	Detail     loanapp.DetailInput `json:"detail" binding:"required"`
}

func (h *LoanApplicationHandler) Create(c *gin.Context) {
	var req createApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	app, err := h.apps.Create(c.Request.Context(), loanapp.CreateInput{
		CustomerID: req.CustomerID,
		UserID:     actorID(c),
		Detail:     req.Detail,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *LoanApplicationHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, err := h.apps.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *LoanApplicationHandler) List(c *gin.Context) {
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)

	filter := loanapp.ListFilter{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	if raw := strings.TrimSpace(c.Query("customer_id")); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_customer_id"})
			return
		}
		filter.CustomerID = &id
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := loanapp.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
			return
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(c.Query("is_approved")); raw != "" {
		v := raw == "true" || raw == "1"
		filter.IsApproved = &v
	}
	if raw := strings.TrimSpace(c.Query("is_rejected")); raw != "" {
		v := raw == "true" || raw == "1"
		filter.IsRejected = &v
	}

	items, err := h.apps.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *LoanApplicationHandler) UpdateDetail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req loanapp.DetailInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	app, err := h.apps.UpdateDetail(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *LoanApplicationHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.apps.SoftDelete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type transitionRequest struct {
	Target string `json:"target" binding:"required"`
	Note   string `json:"note"`
}

func (h *LoanApplicationHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	target, err := loanapp.ParseStatus(req.Target)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_status"})
		return
	}

	app, err := h.apps.Transition(c.Request.Context(), loanapp.TransitionInput{
		ID:     id,
		Target: target,
		Note:   req.Note,
		UserID: actorID(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// AllowedTransitions lets clients render only the actions the workflow
// permits from the application's current state.
func (h *LoanApplicationHandler) AllowedTransitions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, err := h.apps.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  app.Status,
		"allowed": loanapp.AllowedNextStates(app.Status),
	})
}

type addNoteRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *LoanApplicationHandler) AddNote(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req addNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	note, err := h.apps.AddNote(c.Request.Context(), id, req.Text, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *LoanApplicationHandler) ListNotes(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	notes, err := h.apps.ListNotes(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": notes})
}

type associateRiskRequest struct {
	RiskID int64 `json:"risk_id" binding:"required"`
}

func (h *LoanApplicationHandler) AssociateCreditRisk(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req associateRiskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	app, err := h.apps.AssociateCreditRisk(c.Request.Context(), id, req.RiskID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *LoanApplicationHandler) Evaluate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.scoring.Evaluate(c.Request.Context(), id, actorID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
