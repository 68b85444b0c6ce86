package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ibernabel/lamas-backend/internal/domain/creditrisk"
)

type CreditRiskHandler struct {
	risks *creditrisk.Service
}

func NewCreditRiskHandler(risks *creditrisk.Service) *CreditRiskHandler {
	return &CreditRiskHandler{risks: risks}
}

func (h *CreditRiskHandler) ListCategories(c *gin.Context) {
	items, err := h.risks.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *CreditRiskHandler) ListRisks(c *gin.Context) {
	items, err := h.risks.ListRisks(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *CreditRiskHandler) GetRisk(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	risk, err := h.risks.GetRisk(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, risk)
}
