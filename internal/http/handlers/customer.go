package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ibernabel/lamas-backend/internal/domain/customer"
)

type CustomerHandler struct {
	customers *customer.Service
}

func NewCustomerHandler(customers *customer.Service) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

func (h *CustomerHandler) Create(c *gin.Context) {
	var req customer.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	created, err := h.customers.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cust, err := h.customers.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cust)
}

func (h *CustomerHandler) List(c *gin.Context) {
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)

	filter := customer.ListFilter{
		LeadChannel: strings.TrimSpace(c.Query("lead_channel")),
		Search:      strings.TrimSpace(c.Query("search")),
		Limit:       int32(limit),
		Offset:      int32(offset),
	}
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		v := raw == "true" || raw == "1"
		filter.IsActive = &v
	}

	items, err := h.customers.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *CustomerHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.customers.SoftDelete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ValidateNID is used by the intake form before a customer record exists,
// so a malformed or taken NID is a 200 with the verdict, not an error.
func (h *CustomerHandler) ValidateNID(c *gin.Context) {
	nid := strings.TrimSpace(c.Query("nid"))
	if nid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_nid"})
		return
	}
	result, err := h.customers.ValidateNID(c.Request.Context(), nid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
