package handler

import (
	appfinance "github.com/dentalclinic/backend/internal/application/finance"
	"github.com/gin-gonic/gin"
)

// FinanceHandler serves payments and debts
type FinanceHandler struct {
	BaseHandler
	payments *appfinance.PaymentService
}

// NewFinanceHandler creates a FinanceHandler
func NewFinanceHandler(payments *appfinance.PaymentService) *FinanceHandler {
	return &FinanceHandler{payments: payments}
}

// RegisterRoutes mounts /payments and /debts. Per-client listings live under /clients.
func (h *FinanceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	p := rg.Group("/payments")
	p.POST("", h.CreatePayment)
	p.GET("/:id", h.GetPayment)
	p.GET("/:id/allocations", h.Allocations)
	p.DELETE("/:id", h.DeletePayment)

	d := rg.Group("/debts")
	d.POST("", h.CreateDebt)
	d.GET("/:id", h.GetDebt)
	d.DELETE("/:id", h.DeleteDebt)
}

// CreatePayment applies a payment to the client's oldest debts; any remainder becomes credit
func (h *FinanceHandler) CreatePayment(c *gin.Context) {
	var req appfinance.CreatePaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.payments.CreatePayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

func (h *FinanceHandler) GetPayment(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.payments.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

func (h *FinanceHandler) Allocations(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	alloc, err := h.payments.GetPaymentAllocations(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, alloc)
}

// DeletePayment reverses the payment's allocations and its credited remainder
func (h *FinanceHandler) DeletePayment(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.payments.DeletePayment(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *FinanceHandler) CreateDebt(c *gin.Context) {
	var req appfinance.CreateDebtRequest
	if !h.bindJSON(c, &req) {
		return
	}
	d, err := h.payments.CreateDebt(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, d)
}

func (h *FinanceHandler) GetDebt(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	d, err := h.payments.GetDebt(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, d)
}

func (h *FinanceHandler) DeleteDebt(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.payments.DeleteDebt(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
