package handler

import (
	"io"
	"strings"

	appfinance "github.com/dentalclinic/backend/internal/application/finance"
	apphistory "github.com/dentalclinic/backend/internal/application/history"
	apppartner "github.com/dentalclinic/backend/internal/application/partner"
	"github.com/gin-gonic/gin"
)

// ClientHandler serves client records and the per-client views of the other modules
type ClientHandler struct {
	BaseHandler
	clients  *apppartner.ClientService
	payments *appfinance.PaymentService
	history  *apphistory.HistoryService
}

// NewClientHandler creates a ClientHandler
func NewClientHandler(clients *apppartner.ClientService, payments *appfinance.PaymentService, history *apphistory.HistoryService) *ClientHandler {
	return &ClientHandler{clients: clients, payments: payments, history: history}
}

// RegisterRoutes mounts /clients
func (h *ClientHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/clients")
	g.POST("", h.Create)
	g.POST("/import", h.Import)
	g.GET("", h.List)
	g.GET("/search", h.Search)
	g.GET("/cedula/:cedula", h.GetByCedula)
	g.GET("/:clientId", h.GetByID)
	g.PUT("/:clientId", h.Update)
	g.DELETE("/:clientId", h.Delete)
	g.GET("/:clientId/summary", h.Summary)
	g.GET("/:clientId/credit", h.Credit)
	g.GET("/:clientId/payments", h.Payments)
	g.GET("/:clientId/debts", h.Debts)
	g.GET("/:clientId/history", h.FullHistory)
	g.GET("/:clientId/treatments", h.UnifiedTreatments)
	g.GET("/:clientId/medical-records", h.MedicalRecords)
}

// Create registers a client
func (h *ClientHandler) Create(c *gin.Context) {
	var req apppartner.CreateClientRequest
	if !h.bindJSON(c, &req) {
		return
	}
	client, err := h.clients.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, client)
}

// Import registers clients from a CSV upload, sent either as the "file" part
// of a multipart form or as the raw request body
func (h *ClientHandler) Import(c *gin.Context) {
	var opts apppartner.ImportOptions
	if !h.bindQuery(c, &opts) {
		return
	}

	body := io.Reader(c.Request.Body)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			h.BadRequest(c, "Form field file is required")
			return
		}
		f, err := fh.Open()
		if err != nil {
			h.BadRequest(c, "Cannot read uploaded file")
			return
		}
		defer f.Close()
		body = f
	}

	result, err := h.clients.ImportClients(c.Request.Context(), body, opts)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// List returns a page of clients
func (h *ClientHandler) List(c *gin.Context) {
	var filter apppartner.ClientListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	clients, total, err := h.clients.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	limit, offset := effectivePage(filter.Limit, filter.Offset)
	h.Paged(c, clients, total, limit, offset)
}

// Search matches clients by name or cedula
func (h *ClientHandler) Search(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		h.BadRequest(c, "Query parameter q is required")
		return
	}
	clients, err := h.clients.Search(c.Request.Context(), term, intQuery(c, "limit", 20))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, clients)
}

// GetByID returns one client
func (h *ClientHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "clientId")
	if !ok {
		return
	}
	client, err := h.clients.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// GetByCedula looks a client up by national ID
func (h *ClientHandler) GetByCedula(c *gin.Context) {
	client, err := h.clients.GetByCedula(c.Request.Context(), c.Param("cedula"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// Update changes client fields
func (h *ClientHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "clientId")
	if !ok {
		return
	}
	var req apppartner.UpdateClientRequest
	if !h.bindJSON(c, &req) {
		return
	}
	client, err := h.clients.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, client)
}

// Delete removes a client and everything it owns
func (h *ClientHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "clientId")
	if !ok {
		return
	}
	if err := h.clients.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Summary returns payments, pending debt and credit totals
func (h *ClientHandler) Summary(c *gin.Context) {
	id, ok := h.uuidParam(c, "clientId")
	if !ok {
		return
	}
	summary, err := h.payments.GetSummary(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Credit returns the credit balance
func (h *ClientHandler) Credit(c *gin.Context) {
	id, ok := h.uuidParam(c, "clientId")
	if !ok {
		return
	}
	credit, err := h.payments.GetCredit(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"client_id": id, "amount": credit})
}

// Payments lists the client's payments
func (h *ClientHandler) Payments(c *gin.Context) {
	id, ok := h.uuidParam(c, "clientId")
	if !ok {
		return
	}
	payments, err := h.payments.ListClientPayments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

// Debts lists the client's debts; ?pending=true keeps only unpaid ones
func (h *ClientHandler) Debts(c *gin.Context) {
	id, ok := h.uuidParam(c, "clientId")
	if !ok {
		return
	}
	debts, err := h.payments.ListClientDebts(c.Request.Context(), id, c.Query("pending") == "true")
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, debts)
}

// FullHistory returns the client with records, treatments, appointments and quotes
func (h *ClientHandler) FullHistory(c *gin.Context) {
	id, ok := h.uuidParam(c, "clientId")
	if !ok {
		return
	}
	full, err := h.history.GetClientFullHistory(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, full)
}

// UnifiedTreatments returns the merged treatment history
func (h *ClientHandler) UnifiedTreatments(c *gin.Context) {
	id, ok := h.uuidParam(c, "clientId")
	if !ok {
		return
	}
	items, err := h.history.GetUnifiedForClient(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// MedicalRecords lists the client's medical records
func (h *ClientHandler) MedicalRecords(c *gin.Context) {
	id, ok := h.uuidParam(c, "clientId")
	if !ok {
		return
	}
	records, err := h.history.ListMedicalRecords(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}
