package handler

import (
	"mime"
	"net/http"

	appquote "github.com/dentalclinic/backend/internal/application/quote"
	"github.com/gin-gonic/gin"
)

// QuoteHandler serves budgets
type QuoteHandler struct {
	BaseHandler
	quotes *appquote.QuoteService
}

// NewQuoteHandler creates a QuoteHandler
func NewQuoteHandler(quotes *appquote.QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// RegisterRoutes mounts /quotes
func (h *QuoteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/quotes")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id/status", h.SetStatus)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/treatments", h.Treatments)
	g.GET("/:id/client-info", h.ClientInfo)
	g.GET("/:id/pdf", h.PDF)
}

func (h *QuoteHandler) Create(c *gin.Context) {
	var req appquote.CreateQuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	q, err := h.quotes.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, q)
}

func (h *QuoteHandler) List(c *gin.Context) {
	var filter appquote.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	ctx := c.Request.Context()
	items, err := h.quotes.List(ctx, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	total, err := h.quotes.Count(ctx, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	limit, offset := effectivePage(filter.Limit, filter.Offset)
	h.Paged(c, items, total, limit, offset)
}

func (h *QuoteHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	q, err := h.quotes.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, q)
}

// Update replaces the lines and discount of a pending quote
func (h *QuoteHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appquote.UpdateQuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	q, err := h.quotes.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, q)
}

func (h *QuoteHandler) SetStatus(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appquote.SetStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	q, err := h.quotes.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, q)
}

func (h *QuoteHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.quotes.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *QuoteHandler) Treatments(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	lines, err := h.quotes.GetTreatments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lines)
}

func (h *QuoteHandler) ClientInfo(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	info, err := h.quotes.GetClientInfoForPDF(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, info)
}

// PDF streams the printed budget as an attachment
func (h *QuoteHandler) PDF(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	pdf, name, err := h.quotes.RenderPDF(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
