package handler

import (
	"strings"

	appscheduling "github.com/dentalclinic/backend/internal/application/scheduling"
	"github.com/gin-gonic/gin"
)

// AppointmentHandler serves bookings
type AppointmentHandler struct {
	BaseHandler
	appointments *appscheduling.AppointmentService
}

// NewAppointmentHandler creates an AppointmentHandler
func NewAppointmentHandler(appointments *appscheduling.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// RegisterRoutes mounts /appointments
func (h *AppointmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/appointments")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/count", h.Count)
	g.GET("/upcoming", h.Upcoming)
	g.GET("/slots", h.Slots)
	g.GET("/search", h.Search)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id/status", h.SetStatus)
	g.DELETE("/:id", h.Delete)
}

// Create books an appointment
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req appscheduling.CreateAppointmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	a, err := h.appointments.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, a)
}

// List returns appointments matching the filter with the total in meta
func (h *AppointmentHandler) List(c *gin.Context) {
	var filter appscheduling.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	ctx := c.Request.Context()
	items, err := h.appointments.List(ctx, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	total, err := h.appointments.Count(ctx, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	limit, offset := effectivePage(filter.Limit, filter.Offset)
	h.Paged(c, items, total, limit, offset)
}

// Count counts appointments matching the filter
func (h *AppointmentHandler) Count(c *gin.Context) {
	var filter appscheduling.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	total, err := h.appointments.Count(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"count": total})
}

// Upcoming lists the next pending appointments
func (h *AppointmentHandler) Upcoming(c *gin.Context) {
	items, err := h.appointments.GetUpcoming(c.Request.Context(), intQuery(c, "limit", 10))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// Slots lists the bookable times of ?date=YYYY-MM-DD
func (h *AppointmentHandler) Slots(c *gin.Context) {
	day := c.Query("date")
	if day == "" {
		h.BadRequest(c, "Query parameter date is required")
		return
	}
	slots, err := h.appointments.GetAvailableSlots(c.Request.Context(), day)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, slots)
}

// Search matches appointments by client name or cedula
func (h *AppointmentHandler) Search(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		h.BadRequest(c, "Query parameter q is required")
		return
	}
	items, err := h.appointments.Search(c.Request.Context(), term)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

func (h *AppointmentHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	a, err := h.appointments.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, a)
}

// Update reschedules or edits a pending appointment
func (h *AppointmentHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appscheduling.UpdateAppointmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	a, err := h.appointments.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, a)
}

// SetStatus completes or cancels an appointment
func (h *AppointmentHandler) SetStatus(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appscheduling.SetStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	a, err := h.appointments.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, a)
}

func (h *AppointmentHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.appointments.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
