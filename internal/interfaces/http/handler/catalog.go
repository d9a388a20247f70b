package handler

import (
	appcatalog "github.com/dentalclinic/backend/internal/application/catalog"
	"github.com/gin-gonic/gin"
)

// DentistHandler serves the dentist roster
type DentistHandler struct {
	BaseHandler
	dentists *appcatalog.DentistService
}

// NewDentistHandler creates a DentistHandler
func NewDentistHandler(dentists *appcatalog.DentistService) *DentistHandler {
	return &DentistHandler{dentists: dentists}
}

// RegisterRoutes mounts /dentists
func (h *DentistHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/dentists")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *DentistHandler) Create(c *gin.Context) {
	var req appcatalog.CreateDentistRequest
	if !h.bindJSON(c, &req) {
		return
	}
	d, err := h.dentists.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, d)
}

func (h *DentistHandler) List(c *gin.Context) {
	var filter appcatalog.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	dentists, total, err := h.dentists.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	limit, offset := effectivePage(filter.Limit, filter.Offset)
	h.Paged(c, dentists, total, limit, offset)
}

func (h *DentistHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	d, err := h.dentists.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, d)
}

func (h *DentistHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appcatalog.UpdateDentistRequest
	if !h.bindJSON(c, &req) {
		return
	}
	d, err := h.dentists.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, d)
}

func (h *DentistHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.dentists.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// TreatmentHandler serves the treatment catalog
type TreatmentHandler struct {
	BaseHandler
	treatments *appcatalog.TreatmentService
}

// NewTreatmentHandler creates a TreatmentHandler
func NewTreatmentHandler(treatments *appcatalog.TreatmentService) *TreatmentHandler {
	return &TreatmentHandler{treatments: treatments}
}

// RegisterRoutes mounts /treatments
func (h *TreatmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/treatments")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.PUT("/:id", h.Update)
	g.POST("/:id/activate", h.Activate)
	g.POST("/:id/deactivate", h.Deactivate)
	g.DELETE("/:id", h.Delete)
}

func (h *TreatmentHandler) Create(c *gin.Context) {
	var req appcatalog.CreateTreatmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	t, err := h.treatments.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, t)
}

func (h *TreatmentHandler) List(c *gin.Context) {
	var filter appcatalog.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	treatments, total, err := h.treatments.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	limit, offset := effectivePage(filter.Limit, filter.Offset)
	h.Paged(c, treatments, total, limit, offset)
}

func (h *TreatmentHandler) GetByID(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	t, err := h.treatments.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, t)
}

func (h *TreatmentHandler) Update(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appcatalog.UpdateTreatmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	t, err := h.treatments.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, t)
}

func (h *TreatmentHandler) Activate(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	t, err := h.treatments.Activate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, t)
}

func (h *TreatmentHandler) Deactivate(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	t, err := h.treatments.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, t)
}

// Delete removes a treatment; it fails while any appointment or quote line uses it
func (h *TreatmentHandler) Delete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.treatments.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
