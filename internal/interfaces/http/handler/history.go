package handler

import (
	apphistory "github.com/dentalclinic/backend/internal/application/history"
	"github.com/gin-gonic/gin"
)

// HistoryHandler serves treatment history and medical records
type HistoryHandler struct {
	BaseHandler
	history *apphistory.HistoryService
}

// NewHistoryHandler creates a HistoryHandler
func NewHistoryHandler(history *apphistory.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// RegisterRoutes mounts /history and /medical-records
func (h *HistoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/history")
	g.POST("/treatments", h.AddOrAdvance)
	g.DELETE("/treatments/:id", h.DeleteRecord)
	g.DELETE("/appointments/:id", h.DeleteForAppointment)

	m := rg.Group("/medical-records")
	m.POST("", h.CreateMedicalRecord)
	m.GET("/:id", h.GetMedicalRecord)
	m.PUT("/:id", h.UpdateMedicalRecord)
	m.DELETE("/:id", h.DeleteMedicalRecord)
}

// AddOrAdvance records delivered units, merging into an open row for the same source
func (h *HistoryHandler) AddOrAdvance(c *gin.Context) {
	var req apphistory.AddOrAdvanceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	row, err := h.history.AddOrAdvance(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, row)
}

func (h *HistoryHandler) DeleteRecord(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.history.DeleteRecord(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *HistoryHandler) DeleteForAppointment(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.history.DeleteAllForAppointment(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *HistoryHandler) CreateMedicalRecord(c *gin.Context) {
	var req apphistory.MedicalRecordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	rec, err := h.history.CreateMedicalRecord(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rec)
}

func (h *HistoryHandler) GetMedicalRecord(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	rec, err := h.history.GetMedicalRecord(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

func (h *HistoryHandler) UpdateMedicalRecord(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req apphistory.MedicalRecordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	rec, err := h.history.UpdateMedicalRecord(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

func (h *HistoryHandler) DeleteMedicalRecord(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.history.DeleteMedicalRecord(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
