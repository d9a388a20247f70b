package history

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source identifies where a unified history item comes from
type Source string

const (
	SourceQuote       Source = "quote"
	SourceAppointment Source = "appointment"
	SourceRecord      Source = "history"
)

// ItemStatus is the completion status of a unified item
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusCompleted ItemStatus = "completed"
)

// UnifiedItem is one row of the unified per-client treatment view
type UnifiedItem struct {
	TreatmentID       uuid.UUID       `json:"treatment_id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Status            ItemStatus      `json:"status"`
	Source            Source          `json:"source"`
	CompletedQuantity int             `json:"completed_quantity"`
	TotalQuantity     int             `json:"total_quantity"`
	AppointmentID     *uuid.UUID      `json:"appointment_id,omitempty"`
	QuoteID           *uuid.UUID      `json:"quote_id,omitempty"`
	RecordID          *uuid.UUID      `json:"record_id,omitempty"`
	TreatmentDate     *time.Time      `json:"treatment_date,omitempty"`
}

// SourceLine is a prescribed line from a quote or a non-cancelled appointment
type SourceLine struct {
	TreatmentID   uuid.UUID
	Price         decimal.Decimal
	Quantity      int
	AppointmentID *uuid.UUID
	QuoteID       *uuid.UUID
	Date          time.Time
}

// TreatmentInfo carries catalog data for naming history rows
type TreatmentInfo struct {
	Name  string
	Price decimal.Decimal
}

type rowKey struct {
	treatment   uuid.UUID
	appointment uuid.UUID
	quote       uuid.UUID
}

func keyOf(treatmentID uuid.UUID, appointmentID, quoteID *uuid.UUID) rowKey {
	k := rowKey{treatment: treatmentID}
	if appointmentID != nil {
		k.appointment = *appointmentID
	}
	if quoteID != nil {
		k.quote = *quoteID
	}
	return k
}

// MergeUnified builds the unified view from history rows and prescribed lines.
// A prescribed line takes its completed quantity from the matching history row,
// which is then not repeated. Pending items sort first, then by treatment name.
func MergeUnified(rows []ClientTreatment, lines []SourceLine, catalog map[uuid.UUID]TreatmentInfo) []UnifiedItem {
	byKey := make(map[rowKey]*ClientTreatment, len(rows))
	for i := range rows {
		byKey[keyOf(rows[i].TreatmentID, rows[i].AppointmentID, rows[i].QuoteID)] = &rows[i]
	}
	used := make(map[uuid.UUID]bool, len(rows))
	items := make([]UnifiedItem, 0, len(rows)+len(lines))

	for _, l := range lines {
		item := UnifiedItem{
			TreatmentID:   l.TreatmentID,
			Name:          catalog[l.TreatmentID].Name,
			Price:         l.Price,
			TotalQuantity: l.Quantity,
			AppointmentID: l.AppointmentID,
			QuoteID:       l.QuoteID,
			Source:        SourceQuote,
		}
		if l.AppointmentID != nil {
			item.Source = SourceAppointment
		}
		date := l.Date
		item.TreatmentDate = &date
		if row, ok := byKey[keyOf(l.TreatmentID, l.AppointmentID, l.QuoteID)]; ok {
			used[row.ID] = true
			id := row.ID
			item.RecordID = &id
			item.CompletedQuantity = min(row.CompletedQuantity, l.Quantity)
			rowDate := row.TreatmentDate
			item.TreatmentDate = &rowDate
		}
		item.Status = statusOf(item.CompletedQuantity, item.TotalQuantity)
		items = append(items, item)
	}

	for i := range rows {
		row := &rows[i]
		if used[row.ID] {
			continue
		}
		info := catalog[row.TreatmentID]
		id := row.ID
		date := row.TreatmentDate
		items = append(items, UnifiedItem{
			TreatmentID:       row.TreatmentID,
			Name:              info.Name,
			Price:             info.Price,
			Status:            statusOf(row.CompletedQuantity, row.TotalQuantity),
			Source:            row.Source(),
			CompletedQuantity: row.CompletedQuantity,
			TotalQuantity:     row.TotalQuantity,
			AppointmentID:     row.AppointmentID,
			QuoteID:           row.QuoteID,
			RecordID:          &id,
			TreatmentDate:     &date,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		pi, pj := items[i].Status == ItemStatusPending, items[j].Status == ItemStatusPending
		if pi != pj {
			return pi
		}
		return items[i].Name < items[j].Name
	})
	return items
}

func statusOf(completed, total int) ItemStatus {
	if completed < total {
		return ItemStatusPending
	}
	return ItemStatusCompleted
}
