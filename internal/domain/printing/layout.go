package printing

import (
	"strings"

	"github.com/dentalclinic/backend/internal/domain/shared"
)

// PaperSize represents the paper size for printing
type PaperSize string

const (
	PaperSizeA4     PaperSize = "A4"     // 210mm x 297mm
	PaperSizeLetter PaperSize = "LETTER" // 216mm x 279mm
)

// IsValid checks if the PaperSize is a valid value
func (p PaperSize) IsValid() bool {
	switch p {
	case PaperSizeA4, PaperSizeLetter:
		return true
	}
	return false
}

// Dimensions returns the paper dimensions in millimeters (width, height)
func (p PaperSize) Dimensions() (width, height int) {
	switch p {
	case PaperSizeLetter:
		return 216, 279
	default:
		return 210, 297
	}
}

// ParsePaperSize converts a configuration value, defaulting to A4
func ParsePaperSize(s string) (PaperSize, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return PaperSizeA4, nil
	}
	p := PaperSize(s)
	if !p.IsValid() {
		return "", shared.ErrValidationFailed.WithMessagef("unsupported paper size %q", s)
	}
	return p, nil
}

// Margins represents the page margins in millimeters
type Margins struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// NewMargins creates validated margins
func NewMargins(top, right, bottom, left int) (Margins, error) {
	if top < 0 || right < 0 || bottom < 0 || left < 0 {
		return Margins{}, shared.ErrValidationFailed.WithMessage("margins cannot be negative")
	}
	if top > 100 || right > 100 || bottom > 100 || left > 100 {
		return Margins{}, shared.ErrValidationFailed.WithMessage("margins cannot exceed 100mm")
	}
	return Margins{Top: top, Right: right, Bottom: bottom, Left: left}, nil
}

// DefaultMargins returns 15mm on every side
func DefaultMargins() Margins {
	return Margins{Top: 15, Right: 15, Bottom: 15, Left: 15}
}
