package printing

import (
	"context"

	"github.com/dentalclinic/backend/internal/domain/printing"
)

// BudgetRenderer prints quote budgets: HTML from the template engine, PDF from the renderer
type BudgetRenderer struct {
	engine    *TemplateEngine
	pdf       PDFRenderer
	paperSize printing.PaperSize
	margins   printing.Margins
}

// BudgetRendererOption configures a BudgetRenderer
type BudgetRendererOption func(*BudgetRenderer)

// WithPaperSize sets the output paper (default A4)
func WithPaperSize(p printing.PaperSize) BudgetRendererOption {
	return func(r *BudgetRenderer) {
		r.paperSize = p
	}
}

// WithMargins sets the page margins
func WithMargins(m printing.Margins) BudgetRendererOption {
	return func(r *BudgetRenderer) {
		r.margins = m
	}
}

// NewBudgetRenderer creates a BudgetRenderer
func NewBudgetRenderer(engine *TemplateEngine, pdf PDFRenderer, opts ...BudgetRendererOption) *BudgetRenderer {
	r := &BudgetRenderer{
		engine:    engine,
		pdf:       pdf,
		paperSize: printing.PaperSizeA4,
		margins:   printing.DefaultMargins(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderBudget returns the PDF bytes of a budget
func (r *BudgetRenderer) RenderBudget(ctx context.Context, doc *printing.BudgetDocument) ([]byte, error) {
	html, err := r.engine.RenderBudget(doc)
	if err != nil {
		return nil, err
	}
	result, err := r.pdf.Render(ctx, &RenderRequest{
		HTML:      html,
		PaperSize: r.paperSize,
		Margins:   r.margins,
		Title:     "Presupuesto " + doc.ClientName,
	})
	if err != nil {
		return nil, err
	}
	return result.PDFData, nil
}

// Close releases the underlying PDF renderer
func (r *BudgetRenderer) Close() error {
	return r.pdf.Close()
}
