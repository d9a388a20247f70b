// Package printing renders quote budgets to PDF.
//
// A TemplateEngine turns a printing.BudgetDocument into HTML and a PDFRenderer
// prints that HTML through headless Chrome. BudgetRenderer ties both together:
//
//	pdf, err := NewChromedpRenderer(&ChromedpConfig{RemoteURL: cfg.Printing.RemoteURL})
//	if err != nil {
//	    return err
//	}
//	engine, err := NewTemplateEngine(WithCurrencySymbol("$"))
//	if err != nil {
//	    return err
//	}
//	budgets := NewBudgetRenderer(engine, pdf)
//	data, err := budgets.RenderBudget(ctx, doc)
package printing
