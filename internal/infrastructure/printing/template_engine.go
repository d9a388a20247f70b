package printing

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/dentalclinic/backend/internal/domain/printing"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TemplateEngine renders budget documents to HTML with html/template
type TemplateEngine struct {
	funcMap  template.FuncMap
	source   string
	currency string
	lang     language.Tag
	tmpl     *template.Template
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithCurrencySymbol sets the prefix printed before amounts (default "$")
func WithCurrencySymbol(symbol string) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.currency = symbol
	}
}

// WithLanguage sets the language used for title-casing names (default Spanish)
func WithLanguage(tag language.Tag) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.lang = tag
	}
}

// WithBudgetTemplate replaces the built-in budget layout
func WithBudgetTemplate(source string) TemplateEngineOption {
	return func(e *TemplateEngine) {
		e.source = source
	}
}

// NewTemplateEngine creates a template engine and parses the budget layout
func NewTemplateEngine(opts ...TemplateEngineOption) (*TemplateEngine, error) {
	e := &TemplateEngine{
		source:   defaultBudgetTemplate,
		currency: "$",
		lang:     language.Spanish,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.funcMap = template.FuncMap{
		"formatMoney": e.formatMoney,
		"formatDate":  formatDate,
		"title":       e.titleCase,
		"upper":       strings.ToUpper,
		"nl2br":       nl2br,
	}

	tmpl, err := template.New("budget").Funcs(e.funcMap).Parse(e.source)
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateFailed, "failed to parse budget template", err)
	}
	e.tmpl = tmpl
	return e, nil
}

// RenderBudget executes the budget layout for a document
func (e *TemplateEngine) RenderBudget(doc *printing.BudgetDocument) (string, error) {
	if doc == nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "budget document is nil", nil)
	}
	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, doc); err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "failed to execute budget template", err)
	}
	return buf.String(), nil
}

// formatMoney formats an amount with thousand separators and two decimals.
// Example: 1234.5 -> "$1,234.50"
func (e *TemplateEngine) formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	intPart, decPart, _ := strings.Cut(d.StringFixed(2), ".")

	var out strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out.WriteRune(',')
		}
		out.WriteRune(c)
	}
	return fmt.Sprintf("%s%s%s.%s", sign, e.currency, out.String(), decPart)
}

// titleCase builds a Caser per call; a Caser must not be shared between goroutines
func (e *TemplateEngine) titleCase(s string) string {
	return cases.Title(e.lang).String(strings.TrimSpace(s))
}

// formatDate renders dd/mm/yyyy; nil and zero times render empty
func formatDate(v any) string {
	var t time.Time
	switch val := v.(type) {
	case time.Time:
		t = val
	case *time.Time:
		if val != nil {
			t = *val
		}
	}
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func nl2br(s string) template.HTML {
	return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br>"))
}
