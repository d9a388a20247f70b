package csvimport

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldRule describes the checks applied to one column
type FieldRule struct {
	Column      string
	Required    bool
	Email       bool
	MinLength   int
	MaxLength   int
	Pattern     *regexp.Regexp
	PatternDesc string
	Unique      bool
	// Normalize is applied before the uniqueness check
	Normalize  func(string) string
	CustomFunc func(value string) error
}

// FieldRuleBuilder provides a fluent API for building field rules
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a rule for a column
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column}}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Email requires a parseable e-mail address
func (b *FieldRuleBuilder) Email() *FieldRuleBuilder {
	b.rule.Email = true
	return b
}

// Length sets the allowed length range in characters; 0 means unbounded
func (b *FieldRuleBuilder) Length(min, max int) *FieldRuleBuilder {
	b.rule.MinLength = min
	b.rule.MaxLength = max
	return b
}

// Pattern requires the value to match a regular expression
func (b *FieldRuleBuilder) Pattern(pattern, description string) *FieldRuleBuilder {
	b.rule.Pattern = regexp.MustCompile(pattern)
	b.rule.PatternDesc = description
	return b
}

// Unique rejects repeated values within the file, compared after normalize
func (b *FieldRuleBuilder) Unique(normalize func(string) string) *FieldRuleBuilder {
	b.rule.Unique = true
	b.rule.Normalize = normalize
	return b
}

// Custom adds a custom check
func (b *FieldRuleBuilder) Custom(fn func(value string) error) *FieldRuleBuilder {
	b.rule.CustomFunc = fn
	return b
}

// Build returns the rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator checks rows against a set of rules, remembering values seen
// for unique columns
type FieldValidator struct {
	rules  []FieldRule
	seen   map[string]map[string]int // column -> value -> first line
	errors *ErrorCollection
}

// NewFieldValidator creates a validator reporting into errs
func NewFieldValidator(errs *ErrorCollection, rules ...FieldRule) *FieldValidator {
	return &FieldValidator{
		rules:  rules,
		seen:   make(map[string]map[string]int),
		errors: errs,
	}
}

// ValidateRow checks every rule and reports whether the row is clean
func (v *FieldValidator) ValidateRow(row *Row) bool {
	ok := true
	fail := func(column, code, message, value string) {
		v.errors.Add(RowError{Row: row.LineNumber, Column: column, Code: code, Message: message, Value: value})
		ok = false
	}

	for _, rule := range v.rules {
		value := row.Get(rule.Column)
		if value == "" {
			if rule.Required {
				fail(rule.Column, ErrCodeRequiredField, fmt.Sprintf("field '%s' is required", rule.Column), "")
			}
			continue
		}

		n := utf8.RuneCountInString(value)
		if (rule.MinLength > 0 && n < rule.MinLength) || (rule.MaxLength > 0 && n > rule.MaxLength) {
			fail(rule.Column, ErrCodeInvalidLength, lengthMessage(rule.MinLength, rule.MaxLength), value)
			continue
		}
		if rule.Email {
			if _, err := mail.ParseAddress(value); err != nil {
				fail(rule.Column, ErrCodeInvalidFormat, "invalid email address", value)
				continue
			}
		}
		if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
			fail(rule.Column, ErrCodeInvalidFormat, "expected "+rule.PatternDesc, value)
			continue
		}
		if rule.CustomFunc != nil {
			if err := rule.CustomFunc(value); err != nil {
				fail(rule.Column, ErrCodeValidation, err.Error(), value)
				continue
			}
		}
		if rule.Unique {
			key := value
			if rule.Normalize != nil {
				key = rule.Normalize(value)
			}
			if v.seen[rule.Column] == nil {
				v.seen[rule.Column] = make(map[string]int)
			}
			if first, dup := v.seen[rule.Column][key]; dup {
				fail(rule.Column, ErrCodeDuplicateInFile,
					fmt.Sprintf("duplicate value (first seen in row %d)", first), value)
				continue
			}
			v.seen[rule.Column][key] = row.LineNumber
		}
	}
	return ok
}

func lengthMessage(min, max int) string {
	switch {
	case min > 0 && max > 0:
		return fmt.Sprintf("length must be between %d and %d", min, max)
	case max > 0:
		return fmt.Sprintf("length must be at most %d", max)
	default:
		return fmt.Sprintf("length must be at least %d", min)
	}
}

// NormalizeKey upper-cases and strips spaces, dots and dashes. Useful for
// identity numbers written as "V-12.345.678" or "v12345678".
func NormalizeKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-':
			return -1
		}
		return r
	}, strings.ToUpper(s))
}
