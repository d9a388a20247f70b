// Package csvimport reads spreadsheet exports into validated rows.
package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Parser reads a CSV file whose first line names the columns. Header names are
// folded to lower-case ASCII keys ("Teléfono" -> "telefono") and then mapped
// through the configured aliases.
type Parser struct {
	delimiter  rune
	lazyQuotes bool
	trimSpace  bool
	aliases    map[string]string
	headers    []string
	headerMap  map[string]int
	currentRow int
	reader     *csv.Reader
	bufReader  *bufio.Reader
}

// ParserOption is a functional option for Parser configuration
type ParserOption func(*Parser)

// WithDelimiter forces the field delimiter. Without it the parser picks
// ';' or ',' from the header line.
func WithDelimiter(d rune) ParserOption {
	return func(p *Parser) {
		p.delimiter = d
	}
}

// WithLazyQuotes accepts stray quotes inside unquoted fields instead of
// reporting the line as malformed
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *Parser) {
		p.lazyQuotes = lazy
	}
}

// WithTrimSpace toggles trimming of leading and trailing spaces (default on)
func WithTrimSpace(trim bool) ParserOption {
	return func(p *Parser) {
		p.trimSpace = trim
	}
}

// WithHeaderAliases maps folded header names to canonical column keys
func WithHeaderAliases(aliases map[string]string) ParserOption {
	return func(p *Parser) {
		for from, to := range aliases {
			p.aliases[FoldHeader(from)] = to
		}
	}
}

// NewParser creates a parser and reads the header line
func NewParser(r io.Reader, opts ...ParserOption) (*Parser, error) {
	p := &Parser{
		trimSpace: true,
		aliases:   make(map[string]string),
		headerMap: make(map[string]int),
		bufReader: bufio.NewReader(r),
	}
	for _, opt := range opts {
		opt(p)
	}

	// UTF-8 BOM written by spreadsheet exports
	if bom, err := p.bufReader.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = p.bufReader.Discard(3)
	}
	if err := p.checkEncoding(); err != nil {
		return nil, err
	}
	if p.delimiter == 0 {
		p.delimiter = p.sniffDelimiter()
	}

	p.reader = csv.NewReader(p.bufReader)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = p.lazyQuotes
	p.reader.TrimLeadingSpace = p.trimSpace
	p.reader.FieldsPerRecord = -1

	if err := p.parseHeader(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) checkEncoding() error {
	const checkSize = 4096
	content, err := p.bufReader.Peek(checkSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return ErrEmptyFile
	}
	// A multi-byte rune may be cut at the end of the peeked window.
	for i := 0; i < utf8.UTFMax && !utf8.Valid(content); i++ {
		if len(content) < checkSize {
			return ErrInvalidEncoding
		}
		content = content[:len(content)-1]
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

func (p *Parser) sniffDelimiter() rune {
	line, _ := p.bufReader.Peek(p.bufReader.Buffered())
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func (p *Parser) parseHeader() error {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, len(record))
	for i, h := range record {
		key := FoldHeader(h)
		if alias, ok := p.aliases[key]; ok {
			key = alias
		}
		p.headers[i] = key
		if _, dup := p.headerMap[key]; !dup && key != "" {
			p.headerMap[key] = i
		}
	}
	if len(p.headerMap) == 0 {
		return ErrMissingHeader
	}
	p.currentRow = 1
	return nil
}

// Headers returns the canonical column keys in file order
func (p *Parser) Headers() []string {
	return p.headers
}

// HasHeader checks if a column is present
func (p *Parser) HasHeader(name string) bool {
	_, ok := p.headerMap[name]
	return ok
}

// MissingHeaders lists the required columns absent from the file
func (p *Parser) MissingHeaders(required ...string) []string {
	var missing []string
	for _, h := range required {
		if !p.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is a parsed data line keyed by canonical column
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value of a column
func (r *Row) Get(column string) string {
	return r.Data[column]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next data line. It returns io.EOF at the end of input.
func (p *Parser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		p.currentRow++
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			p.currentRow = parseErr.StartLine
			err = parseErr.Err
		}
		return nil, RowError{Row: p.currentRow, Code: ErrCodeMalformedRow, Message: err.Error()}
	}
	// csv.Reader skips blank lines; report the physical line number.
	p.currentRow, _ = p.reader.FieldPos(0)

	row := &Row{
		LineNumber: p.currentRow,
		Data:       make(map[string]string, len(p.headerMap)),
	}
	for key, i := range p.headerMap {
		if i < len(record) {
			value := record[i]
			if p.trimSpace {
				value = strings.TrimSpace(value)
			}
			row.Data[key] = value
		} else {
			row.Data[key] = ""
		}
	}
	return row, nil
}

// ReadAll reads the remaining rows, skipping blank lines. Malformed lines are
// recorded in errs and skipped.
func (p *Parser) ReadAll(errs *ErrorCollection) ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		var rowErr RowError
		if errors.As(err, &rowErr) {
			errs.Add(rowErr)
			continue
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
}

// FoldHeader turns a column title into a lookup key: accents removed,
// lower-cased, runs of spaces, dashes and dots collapsed to '_'.
func FoldHeader(h string) string {
	// Transformers keep state; build one per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, strings.TrimSpace(h))
	if err != nil {
		folded = strings.TrimSpace(h)
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	sep := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = false
			b.WriteRune(r)
		default:
			sep = true
		}
	}
	return b.String()
}
