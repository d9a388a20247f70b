package shared

// Filter represents query filter options for simple catalog listings
type Filter struct {
	Search     string
	ActiveOnly bool
	OrderBy    string
	OrderDir   string
	Limit      int
	Offset     int
}

// DefaultFilter returns a filter with default values
func DefaultFilter() Filter {
	return Filter{
		Limit:  50,
		Offset: 0,
	}
}

// Normalize clamps limit and offset to sane values
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
