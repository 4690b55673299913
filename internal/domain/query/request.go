package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meritview/cutoffd/internal/domain"
)

// Pagination bounds for caller-supplied page sizes.
const (
	DefaultPerPage = 25
	MaxPerPage     = 100
)

// Store field names for the multi-select facets.
const (
	FieldHomeUniversity = "home_university"
	FieldStatus         = "status"
)

// Params carries the raw, unvalidated fields of an inbound query.
// Percentile is a decimal string as received on the wire; empty means unset.
type Params struct {
	Search           string
	Categories       []string
	Courses          []string
	Statuses         []string
	HomeUniversities []string
	SeatAllocations  []string
	Percentile       string
	SortField        string
	SortDirection    string
	Page             int
	PerPage          int
}

// Request is a validated query. It lives for exactly one engine invocation.
type Request struct {
	search     string
	facets     []Facet
	percentile *float64
	sort       Spec
	page       int
	perPage    int
}

// Facet is one multi-select filter: a store field plus its selected values.
type Facet struct {
	Field  string
	Values []string
}

// New validates Params into a Request. The percentile target, when set,
// forces the sort to cutoff_score descending regardless of the requested
// sort field.
func New(p Params) (Request, error) {
	r := Request{
		search: strings.TrimSpace(p.Search),
		facets: []Facet{
			{Field: FieldCategory, Values: compactValues(p.Categories)},
			{Field: FieldCourseName, Values: compactValues(p.Courses)},
			{Field: FieldStatus, Values: compactValues(p.Statuses)},
			{Field: FieldHomeUniversity, Values: compactValues(p.HomeUniversities)},
			{Field: FieldSeatAllocationSection, Values: compactValues(p.SeatAllocations)},
		},
	}

	if p.Percentile != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(p.Percentile), 64)
		if err != nil {
			return Request{}, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidPercentile, p.Percentile)
		}
		if v < 0 || v > 100 {
			return Request{}, fmt.Errorf("%w: %v is outside [0, 100]", domain.ErrInvalidPercentile, v)
		}
		r.percentile = &v
		r.sort = PercentileSpec()
	} else {
		sort, err := NewSpec(p.SortField, p.SortDirection)
		if err != nil {
			return Request{}, err
		}
		r.sort = sort
	}

	r.page = p.Page
	if r.page < 1 {
		r.page = 1
	}
	r.perPage = p.PerPage
	if r.perPage <= 0 {
		r.perPage = DefaultPerPage
	}
	if r.perPage > MaxPerPage {
		r.perPage = MaxPerPage
	}

	return r, nil
}

// Search returns the trimmed free-text search term.
func (r *Request) Search() string { return r.search }

// Facets returns the multi-select facets in their canonical clause order.
// Facets with no selected values are included with empty Values.
func (r *Request) Facets() []Facet { return r.facets }

// Percentile returns the target percentile, or nil when unset.
func (r *Request) Percentile() *float64 { return r.percentile }

// Sort returns the effective sort specification.
func (r *Request) Sort() Spec { return r.sort }

// Page returns the 1-based page number.
func (r *Request) Page() int { return r.page }

// PerPage returns the page size.
func (r *Request) PerPage() int { return r.perPage }

func compactValues(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
