package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/meritview/cutoffd/internal/domain"
)

// Store field names accepted as sort keys.
const (
	FieldCollegeName           = "college_name"
	FieldCourseName            = "course_name"
	FieldCategory              = "category"
	FieldSeatAllocationSection = "seat_allocation_section"
	FieldCutoffScore           = "cutoff_score"
	FieldLastRank              = "last_rank"
)

var sortableFields = map[string]struct{}{
	FieldCollegeName:           {},
	FieldCourseName:            {},
	FieldCategory:              {},
	FieldSeatAllocationSection: {},
	FieldCutoffScore:           {},
	FieldLastRank:              {},
}

// numericFields compare by parsed value rather than lexically.
var numericFields = map[string]struct{}{
	FieldCutoffScore: {},
	FieldLastRank:    {},
}

// Spec is a validated sort specification.
type Spec struct {
	field string
	desc  bool
}

// NewSpec validates a caller-supplied sort field and direction.
// Empty field defaults to cutoff_score descending.
func NewSpec(field, direction string) (Spec, error) {
	if field == "" {
		return PercentileSpec(), nil
	}
	if _, ok := sortableFields[field]; !ok {
		return Spec{}, fmt.Errorf("%w: %q", domain.ErrInvalidSortField, field)
	}
	switch direction {
	case "", "asc":
		return Spec{field: field}, nil
	case "desc":
		return Spec{field: field, desc: true}, nil
	default:
		return Spec{}, fmt.Errorf("%w: direction must be asc or desc, got %q",
			domain.ErrInvalidSortField, direction)
	}
}

// PercentileSpec is the forced sort for percentile-targeted queries:
// cutoff_score descending, so results run nearest-to-target first.
func PercentileSpec() Spec {
	return Spec{field: FieldCutoffScore, desc: true}
}

// Field returns the store field name.
func (s Spec) Field() string { return s.field }

// Desc reports whether the sort is descending.
func (s Spec) Desc() bool { return s.desc }

// Expr renders the store sort expression: "-field" descending, "field" ascending.
func (s Spec) Expr() string {
	if s.desc {
		return "-" + s.field
	}
	return s.field
}

// Less reports whether a orders before b under s. Numeric fields compare by
// parsed value with unparseable text sorting lowest; all other fields
// compare as opaque strings.
func (s Spec) Less(a, b domain.CutoffRecord) bool {
	if _, numeric := numericFields[s.field]; numeric {
		av, bv := numericValue(fieldOf(a, s.field)), numericValue(fieldOf(b, s.field))
		if s.desc {
			return bv < av
		}
		return av < bv
	}
	av, bv := fieldOf(a, s.field), fieldOf(b, s.field)
	if s.desc {
		return strings.Compare(bv, av) < 0
	}
	return strings.Compare(av, bv) < 0
}

func fieldOf(r domain.CutoffRecord, field string) string {
	switch field {
	case FieldCollegeName:
		return r.CollegeName
	case FieldCourseName:
		return r.CourseName
	case FieldCategory:
		return r.Category
	case FieldSeatAllocationSection:
		return r.SeatAllocationSection
	case FieldCutoffScore:
		return r.CutoffScore
	case FieldLastRank:
		return r.LastRank
	default:
		return ""
	}
}

func numericValue(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}
