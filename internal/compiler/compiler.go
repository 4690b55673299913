// Package compiler turns a validated query request into backend filter
// expressions. A facet whose value list exceeds the clause ceiling is split
// into chunks, one shard per chunk, with every other predicate replicated
// unchanged so the union of shard results equals the unsplit query.
package compiler

import (
	"strconv"
	"strings"

	"github.com/meritview/cutoffd/internal/domain/query"
)

// DefaultMaxValuesPerClause is the largest OR-list the record store accepts
// in a single filter expression before its clause ceiling trips.
const DefaultMaxValuesPerClause = 14

// Compiler builds filter-expression shards. The zero value is not usable;
// construct with New.
type Compiler struct {
	maxValues int
}

// Plan is the compiled form of one request: N filter-expression shards and
// the shared sort specification.
type Plan struct {
	Shards []string
	Sort   query.Spec
}

// New creates a Compiler. maxValues <= 0 selects DefaultMaxValuesPerClause.
func New(maxValues int) Compiler {
	if maxValues <= 0 {
		maxValues = DefaultMaxValuesPerClause
	}
	return Compiler{maxValues: maxValues}
}

// Compile builds the shard list for req. Each slot in the conjunction is
// either fixed (search, percentile range) or a set of chunk alternatives for
// one facet; shards are the cartesian product of the alternatives, so a
// request with at most one oversized facet yields ceil(L/C) shards and a
// request with none yields exactly one.
func (c Compiler) Compile(req *query.Request) Plan {
	var slots [][]string

	if s := req.Search(); s != "" {
		clause := "(" + query.FieldCollegeName + " ~ " + quote(s) +
			" || " + query.FieldCourseName + " ~ " + quote(s) + ")"
		slots = append(slots, []string{clause})
	}

	for _, f := range req.Facets() {
		if len(f.Values) == 0 {
			continue
		}
		chunks := chunkValues(f.Values, c.maxValues)
		alts := make([]string, len(chunks))
		for i, chunk := range chunks {
			alts[i] = orEquality(f.Field, chunk)
		}
		slots = append(slots, alts)
	}

	if p := req.Percentile(); p != nil {
		// The range floor is always 0: the percentile view wants every
		// threshold at or below the target.
		clause := query.FieldCutoffScore + " >= 0 && " +
			query.FieldCutoffScore + " <= " + formatNumber(*p)
		slots = append(slots, []string{clause})
	}

	return Plan{Shards: expand(slots), Sort: req.Sort()}
}

// expand joins one alternative per slot into a conjunction, for every
// combination of alternatives.
func expand(slots [][]string) []string {
	shards := []string{""}
	for _, alts := range slots {
		next := make([]string, 0, len(shards)*len(alts))
		for _, prefix := range shards {
			for _, alt := range alts {
				if prefix == "" {
					next = append(next, alt)
				} else {
					next = append(next, prefix+" && "+alt)
				}
			}
		}
		shards = next
	}
	return shards
}

// chunkValues partitions vals into consecutive slices of at most size.
func chunkValues(vals []string, size int) [][]string {
	chunks := make([][]string, 0, (len(vals)+size-1)/size)
	for start := 0; start < len(vals); start += size {
		end := start + size
		if end > len(vals) {
			end = len(vals)
		}
		chunks = append(chunks, vals[start:end])
	}
	return chunks
}

// orEquality renders a parenthesized OR of equality predicates.
func orEquality(field string, vals []string) string {
	var b strings.Builder
	b.WriteString("(")
	for i, v := range vals {
		if i > 0 {
			b.WriteString(" || ")
		}
		b.WriteString(field)
		b.WriteString(" = ")
		b.WriteString(quote(v))
	}
	b.WriteString(")")
	return b.String()
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
