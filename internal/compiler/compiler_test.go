package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/meritview/cutoffd/internal/domain/query"
)

func mustRequest(t *testing.T, p query.Params) *query.Request {
	t.Helper()
	r, err := query.New(p)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return &r
}

func courseList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Course %02d", i)
	}
	return out
}

func TestCompile_SingleShardPassthrough(t *testing.T) {
	req := mustRequest(t, query.Params{
		Search:     "engineering",
		Categories: []string{"OPEN", "OBC"},
		Courses:    []string{"Computer Engineering"},
	})

	plan := New(14).Compile(req)
	if len(plan.Shards) != 1 {
		t.Fatalf("expected 1 shard, got %d", len(plan.Shards))
	}

	want := `(college_name ~ "engineering" || course_name ~ "engineering")` +
		` && (category = "OPEN" || category = "OBC")` +
		` && (course_name = "Computer Engineering")`
	if plan.Shards[0] != want {
		t.Errorf("unexpected shard:\ngot:  %s\nwant: %s", plan.Shards[0], want)
	}
}

func TestCompile_EmptyRequest(t *testing.T) {
	req := mustRequest(t, query.Params{})

	plan := New(14).Compile(req)
	if len(plan.Shards) != 1 {
		t.Fatalf("expected 1 shard, got %d", len(plan.Shards))
	}
	if plan.Shards[0] != "" {
		t.Errorf("expected empty filter, got %q", plan.Shards[0])
	}
}

func TestCompile_ShardCoverage(t *testing.T) {
	// 20 courses with chunk size 14 must split into 14 + 6.
	courses := courseList(20)
	req := mustRequest(t, query.Params{Courses: courses})

	plan := New(14).Compile(req)
	if len(plan.Shards) != 2 {
		t.Fatalf("expected 2 shards, got %d", len(plan.Shards))
	}

	var covered []string
	seen := make(map[string]int)
	for _, shard := range plan.Shards {
		for _, c := range courses {
			needle := `course_name = "` + c + `"`
			if strings.Contains(shard, needle) {
				covered = append(covered, c)
				seen[c]++
			}
		}
	}
	if len(covered) != len(courses) {
		t.Errorf("expected all %d courses covered, got %d", len(courses), len(covered))
	}
	for c, n := range seen {
		if n != 1 {
			t.Errorf("course %q appears in %d shards, want exactly 1", c, n)
		}
	}

	// Chunks are consecutive: first shard carries the first 14 values.
	if !strings.Contains(plan.Shards[0], `course_name = "Course 00"`) ||
		!strings.Contains(plan.Shards[0], `course_name = "Course 13"`) {
		t.Error("first shard should carry courses 0..13")
	}
	if !strings.Contains(plan.Shards[1], `course_name = "Course 14"`) ||
		!strings.Contains(plan.Shards[1], `course_name = "Course 19"`) {
		t.Error("second shard should carry courses 14..19")
	}
}

func TestCompile_ShardCounts(t *testing.T) {
	tests := []struct {
		courses int
		chunk   int
		shards  int
	}{
		{0, 14, 1},
		{1, 14, 1},
		{14, 14, 1},
		{15, 14, 2},
		{28, 14, 2},
		{29, 14, 3},
		{20, 5, 4},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("courses=%d chunk=%d", tt.courses, tt.chunk), func(t *testing.T) {
			req := mustRequest(t, query.Params{Courses: courseList(tt.courses)})
			plan := New(tt.chunk).Compile(req)
			if len(plan.Shards) != tt.shards {
				t.Errorf("expected %d shards, got %d", tt.shards, len(plan.Shards))
			}
		})
	}
}

func TestCompile_PredicateReplication(t *testing.T) {
	req := mustRequest(t, query.Params{
		Search:           "pune",
		Courses:          courseList(20),
		Categories:       []string{"OPEN"},
		Statuses:         []string{"Government"},
		HomeUniversities: []string{"SPPU"},
		SeatAllocations:  []string{"State Level"},
		Percentile:       "92.5",
	})

	plan := New(14).Compile(req)
	if len(plan.Shards) != 2 {
		t.Fatalf("expected 2 shards, got %d", len(plan.Shards))
	}

	replicated := []string{
		`(college_name ~ "pune" || course_name ~ "pune")`,
		`(category = "OPEN")`,
		`(status = "Government")`,
		`(home_university = "SPPU")`,
		`(seat_allocation_section = "State Level")`,
		`cutoff_score >= 0 && cutoff_score <= 92.5`,
	}
	for i, shard := range plan.Shards {
		for _, clause := range replicated {
			if !strings.Contains(shard, clause) {
				t.Errorf("shard %d missing replicated clause %q:\n%s", i, clause, shard)
			}
		}
	}
}

func TestCompile_PercentileForcesSort(t *testing.T) {
	req := mustRequest(t, query.Params{
		Percentile:    "92.5",
		SortField:     "college_name",
		SortDirection: "asc",
	})

	plan := New(14).Compile(req)
	if got := plan.Sort.Expr(); got != "-cutoff_score" {
		t.Errorf("expected sort -cutoff_score, got %q", got)
	}
	if plan.Shards[0] != "cutoff_score >= 0 && cutoff_score <= 92.5" {
		t.Errorf("unexpected percentile shard: %q", plan.Shards[0])
	}
}

func TestCompile_CallerSortPreservedWithoutPercentile(t *testing.T) {
	req := mustRequest(t, query.Params{
		SortField:     "college_name",
		SortDirection: "asc",
	})

	plan := New(14).Compile(req)
	if got := plan.Sort.Expr(); got != "college_name" {
		t.Errorf("expected sort college_name, got %q", got)
	}
}

func TestCompile_TwoOversizedFacets(t *testing.T) {
	// Both facets over the ceiling: the cartesian product keeps every
	// combination so the union still equals the unsplit query.
	req := mustRequest(t, query.Params{
		Courses:    courseList(4),
		Categories: []string{"OPEN", "OBC", "SC", "ST"},
	})

	plan := New(2).Compile(req)
	if len(plan.Shards) != 4 {
		t.Fatalf("expected 4 shards (2x2), got %d", len(plan.Shards))
	}
	for i, shard := range plan.Shards {
		if !strings.Contains(shard, "category = ") || !strings.Contains(shard, "course_name = ") {
			t.Errorf("shard %d missing a facet clause: %s", i, shard)
		}
	}
}

func TestCompile_QuotesEscaped(t *testing.T) {
	req := mustRequest(t, query.Params{
		Search: `B"Tech \ Mech`,
	})

	plan := New(14).Compile(req)
	want := `(college_name ~ "B\"Tech \\ Mech" || course_name ~ "B\"Tech \\ Mech")`
	if plan.Shards[0] != want {
		t.Errorf("unexpected escaping:\ngot:  %s\nwant: %s", plan.Shards[0], want)
	}
}

func TestCompile_PercentileFormatting(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"92.5", "cutoff_score >= 0 && cutoff_score <= 92.5"},
		{"100", "cutoff_score >= 0 && cutoff_score <= 100"},
		{"0", "cutoff_score >= 0 && cutoff_score <= 0"},
		{"85.25", "cutoff_score >= 0 && cutoff_score <= 85.25"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			req := mustRequest(t, query.Params{Percentile: tt.in})
			plan := New(14).Compile(req)
			if plan.Shards[0] != tt.want {
				t.Errorf("got %q, want %q", plan.Shards[0], tt.want)
			}
		})
	}
}
