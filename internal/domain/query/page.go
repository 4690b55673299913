package query

import "github.com/meritview/cutoffd/internal/domain"

// Page is one paginated result window over the filtered dataset.
type Page struct {
	Items      []domain.CutoffRecord `json:"items"`
	TotalItems int                   `json:"totalItems"`
	TotalPages int                   `json:"totalPages"`
	Page       int                   `json:"page"`
	PerPage    int                   `json:"perPage"`

	// Truncated is set when a shard reported more matches than the
	// per-shard fetch window returned, so totals undercount.
	Truncated bool `json:"truncated,omitempty"`
}
