package store

import "github.com/meritview/cutoffd/internal/domain"

// queryResponse mirrors the record store's paginated list payload.
type queryResponse struct {
	Page       int         `json:"page"`
	PerPage    int         `json:"perPage"`
	TotalItems int         `json:"totalItems"`
	TotalPages int         `json:"totalPages"`
	Items      []recordDTO `json:"items"`
}

// recordDTO mirrors one stored cutoff row; the store uses snake_case fields.
type recordDTO struct {
	ID                    string `json:"id"`
	CollegeCode           string `json:"college_code"`
	CollegeName           string `json:"college_name"`
	CourseCode            string `json:"course_code"`
	CourseName            string `json:"course_name"`
	Category              string `json:"category"`
	Status                string `json:"status"`
	HomeUniversity        string `json:"home_university"`
	SeatAllocationSection string `json:"seat_allocation_section"`
	CutoffScore           string `json:"cutoff_score"`
	LastRank              string `json:"last_rank"`
	TotalAdmitted         int    `json:"total_admitted"`
	Created               string `json:"created"`
	Updated               string `json:"updated"`
}

func (d recordDTO) toDomain() domain.CutoffRecord {
	return domain.CutoffRecord{
		ID:                    d.ID,
		CollegeCode:           d.CollegeCode,
		CollegeName:           d.CollegeName,
		CourseCode:            d.CourseCode,
		CourseName:            d.CourseName,
		Category:              d.Category,
		Status:                d.Status,
		HomeUniversity:        d.HomeUniversity,
		SeatAllocationSection: d.SeatAllocationSection,
		CutoffScore:           d.CutoffScore,
		LastRank:              d.LastRank,
		TotalAdmitted:         d.TotalAdmitted,
		Created:               d.Created,
		Updated:               d.Updated,
	}
}
