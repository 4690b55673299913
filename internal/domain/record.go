package domain

// CutoffRecord is one admission-cutoff data point. Records are immutable
// once ingested; the engine only ever reads them.
type CutoffRecord struct {
	ID                    string `json:"id"`
	CollegeCode           string `json:"collegeCode"`
	CollegeName           string `json:"collegeName"`
	CourseCode            string `json:"courseCode"`
	CourseName            string `json:"courseName"`
	Category              string `json:"category"`
	Status                string `json:"status"`
	HomeUniversity        string `json:"homeUniversity"`
	SeatAllocationSection string `json:"seatAllocationSection"`

	// CutoffScore is a percentile in [0, 100], stored as text upstream.
	CutoffScore string `json:"cutoffScore"`
	// LastRank is an integer stored as text upstream.
	LastRank      string `json:"lastRank"`
	TotalAdmitted int    `json:"totalAdmitted"`

	Created string `json:"created"`
	Updated string `json:"updated"`
}
