package domain

import "time"

// Job lifecycle status. Rows are never deleted; a job that disappears
// from its source is flipped to CLOSED and kept for audit.
const (
	JobOpen   = "OPEN"
	JobClosed = "CLOSED"
)

// StoredJob is the persisted current state of one posting, keyed by
// (ats_type, company_name, external_id).
type StoredJob struct {
	ID int64

	ExternalID      string
	ATSType         string
	CompanyName     string
	Title           string
	Department      string
	LocationText    string
	RemoteType      string
	EmploymentType  string
	PostedAt        *time.Time
	UpdatedAtSource *time.Time
	ApplyURL        string
	SourceURL       string
	DescriptionHTML string

	Status        string
	FirstSeenAt   time.Time
	LastSeenAt    time.Time
	LastChangedAt time.Time
	ContentHash   string
}

func (j StoredJob) Scope() Scope {
	return Scope{ATSType: j.ATSType, Company: j.CompanyName}
}
