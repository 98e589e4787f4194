package domain

import "time"

// Run statuses. A row is created PENDING when a pass starts and finalized
// exactly once; PENDING rows left behind by a crash are swept to FAILED on
// the next engine startup.
const (
	RunPending = "PENDING"
	RunSuccess = "SUCCESS"
	RunPartial = "PARTIAL"
	RunFailed  = "FAILED"
)

// RunCounts is the per-classification outcome of one reconciliation pass.
type RunCounts struct {
	Fetched   int `json:"fetched"`
	New       int `json:"new"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Closed    int `json:"closed"`
}

// RunLog is one row per refresh pass for one scope.
type RunLog struct {
	RunID       string     `json:"run_id"`
	ATSType     string     `json:"ats_type"`
	CompanyName string     `json:"company_name"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	Status      string     `json:"status"`
	Endpoint    string     `json:"endpoint,omitempty"`
	Counts      RunCounts  `json:"counts"`
	ErrorDetail string     `json:"error_detail,omitempty"`
}

func (r RunLog) Scope() Scope {
	return Scope{ATSType: r.ATSType, Company: r.CompanyName}
}
