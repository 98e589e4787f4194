package domain

import "time"

// ATS type identifiers, as used in scope keys and the jobs table.
const (
	ATSKekaHR    = "kekahr"
	ATSDarwinBox = "darwinbox"
	ATSOracleORC = "oracle_orc"
	ATSJoinCom   = "join_com"
)

func KnownATS(t string) bool {
	switch t {
	case ATSKekaHR, ATSDarwinBox, ATSOracleORC, ATSJoinCom:
		return true
	}
	return false
}

// Scope identifies one (ATS, company) pair — the unit of a refresh pass.
type Scope struct {
	ATSType string
	Company string
}

func (s Scope) Key() string { return s.ATSType + ":" + s.Company }

// NormalizedRecord is one job posting as seen in a single fetch pass,
// already mapped out of the source-specific shape by an adapter.
type NormalizedRecord struct {
	ExternalID      string     `json:"external_id"`
	ATSType         string     `json:"ats_type"`
	CompanyName     string     `json:"company_name"`
	Title           string     `json:"title"`
	Department      string     `json:"department"`
	LocationText    string     `json:"location_text"`
	RemoteType      string     `json:"remote_type"`
	EmploymentType  string     `json:"employment_type"`
	PostedAt        *time.Time `json:"posted_at"`
	UpdatedAtSource *time.Time `json:"updated_at_source"`
	ApplyURL        string     `json:"apply_url"`
	SourceURL       string     `json:"source_url"`
	DescriptionHTML string     `json:"description_html"`
}

func (r NormalizedRecord) Scope() Scope {
	return Scope{ATSType: r.ATSType, Company: r.CompanyName}
}
