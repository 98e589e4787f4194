package events

import (
	"encoding/json"
	"time"

	"jobwatch-engine/internal/domain"
)

const (
	TypeRunStarted  = "run_started"
	TypeRunFinished = "run_finished"
)

// Event is the JSON envelope published on the hub for every run lifecycle
// transition. Subscribers (operator logging, a future UI feed) get the scope,
// outcome, and counts without touching the database.
type Event struct {
	Type    string           `json:"type"`
	Version int              `json:"v"`
	At      time.Time        `json:"at"`
	RunID   string           `json:"run_id"`
	ATSType string           `json:"ats_type"`
	Company string           `json:"company"`
	Status  string           `json:"status,omitempty"`
	Counts  domain.RunCounts `json:"counts"`
	Error   string           `json:"error,omitempty"`
}

func RunStarted(runID string, scope domain.Scope) string {
	return encode(Event{
		Type: TypeRunStarted, Version: 1, At: time.Now().UTC(),
		RunID: runID, ATSType: scope.ATSType, Company: scope.Company,
	})
}

func RunFinished(runID string, scope domain.Scope, status string, counts domain.RunCounts, errDetail string) string {
	return encode(Event{
		Type: TypeRunFinished, Version: 1, At: time.Now().UTC(),
		RunID: runID, ATSType: scope.ATSType, Company: scope.Company,
		Status: status, Counts: counts, Error: errDetail,
	})
}

func encode(e Event) string {
	b, _ := json.Marshal(e)
	return string(b)
}
