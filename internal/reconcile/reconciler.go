package reconcile

import (
	"context"
	"fmt"
	"time"

	"jobwatch-engine/internal/domain"
	"jobwatch-engine/internal/store"
)

// Counts is the classification outcome of one pass over one scope.
type Counts struct {
	New       int
	Updated   int
	Unchanged int
	Closed    int
}

// Reconcile compares one fresh snapshot against the stored state for a scope
// and applies the delta. It must run inside the caller's transaction: either
// every mutation commits together with the run finalize, or none do.
//
// Classification per natural key:
//   - only in incoming            -> NEW (insert, status OPEN)
//   - in both, same content hash  -> UNCHANGED (bump last_seen_at)
//   - in both, different hash     -> UPDATED (overwrite mutable fields)
//   - in both, but stored CLOSED  -> UPDATED (reopened on the same row)
//   - only in stored, OPEN        -> CLOSED
//   - only in stored, CLOSED      -> no-op
//
// An empty incoming snapshot closes every open job for the scope. That is
// correct when the source really has no listings; the caller is responsible
// for never handing a failed or incomplete fetch to this function.
func Reconcile(ctx context.Context, q store.Querier, scope domain.Scope, incoming []domain.NormalizedRecord, now time.Time) (Counts, error) {
	var counts Counts

	existing, err := store.JobsByScope(ctx, q, scope)
	if err != nil {
		return counts, fmt.Errorf("load existing: %w", err)
	}
	byKey := make(map[string]domain.StoredJob, len(existing))
	for _, j := range existing {
		byKey[j.ExternalID] = j
	}

	// De-duplicate within the batch: adapters should not emit the same
	// external_id twice in one pass, but if one does, the last record wins
	// and is counted once.
	seen := make(map[string]bool, len(incoming))
	dedup := make([]domain.NormalizedRecord, 0, len(incoming))
	for i := len(incoming) - 1; i >= 0; i-- {
		rec := incoming[i]
		if rec.ExternalID == "" || seen[rec.ExternalID] {
			continue
		}
		seen[rec.ExternalID] = true
		dedup = append(dedup, rec)
	}

	for _, rec := range dedup {
		hash := Hash(rec)
		prev, ok := byKey[rec.ExternalID]

		switch {
		case !ok:
			j := jobFromRecord(rec, hash, now)
			if _, err := store.InsertJob(ctx, q, j); err != nil {
				return counts, err
			}
			counts.New++

		case prev.Status == domain.JobClosed:
			// Reappeared under the same key: reopen the row, never duplicate.
			j := mergeRecord(prev, rec, hash, now)
			if err := store.UpdateJobContent(ctx, q, j); err != nil {
				return counts, err
			}
			counts.Updated++

		case prev.ContentHash == hash:
			if err := store.TouchJobSeen(ctx, q, prev.ID, now); err != nil {
				return counts, err
			}
			counts.Unchanged++

		default:
			j := mergeRecord(prev, rec, hash, now)
			if err := store.UpdateJobContent(ctx, q, j); err != nil {
				return counts, err
			}
			counts.Updated++
		}
	}

	for _, prev := range existing {
		if seen[prev.ExternalID] || prev.Status != domain.JobOpen {
			continue
		}
		if err := store.CloseJob(ctx, q, prev.ID, now); err != nil {
			return counts, err
		}
		counts.Closed++
	}

	return counts, nil
}

func jobFromRecord(rec domain.NormalizedRecord, hash string, now time.Time) domain.StoredJob {
	return domain.StoredJob{
		ExternalID:      rec.ExternalID,
		ATSType:         rec.ATSType,
		CompanyName:     rec.CompanyName,
		Title:           rec.Title,
		Department:      rec.Department,
		LocationText:    rec.LocationText,
		RemoteType:      rec.RemoteType,
		EmploymentType:  rec.EmploymentType,
		PostedAt:        rec.PostedAt,
		UpdatedAtSource: rec.UpdatedAtSource,
		ApplyURL:        rec.ApplyURL,
		SourceURL:       rec.SourceURL,
		DescriptionHTML: rec.DescriptionHTML,
		Status:          domain.JobOpen,
		FirstSeenAt:     now,
		LastSeenAt:      now,
		LastChangedAt:   now,
		ContentHash:     hash,
	}
}

// mergeRecord overlays the fresh record on a stored row for an UPDATED (or
// reopened) job. posted_at keeps its first recorded value; the store layer
// enforces that with COALESCE as well.
func mergeRecord(prev domain.StoredJob, rec domain.NormalizedRecord, hash string, now time.Time) domain.StoredJob {
	j := prev
	j.Title = rec.Title
	j.Department = rec.Department
	j.LocationText = rec.LocationText
	j.RemoteType = rec.RemoteType
	j.EmploymentType = rec.EmploymentType
	if j.PostedAt == nil {
		j.PostedAt = rec.PostedAt
	}
	j.UpdatedAtSource = rec.UpdatedAtSource
	j.ApplyURL = rec.ApplyURL
	j.SourceURL = rec.SourceURL
	j.DescriptionHTML = rec.DescriptionHTML
	j.Status = domain.JobOpen
	j.LastSeenAt = now
	j.LastChangedAt = now
	j.ContentHash = hash
	return j
}
