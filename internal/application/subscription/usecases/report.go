package usecases

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/orris-inc/billing/internal/shared/logger"
)

// Per-subscription outcomes reported by the batch jobs.
const (
	OutcomeRenewed   = "renewed"
	OutcomeFailed    = "failed"
	OutcomePending   = "pending"
	OutcomeWarned    = "warned"
	OutcomeSuspended = "suspended"
	OutcomeExpired   = "expired"
	OutcomeSkipped   = "skipped"
	OutcomeErrored   = "errored"
	// OutcomeWouldProcess is reported for every selected subscription in a
	// dry run.
	OutcomeWouldProcess = "would_process"
)

// Processing stages, logged with every per-subscription error.
const (
	StageSelect              = "select"
	StageLoad                = "load"
	StageLookupAuthorization = "lookup_authorization"
	StageCharge              = "charge"
	StageCommit              = "commit"
	StageNotify              = "notify"
	StageEnqueue             = "enqueue"
)

type BatchItem struct {
	SubscriptionID  uint   `json:"subscription_id"`
	SubscriptionSID string `json:"subscription_sid,omitempty"`
	Outcome         string `json:"outcome"`
	Stage           string `json:"stage,omitempty"`
	Amount          string `json:"amount,omitempty"`
	Detail          string `json:"detail,omitempty"`
}

// BatchReport summarises one run of a scheduled job.
type BatchReport struct {
	Job        string         `json:"job"`
	DryRun     bool           `json:"dry_run"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Selected   int            `json:"selected"`
	Counts     map[string]int `json:"counts"`
	Items      []BatchItem    `json:"items"`
}

func newBatchReport(job string, dryRun bool, startedAt time.Time) *BatchReport {
	return &BatchReport{
		Job:       job,
		DryRun:    dryRun,
		StartedAt: startedAt,
		Counts:    make(map[string]int),
	}
}

func (r *BatchReport) add(item BatchItem) {
	r.Items = append(r.Items, item)
	r.Counts[item.Outcome]++
}

// Count returns how many items ended with outcome.
func (r *BatchReport) Count(outcome string) int {
	return r.Counts[outcome]
}

// processItem runs fn for one subscription and turns a panic into an errored
// item so the rest of the batch keeps going. fn advances *stage as it goes.
func processItem(ctx context.Context, log logger.Interface, subscriptionID uint,
	fn func(ctx context.Context, stage *string) BatchItem) (item BatchItem) {
	stage := StageLoad
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("panic while processing subscription",
				"subscription_id", subscriptionID,
				"stage", stage,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			item = BatchItem{
				SubscriptionID: subscriptionID,
				Outcome:        OutcomeErrored,
				Stage:          stage,
				Detail:         fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	item = fn(ctx, &stage)
	item.SubscriptionID = subscriptionID
	return item
}

func erroredItem(stage string, err error) BatchItem {
	return BatchItem{Outcome: OutcomeErrored, Stage: stage, Detail: err.Error()}
}
