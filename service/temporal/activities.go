package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/yotlabs/hubclient/service/metrics"
	natspkg "github.com/yotlabs/hubclient/service/nats"
	"github.com/yotlabs/hubclient/service/pipeline"
)

// HarvestWorkflowInput contains the input parameters for an auto-harvest run.
type HarvestWorkflowInput struct {
	Owner string `json:"owner"` // base58 wallet address
}

// HarvestWorkflowResult contains the outcome of an auto-harvest run.
type HarvestWorkflowResult struct {
	Owner         string    `json:"owner"`
	Skipped       bool      `json:"skipped"`
	PendingReward uint64    `json:"pending_reward"`
	Signature     *string   `json:"signature,omitempty"`
	Slot          *uint64   `json:"slot,omitempty"`
	HarvestTime   time.Time `json:"harvest_time"`
	Error         *string   `json:"error,omitempty"`
}

// CheckHarvestableInput contains parameters for the CheckHarvestable activity.
type CheckHarvestableInput struct {
	Owner string `json:"owner"`
}

// CheckHarvestableResult contains the result of the CheckHarvestable activity.
type CheckHarvestableResult struct {
	CanHarvest    bool   `json:"can_harvest"`
	PendingReward uint64 `json:"pending_reward"`
}

// SubmitHarvestInput contains parameters for the SubmitHarvest activity.
type SubmitHarvestInput struct {
	Owner string `json:"owner"`
}

// SubmitHarvestResult contains the result of the SubmitHarvest activity.
type SubmitHarvestResult struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
}

// RecordHarvestOutcomeInput contains parameters for the RecordHarvestOutcome activity.
type RecordHarvestOutcomeInput struct {
	Owner         string  `json:"owner"`
	Skipped       bool    `json:"skipped"`
	PendingReward uint64  `json:"pending_reward"`
	Signature     *string `json:"signature,omitempty"`
	Slot          *uint64 `json:"slot,omitempty"`
}

// RecordHarvestOutcomeResult contains the result of the RecordHarvestOutcome activity.
type RecordHarvestOutcomeResult struct {
	Published bool `json:"published"`
}

// HubClientInterface defines the client operations needed by activities.
// This allows for easy mocking in tests.
type HubClientInterface interface {
	CanHarvest(ctx context.Context, owner solanago.PublicKey) (bool, uint64, error)
	Harvest(ctx context.Context, signer pipeline.Signer) (*pipeline.Result, error)
}

// PublisherInterface defines the NATS publishing operations needed by activities.
type PublisherInterface interface {
	PublishSubmission(ctx context.Context, event *natspkg.SubmissionEvent) error
}

// Activities holds the dependencies needed by Temporal activities.
// All dependencies are explicit.
type Activities struct {
	hub       HubClientInterface
	signer    pipeline.Signer
	publisher PublisherInterface
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If metrics is nil, no metrics will be recorded. If publisher is nil,
// harvest outcomes are logged but not published.
func NewActivities(
	hub HubClientInterface,
	signer pipeline.Signer,
	publisher PublisherInterface,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		hub:       hub,
		signer:    signer,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// CheckHarvestable reads the owner's staking account and the program rate
// state, and reports whether the accrued reward has reached the harvest
// threshold.
func (a *Activities) CheckHarvestable(ctx context.Context, input CheckHarvestableInput) (*CheckHarvestableResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("CheckHarvestable", input.Owner, time.Since(start).Seconds())
		}
	}()

	owner, err := solanago.PublicKeyFromBase58(input.Owner)
	if err != nil {
		return nil, fmt.Errorf("invalid owner address %q: %w", input.Owner, err)
	}

	ok, pending, err := a.hub.CanHarvest(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to check harvestability: %w", err)
	}

	a.logger.InfoContext(ctx, "checked harvestability",
		"owner", input.Owner,
		"can_harvest", ok,
		"pending_reward", pending,
	)

	return &CheckHarvestableResult{CanHarvest: ok, PendingReward: pending}, nil
}

// SubmitHarvest submits a harvest transaction through the pipeline using the
// worker's configured signer. The input owner must match the signer's wallet:
// the worker can only harvest for keys it holds.
func (a *Activities) SubmitHarvest(ctx context.Context, input SubmitHarvestInput) (*SubmitHarvestResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("SubmitHarvest", input.Owner, time.Since(start).Seconds())
		}
	}()

	if a.signer == nil {
		return nil, fmt.Errorf("no harvest signer configured")
	}
	if input.Owner != a.signer.PublicKey().String() {
		return nil, fmt.Errorf("owner %s does not match worker signer %s", input.Owner, a.signer.PublicKey())
	}

	res, err := a.hub.Harvest(ctx, a.signer)
	if err != nil {
		return nil, fmt.Errorf("harvest submission failed: %w", err)
	}

	a.logger.InfoContext(ctx, "harvest submitted",
		"owner", input.Owner,
		"signature", res.Signature,
		"slot", res.Slot,
	)

	return &SubmitHarvestResult{Signature: res.Signature.String(), Slot: res.Slot}, nil
}

// RecordHarvestOutcome publishes a workflow-level summary event. Individual
// submissions are already recorded by the pipeline; this event covers skipped
// runs too so subscribers see every scheduled attempt.
func (a *Activities) RecordHarvestOutcome(ctx context.Context, input RecordHarvestOutcomeInput) (*RecordHarvestOutcomeResult, error) {
	status := "HARVESTED"
	if input.Skipped {
		status = "SKIPPED"
	}

	if a.publisher == nil {
		a.logger.DebugContext(ctx, "no publisher configured, skipping outcome event",
			"owner", input.Owner,
			"status", status,
		)
		return &RecordHarvestOutcomeResult{Published: false}, nil
	}

	event := &natspkg.SubmissionEvent{
		Wallet:      input.Owner,
		Operation:   "auto_harvest",
		Status:      status,
		PublishedAt: time.Now(),
	}
	if input.Signature != nil {
		event.Signature = *input.Signature
	}
	if input.Slot != nil {
		slot := int64(*input.Slot)
		event.Slot = &slot
	}

	if err := a.publisher.PublishSubmission(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to publish harvest outcome: %w", err)
	}

	a.logger.InfoContext(ctx, "harvest outcome published",
		"owner", input.Owner,
		"status", status,
		"pending_reward", input.PendingReward,
	)

	return &RecordHarvestOutcomeResult{Published: true}, nil
}
