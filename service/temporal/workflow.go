package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/log"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// HarvestWorkflow is the Temporal workflow behind auto-harvest schedules.
// It is triggered per owner at a configured interval.
//
// The workflow performs these steps:
// 1. Check whether the owner's accrued reward has reached the harvest
//    threshold (CheckHarvestable activity)
// 2. If it has, submit a harvest transaction through the pipeline
//    (SubmitHarvest activity)
// 3. Publish a summary event so subscribers see every scheduled attempt,
//    including skipped ones (RecordHarvestOutcome activity)
func HarvestWorkflow(ctx workflow.Context, input HarvestWorkflowInput) (*HarvestWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("HarvestWorkflow started", "owner", input.Owner)

	result := &HarvestWorkflowResult{
		Owner:       input.Owner,
		HarvestTime: workflow.Now(ctx),
	}

	// Read-only check: safe to retry aggressively.
	checkOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	checkCtx := workflow.WithActivityOptions(ctx, checkOptions)

	var check *CheckHarvestableResult
	err := workflow.ExecuteActivity(checkCtx, a.CheckHarvestable, CheckHarvestableInput{Owner: input.Owner}).Get(ctx, &check)
	if err != nil {
		errMsg := fmt.Sprintf("failed to check harvestability: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to check harvestability: %w", err)
	}
	result.PendingReward = check.PendingReward

	if !check.CanHarvest {
		logger.Info("pending reward below threshold, skipping harvest",
			"owner", input.Owner,
			"pending_reward", check.PendingReward,
		)
		result.Skipped = true
		recordOutcome(ctx, logger, result)
		return result, nil
	}

	// Submission is not retried at the Temporal layer: the pipeline already
	// retries transient RPC failures internally, and re-running the activity
	// after a confirmed send could harvest twice.
	submitOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporalsdk.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	submitCtx := workflow.WithActivityOptions(ctx, submitOptions)

	var submitted *SubmitHarvestResult
	err = workflow.ExecuteActivity(submitCtx, a.SubmitHarvest, SubmitHarvestInput{Owner: input.Owner}).Get(ctx, &submitted)
	if err != nil {
		logger.Error("harvest submission failed", "owner", input.Owner, "error", err)
		errMsg := fmt.Sprintf("harvest submission failed: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("harvest submission failed: %w", err)
	}

	result.Signature = &submitted.Signature
	result.Slot = &submitted.Slot

	logger.Info("harvest submitted",
		"owner", input.Owner,
		"signature", submitted.Signature,
		"slot", submitted.Slot,
		"pending_reward", check.PendingReward,
	)

	recordOutcome(ctx, logger, result)

	logger.Info("HarvestWorkflow completed successfully",
		"owner", input.Owner,
		"skipped", result.Skipped,
	)
	return result, nil
}

// recordOutcome publishes the workflow summary. Publishing is best-effort:
// a failed event never fails a harvest that already confirmed.
func recordOutcome(ctx workflow.Context, logger log.Logger, result *HarvestWorkflowResult) {
	outcomeOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 2,
		},
	}
	outcomeCtx := workflow.WithActivityOptions(ctx, outcomeOptions)

	input := RecordHarvestOutcomeInput{
		Owner:         result.Owner,
		Skipped:       result.Skipped,
		PendingReward: result.PendingReward,
		Signature:     result.Signature,
		Slot:          result.Slot,
	}
	var outcome *RecordHarvestOutcomeResult
	if err := workflow.ExecuteActivity(outcomeCtx, a.RecordHarvestOutcome, input).Get(ctx, &outcome); err != nil {
		logger.Warn("failed to publish harvest outcome", "owner", result.Owner, "error", err)
	}
}
