package temporal

import (
	"context"
	"time"
)

// Scheduler manages Temporal schedules for auto-harvesting.
// Each owner gets its own schedule that triggers the HarvestWorkflow.
type Scheduler interface {
	// CreateHarvestSchedule creates a new schedule that harvests the owner's
	// rewards on the given interval.
	CreateHarvestSchedule(ctx context.Context, owner string, interval time.Duration) error

	// UpsertHarvestSchedule creates the schedule or, if it already exists,
	// updates its interval.
	UpsertHarvestSchedule(ctx context.Context, owner string, interval time.Duration) error

	// PauseHarvestSchedule pauses the owner's schedule without deleting it.
	PauseHarvestSchedule(ctx context.Context, owner string) error

	// UnpauseHarvestSchedule resumes a paused schedule.
	UnpauseHarvestSchedule(ctx context.Context, owner string) error

	// DeleteHarvestSchedule deletes the owner's schedule.
	DeleteHarvestSchedule(ctx context.Context, owner string) error
}

// scheduleID returns the Temporal schedule ID for an owner.
func scheduleID(owner string) string {
	return "auto-harvest-" + owner
}
