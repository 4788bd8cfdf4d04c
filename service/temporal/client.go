package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
)

// Client is a production implementation of Scheduler that talks to Temporal.
type Client struct {
	client      client.Client
	taskQueue   string
	minInterval time.Duration
	logger      *slog.Logger
}

// NewClient creates a new Temporal client. Intervals shorter than minInterval
// are rejected when creating or updating schedules; pass zero to disable the
// floor.
func NewClient(host, namespace, taskQueue string, minInterval time.Duration, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:      c,
		taskQueue:   taskQueue,
		minInterval: minInterval,
		logger:      logger,
	}, nil
}

// CreateHarvestSchedule creates a new Temporal schedule that runs the
// HarvestWorkflow for the owner on the given interval.
func (c *Client) CreateHarvestSchedule(ctx context.Context, owner string, interval time.Duration) error {
	if err := c.checkInterval(interval); err != nil {
		return err
	}
	id := scheduleID(owner)

	c.logger.Debug("creating harvest schedule",
		"owner", owner,
		"schedule_id", id,
		"interval", interval,
	)

	workflowAction := client.ScheduleWorkflowAction{
		ID:        "auto-harvest-run-" + owner,
		Workflow:  "HarvestWorkflow",
		TaskQueue: c.taskQueue,
		Args:      []interface{}{HarvestWorkflowInput{Owner: owner}},
	}

	_, err := c.client.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: id,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{
				{Every: interval},
			},
		},
		Action: &workflowAction,
		Memo: map[string]interface{}{
			"owner":      owner,
			"created_by": "hubclient",
		},
	})
	if err != nil {
		c.logger.Error("failed to create schedule",
			"owner", owner,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to create schedule %q: %w", id, err)
	}

	c.logger.Info("harvest schedule created",
		"owner", owner,
		"schedule_id", id,
		"interval", interval,
	)
	return nil
}

// UpsertHarvestSchedule creates or updates the owner's schedule. If the
// schedule already exists, only the interval is updated.
func (c *Client) UpsertHarvestSchedule(ctx context.Context, owner string, interval time.Duration) error {
	if err := c.checkInterval(interval); err != nil {
		return err
	}
	id := scheduleID(owner)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if _, err := handle.Describe(ctx); err != nil {
		c.logger.Debug("schedule not found, creating new one",
			"schedule_id", id,
			"error", err,
		)
		return c.CreateHarvestSchedule(ctx, owner, interval)
	}

	err := handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			input.Description.Schedule.Spec.Intervals = []client.ScheduleIntervalSpec{
				{Every: interval},
			}
			return &client.ScheduleUpdate{
				Schedule: &input.Description.Schedule,
			}, nil
		},
	})
	if err != nil {
		c.logger.Error("failed to update schedule",
			"owner", owner,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to update schedule %q: %w", id, err)
	}

	c.logger.Info("harvest schedule updated",
		"owner", owner,
		"schedule_id", id,
		"interval", interval,
	)
	return nil
}

// PauseHarvestSchedule pauses the owner's schedule without deleting it.
func (c *Client) PauseHarvestSchedule(ctx context.Context, owner string) error {
	id := scheduleID(owner)
	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if err := handle.Pause(ctx, client.SchedulePauseOptions{Note: "paused by hubctl"}); err != nil {
		return fmt.Errorf("failed to pause schedule %q: %w", id, err)
	}
	c.logger.Info("harvest schedule paused", "owner", owner, "schedule_id", id)
	return nil
}

// UnpauseHarvestSchedule resumes a paused schedule.
func (c *Client) UnpauseHarvestSchedule(ctx context.Context, owner string) error {
	id := scheduleID(owner)
	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if err := handle.Unpause(ctx, client.ScheduleUnpauseOptions{Note: "unpaused by hubctl"}); err != nil {
		return fmt.Errorf("failed to unpause schedule %q: %w", id, err)
	}
	c.logger.Info("harvest schedule unpaused", "owner", owner, "schedule_id", id)
	return nil
}

// DeleteHarvestSchedule deletes the owner's schedule.
func (c *Client) DeleteHarvestSchedule(ctx context.Context, owner string) error {
	id := scheduleID(owner)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if err := handle.Delete(ctx); err != nil {
		c.logger.Error("failed to delete schedule",
			"owner", owner,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to delete schedule %q: %w", id, err)
	}

	c.logger.Info("harvest schedule deleted", "owner", owner, "schedule_id", id)
	return nil
}

// SDKClient returns the underlying Temporal SDK client for direct workflow operations.
func (c *Client) SDKClient() client.Client {
	return c.client
}

// TaskQueue returns the configured task queue for this client.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

func (c *Client) checkInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("harvest interval must be positive, got %v", interval)
	}
	if c.minInterval > 0 && interval < c.minInterval {
		return fmt.Errorf("harvest interval %v is below the minimum %v", interval, c.minInterval)
	}
	return nil
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
