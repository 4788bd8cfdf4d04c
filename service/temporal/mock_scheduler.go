package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockScheduler is a mock implementation of Scheduler for testing.
type MockScheduler struct {
	mu        sync.Mutex
	schedules map[string]time.Duration // map[scheduleID]interval
	paused    map[string]bool
	createErr error
	deleteErr error
}

// NewMockScheduler creates a new MockScheduler.
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{
		schedules: make(map[string]time.Duration),
		paused:    make(map[string]bool),
	}
}

// CreateHarvestSchedule records that a schedule was created.
func (m *MockScheduler) CreateHarvestSchedule(ctx context.Context, owner string, interval time.Duration) error {
	if m.createErr != nil {
		return m.createErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := scheduleID(owner)
	if _, exists := m.schedules[id]; exists {
		return fmt.Errorf("schedule %q already exists", id)
	}
	m.schedules[id] = interval
	return nil
}

// UpsertHarvestSchedule creates or updates a schedule.
func (m *MockScheduler) UpsertHarvestSchedule(ctx context.Context, owner string, interval time.Duration) error {
	if m.createErr != nil {
		return m.createErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.schedules[scheduleID(owner)] = interval
	return nil
}

// PauseHarvestSchedule marks a schedule paused.
func (m *MockScheduler) PauseHarvestSchedule(ctx context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := scheduleID(owner)
	if _, exists := m.schedules[id]; !exists {
		return fmt.Errorf("schedule %q not found", id)
	}
	m.paused[id] = true
	return nil
}

// UnpauseHarvestSchedule clears a schedule's paused mark.
func (m *MockScheduler) UnpauseHarvestSchedule(ctx context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := scheduleID(owner)
	if _, exists := m.schedules[id]; !exists {
		return fmt.Errorf("schedule %q not found", id)
	}
	delete(m.paused, id)
	return nil
}

// DeleteHarvestSchedule records that a schedule was deleted.
func (m *MockScheduler) DeleteHarvestSchedule(ctx context.Context, owner string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := scheduleID(owner)
	if _, exists := m.schedules[id]; !exists {
		return fmt.Errorf("schedule %q not found", id)
	}

	delete(m.schedules, id)
	delete(m.paused, id)
	return nil
}

// SetCreateError makes CreateHarvestSchedule return an error.
func (m *MockScheduler) SetCreateError(err error) {
	m.createErr = err
}

// SetDeleteError makes DeleteHarvestSchedule return an error.
func (m *MockScheduler) SetDeleteError(err error) {
	m.deleteErr = err
}

// ScheduleExists checks if a schedule exists for an owner.
func (m *MockScheduler) ScheduleExists(owner string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.schedules[scheduleID(owner)]
	return exists
}

// IsPaused reports whether the owner's schedule is paused.
func (m *MockScheduler) IsPaused(owner string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused[scheduleID(owner)]
}

// GetScheduleInterval returns the interval for an owner's schedule.
func (m *MockScheduler) GetScheduleInterval(owner string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	interval, exists := m.schedules[scheduleID(owner)]
	return interval, exists
}

// ScheduleCount returns the number of schedules.
func (m *MockScheduler) ScheduleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.schedules)
}

// Reset clears all schedules and errors.
func (m *MockScheduler) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules = make(map[string]time.Duration)
	m.paused = make(map[string]bool)
	m.createErr = nil
	m.deleteErr = nil
}
