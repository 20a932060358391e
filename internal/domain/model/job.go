// Package model defines the core data types shared by the queue, dispatch, and reconciliation layers.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobState is the lifecycle state of a consultation job.
type JobState string

const (
	// JobStateWaiting indicates the job is queued and has not been dispatched.
	JobStateWaiting JobState = "WAITING"
	// JobStateInProgress indicates the orchestrator accepted (or is receiving) the dispatch.
	JobStateInProgress JobState = "IN_PROGRESS"
	// JobStateCompleted indicates a result callback finalized the job.
	JobStateCompleted JobState = "COMPLETED"
	// JobStateFailed indicates dispatch or the consultation itself failed.
	JobStateFailed JobState = "FAILED"
)

// ErrInvalidTransition is returned when a state change is not one of
// WAITING→IN_PROGRESS, IN_PROGRESS→{COMPLETED,FAILED}, or an abandoning WAITING→FAILED.
var ErrInvalidTransition = errors.New("invalid job state transition")

// Valid returns true if the JobState is one of the known states.
func (s JobState) Valid() bool {
	switch s {
	case JobStateWaiting, JobStateInProgress, JobStateCompleted, JobStateFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are allowed from s.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Job is one contact's pending, active, or terminal consultation attempt.
type Job struct {
	ID            string     `json:"jobId"`
	ContactID     string     `json:"contactId"`
	QuestionSetID string     `json:"questionSetId"`
	AccountID     string     `json:"accountId,omitempty"`
	State         JobState   `json:"state"`
	CreatedAt     time.Time  `json:"createdAt"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
}

// NewJob builds a WAITING job.
func NewJob(id, contactID, questionSetID, accountID string, now time.Time) *Job {
	return &Job{
		ID:            id,
		ContactID:     contactID,
		QuestionSetID: questionSetID,
		AccountID:     accountID,
		State:         JobStateWaiting,
		CreatedAt:     now.UTC(),
	}
}

// Validate checks the fields every queued job must carry.
func (j *Job) Validate() error {
	if j == nil {
		return errors.New("job is nil")
	}
	if strings.TrimSpace(j.ID) == "" {
		return errors.New("job id is required")
	}
	if strings.TrimSpace(j.ContactID) == "" {
		return errors.New("contact id is required")
	}
	if strings.TrimSpace(j.QuestionSetID) == "" {
		return errors.New("question set id is required")
	}
	if !j.State.Valid() {
		return fmt.Errorf("invalid job state %q", j.State)
	}
	return nil
}

// Start moves the job from WAITING to IN_PROGRESS and stamps StartedAt.
func (j *Job) Start(now time.Time) error {
	if j.State != JobStateWaiting {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.State, JobStateInProgress)
	}
	t := now.UTC()
	j.State = JobStateInProgress
	j.StartedAt = &t
	return nil
}

// Complete moves the job from IN_PROGRESS to COMPLETED and stamps EndedAt.
func (j *Job) Complete(now time.Time) error {
	return j.finish(JobStateCompleted, now)
}

// Fail moves the job from IN_PROGRESS to FAILED and stamps EndedAt.
func (j *Job) Fail(now time.Time) error {
	return j.finish(JobStateFailed, now)
}

// Abandon moves a WAITING job that can never be dispatched straight to FAILED.
func (j *Job) Abandon(now time.Time) error {
	if j.State != JobStateWaiting {
		return fmt.Errorf("%w: %s -> %s (abandon)", ErrInvalidTransition, j.State, JobStateFailed)
	}
	t := now.UTC()
	j.State = JobStateFailed
	j.EndedAt = &t
	return nil
}

func (j *Job) finish(to JobState, now time.Time) error {
	if j.State != JobStateInProgress {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.State, to)
	}
	t := now.UTC()
	j.State = to
	j.EndedAt = &t
	return nil
}

// EncodeJob serializes a job for the waiting queue.
func EncodeJob(j *Job) ([]byte, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(j)
}

// DecodeJob is the only decode path for queue entries.
func DecodeJob(raw []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	if err := j.Validate(); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &j, nil
}
