package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_LegalTransitions(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("waiting to in progress to completed", func(t *testing.T) {
		j := NewJob("J1", "C1", "Q1", "admin", now)
		require.Equal(t, JobStateWaiting, j.State)
		assert.Nil(t, j.StartedAt)

		require.NoError(t, j.Start(now.Add(time.Second)))
		assert.Equal(t, JobStateInProgress, j.State)
		require.NotNil(t, j.StartedAt)
		assert.Nil(t, j.EndedAt)

		require.NoError(t, j.Complete(now.Add(time.Minute)))
		assert.Equal(t, JobStateCompleted, j.State)
		require.NotNil(t, j.EndedAt)
		assert.Equal(t, now.Add(time.Minute), *j.EndedAt)
	})

	t.Run("in progress to failed", func(t *testing.T) {
		j := NewJob("J2", "C2", "Q1", "", now)
		require.NoError(t, j.Start(now))
		require.NoError(t, j.Fail(now))
		assert.Equal(t, JobStateFailed, j.State)
		assert.True(t, j.State.Terminal())
	})
}

func TestJob_Abandon(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	j := NewJob("J1", "C1", "Q1", "", now)
	require.NoError(t, j.Abandon(now.Add(time.Second)))
	assert.Equal(t, JobStateFailed, j.State)
	assert.Nil(t, j.StartedAt, "an abandoned job never started")
	require.NotNil(t, j.EndedAt)
	assert.Equal(t, now.Add(time.Second), *j.EndedAt)

	started := NewJob("J2", "C1", "Q1", "", now)
	require.NoError(t, started.Start(now))
	err := started.Abandon(now)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, JobStateInProgress, started.State)
}

func TestJob_IllegalTransitions(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		run  func(j *Job) error
		prep func(j *Job)
	}{
		{name: "complete from waiting", run: func(j *Job) error { return j.Complete(now) }},
		{name: "fail from waiting", run: func(j *Job) error { return j.Fail(now) }},
		{
			name: "start twice",
			prep: func(j *Job) { _ = j.Start(now) },
			run:  func(j *Job) error { return j.Start(now) },
		},
		{
			name: "fail after complete",
			prep: func(j *Job) { _ = j.Start(now); _ = j.Complete(now) },
			run:  func(j *Job) error { return j.Fail(now) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewJob("J", "C", "Q", "", now)
			if tt.prep != nil {
				tt.prep(j)
			}
			before := *j
			err := tt.run(j)
			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, before, *j, "failed transition must not mutate the job")
		})
	}
}

func TestEncodeDecodeJob(t *testing.T) {
	j := NewJob("J1", "C1", "Q1", "admin", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	raw, err := EncodeJob(j)
	require.NoError(t, err)

	got, err := DecodeJob(raw)
	require.NoError(t, err)
	assert.Equal(t, j, got)
}

func TestDecodeJob_RejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":       `"C1"`,
		"missing id":     `{"contactId":"C1","questionSetId":"Q1","state":"WAITING"}`,
		"missing qs":     `{"jobId":"J","contactId":"C1","state":"WAITING"}`,
		"unknown state":  `{"jobId":"J","contactId":"C1","questionSetId":"Q1","state":"DONE"}`,
		"bare contactId": `C1`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeJob([]byte(raw))
			assert.Error(t, err)
		})
	}
}
