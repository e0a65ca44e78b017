package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordSink struct {
	runs, attempts, flushes int
	err                     error
}

func (r *recordSink) RecordRun(RunEvent) error {
	r.runs++
	return r.err
}

func (r *recordSink) RecordAttempt(AttemptEvent) error {
	r.attempts++
	return nil
}

func (r *recordSink) Flush(context.Context) error {
	r.flushes++
	return nil
}

type runOnly struct{ runs int }

func (r *runOnly) RecordRun(RunEvent) error {
	r.runs++
	return nil
}

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{}
	s2 := &runOnly{}
	m := NewMultiSink(s1, s2)

	assert.NoError(t, m.RecordRun(RunEvent{RunID: "r"}))
	assert.NoError(t, m.RecordAttempt(AttemptEvent{}))
	assert.NoError(t, m.RecordProgress(ProgressEvent{}))
	assert.NoError(t, m.Flush(context.Background()))

	assert.Equal(t, 1, s1.runs)
	assert.Equal(t, 1, s1.attempts)
	assert.Equal(t, 1, s1.flushes)
	assert.Equal(t, 1, s2.runs)
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := &recordSink{err: boom}
	ok := &recordSink{}
	m := NewMultiSink(failing, ok)

	err := m.RecordRun(RunEvent{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, ok.runs, "a failing sink must not starve the others")
}
