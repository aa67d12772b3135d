package search

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	fail map[int]bool
	slow map[int]time.Duration
}

func (f *fakeRunner) Run(ctx context.Context, job Job) JobResult {
	if d, ok := f.slow[job.Seq]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return JobResult{Seq: job.Seq, OK: false}
		}
	}
	if f.fail[job.Seq] {
		return JobResult{Seq: job.Seq, OK: false}
	}
	var buf bytes.Buffer
	buf.WriteString("[ok]\n")
	return JobResult{Seq: job.Seq, Output: io.NopCloser(&buf), OK: true}
}

func TestScheduler_RunBatch_AllSucceed(t *testing.T) {
	r := &fakeRunner{}
	sched := NewScheduler(r, 4, time.Second)

	jobs := []Job{{Seq: 0}, {Seq: 1}, {Seq: 2}}
	results, err := sched.RunBatch(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, res := range results {
		assert.True(t, res.OK)
	}
}

func TestScheduler_RunBatch_FailureIsFatal(t *testing.T) {
	r := &fakeRunner{fail: map[int]bool{1: true}}
	sched := NewScheduler(r, 4, time.Second)

	jobs := []Job{{Seq: 0}, {Seq: 1}}
	_, err := sched.RunBatch(context.Background(), jobs)
	require.Error(t, err)
}

func TestScheduler_RunBatch_TimeoutIsFatal(t *testing.T) {
	r := &fakeRunner{slow: map[int]time.Duration{0: 200 * time.Millisecond}}
	sched := NewScheduler(r, 4, 20*time.Millisecond)

	jobs := []Job{{Seq: 0}}
	_, err := sched.RunBatch(context.Background(), jobs)
	require.Error(t, err)
}

func TestConcatenateOutputs_PreservesOrder(t *testing.T) {
	results := []JobResult{
		{Seq: 0, Output: bytes.NewBufferString("a\n")},
		{Seq: 1, Output: bytes.NewBufferString("b\n")},
	}
	merged := ConcatenateOutputs(results)
	buf := new(bytes.Buffer)
	_, err := buf.ReadFrom(merged)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", buf.String())
}
