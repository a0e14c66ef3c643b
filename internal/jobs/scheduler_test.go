package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/invest-platform/internal/features/investments"
)

type fakeRunner struct {
	mu       sync.Mutex
	triggers []investments.Trigger
}

func (f *fakeRunner) RunAccrual(_ context.Context, trigger investments.Trigger) (*investments.AccrualRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers = append(f.triggers, trigger)
	return &investments.AccrualRun{Trigger: trigger}, nil
}

func (f *fakeRunner) calls() []investments.Trigger {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]investments.Trigger(nil), f.triggers...)
}

func TestScheduler_RunsOnStart(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(time.UTC, "0 0 * * *", true, runner, nil)

	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	assert.Equal(t, []investments.Trigger{investments.TriggerStartup}, runner.calls())
}

func TestScheduler_NoRunOnStart(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(nil, "0 0 * * *", false, runner, nil)

	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	assert.Empty(t, runner.calls())
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := NewScheduler(time.UTC, "every day", false, &fakeRunner{}, nil)
	assert.Error(t, s.Start(context.Background()))
}
