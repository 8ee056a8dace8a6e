package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gearopt/internal/pricestore"
)

type fakeRefresher struct {
	calls  int
	result pricestore.FetchResult
}

func (f *fakeRefresher) Refresh(ctx context.Context) pricestore.FetchResult {
	f.calls++
	return f.result
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRunNowInvokesRefresher(t *testing.T) {
	refresher := &fakeRefresher{result: pricestore.FetchResult{Success: true, ItemCount: 3}}
	s := New(refresher, time.Hour, newTestLogger())

	s.RunNow()
	assert.Equal(t, 1, refresher.calls)
}

func TestStartRejectsDoubleStart(t *testing.T) {
	refresher := &fakeRefresher{result: pricestore.FetchResult{Success: true}}
	s := New(refresher, time.Hour, newTestLogger())

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Error(t, s.Start())
}

func TestStopIsIdempotentWithoutStart(t *testing.T) {
	refresher := &fakeRefresher{}
	s := New(refresher, time.Hour, newTestLogger())
	assert.NotPanics(t, func() { s.Stop() })
}
