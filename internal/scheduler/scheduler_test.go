package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	count    int
	countErr error
	cleanups int
}

func (f *fakeSessions) CountSessions(context.Context) (int, error) {
	return f.count, f.countErr
}

func (f *fakeSessions) CleanupExpiredSessions(context.Context) error {
	f.cleanups++
	return nil
}

type fakeGauge struct {
	value float64
	sets  int
}

func (g *fakeGauge) SetActiveSessions(count float64) {
	g.value = count
	g.sets++
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRefreshSessionGauge(t *testing.T) {
	sessions := &fakeSessions{count: 7}
	gauge := &fakeGauge{}
	s := New(sessions, gauge, quietLogger())

	s.RefreshSessionGauge()
	assert.Equal(t, 7.0, gauge.value)

	sessions.countErr = errors.New("redis down")
	s.RefreshSessionGauge()
	assert.Equal(t, 1, gauge.sets)
}

func TestCleanupSessions(t *testing.T) {
	sessions := &fakeSessions{}
	s := New(sessions, nil, quietLogger())

	s.CleanupSessions()
	assert.Equal(t, 1, sessions.cleanups)
}

func TestStartRegistersJobs(t *testing.T) {
	s := New(&fakeSessions{}, &fakeGauge{}, quietLogger())
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
	assert.Error(t, s.ctx.Err())
}
