package service

import (
	"testing"

	"corp_learning_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedulerRegistersJobs(t *testing.T) {
	s, err := NewScheduler(config.SchedulerConfig{
		ReportCron:       "@every 15m",
		SessionSweepCron: "@every 5m",
		SessionIdleMins:  240,
	}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)

	s.Start()
	s.Stop()
}

func TestNewSchedulerSkipsEmptySchedules(t *testing.T) {
	s, err := NewScheduler(config.SchedulerConfig{}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, s.cron.Entries())
}

func TestNewSchedulerRejectsBadCron(t *testing.T) {
	_, err := NewScheduler(config.SchedulerConfig{ReportCron: "every tuesday"}, nil, nil)
	assert.ErrorContains(t, err, "scheduler.report_cron")

	_, err = NewScheduler(config.SchedulerConfig{SessionSweepCron: "* * *"}, nil, nil)
	assert.ErrorContains(t, err, "scheduler.session_sweep_cron")
}
