package service

import (
	"context"
	"fmt"
	"time"

	"corp_learning_backend/internal/config"
	"corp_learning_backend/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler 后台定时任务：报表快照、空闲作答会话清理
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler(cfg config.SchedulerConfig, reports *ReportService, assessments *AssessmentService) (*Scheduler, error) {
	c := cron.New()

	if cfg.ReportCron != "" {
		_, err := c.AddFunc(cfg.ReportCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if _, err := reports.RefreshSnapshot(ctx); err != nil {
				logger.Log.Warn("Report snapshot failed", zap.Error(err))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler.report_cron %q: %w", cfg.ReportCron, err)
		}
	}

	if cfg.SessionSweepCron != "" {
		idle := time.Duration(cfg.SessionIdleMins) * time.Minute
		_, err := c.AddFunc(cfg.SessionSweepCron, func() {
			if n := assessments.SweepIdleSessions(idle); n > 0 {
				logger.Log.Info("Idle attempt sessions swept",
					zap.Int("removed", n),
					zap.Int("remaining", assessments.ActiveSessions()))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler.session_sweep_cron %q: %w", cfg.SessionSweepCron, err)
		}
	}

	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Log.Info("Scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop 等待运行中的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
