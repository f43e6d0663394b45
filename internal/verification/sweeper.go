package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/metrics"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

// SweeperConfig configures the stalled analysis sweeper
type SweeperConfig struct {
	// Schedule is a cron expression with a seconds field
	Schedule   string        `json:"schedule"`
	BatchSize  int           `json:"batch_size"`
	RunTimeout time.Duration `json:"run_timeout"`
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Schedule:   "0 * * * * *",
		BatchSize:  100,
		RunTimeout: 30 * time.Second,
	}
}

// Sweeper fails analyses that exceeded the analysis timeout. Records whose
// attempt budget is spent are rejected by the service.
type Sweeper struct {
	cron    *cron.Cron
	service *Service
	repo    Repository
	cfg     SweeperConfig
	logger  *zap.Logger
	mu      sync.Mutex
	running bool
}

// NewSweeper creates a new sweeper
func NewSweeper(service *Service, repo Repository, cfg SweeperConfig, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		cron:    cron.New(cron.WithSeconds()),
		service: service,
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start schedules the sweep and starts the cron scheduler
func (w *Sweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("sweeper already running")
	}

	_, err := w.cron.AddFunc(w.cfg.Schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, w.cfg.RunTimeout)
		defer cancel()
		if _, err := w.Sweep(runCtx); err != nil {
			w.logger.Error("stalled analysis sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", w.cfg.Schedule, err)
	}

	w.logger.Info("Starting stalled analysis sweeper", zap.String("schedule", w.cfg.Schedule))
	w.cron.Start()
	w.running = true
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (w *Sweeper) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.logger.Info("Stopping stalled analysis sweeper")
	<-w.cron.Stop().Done()
	w.running = false
}

// SweepResult counts what a sweep did
type SweepResult struct {
	Failed   int `json:"failed"`
	Rejected int `json:"rejected"`
	Skipped  int `json:"skipped"`
}

// Sweep runs one pass over stalled analyses
func (w *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	cutoff := w.service.now().Add(-w.service.cfg.AnalysisTimeout)
	stalled, err := w.repo.ListStalledAnalyses(ctx, cutoff, w.cfg.BatchSize)
	if err != nil {
		return res, err
	}

	actor := auth.System("analysis-sweeper")
	for _, rec := range stalled {
		out, err := w.service.FailAnalysis(ctx, rec.PropertyID, actor, rec.AnalysisAttempts, "analysis timed out")
		switch {
		case errors.Is(err, workflows.ErrIllegalTransition), errors.Is(err, workflows.ErrTerminalState):
			// the result arrived after the listing was read
			res.Skipped++
			continue
		case err != nil:
			w.logger.Warn("failed to sweep stalled analysis",
				zap.String("property_id", rec.PropertyID.String()), zap.Error(err))
			res.Skipped++
			continue
		}
		if out.Record.Status == workflows.StatusRejected {
			res.Rejected++
			metrics.SweptAnalyses.WithLabelValues("rejected").Inc()
		} else {
			res.Failed++
			metrics.SweptAnalyses.WithLabelValues("failed").Inc()
		}
	}
	if res.Failed+res.Rejected > 0 {
		w.logger.Info("stalled analyses swept",
			zap.Int("failed", res.Failed), zap.Int("rejected", res.Rejected))
	}
	return res, nil
}
