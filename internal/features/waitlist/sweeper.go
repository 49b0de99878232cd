package waitlist

import (
	"context"

	"go-sitter/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically re-checks waiting slots so entries are promoted even
// when no cancellation event fires, for example after a capacity bump.
type Sweeper struct {
	scheduler *Scheduler
	cron      *cron.Cron
	log       *zap.Logger
}

func NewSweeper(scheduler *Scheduler, cfg *config.Config, log *zap.Logger) (*Sweeper, error) {
	s := &Sweeper{
		scheduler: scheduler,
		cron:      cron.New(),
		log:       log,
	}
	_, err := s.cron.AddFunc(cfg.WaitlistSweepSchedule, func() {
		if err := scheduler.Sweep(context.Background()); err != nil {
			log.Error("waitlist sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Info("waitlist sweeper started")
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("waitlist sweeper stopped")
}
