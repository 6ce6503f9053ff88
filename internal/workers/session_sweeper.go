package workers

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper is the part of the session service the sweeper drives.
type Sweeper interface {
	Sweep(maxIdle time.Duration) int
	Active() int
}

// SessionSweeper periodically releases profile mirrors nobody has used for
// MaxIdle.
type SessionSweeper struct {
	Sessions Sweeper
	Logger   *logrus.Logger

	Spec    string // cron spec, ex: "@every 1m"
	MaxIdle time.Duration

	cron *cron.Cron
}

func (w *SessionSweeper) Start() error {
	if w.Sessions == nil {
		return errors.New("SessionSweeper missing dependency: Sessions must be set")
	}
	if w.Spec == "" {
		w.Spec = "@every 1m"
	}
	if w.MaxIdle <= 0 {
		w.MaxIdle = 30 * time.Minute
	}
	if w.Logger == nil {
		w.Logger = logrus.New()
	}

	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.Spec, w.RunOnce); err != nil {
		return err
	}
	w.cron.Start()

	w.Logger.WithFields(logrus.Fields{
		"spec":     w.Spec,
		"max_idle": w.MaxIdle.String(),
	}).Info("session sweeper started")
	return nil
}

// RunOnce performs a single sweep.
func (w *SessionSweeper) RunOnce() {
	released := w.Sessions.Sweep(w.MaxIdle)
	if released == 0 {
		return
	}
	w.Logger.WithFields(logrus.Fields{
		"released": released,
		"active":   w.Sessions.Active(),
	}).Info("idle sessions released")
}

// Stop halts the schedule and waits for a running sweep to finish.
func (w *SessionSweeper) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.Logger.Info("session sweeper stopped")
}
