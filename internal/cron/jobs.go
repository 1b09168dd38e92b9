package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/bookstore-storefront/pkg/logger"
)

type sessionEvictor interface {
	EvictIdle() []string
}

type attemptPruner interface {
	Prune(cutoff time.Time) int
}

type paymentExpirer interface {
	ExpireWaiting(ctx context.Context, cutoff time.Time) int
}

// SessionEvictionJob drops idle storefront sessions.
type SessionEvictionJob struct {
	sessions sessionEvictor
	logg     *logger.Logger
}

// NewSessionEvictionJob wires the job.
func NewSessionEvictionJob(sessions sessionEvictor, logg *logger.Logger) (*SessionEvictionJob, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session registry required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &SessionEvictionJob{sessions: sessions, logg: logg}, nil
}

func (j *SessionEvictionJob) Name() string { return "session_eviction" }

func (j *SessionEvictionJob) Run(ctx context.Context) error {
	evicted := j.sessions.EvictIdle()
	if len(evicted) > 0 {
		j.logg.Info(j.logg.WithField(ctx, "evicted", len(evicted)), "idle sessions evicted")
	}
	return nil
}

// AttemptPruneJob forgets settled checkout attempts after the retention window.
type AttemptPruneJob struct {
	attempts  attemptPruner
	retention time.Duration
	now       func() time.Time
	logg      *logger.Logger
}

// NewAttemptPruneJob wires the job.
func NewAttemptPruneJob(attempts attemptPruner, retention time.Duration, logg *logger.Logger) (*AttemptPruneJob, error) {
	if attempts == nil {
		return nil, fmt.Errorf("checkout orchestrator required")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &AttemptPruneJob{attempts: attempts, retention: retention, now: time.Now, logg: logg}, nil
}

func (j *AttemptPruneJob) Name() string { return "attempt_prune" }

func (j *AttemptPruneJob) Run(ctx context.Context) error {
	if n := j.attempts.Prune(j.now().Add(-j.retention)); n > 0 {
		j.logg.Info(j.logg.WithField(ctx, "pruned", n), "settled checkout attempts pruned")
	}
	return nil
}

// PaymentExpiryJob cancels attempts left waiting on the payment collector past the
// payment window, freeing their sessions before the checkout guard lapses.
type PaymentExpiryJob struct {
	attempts paymentExpirer
	window   time.Duration
	now      func() time.Time
	logg     *logger.Logger
}

// NewPaymentExpiryJob wires the job.
func NewPaymentExpiryJob(attempts paymentExpirer, window time.Duration, logg *logger.Logger) (*PaymentExpiryJob, error) {
	if attempts == nil {
		return nil, fmt.Errorf("checkout orchestrator required")
	}
	if window <= 0 {
		return nil, fmt.Errorf("payment window must be positive")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &PaymentExpiryJob{attempts: attempts, window: window, now: time.Now, logg: logg}, nil
}

func (j *PaymentExpiryJob) Name() string { return "payment_wait_expiry" }

func (j *PaymentExpiryJob) Run(ctx context.Context) error {
	if n := j.attempts.ExpireWaiting(ctx, j.now().Add(-j.window)); n > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "expired", n), "waiting checkout attempts expired")
	}
	return nil
}
