package prune

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultDays is the age in days after which topics are deleted
	DefaultDays = 90
	// DefaultSchedule runs the job daily at 02:00 UTC
	DefaultSchedule = "0 2 * * *"
	// DefaultTimeout bounds a single pass
	DefaultTimeout = 5 * time.Minute
	// DefaultNotificationDays is how long read notifications are kept
	DefaultNotificationDays = 30
)

// TopicPruner deletes topics created before cutoff. forum.Service implements it.
type TopicPruner interface {
	PruneTopics(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationPruner deletes read notifications created before cutoff.
// Targets that also implement it get their inboxes cleaned on every pass.
type NotificationPruner interface {
	PruneNotifications(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config configures a Pruner
type Config struct {
	// Days is the topic age that triggers deletion; 0 disables pruning
	Days int
	// Schedule is a standard five-field cron expression evaluated in UTC
	Schedule string
	// Timeout bounds each pass
	Timeout time.Duration
	// NotificationDays is the age of read notifications that triggers
	// deletion; 0 keeps them forever
	NotificationDays int
}

// DefaultConfig returns the default pruning configuration
func DefaultConfig() Config {
	return Config{
		Days:             DefaultDays,
		Schedule:         DefaultSchedule,
		Timeout:          DefaultTimeout,
		NotificationDays: DefaultNotificationDays,
	}
}

// Pruner periodically deletes old topics. The age threshold can be changed
// while it runs.
type Pruner struct {
	target    TopicPruner
	days      atomic.Int64
	notifDays int
	schedule  string
	timeout   time.Duration
	logger    *logrus.Logger
	now       func() time.Time
	running   atomic.Bool
}

// New creates a pruner. A nil logger logs JSON to stderr.
func New(target TopicPruner, cfg Config, logger *logrus.Logger) (*Pruner, error) {
	if target == nil {
		return nil, errors.New("prune: target is required")
	}
	if cfg.Days < 0 {
		return nil, fmt.Errorf("prune: days must not be negative, got %d", cfg.Days)
	}
	if cfg.NotificationDays < 0 {
		return nil, fmt.Errorf("prune: notification days must not be negative, got %d", cfg.NotificationDays)
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("prune: invalid schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	p := &Pruner{
		target:    target,
		notifDays: cfg.NotificationDays,
		schedule:  cfg.Schedule,
		timeout:   cfg.Timeout,
		logger:    logger,
		now:       time.Now,
	}
	p.days.Store(int64(cfg.Days))
	return p, nil
}

// AutoDeleteDays returns the current age threshold in days
func (p *Pruner) AutoDeleteDays() int {
	return int(p.days.Load())
}

// SetAutoDeleteDays changes the age threshold; 0 disables pruning
func (p *Pruner) SetAutoDeleteDays(days int) error {
	if days < 0 {
		return fmt.Errorf("days must not be negative, got %d", days)
	}
	old := p.days.Swap(int64(days))
	p.logger.WithFields(logrus.Fields{
		"job":      "prune",
		"old_days": old,
		"new_days": days,
	}).Info("auto delete threshold changed")
	return nil
}

// Schedule returns the cron expression the pruner runs on
func (p *Pruner) Schedule() string {
	return p.schedule
}

// RunOnce performs a single pass with the current threshold and returns how
// many topics were deleted
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	days := p.AutoDeleteDays()
	entry := p.logger.WithField("job", "prune")
	if days == 0 {
		entry.Debug("auto delete disabled, skipping")
		return 0, nil
	}
	return p.pruneOlderThan(ctx, days, entry)
}

// RunDays performs a single pass with an explicit threshold
func (p *Pruner) RunDays(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("days must be positive, got %d", days)
	}
	return p.pruneOlderThan(ctx, days, p.logger.WithField("job", "prune"))
}

func (p *Pruner) pruneOlderThan(ctx context.Context, days int, entry *logrus.Entry) (int64, error) {
	if !p.running.CompareAndSwap(false, true) {
		entry.Warn("previous pass still running, skipping")
		return 0, nil
	}
	defer p.running.Store(false)

	cutoff := p.now().UTC().AddDate(0, 0, -days)
	entry = entry.WithField("cutoff", cutoff.Format(time.RFC3339))

	start := time.Now()
	deleted, err := p.target.PruneTopics(ctx, cutoff)
	if err != nil {
		entry.WithError(err).Error("prune failed")
		return 0, err
	}

	entry.WithFields(logrus.Fields{
		"deleted":     deleted,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("prune completed")
	return deleted, nil
}

// RunNotifications deletes read notifications older than the configured
// retention. It is a no-op when the target keeps no inboxes or retention is off.
func (p *Pruner) RunNotifications(ctx context.Context) (int64, error) {
	np, ok := p.target.(NotificationPruner)
	if !ok || p.notifDays == 0 {
		return 0, nil
	}

	cutoff := p.now().UTC().AddDate(0, 0, -p.notifDays)
	entry := p.logger.WithFields(logrus.Fields{
		"job":    "prune_notifications",
		"cutoff": cutoff.Format(time.RFC3339),
	})
	deleted, err := np.PruneNotifications(ctx, cutoff)
	if err != nil {
		entry.WithError(err).Error("notification cleanup failed")
		return 0, err
	}
	entry.WithField("deleted", deleted).Info("notification cleanup completed")
	return deleted, nil
}

// Run schedules the job and blocks until ctx is cancelled, then waits for a
// running pass to finish
func (p *Pruner) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cron.PrintfLogger(p.logger)),
	)

	_, err := c.AddFunc(p.schedule, func() {
		passCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		_, _ = p.RunOnce(passCtx)
		_, _ = p.RunNotifications(passCtx)
	})
	if err != nil {
		return fmt.Errorf("prune: failed to schedule job: %w", err)
	}

	c.Start()
	p.logger.WithFields(logrus.Fields{
		"job":      "prune",
		"schedule": p.schedule,
		"days":     p.AutoDeleteDays(),
	}).Info("pruner started")

	<-ctx.Done()
	<-c.Stop().Done()
	p.logger.WithField("job", "prune").Info("pruner stopped")
	return nil
}
