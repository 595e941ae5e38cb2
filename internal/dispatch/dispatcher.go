// Package dispatch delivers scheduled sends once they fall due.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Champ-Deep/ChampMail-sub000/internal/config"
	"github.com/Champ-Deep/ChampMail-sub000/internal/kv"
	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/mail"
	"github.com/Champ-Deep/ChampMail-sub000/internal/metrics"
	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// SendStore is the relational store of scheduled sends
type SendStore interface {
	DueSends(ctx context.Context, before time.Time, limit int) ([]types.DueSend, error)
	MarkSendSent(ctx context.Context, sendID, messageID string, at time.Time) error
	MarkSendFailed(ctx context.Context, sendID, reason string) error
}

// Mailer delivers one message and returns its Message-ID
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) (string, error)
}

// LinkIssuer rebuilds signed tracking links
type LinkIssuer interface {
	UnsubscribeURL(trackingID string) string
}

// Deps are the collaborators of a Dispatcher. Links is optional; without it no
// List-Unsubscribe header is sent.
type Deps struct {
	Sends   SendStore
	Mailer  Mailer
	Links   LinkIssuer
	Store   kv.Store
	Keys    kv.Keys
	TTLs    kv.TTLs
	Metrics *metrics.Metrics
	Logger  logging.Logger
	Now     func() time.Time
}

// Summary counts the outcome of one dispatch pass
type Summary struct {
	Sent     int
	Failed   int
	Deferred int
}

// Dispatcher periodically sends due emails, at most MaxPerMinute per campaign per minute
type Dispatcher struct {
	cfg          config.DispatchConfig
	maxPerMinute int
	sends        SendStore
	mailer       Mailer
	links        LinkIssuer
	store        kv.Store
	keys         kv.Keys
	ttls         kv.TTLs
	metrics      *metrics.Metrics
	logger       logging.Logger
	now          func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a dispatcher
func New(cfg config.DispatchConfig, maxPerMinute int, deps Deps) (*Dispatcher, error) {
	switch {
	case deps.Sends == nil:
		return nil, fmt.Errorf("send store is required")
	case deps.Mailer == nil:
		return nil, fmt.Errorf("mailer is required")
	case deps.Store == nil:
		return nil, fmt.Errorf("kv store is required")
	}
	if cfg.Spec == "" {
		cfg.Spec = "@every 1m"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if deps.TTLs == (kv.TTLs{}) {
		deps.TTLs = kv.DefaultTTLs()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Dispatcher{
		cfg:          cfg,
		maxPerMinute: maxPerMinute,
		sends:        deps.Sends,
		mailer:       deps.Mailer,
		links:        deps.Links,
		store:        deps.Store,
		keys:         deps.Keys,
		ttls:         deps.TTLs,
		metrics:      deps.Metrics,
		logger:       deps.Logger.WithField("component", "dispatcher"),
		now:          deps.Now,
	}, nil
}

// Start schedules Dispatch on the configured cron spec. Overlapping passes are skipped.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cron != nil {
		return fmt.Errorf("dispatcher already started")
	}

	clog := cronLogger{d.logger}
	c := cron.New(
		cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		cron.WithLogger(clog),
	)
	ctx = context.WithoutCancel(ctx)
	if _, err := c.AddFunc(d.cfg.Spec, func() {
		if _, err := d.Dispatch(ctx); err != nil {
			d.logger.WithError(err).Error("Dispatch pass failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid dispatch schedule %q: %w", d.cfg.Spec, err)
	}
	c.Start()
	d.cron = c
	d.logger.WithField("spec", d.cfg.Spec).Info("Dispatcher started")
	return nil
}

// Stop halts the schedule and waits for a running pass to finish
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	c := d.cron
	d.cron = nil
	d.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Dispatch sends every due email once. Sends over a campaign's minute budget stay
// scheduled for a later pass.
func (d *Dispatcher) Dispatch(ctx context.Context) (Summary, error) {
	var summary Summary
	now := d.now()
	due, err := d.sends.DueSends(ctx, now, d.cfg.BatchSize)
	if err != nil {
		return summary, fmt.Errorf("failed to load due sends: %w", err)
	}

	for _, send := range due {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		allowed, err := d.allow(ctx, send.CampaignID, now)
		if err != nil {
			return summary, err
		}
		if !allowed {
			summary.Deferred++
			continue
		}

		log := d.logger.WithFields(logging.Fields{"campaign_id": send.CampaignID, "send_id": send.ID})
		msg := mail.Message{To: send.To, Subject: send.Subject, HTML: send.HTML}
		if d.links != nil && send.TrackingID != "" {
			msg.UnsubscribeURL = d.links.UnsubscribeURL(send.TrackingID)
		}
		messageID, err := d.mailer.Send(ctx, msg)
		if err != nil {
			log.WithError(err).Warn("Send failed")
			summary.Failed++
			d.metrics.SendDispatched(types.SendStatusFailed)
			if merr := d.sends.MarkSendFailed(ctx, send.ID, err.Error()); merr != nil {
				log.WithError(merr).Error("Failed to mark send failed")
			}
			continue
		}

		summary.Sent++
		d.metrics.SendDispatched(types.SendStatusSent)
		if err := d.sends.MarkSendSent(ctx, send.ID, messageID, d.now()); err != nil {
			log.WithError(err).Error("Failed to mark send sent")
		}
	}

	if len(due) > 0 {
		d.logger.WithFields(logging.Fields{
			"sent":     summary.Sent,
			"failed":   summary.Failed,
			"deferred": summary.Deferred,
		}).Info("Dispatch pass complete")
	}
	return summary, nil
}

// allow counts a send against the campaign's current minute
func (d *Dispatcher) allow(ctx context.Context, campaignID string, now time.Time) (bool, error) {
	if d.maxPerMinute <= 0 {
		return true, nil
	}
	key := d.keys.DispatchMinute(campaignID, now)
	n, err := d.store.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to count dispatch rate: %w", err)
	}
	if n == 1 {
		if err := d.store.Expire(ctx, key, d.ttls.MinuteRate); err != nil {
			return false, fmt.Errorf("failed to expire dispatch counter: %w", err)
		}
	}
	return n <= int64(d.maxPerMinute), nil
}

// cronLogger routes cron's own logging to logrus
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(pairs(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(pairs(keysAndValues)).WithError(err).Error(msg)
}

func pairs(kv []interface{}) logging.Fields {
	fields := make(logging.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
