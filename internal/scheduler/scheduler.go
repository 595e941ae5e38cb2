// Package scheduler computes per-recipient send times under timezone and velocity constraints.
package scheduler

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/Champ-Deep/ChampMail-sub000/internal/config"
	"github.com/Champ-Deep/ChampMail-sub000/internal/kv"
	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/metrics"
	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// Deps are the collaborators of a Scheduler. Only Store is required.
type Deps struct {
	Store   kv.Store
	Keys    kv.Keys
	TTLs    kv.TTLs
	Metrics *metrics.Metrics
	Logger  logging.Logger
	Now     func() time.Time
}

// Scheduler is safe for concurrent use; each batch call is sequential internally
type Scheduler struct {
	maxPerHour  int
	minInterval time.Duration

	store   kv.Store
	keys    kv.Keys
	ttls    kv.TTLs
	metrics *metrics.Metrics
	logger  logging.Logger
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a scheduler. A zero cfg.Seed seeds jitter from the clock.
func New(cfg config.SchedulerConfig, deps Deps) (*Scheduler, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("scheduler store is required")
	}
	if cfg.MaxPerHour <= 0 {
		return nil, fmt.Errorf("max per hour must be positive, got: %d", cfg.MaxPerHour)
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
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Scheduler{
		maxPerHour:  cfg.MaxPerHour,
		minInterval: cfg.MinInterval.Duration,
		store:       deps.Store,
		keys:        deps.Keys,
		ttls:        deps.TTLs,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         deps.Now,
		rng:         rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1)),
	}, nil
}

// GetOptimalSendTime returns the next good send time for the prospect in UTC.
// The result is never before after; a zero after means now.
func (s *Scheduler) GetOptimalSendTime(p types.Prospect, timezone string, after time.Time) time.Time {
	loc, _ := InferTimezone(p, timezone)

	floor := s.now()
	if after.After(floor) {
		floor = after
	}
	start := searchStart(floor.In(loc))

	candidate, ok := findSlot(start, OptimalWindow)
	if !ok {
		candidate, ok = findSlot(start, AcceptableWindow)
	}
	if !ok {
		candidate = nextTuesday(start)
	}

	result := candidate.Add(s.jitter())
	if result.Before(floor) {
		result = floor
	}
	return result.UTC()
}

// ScheduleCampaignSends assigns a send time to every request and publishes the schedule.
// Requests are processed in an order derived from (campaign, prospect) so retries are
// reproducible; each send is at least the minimum interval after the previous one and
// no UTC hour receives more than the hourly cap, counting sends placed by earlier calls
// for the same campaign.
func (s *Scheduler) ScheduleCampaignSends(ctx context.Context, campaignID string, sends []types.SendRequest) ([]types.ScheduleEntry, error) {
	if campaignID == "" {
		return nil, fmt.Errorf("campaign id is required")
	}

	ordered := make([]types.SendRequest, len(sends))
	copy(ordered, sends)
	sort.SliceStable(ordered, func(i, j int) bool {
		hi, hj := orderKey(campaignID, ordered[i].Prospect.ID), orderKey(campaignID, ordered[j].Prospect.ID)
		if hi != hj {
			return hi < hj
		}
		return ordered[i].Prospect.ID < ordered[j].Prospect.ID
	})

	// hourCounts holds stored plus newly placed sends per bucket; added only the new ones
	hourCounts := make(map[time.Time]int)
	added := make(map[time.Time]int)
	countAt := func(bucket time.Time) (int, error) {
		if n, ok := hourCounts[bucket]; ok {
			return n, nil
		}
		n, err := kv.GetInt(ctx, s.store, s.keys.ScheduleHour(campaignID, bucket))
		if err != nil {
			return 0, fmt.Errorf("failed to read hourly count: %w", err)
		}
		hourCounts[bucket] = int(n)
		return int(n), nil
	}

	entries := make([]types.ScheduleEntry, 0, len(ordered))
	var prev time.Time

	for _, req := range ordered {
		after := s.now()
		if !prev.IsZero() && prev.Add(s.minInterval).After(after) {
			after = prev.Add(s.minInterval)
		}
		sendAt := s.GetOptimalSendTime(req.Prospect, req.Timezone, after)

		bucket := sendAt.Truncate(time.Hour)
		for {
			n, err := countAt(bucket)
			if err != nil {
				return nil, err
			}
			if n < s.maxPerHour {
				break
			}
			bucket = bucket.Add(time.Hour)
			sendAt = bucket.Add(s.jitter())
		}
		hourCounts[bucket]++
		added[bucket]++
		prev = sendAt

		entries = append(entries, types.ScheduleEntry{
			CampaignID:    campaignID,
			ProspectID:    req.Prospect.ID,
			ProspectEmail: req.Prospect.Email,
			TrackingID:    req.TrackingID,
			SendAt:        sendAt,
			Subject:       req.Subject,
			Status:        types.SendStatusScheduled,
		})
	}

	if err := s.publish(ctx, campaignID, entries, added); err != nil {
		return nil, err
	}
	s.metrics.SendsScheduled(len(entries))

	log := s.logger.WithFields(logging.Fields{"campaign_id": campaignID, "total": len(entries)})
	if len(entries) > 0 {
		log = log.WithFields(logging.Fields{
			"first_send": entries[0].SendAt,
			"last_send":  entries[len(entries)-1].SendAt,
		})
	}
	log.Info("Scheduled campaign sends")
	return entries, nil
}

// GetSchedule returns the published schedule; ok is false when none exists
func (s *Scheduler) GetSchedule(ctx context.Context, campaignID string) (*types.ScheduleSummary, bool, error) {
	var summary types.ScheduleSummary
	ok, err := kv.GetJSON(ctx, s.store, s.keys.CampaignSchedule(campaignID), &summary)
	if err != nil || !ok {
		return nil, false, err
	}
	return &summary, true, nil
}

func (s *Scheduler) publish(ctx context.Context, campaignID string, entries []types.ScheduleEntry, added map[time.Time]int) error {
	summary := types.ScheduleSummary{
		CampaignID: campaignID,
		Total:      len(entries),
		CreatedAt:  s.now().UTC(),
		Entries:    entries,
	}
	for i := range entries {
		at := entries[i].SendAt
		if summary.FirstSend == nil || at.Before(*summary.FirstSend) {
			summary.FirstSend = &at
		}
		if summary.LastSend == nil || at.After(*summary.LastSend) {
			summary.LastSend = &at
		}
	}
	if err := kv.SetJSON(ctx, s.store, s.keys.CampaignSchedule(campaignID), summary, s.ttls.Schedule); err != nil {
		return fmt.Errorf("failed to publish schedule: %w", err)
	}
	for bucket, n := range added {
		key := s.keys.ScheduleHour(campaignID, bucket)
		if _, err := s.store.IncrBy(ctx, key, int64(n)); err != nil {
			return fmt.Errorf("failed to publish hourly count: %w", err)
		}
		if err := s.store.Expire(ctx, key, s.ttls.Schedule); err != nil {
			return fmt.Errorf("failed to publish hourly count: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) jitter() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.rng.IntN(maxJitterMinutes+1))*time.Minute +
		time.Duration(s.rng.IntN(maxJitterSeconds+1))*time.Second
}

func orderKey(campaignID, prospectID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(campaignID))
	h.Write([]byte{0})
	h.Write([]byte(prospectID))
	return h.Sum64()
}
