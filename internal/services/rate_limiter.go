package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/logger"
)

const DefaultMinSpacing = 5 * time.Second

// startTimer returns a channel that fires after d and a func that stops it.
var startTimer = func(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// waitFor blocks for d or until ctx is done. The timer is stopped either way.
func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	fired, stop := startTimer(d)
	defer stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-fired:
		return nil
	}
}

// RequestSpacer enforces a minimum interval between outbound generation requests.
// Wait returns once the caller holds the next send slot.
type RequestSpacer interface {
	Wait(ctx context.Context) error
}

type intervalSpacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewIntervalSpacer spaces requests within one process. Callers reserve slots
// under the lock and wait outside it, so concurrent callers queue up instead
// of racing on the last-request timestamp.
func NewIntervalSpacer(interval time.Duration) RequestSpacer {
	return newIntervalSpacer(interval, time.Now)
}

func newIntervalSpacer(interval time.Duration, now func() time.Time) *intervalSpacer {
	if interval < 0 {
		interval = 0
	}
	return &intervalSpacer{interval: interval, now: now}
}

func (s *intervalSpacer) Wait(ctx context.Context) error {
	return waitFor(ctx, s.reserve())
}

func (s *intervalSpacer) reserve() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	slot := now
	if !s.last.IsZero() {
		if next := s.last.Add(s.interval); next.After(now) {
			slot = next
		}
	}
	s.last = slot
	return slot.Sub(now)
}

// reserveSlotScript atomically books the next send slot and returns how many
// milliseconds the caller has to wait for it.
var reserveSlotScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local spacing = tonumber(ARGV[2])
local last = tonumber(redis.call('GET', KEYS[1]) or '0')
local slot = now
if last + spacing > now then
  slot = last + spacing
end
redis.call('SET', KEYS[1], slot, 'PX', (slot - now) + spacing)
return slot - now
`)

type redisSpacer struct {
	client   redis.UniversalClient
	key      string
	interval time.Duration
	local    *intervalSpacer
	log      *zap.Logger
}

// NewRedisSpacer shares the spacing slot across every process using the same key.
// When redis is unreachable it degrades to in-process spacing.
func NewRedisSpacer(client redis.UniversalClient, key string, interval time.Duration, log *zap.Logger) RequestSpacer {
	return &redisSpacer{
		client:   client,
		key:      key,
		interval: interval,
		local:    newIntervalSpacer(interval, time.Now),
		log:      logger.OrNop(log),
	}
}

func (s *redisSpacer) Wait(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}

	waitMs, err := reserveSlotScript.Run(ctx, s.client, []string{s.key},
		time.Now().UnixMilli(), s.interval.Milliseconds()).Int64()
	if err != nil {
		s.log.Warn("redis spacing unavailable, using local spacing", zap.String("key", s.key), zap.Error(err))
		return s.local.Wait(ctx)
	}

	return waitFor(ctx, time.Duration(waitMs)*time.Millisecond)
}
