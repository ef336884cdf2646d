// internal/quota/ledger.go
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glowdesk/campaigns-backend/internal/model"
)

const dayFormat = "2006-01-02"

// keyTTL keeps counters around for a few days past their calendar day for
// inspection, after which Redis reclaims them.
const keyTTL = 7 * 24 * time.Hour

// releaseScript decrements the counter floored at zero. Done server-side so a
// concurrent reserve can never interleave between the read and the write.
var releaseScript = redis.NewScript(`
local v = redis.call('DECRBY', KEYS[1], ARGV[1])
if v < 0 then
  redis.call('SET', KEYS[1], 0)
  return 0
end
return v
`)

// Ledger is the per-business, per-calendar-day reservation counter. It counts
// contacts committed at scheduling time, never actual deliveries.
type Ledger struct {
	rdb *redis.Client
	cap int
}

func NewLedger(rdb *redis.Client, dailyCap int) *Ledger {
	return &Ledger{rdb: rdb, cap: dailyCap}
}

func (l *Ledger) key(businessID string, day time.Time) string {
	return fmt.Sprintf("quota:%s:%s", businessID, day.Format(dayFormat))
}

// Status reads the day's counter, zero if absent.
func (l *Ledger) Status(ctx context.Context, businessID string, day time.Time) (*model.QuotaStatus, error) {
	used, err := l.rdb.Get(ctx, l.key(businessID, day)).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("quota read failed: %w", err)
	}

	available := l.cap - used
	if available < 0 {
		available = 0
	}
	return &model.QuotaStatus{
		BusinessID:   businessID,
		Date:         day.Format(dayFormat),
		Cap:          l.cap,
		Used:         used,
		Available:    available,
		CanSendToday: available > 0,
	}, nil
}

// Reserve atomically commits count contacts against the day. A single INCRBY,
// not read-then-write, so concurrent creations for the same business and day
// cannot lose updates.
func (l *Ledger) Reserve(ctx context.Context, businessID string, day time.Time, count int) error {
	key := l.key(businessID, day)
	used, err := l.rdb.IncrBy(ctx, key, int64(count)).Result()
	if err != nil {
		return fmt.Errorf("quota reserve failed: %w", err)
	}
	if used == int64(count) {
		// first reservation of the day created the key
		l.rdb.Expire(ctx, key, keyTTL)
	}
	return nil
}

// Release returns capacity when a campaign is deleted before sending out,
// floored at zero.
func (l *Ledger) Release(ctx context.Context, businessID string, day time.Time, count int) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key(businessID, day)}, count).Err(); err != nil {
		return fmt.Errorf("quota release failed: %w", err)
	}
	return nil
}
