// Package stats turns the mirrored store events into Redis counters for the admin dashboard.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/events"
	kafkax "github.com/ariefcatur/go-realtime-points/internal/kafka"
	"github.com/ariefcatur/go-realtime-points/internal/ledger"
	"github.com/ariefcatur/go-realtime-points/internal/obs"
	"github.com/ariefcatur/go-realtime-points/internal/orders"
	"github.com/ariefcatur/go-realtime-points/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	FieldOrders            = "orders"
	FieldOrderPoints       = "order_points"
	FieldMessages          = "messages"
	FieldProducts          = "products"
	FieldTransfers         = "transfers"
	FieldTransferredPoints = "transferred_points"
)

const dedupScope = "stats"

type Service struct {
	Redis redis.Cmdable
}

// HandleEvent is the consumer handler. Events are counted at most once per event_id.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		// poison message: log and commit so the partition keeps moving
		obs.Component("stats").WithError(err).WithField("offset", m.Offset).Warn("skipping undecodable event")
		return nil
	}

	incr, err := increments(env)
	if err != nil {
		obs.Component("stats").WithError(err).WithField("event_id", env.EventID).Warn("skipping bad payload")
		return nil
	}
	if len(incr) == 0 {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, dedupScope, env.EventID)
	first, err := redisx.Claim(ctx, s.Redis, dkey, "1", redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup claim: %w", err)
	}
	if !first {
		return nil
	}

	if err := s.apply(ctx, env.OccurredAt, incr); err != nil {
		// release the claim so the redelivered message is counted
		_ = s.Redis.Del(ctx, dkey).Err()
		return err
	}
	obs.Component("stats").WithField("event_id", env.EventID).WithField("event_type", env.EventType).Debug("counted")
	return nil
}

func increments(env events.Envelope) (map[string]int64, error) {
	switch env.EventType {
	case events.OrderCreated:
		o, err := kafkax.UnwrapPayload[orders.Order](env.Payload)
		if err != nil {
			return nil, err
		}
		return map[string]int64{FieldOrders: 1, FieldOrderPoints: o.TotalPoints}, nil
	case events.PointsTransferred:
		t, err := kafkax.UnwrapPayload[ledger.Transfer](env.Payload)
		if err != nil {
			return nil, err
		}
		return map[string]int64{FieldTransfers: 1, FieldTransferredPoints: t.Points}, nil
	case events.MessageCreated:
		return map[string]int64{FieldMessages: 1}, nil
	case events.ProductCreated:
		return map[string]int64{FieldProducts: 1}, nil
	default:
		return nil, nil
	}
}

func (s *Service) apply(ctx context.Context, at time.Time, incr map[string]int64) error {
	if at.IsZero() {
		at = time.Now()
	}
	day := DayKey(at)
	for field, n := range incr {
		if err := s.Redis.HIncrBy(ctx, day, field, n).Err(); err != nil {
			return fmt.Errorf("incr %s: %w", day, err)
		}
		if err := s.Redis.HIncrBy(ctx, redisx.KeyStatsTotal, field, n).Err(); err != nil {
			return fmt.Errorf("incr total: %w", err)
		}
	}
	return s.Redis.Expire(ctx, day, redisx.TTLStatsDay).Err()
}

// DayKey is the hash holding the counters of the UTC day containing t.
func DayKey(t time.Time) string {
	return fmt.Sprintf(redisx.KeyStatsDay, t.UTC().Format("2006-01-02"))
}
