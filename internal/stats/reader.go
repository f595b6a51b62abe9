package stats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-realtime-points/internal/redisx"
	"github.com/redis/go-redis/v9"
)

type Counters struct {
	Orders            int64 `json:"orders"`
	OrderPoints       int64 `json:"orderPoints"`
	Messages          int64 `json:"messages"`
	Products          int64 `json:"products"`
	Transfers         int64 `json:"transfers"`
	TransferredPoints int64 `json:"transferredPoints"`
}

type Totals struct {
	Day     string   `json:"day"`
	Today   Counters `json:"today"`
	AllTime Counters `json:"allTime"`
}

type Reader struct {
	Redis redis.Cmdable
}

func (r *Reader) Totals(ctx context.Context, day time.Time) (Totals, error) {
	today, err := r.load(ctx, DayKey(day))
	if err != nil {
		return Totals{}, err
	}
	all, err := r.load(ctx, redisx.KeyStatsTotal)
	if err != nil {
		return Totals{}, err
	}
	return Totals{Day: day.UTC().Format("2006-01-02"), Today: today, AllTime: all}, nil
}

func (r *Reader) load(ctx context.Context, key string) (Counters, error) {
	m, err := r.Redis.HGetAll(ctx, key).Result()
	if err != nil {
		return Counters{}, fmt.Errorf("read %s: %w", key, err)
	}
	n := func(f string) int64 {
		v, _ := strconv.ParseInt(m[f], 10, 64)
		return v
	}
	return Counters{
		Orders:            n(FieldOrders),
		OrderPoints:       n(FieldOrderPoints),
		Messages:          n(FieldMessages),
		Products:          n(FieldProducts),
		Transfers:         n(FieldTransfers),
		TransferredPoints: n(FieldTransferredPoints),
	}, nil
}
