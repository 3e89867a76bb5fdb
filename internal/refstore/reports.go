package refstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/JonMunkholm/datacheck/internal/runner"
)

// reportSchemaVersion is bumped whenever the encoded Report layout changes.
// Entries written with another version are treated as missing.
const reportSchemaVersion uint16 = 1

const (
	reportKeyPrefix = "datacheck:report:"
	reportIndexKey  = "datacheck:reports"
)

type cachedReport struct {
	Schema uint16
	Report *runner.Report
}

// Reports keeps finished reports in Redis, msgpack encoded, with a sorted
// index by start time. It implements runner.Recorder and runner.Reports so
// several service replicas can share run history without a database.
type Reports struct {
	client redis.UniversalClient
	ttl    time.Duration
	keep   int64
}

// NewReports returns a report cache. Reports expire after ttl (zero keeps
// them) and at most keep entries stay indexed (zero keeps all).
func NewReports(client redis.UniversalClient, ttl time.Duration, keep int) *Reports {
	return &Reports{client: client, ttl: ttl, keep: int64(keep)}
}

func reportKey(id uuid.UUID) string { return reportKeyPrefix + id.String() }

func (c *Reports) SaveReport(ctx context.Context, r *runner.Report) error {
	data, err := msgpack.Marshal(cachedReport{Schema: reportSchemaVersion, Report: r})
	if err != nil {
		return fmt.Errorf("encode report %s: %w", r.ID, err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, reportKey(r.ID), data, c.ttl)
	pipe.ZAdd(ctx, reportIndexKey, redis.Z{Score: float64(r.StartedAt.UnixMilli()), Member: r.ID.String()})
	if c.keep > 0 {
		pipe.ZRemRangeByRank(ctx, reportIndexKey, 0, -c.keep-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache report %s: %w", r.ID, err)
	}
	return nil
}

func (c *Reports) GetReport(ctx context.Context, id uuid.UUID) (*runner.Report, error) {
	data, err := c.client.Get(ctx, reportKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, runner.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return decodeReport(data)
}

// ListRuns returns summaries newest first. Index entries whose report has
// expired are skipped.
func (c *Reports) ListRuns(ctx context.Context, limit int) ([]runner.Summary, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := c.client.ZRevRange(ctx, reportIndexKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = reportKeyPrefix + id
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}

	out := make([]runner.Summary, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		r, err := decodeReport([]byte(s))
		if err != nil {
			continue
		}
		out = append(out, r.Summarize())
	}
	return out, nil
}

func decodeReport(data []byte) (*runner.Report, error) {
	var cached cachedReport
	if err := msgpack.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if cached.Schema != reportSchemaVersion || cached.Report == nil {
		return nil, runner.ErrReportNotFound
	}
	return cached.Report, nil
}
