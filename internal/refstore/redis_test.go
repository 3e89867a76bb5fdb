package refstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/JonMunkholm/datacheck/internal/check"
	"github.com/JonMunkholm/datacheck/internal/runner"
)

func connectForTest(t *testing.T) *Redis {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	client, err := Connect(context.Background(), Config{
		URL:            url,
		RetryAttempts:  1,
		RetryInterval:  time.Second,
		ConnectTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	s := New(client, uuid.NewString(), time.Minute)
	t.Cleanup(func() { _ = s.Cleanup(context.Background()) })
	return s
}

func TestRedis_SetOperations(t *testing.T) {
	s := connectForTest(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "person.id", "1"))
	require.NoError(t, s.Add(ctx, "person.id", "2"))
	require.NoError(t, s.Add(ctx, "person.id", "2"))

	ok, err := s.Has(ctx, "person.id", "2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Has(ctx, "person.id", "3")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Len(ctx, "person.id")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []string{"person.id"}, s.Names())
}

func TestRedis_BacksColumnRefs(t *testing.T) {
	s := connectForTest(t)
	ctx := context.Background()

	save := check.Long().SaveRefTo(check.NewRef[int64](s, "R"))
	lookup := check.Long().CheckRefIn(check.NewRef[int64](s, "R"))

	p := check.Collect(0)
	fc := fileCheck{}
	require.NoError(t, save.Check(ctx, p.ColumnHandler(fc, 1, nil), "10"))
	require.NoError(t, lookup.Check(ctx, p.ColumnHandler(fc, 1, nil), "10"))
	require.NoError(t, lookup.Check(ctx, p.ColumnHandler(fc, 2, nil), "11"))

	require.Equal(t, 1, p.Total())
	assert.Equal(t, check.CodeReference, p.Violations()[0].Code)
}

func TestRedis_Cleanup(t *testing.T) {
	s := connectForTest(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "a", "x"))
	require.NoError(t, s.Cleanup(ctx))

	n, err := s.Len(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, s.Names())
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), Config{URL: "://nope", ConnectTimeout: time.Second})
	assert.ErrorIs(t, err, ErrFailedToParseRedisConnString)
}

type fileCheck struct{}

func (fileCheck) Name() string { return "test" }
func (fileCheck) Path() string { return "/test.csv" }

func TestDecodeReport_SchemaMismatch(t *testing.T) {
	rep := &runner.Report{ID: uuid.New(), Dataset: "snb-social", Status: runner.StatusPassed}

	data, err := msgpack.Marshal(cachedReport{Schema: reportSchemaVersion, Report: rep})
	require.NoError(t, err)
	got, err := decodeReport(data)
	require.NoError(t, err)
	assert.Equal(t, rep.ID, got.ID)
	assert.Equal(t, "snb-social", got.Dataset)

	data, err = msgpack.Marshal(cachedReport{Schema: reportSchemaVersion + 1, Report: rep})
	require.NoError(t, err)
	_, err = decodeReport(data)
	assert.ErrorIs(t, err, runner.ErrReportNotFound)
}

func TestReports_SaveListGet(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, Config{URL: url, RetryAttempts: 1, ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cache := NewReports(client, time.Minute, 0)
	rep := &runner.Report{
		ID:        uuid.New(),
		Dataset:   "snb-social",
		Status:    runner.StatusFailed,
		StartedAt: time.Now().UTC().Add(time.Hour),
		Total:     3,
	}
	require.NoError(t, cache.SaveReport(ctx, rep))
	t.Cleanup(func() {
		client.Del(context.Background(), reportKey(rep.ID))
		client.ZRem(context.Background(), reportIndexKey, rep.ID.String())
	})

	got, err := cache.GetReport(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Total)

	list, err := cache.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rep.ID, list[0].ID)

	_, err = cache.GetReport(ctx, uuid.New())
	assert.ErrorIs(t, err, runner.ErrReportNotFound)
}
