package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSearcher struct {
	calls atomic.Int32
	res   *Results
	err   error
}

func (s *countingSearcher) Search(context.Context, string, int) (*Results, error) {
	s.calls.Add(1)
	return s.res, s.err
}

func fixture() *Memory {
	return NewMemory(
		[]Challenge{
			{ID: "c1", Slug: "two-sum", Title: "Two Sum", Difficulty: "EASY"},
			{ID: "c2", Slug: "graph-paths", Title: "Graph Paths", Difficulty: "HARD"},
		},
		[]Contest{{ID: "k1", Slug: "weekly-1", Title: "Weekly Graph Cup"}},
		func() []User {
			return []User{
				{ID: "u2", Username: "zed", Name: "Zed Graph"},
				{ID: "u1", Username: "ada", Name: "Ada"},
			}
		},
	)
}

func TestRunBlankQuery(t *testing.T) {
	inner := &countingSearcher{}
	for _, q := range []string{"", "   ", "\t\n"} {
		res, err := Run(context.Background(), inner, q, 5)
		require.NoError(t, err)

		data, err := json.Marshal(res)
		require.NoError(t, err)
		assert.JSONEq(t, `{"challenges":[],"contests":[],"users":[]}`, string(data))
	}
	assert.Equal(t, int32(0), inner.calls.Load())
}

func TestRunNormalizesNilLists(t *testing.T) {
	inner := &countingSearcher{res: &Results{Users: []User{{ID: "u1"}}}}
	res, err := Run(context.Background(), inner, "a", 0)
	require.NoError(t, err)
	assert.NotNil(t, res.Challenges)
	assert.NotNil(t, res.Contests)
	assert.Len(t, res.Users, 1)
}

func TestRunPropagatesError(t *testing.T) {
	inner := &countingSearcher{err: errors.New("db down")}
	_, err := Run(context.Background(), inner, "a", 0)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "two sum", Normalize("  two \t sum "))
	assert.Len(t, []rune(Normalize(strings.Repeat("é", 300))), maxQueryLength)
}

func TestMemorySearch(t *testing.T) {
	res, err := fixture().Search(context.Background(), "graph", 10)
	require.NoError(t, err)

	require.Len(t, res.Challenges, 1)
	assert.Equal(t, "c2", res.Challenges[0].ID)
	require.Len(t, res.Contests, 1)
	require.Len(t, res.Users, 1)
	assert.Equal(t, "zed", res.Users[0].Username)

	res, err = fixture().Search(context.Background(), "a", 1)
	require.NoError(t, err)
	assert.Len(t, res.Challenges, 1)
	assert.Len(t, res.Users, 1)
	assert.Equal(t, "Ada", res.Users[0].Name)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_a\\b`, escapeLike(`100%_a\b`))
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestCacheHitsAndExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	inner := &countingSearcher{res: &Results{Challenges: []Challenge{{ID: "c1", Title: "Two Sum"}}}}
	cache := NewCache(rdb, inner, 30*time.Second, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := cache.Search(ctx, "Two", 10)
		require.NoError(t, err)
		require.Len(t, res.Challenges, 1)
	}
	assert.Equal(t, int32(1), inner.calls.Load())

	_, err := cache.Search(ctx, "two", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())

	mr.FastForward(31 * time.Second)
	_, err = cache.Search(ctx, "Two", 10)
	require.NoError(t, err)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestCacheFallsThroughOnRedisError(t *testing.T) {
	mr, rdb := newTestRedis(t)
	inner := &countingSearcher{res: Empty()}
	cache := NewCache(rdb, inner, time.Minute, nil)

	mr.SetError("LOADING")
	res, err := cache.Search(context.Background(), "x", 10)
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	mr, rdb := newTestRedis(t)
	inner := &countingSearcher{err: errors.New("db down")}
	cache := NewCache(rdb, inner, time.Minute, nil)

	_, err := cache.Search(context.Background(), "x", 10)
	assert.Error(t, err)
	assert.Empty(t, mr.Keys())
}
