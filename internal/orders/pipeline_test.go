package orders

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubSource struct {
	mu    sync.Mutex
	calls int
	fn    func(block string) (*RawFields, error)
}

func (s *stubSource) Candidate(ctx context.Context, block string) (*RawFields, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fn(block)
}

func (s *stubSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string, _ time.Time) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Put(_ context.Context, key string, value []byte, _ time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

func (c *mapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

type countingObserver struct {
	mu         sync.Mutex
	blocks     int
	orders     int
	candidates map[string]int
	hits       int
	misses     int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{candidates: map[string]int{}}
}

func (o *countingObserver) ObserveBlocks(n int) { o.mu.Lock(); o.blocks += n; o.mu.Unlock() }
func (o *countingObserver) ObserveOrders(n int) { o.mu.Lock(); o.orders += n; o.mu.Unlock() }

func (o *countingObserver) ObserveCandidate(outcome string) {
	o.mu.Lock()
	o.candidates[outcome]++
	o.mu.Unlock()
}

func (o *countingObserver) ObserveCache(hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func testPipelineConfig() PipelineConfig {
	return PipelineConfig{Concurrency: 2, Now: func() time.Time { return testNow }}
}

func TestPipeline_RulesOnly(t *testing.T) {
	p := NewPipeline(testPipelineConfig(), nil, nil, nil, zaptest.NewLogger(t))

	got := p.ExtractOrders(context.Background(), transcript)

	require.Len(t, got, 2, "the block without name, phone or address is dropped")
	assert.Equal(t, "محمد علي", got[0].Name)
	assert.Equal(t, "أحمد حسن", got[1].Name)
}

func TestPipeline_EmptyInput(t *testing.T) {
	p := NewPipeline(testPipelineConfig(), nil, nil, nil, nil)

	got := p.ExtractOrders(context.Background(), "  ")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPipeline_MergesCandidatesAndToleratesFailures(t *testing.T) {
	src := &stubSource{fn: func(block string) (*RawFields, error) {
		switch {
		case strings.Contains(block, "أحمد"):
			return &RawFields{Address: "مدينة نصر شارع عباس", Price: Ptr("14000")}, nil
		case strings.Contains(block, "محمد"):
			return nil, errors.New("provider down")
		default:
			return nil, nil
		}
	}}
	obs := newCountingObserver()
	p := NewPipeline(testPipelineConfig(), src, nil, obs, zaptest.NewLogger(t))

	got := p.ExtractOrders(context.Background(), transcript)

	require.Len(t, got, 2)
	assert.Equal(t, "شارع الهرم بجوار مسجد النور", got[0].Address)
	assert.Equal(t, "مدينة نصر شارع عباس", got[1].Address)
	assert.Equal(t, int64(14000), got[1].Price)
	assert.Empty(t, got[1].MissingFields)

	assert.Equal(t, 3, src.Calls())
	assert.Equal(t, 3, obs.blocks)
	assert.Equal(t, 2, obs.orders)
	assert.Equal(t, map[string]int{CandidateOK: 1, CandidateFailed: 1, CandidateEmpty: 1}, obs.candidates)
}

func TestPipeline_RuleOnlyRequestSkipsSource(t *testing.T) {
	src := &stubSource{fn: func(string) (*RawFields, error) { return &RawFields{Name: "من النموذج"}, nil }}
	p := NewPipeline(testPipelineConfig(), src, nil, nil, nil)

	got := p.Extract(context.Background(), blockTwoPhones, false)

	require.Len(t, got, 1)
	assert.Equal(t, "أحمد حسن", got[0].Name)
	assert.Zero(t, src.Calls())
}

func TestPipeline_Cache(t *testing.T) {
	src := &stubSource{fn: func(string) (*RawFields, error) { return nil, nil }}
	cache := newMapCache()
	obs := newCountingObserver()
	p := NewPipeline(testPipelineConfig(), src, cache, obs, zaptest.NewLogger(t))

	first := p.ExtractOrders(context.Background(), transcript)
	second := p.ExtractOrders(context.Background(), transcript)

	assert.Equal(t, first, second)
	assert.Equal(t, 3, src.Calls())
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 1, obs.misses)

	p.Extract(context.Background(), transcript, false)
	assert.Equal(t, 2, cache.Len(), "rule-only results are cached separately")
}

func TestPipeline_UnreadableCacheEntryIsRecomputed(t *testing.T) {
	cache := newMapCache()
	cache.data[cacheKey(blockTwoPhones, false)] = []byte("not json")
	p := NewPipeline(testPipelineConfig(), nil, cache, nil, zaptest.NewLogger(t))

	got := p.ExtractOrders(context.Background(), blockTwoPhones)

	require.Len(t, got, 1)
	assert.NotEqual(t, "not json", string(cache.data[cacheKey(blockTwoPhones, false)]))
}

func TestPipeline_CancelledContextFallsBackToRules(t *testing.T) {
	src := &stubSource{fn: func(string) (*RawFields, error) { return &RawFields{Name: "x"}, nil }}
	cache := newMapCache()
	p := NewPipeline(testPipelineConfig(), src, cache, nil, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := p.ExtractOrders(ctx, transcript)

	require.Len(t, got, 2)
	assert.Equal(t, "محمد علي", got[0].Name)
	assert.Zero(t, cache.Len())
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, cacheKey("a", true), cacheKey("a", true))
	assert.NotEqual(t, cacheKey("a", true), cacheKey("a", false))
	assert.NotEqual(t, cacheKey("a", true), cacheKey("b", true))
	assert.True(t, strings.HasPrefix(cacheKey("a", false), "orders:rules:"))
}
