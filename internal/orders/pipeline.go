package orders

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stockdesk/ai-proxy/internal/jsonx"
)

// CandidateSource produces a model-generated candidate for one block. A nil
// candidate with a nil error means the model had nothing usable.
type CandidateSource interface {
	Candidate(ctx context.Context, block string) (*RawFields, error)
}

// ParseCache stores encoded results keyed by a hash of the input text.
// Implementations decide expiry relative to now.
type ParseCache interface {
	Get(ctx context.Context, key string, now time.Time) ([]byte, bool)
	Put(ctx context.Context, key string, value []byte, now time.Time)
}

// Observer receives pipeline counters. All methods must be safe for
// concurrent use.
type Observer interface {
	ObserveBlocks(n int)
	ObserveOrders(n int)
	ObserveCandidate(outcome string)
	ObserveCache(hit bool)
}

// Candidate outcomes reported to the Observer.
const (
	CandidateOK      = "ok"
	CandidateEmpty   = "empty"
	CandidateFailed  = "error"
	CandidateSkipped = "skipped"
)

// PipelineConfig tunes a Pipeline.
type PipelineConfig struct {
	// Concurrency bounds in-flight candidate requests per call.
	Concurrency int
	// Now stamps created_at; defaults to time.Now in UTC.
	Now func() time.Time
}

// DefaultPipelineConfig returns the defaults used by the service.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Concurrency: 4,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// Pipeline turns a pasted transcript into orders. Source, cache and
// observer are all optional.
type Pipeline struct {
	config   PipelineConfig
	source   CandidateSource
	cache    ParseCache
	observer Observer
	logger   *zap.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig, source CandidateSource, cache ParseCache, observer Observer, logger *zap.Logger) *Pipeline {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Now == nil {
		cfg.Now = DefaultPipelineConfig().Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		config:   cfg,
		source:   source,
		cache:    cache,
		observer: observer,
		logger:   logger.Named("orders"),
	}
}

// ExtractOrders runs the full pipeline with model candidates when a source
// is configured.
func (p *Pipeline) ExtractOrders(ctx context.Context, text string) []Order {
	return p.Extract(ctx, text, true)
}

// Extract runs the pipeline. With useAI false, or without a source, only
// the rule extractor is used. The result is never nil.
func (p *Pipeline) Extract(ctx context.Context, text string, useAI bool) []Order {
	useAI = useAI && p.source != nil
	now := p.config.Now()

	key := cacheKey(text, useAI)
	if cached, ok := p.lookup(ctx, key, now); ok {
		return cached
	}

	blocks := SplitBlocks(text)
	p.observeBlocks(len(blocks))

	var candidates []*RawFields
	if useAI {
		candidates = p.candidates(ctx, blocks)
	}

	out := make([]Order, 0, len(blocks))
	for i, block := range blocks {
		var ai *RawFields
		if candidates != nil {
			ai = candidates[i]
		}
		if order, ok := Normalize(Merge(ai, ExtractBlock(block)), now); ok {
			out = append(out, order)
		}
	}

	p.logger.Debug("extracted orders",
		zap.Int("blocks", len(blocks)),
		zap.Int("orders", len(out)),
		zap.Bool("ai", useAI))
	p.observeOrders(len(out))
	p.store(ctx, key, out, now)
	return out
}

// candidates asks the source for one candidate per block, bounded by the
// configured concurrency. Failed blocks get a nil candidate.
func (p *Pipeline) candidates(ctx context.Context, blocks []string) []*RawFields {
	out := make([]*RawFields, len(blocks))
	sem := make(chan struct{}, p.config.Concurrency)
	var wg sync.WaitGroup

	for i, block := range blocks {
		wg.Add(1)
		go func(i int, block string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				p.observeCandidate(CandidateSkipped)
				return
			}
			defer func() { <-sem }()

			cand, err := p.source.Candidate(ctx, block)
			switch {
			case err != nil:
				p.logger.Warn("candidate extraction failed, using rules only",
					zap.Int("block", i),
					zap.Error(err))
				p.observeCandidate(CandidateFailed)
			case cand == nil:
				p.observeCandidate(CandidateEmpty)
			default:
				out[i] = cand
				p.observeCandidate(CandidateOK)
			}
		}(i, block)
	}
	wg.Wait()
	return out
}

func (p *Pipeline) lookup(ctx context.Context, key string, now time.Time) ([]Order, bool) {
	if p.cache == nil {
		return nil, false
	}
	data, ok := p.cache.Get(ctx, key, now)
	if ok {
		var orders []Order
		if err := jsonx.Unmarshal(data, &orders); err == nil {
			p.observeCache(true)
			if orders == nil {
				orders = []Order{}
			}
			return orders, true
		}
		p.logger.Warn("discarding unreadable cache entry", zap.String("key", key))
	}
	p.observeCache(false)
	return nil, false
}

func (p *Pipeline) store(ctx context.Context, key string, orders []Order, now time.Time) {
	if p.cache == nil || ctx.Err() != nil {
		return
	}
	data, err := jsonx.Marshal(orders)
	if err != nil {
		p.logger.Warn("failed to encode orders for cache", zap.Error(err))
		return
	}
	// The request context may end right after this call; the write must not.
	p.cache.Put(context.WithoutCancel(ctx), key, data, now)
}

func (p *Pipeline) observeBlocks(n int) {
	if p.observer != nil {
		p.observer.ObserveBlocks(n)
	}
}

func (p *Pipeline) observeOrders(n int) {
	if p.observer != nil {
		p.observer.ObserveOrders(n)
	}
}

func (p *Pipeline) observeCandidate(outcome string) {
	if p.observer != nil {
		p.observer.ObserveCandidate(outcome)
	}
}

func (p *Pipeline) observeCache(hit bool) {
	if p.observer != nil {
		p.observer.ObserveCache(hit)
	}
}

// cacheKey hashes the input text. Rule-only and model-assisted results are
// kept apart.
func cacheKey(text string, useAI bool) string {
	mode := "rules"
	if useAI {
		mode = "ai"
	}
	sum := sha256.Sum256([]byte(text))
	return "orders:" + mode + ":" + hex.EncodeToString(sum[:])
}
