// Package metrics exposes the service's Prometheus counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stockdesk/ai-proxy/internal/cache"
	"github.com/stockdesk/ai-proxy/internal/orders"
)

const namespace = "ai_proxy"

// Registry owns the service collectors and the registry they are exposed on.
type Registry struct {
	reg *prometheus.Registry

	Commands    *prometheus.CounterVec
	Blocks      prometheus.Counter
	Orders      prometheus.Counter
	Candidates  *prometheus.CounterVec
	ParseCache  *prometheus.CounterVec
	HTTPLatency *prometheus.HistogramVec
}

var _ orders.Observer = (*Registry)(nil)

// NewRegistry registers the service collectors plus the Go and process
// collectors on a private registry.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Routed commands by action.",
	}, []string{"action"})
	blocks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_blocks_total",
		Help:      "Message blocks split from parse requests.",
	})
	ordersOut := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_total",
		Help:      "Orders returned by parse requests.",
	})
	candidates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ai_candidates_total",
		Help:      "Model candidate requests by outcome.",
	}, []string{"outcome"})
	parseCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_cache_lookups_total",
		Help:      "Parse cache lookups by result.",
	}, []string{"result"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "code"})

	r.MustRegister(commands, blocks, ordersOut, candidates, parseCache, latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Registry{
		reg:         r,
		Commands:    commands,
		Blocks:      blocks,
		Orders:      ordersOut,
		Candidates:  candidates,
		ParseCache:  parseCache,
		HTTPLatency: latency,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveCommand counts one routed command.
func (r *Registry) ObserveCommand(action string) { r.Commands.WithLabelValues(action).Inc() }

// ObserveBlocks counts blocks split from one parse request.
func (r *Registry) ObserveBlocks(n int) { r.Blocks.Add(float64(n)) }

// ObserveOrders counts orders returned by one parse request.
func (r *Registry) ObserveOrders(n int) { r.Orders.Add(float64(n)) }

// ObserveCandidate counts one model candidate request by outcome.
func (r *Registry) ObserveCandidate(outcome string) { r.Candidates.WithLabelValues(outcome).Inc() }

// ObserveCache counts one parse cache lookup.
func (r *Registry) ObserveCache(hit bool) {
	if hit {
		r.ParseCache.WithLabelValues("hit").Inc()
		return
	}
	r.ParseCache.WithLabelValues("miss").Inc()
}

// ObserveRequest records one served HTTP request.
func (r *Registry) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	r.HTTPLatency.WithLabelValues(route, method, strconv.Itoa(code)).Observe(elapsed.Seconds())
}

// WatchCache exports the tiered cache counters, read at scrape time.
func (r *Registry) WatchCache(stats func() cache.Stats) {
	counter := func(tier, result string, read func(cache.Stats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cache_tier_lookups_total",
			Help:        "Cache tier lookups by tier and result.",
			ConstLabels: prometheus.Labels{"tier": tier, "result": result},
		}, func() float64 { return float64(read(stats())) })
	}
	r.reg.MustRegister(
		counter("l1", "hit", func(s cache.Stats) int64 { return s.L1Hits }),
		counter("l1", "miss", func(s cache.Stats) int64 { return s.L1Misses }),
		counter("l2", "hit", func(s cache.Stats) int64 { return s.L2Hits }),
		counter("l2", "miss", func(s cache.Stats) int64 { return s.L2Misses }),
		counter("l1", "expired", func(s cache.Stats) int64 { return s.Expired }),
	)
}
