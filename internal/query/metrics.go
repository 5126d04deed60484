package query

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/sazonarte/frontdesk/internal/query"

var attrOutcome = attribute.Key("query.outcome")

// Stats is a point-in-time copy of the cache counters.
type Stats struct {
	Fetches    int64
	Deduped    int64
	Retries    int64
	Superseded int64
	Rollbacks  int64
	Collected  int64
}

// meterProvider is the subset of metric.Meter the cache records to.
type meterProvider interface {
	Int64Counter(name string, opts ...metric.Int64CounterOption) (metric.Int64Counter, error)
}

type metrics struct {
	fetches    metric.Int64Counter
	deduped    metric.Int64Counter
	retries    metric.Int64Counter
	superseded metric.Int64Counter
	mutations  metric.Int64Counter
	collected  metric.Int64Counter

	fetchCount      atomic.Int64
	dedupCount      atomic.Int64
	retryCount      atomic.Int64
	supersededCount atomic.Int64
	rollbackCount   atomic.Int64
	collectedCount  atomic.Int64
}

func newMetrics(m meterProvider) (*metrics, error) {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}
	fetches, err := m.Int64Counter("query.fetches.total", metric.WithDescription("Network fetches started by the query cache."))
	if err != nil {
		return nil, err
	}
	deduped, err := m.Int64Counter("query.dedup.total", metric.WithDescription("Subscriptions served by an in-flight fetch."))
	if err != nil {
		return nil, err
	}
	retries, err := m.Int64Counter("query.retries.total", metric.WithDescription("Fetch attempts repeated after a retryable failure."))
	if err != nil {
		return nil, err
	}
	superseded, err := m.Int64Counter("query.superseded.total", metric.WithDescription("Fetch results discarded because a newer generation started."))
	if err != nil {
		return nil, err
	}
	mutations, err := m.Int64Counter("query.mutations.total", metric.WithDescription("Optimistic mutations by outcome."))
	if err != nil {
		return nil, err
	}
	collected, err := m.Int64Counter("query.gc.total", metric.WithDescription("Idle entries garbage collected."))
	if err != nil {
		return nil, err
	}
	return &metrics{
		fetches:    fetches,
		deduped:    deduped,
		retries:    retries,
		superseded: superseded,
		mutations:  mutations,
		collected:  collected,
	}, nil
}

func (m *metrics) fetch() {
	m.fetchCount.Add(1)
	m.fetches.Add(context.Background(), 1)
}

func (m *metrics) dedup() {
	m.dedupCount.Add(1)
	m.deduped.Add(context.Background(), 1)
}

func (m *metrics) retry() {
	m.retryCount.Add(1)
	m.retries.Add(context.Background(), 1)
}

func (m *metrics) supersede() {
	m.supersededCount.Add(1)
	m.superseded.Add(context.Background(), 1)
}

func (m *metrics) mutation(ok bool) {
	outcome := "committed"
	if !ok {
		outcome = "rolled_back"
		m.rollbackCount.Add(1)
	}
	m.mutations.Add(context.Background(), 1, metric.WithAttributes(attrOutcome.String(outcome)))
}

func (m *metrics) collect() {
	m.collectedCount.Add(1)
	m.collected.Add(context.Background(), 1)
}

func (m *metrics) snapshot() Stats {
	return Stats{
		Fetches:    m.fetchCount.Load(),
		Deduped:    m.dedupCount.Load(),
		Retries:    m.retryCount.Load(),
		Superseded: m.supersededCount.Load(),
		Rollbacks:  m.rollbackCount.Load(),
		Collected:  m.collectedCount.Load(),
	}
}
