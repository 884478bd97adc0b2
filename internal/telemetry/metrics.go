package telemetry

import (
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/observatoire/observatoire/internal/domain"
)

// Metric names.
const (
	RefreshTotal      = "observatoire_refresh_total"
	DatasetReadsTotal = "observatoire_dataset_reads_total"
	DatasetErrors     = "observatoire_dataset_read_errors_total"
)

// Metrics collects counters and gauges. The zero value is not usable; call New.
type Metrics struct {
	mu         sync.Mutex
	refreshes  map[string]float64 // by outcome
	reads      float64
	readErrors float64
	gauges     map[string]gauge
}

type gauge struct {
	help string
	fn   func() float64
}

// New returns an empty Metrics.
func New() *Metrics {
	return &Metrics{
		refreshes: make(map[string]float64),
		gauges:    make(map[string]gauge),
	}
}

// RefreshOutcome counts one finished refresh. kind is domain.KindNone on
// success and is exported as outcome="ok".
func (m *Metrics) RefreshOutcome(kind domain.Kind) {
	label := string(kind)
	if kind == domain.KindNone {
		label = "ok"
	}
	m.mu.Lock()
	m.refreshes[label]++
	m.mu.Unlock()
}

// DatasetRead counts one leaderboard read and whether the store failed.
func (m *Metrics) DatasetRead(err error) {
	m.mu.Lock()
	m.reads++
	if err != nil {
		m.readErrors++
	}
	m.mu.Unlock()
}

// GaugeFunc registers a gauge whose value is read from fn at scrape time.
func (m *Metrics) GaugeFunc(name, help string, fn func() float64) {
	m.mu.Lock()
	m.gauges[name] = gauge{help: help, fn: fn}
	m.mu.Unlock()
}

// Refreshes returns the refresh count for an outcome label ("ok" or a kind).
func (m *Metrics) Refreshes(outcome string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes[outcome]
}

// Gather snapshots every family, sorted by name.
func (m *Metrics) Gather() []*dto.MetricFamily {
	m.mu.Lock()
	outcomes := make([]string, 0, len(m.refreshes))
	for k := range m.refreshes {
		outcomes = append(outcomes, k)
	}
	sort.Strings(outcomes)

	refresh := &dto.MetricFamily{
		Name: proto.String(RefreshTotal),
		Help: proto.String("Refresh requests by outcome."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, o := range outcomes {
		refresh.Metric = append(refresh.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: proto.String("outcome"), Value: proto.String(o)}},
			Counter: &dto.Counter{Value: proto.Float64(m.refreshes[o])},
		})
	}

	families := []*dto.MetricFamily{
		counter(DatasetReadsTotal, "Leaderboard reads.", m.reads),
		counter(DatasetErrors, "Leaderboard reads that could not load the store.", m.readErrors),
	}
	// The text format rejects families without samples.
	if len(refresh.Metric) > 0 {
		families = append(families, refresh)
	}

	gauges := make(map[string]gauge, len(m.gauges))
	for k, v := range m.gauges {
		gauges[k] = v
	}
	m.mu.Unlock()

	// Gauge callbacks run unlocked; they may take their own locks.
	for name, g := range gauges {
		families = append(families, &dto.MetricFamily{
			Name:   proto.String(name),
			Help:   proto.String(g.help),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(g.fn())}}},
		})
	}

	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	return families
}

func counter(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: proto.Float64(v)}}},
	}
}

// ServeHTTP writes every family in the Prometheus text format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range m.Gather() {
		if err := enc.Encode(mf); err != nil {
			return
		}
	}
}
