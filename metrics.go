package annotator

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts canvas and staging activity. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// Canvas
	BoxesCompleted   atomic.Uint64
	BoxesDiscarded   atomic.Uint64
	BoxesEdited      atomic.Uint64
	SelectionChanges atomic.Uint64

	// Staging
	StagedItems     atomic.Uint64 // current buffer length
	StageAccepted   atomic.Uint64
	StageRejected   atomic.Uint64
	CommitsOK       atomic.Uint64
	CommitsFailed   atomic.Uint64
	CommittedImages atomic.Uint64

	registry *prometheus.Registry
}

// NewMetrics creates a Metrics instance with its own Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name, help string
		v          *atomic.Uint64
	}{
		{"annotator_boxes_completed_total", "Bounding boxes drawn and kept", &m.BoxesCompleted},
		{"annotator_boxes_discarded_total", "Bounding boxes discarded as too small", &m.BoxesDiscarded},
		{"annotator_boxes_edited_total", "Handle drags committed", &m.BoxesEdited},
		{"annotator_selection_changes_total", "Mask selection changes", &m.SelectionChanges},
		{"annotator_staged_items", "Items currently staged", &m.StagedItems},
		{"annotator_stage_accepted_total", "Items accepted by the staging buffer", &m.StageAccepted},
		{"annotator_stage_rejected_total", "Items rejected because the staging buffer was full", &m.StageRejected},
		{"annotator_commits_ok_total", "Successful commits", &m.CommitsOK},
		{"annotator_commits_failed_total", "Failed or aborted commits", &m.CommitsFailed},
		{"annotator_committed_images_total", "Image records handed to the committer", &m.CommittedImages},
	}
	for _, g := range gauges {
		v := g.v
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(v.Load()) },
		))
	}
}

// Registry returns the Prometheus registry backing m.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) boxCompleted() {
	if m != nil {
		m.BoxesCompleted.Add(1)
	}
}

func (m *Metrics) boxDiscarded() {
	if m != nil {
		m.BoxesDiscarded.Add(1)
	}
}

func (m *Metrics) boxEdited() {
	if m != nil {
		m.BoxesEdited.Add(1)
	}
}

func (m *Metrics) selectionChanged() {
	if m != nil {
		m.SelectionChanges.Add(1)
	}
}

func (m *Metrics) staged(accepted bool, length int) {
	if m == nil {
		return
	}
	if accepted {
		m.StageAccepted.Add(1)
	} else {
		m.StageRejected.Add(1)
	}
	m.StagedItems.Store(uint64(length))
}

func (m *Metrics) stagedLen(length int) {
	if m != nil {
		m.StagedItems.Store(uint64(length))
	}
}

func (m *Metrics) committed(ok bool, images int) {
	if m == nil {
		return
	}
	if ok {
		m.CommitsOK.Add(1)
		m.CommittedImages.Add(uint64(images))
	} else {
		m.CommitsFailed.Add(1)
	}
}
