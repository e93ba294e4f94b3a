// Package metrics renders the service state in the Prometheus text
// exposition format. Families are built directly as client_model protobufs
// and written with expfmt, so scrapers read them like any other target.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/aqualyx/geoanalyze/pkg/types"
)

const namespace = "geoanalyze"

// Recorder counts upload outcomes since process start. It is safe for
// concurrent use.
type Recorder struct {
	uploads          atomic.Uint64
	rejected         atomic.Uint64
	samples          atomic.Uint64
	validationErrors atomic.Uint64
}

// ObserveBatch records an accepted upload.
func (r *Recorder) ObserveBatch(b *types.Batch) {
	r.uploads.Add(1)
	r.samples.Add(uint64(len(b.Results)))
	r.validationErrors.Add(uint64(len(b.Errors)))
}

// ObserveRejected records an upload that produced no batch.
func (r *Recorder) ObserveRejected() { r.rejected.Add(1) }

// State is the live data rendered alongside the counters.
type State struct {
	Batches      []*types.Batch
	AlertsFiring int
}

// Gather builds the metric families for the current counters and state,
// sorted by name.
func (r *Recorder) Gather(s State) []*dto.MetricFamily {
	var total types.CategoryCounts
	maxHPI := make([]*dto.Metric, 0, len(s.Batches))
	for _, b := range s.Batches {
		total.Merge(b.Summary.Counts)
		maxHPI = append(maxHPI, gaugeMetric(b.Summary.MaxHPI, label("batch", b.ID)))
	}

	fams := []*dto.MetricFamily{
		counter("uploads_total", "Uploads accepted as batches.", r.uploads.Load()),
		counter("uploads_rejected_total", "Uploads that produced no batch.", r.rejected.Load()),
		counter("samples_processed_total", "Sample rows analysed.", r.samples.Load()),
		counter("validation_errors_total", "Validation errors reported for accepted uploads.", r.validationErrors.Load()),
		gauge("batches", "Batches currently held.", gaugeMetric(float64(len(s.Batches)))),
		gauge("samples", "Samples in live batches by contamination category.",
			gaugeMetric(float64(total.Safe), label("category", string(types.CategorySafe))),
			gaugeMetric(float64(total.Moderate), label("category", string(types.CategoryModerate))),
			gaugeMetric(float64(total.Unsafe), label("category", string(types.CategoryUnsafe))),
		),
		gauge("batch_max_hpi", "Highest heavy-metal pollution index per batch.", maxHPI...),
		gauge("alerts_firing", "Alert rules currently firing.", gaugeMetric(float64(s.AlertsFiring))),
	}
	sort.Slice(fams, func(i, j int) bool { return fams[i].GetName() < fams[j].GetName() })
	return fams
}

// Write renders families in the text exposition format.
func Write(w io.Writer, fams []*dto.MetricFamily) error {
	for _, mf := range fams {
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// ContentType is the HTTP Content-Type of Write output.
func ContentType() string {
	return string(expfmt.NewFormat(expfmt.TypeTextPlain))
}

func counter(name, help string, v uint64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(namespace + "_" + name),
		Help: proto.String(help),
		Type: dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{
			Counter: &dto.Counter{Value: proto.Float64(float64(v))},
		}},
	}
}

func gauge(name, help string, ms ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(namespace + "_" + name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: ms,
	}
}

func gaugeMetric(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}
