package handler

import "github.com/prometheus/client_golang/prometheus"

// UploadMetrics counts upload outcomes by result ("success", "rejected", "failed").
type UploadMetrics struct {
	uploads *prometheus.CounterVec
}

// NewUploadMetrics registers documents_uploaded_total on reg.
func NewUploadMetrics(reg prometheus.Registerer) (*UploadMetrics, error) {
	m := &UploadMetrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "documents_uploaded_total",
			Help: "Reference PDF uploads by result.",
		}, []string{"result"}),
	}
	if err := reg.Register(m.uploads); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *UploadMetrics) observe(result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
}
