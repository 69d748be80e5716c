package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestInitLogger_WritesJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(InitLogger("info", &buf), "checkout-api", "checkout-1")

	logger.Debug().Msg("dropped")
	logger.Info().Str("transaction_id", "tx-1").Msg("transaction started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "transaction started", entry["message"])
	assert.Equal(t, "checkout-api", entry["component"])
	assert.Equal(t, "checkout-1", entry["instance_id"])
	assert.Equal(t, "tx-1", entry["transaction_id"])
	assert.Contains(t, entry, "time")
}

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("checkout", reg)

	m.TransactionsTotal.WithLabelValues("finish", "APPROVED").Inc()
	m.GatewayRequests.WithLabelValues("charge", "success").Add(2)
	m.ReconciliationReports.WithLabelValues("lost_finish_race").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransactionsTotal.WithLabelValues("finish", "APPROVED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GatewayRequests.WithLabelValues("charge", "success")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["checkout_transactions_total"])
	assert.True(t, names["checkout_gateway_requests_total"])
	assert.True(t, names["checkout_reconciliation_reports_total"])
}

func TestNewMetrics_GatewayDurationHistogram(t *testing.T) {
	m := NewMetrics("checkout", prometheus.NewRegistry())

	observer := m.GatewayDuration.WithLabelValues("charge")
	observer.Observe(0.2)
	observer.Observe(1.5)

	var out dto.Metric
	require.NoError(t, observer.(prometheus.Metric).Write(&out))
	h := out.GetHistogram()
	require.NotNil(t, h)
	assert.Equal(t, uint64(2), h.GetSampleCount())
	assert.InDelta(t, 1.7, h.GetSampleSum(), 1e-9)
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics("checkout", reg)

	assert.Panics(t, func() { NewMetrics("checkout", reg) })
}
