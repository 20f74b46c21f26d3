package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestJobMetricsRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.IncSuccess("catalog_refresh")
	m.IncFailure("")
	m.ObserveDuration("catalog_refresh", 150*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "menubot_job_success_total", "job", "catalog_refresh")
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	got, err = fetchCounterValue(mfs, "menubot_job_failure_total", "job", "unknown")
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	sum, err := fetchHistogramSum(mfs, "menubot_job_duration_seconds", "job", "catalog_refresh")
	require.NoError(t, err)
	require.Greater(t, sum, 0.0)
}

func TestCatalogMetricsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCatalogMetrics(reg)

	m.ObserveReload(time.Second, nil)
	m.ObserveReload(time.Second, errors.New("boom"))
	m.ObserveReload(time.Second, nil)
	m.SetSize(3, 12)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "menubot_catalog_reloads_total", "outcome", "success")
	require.NoError(t, err)
	require.Equal(t, 2.0, got)

	got, err = fetchCounterValue(mfs, "menubot_catalog_reloads_total", "outcome", "failure")
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	mf := findMetricFamily(mfs, "menubot_catalog_products")
	require.NotNil(t, mf)
	require.Equal(t, 12.0, mf.GetMetric()[0].GetGauge().GetValue())
}

func TestConversationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)

	m.IncAction("callback")
	m.IncAction("callback")
	m.IncRejected("VALIDATION_ERROR")
	m.IncOrders()
	m.IncNotifyFailure("telegram")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "menubot_actions_total", "kind", "callback")
	require.NoError(t, err)
	require.Equal(t, 2.0, got)

	got, err = fetchCounterValue(mfs, "menubot_operator_notify_failures_total", "sink", "telegram")
	require.NoError(t, err)
	require.Equal(t, 1.0, got)

	mf := findMetricFamily(mfs, "menubot_orders_created_total")
	require.NotNil(t, mf)
	require.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())
}

func TestNilRegistererIsNoop(t *testing.T) {
	var nilJobs *JobMetrics
	require.NotPanics(t, func() {
		NewJobMetrics(nil).IncSuccess("x")
		NewCatalogMetrics(nil).ObserveReload(time.Second, nil)
		NewConversationMetrics(nil).IncOrders()
		nilJobs.IncFailure("x")
	})
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
