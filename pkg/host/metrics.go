// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package host

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Thermoquad/sentscope/pkg/sent"
)

// Metrics exports decoder results to Prometheus
type Metrics struct {
	frames      *prometheus.CounterVec
	errors      *prometheus.CounterVec
	anomalies   *prometheus.CounterVec
	messages    prometheus.Counter
	channels    *prometheus.GaugeVec
	calibration prometheus.Gauge
}

// NewMetrics creates decoder metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentscope",
				Subsystem: "decoder",
				Name:      "frames_total",
				Help:      "Frames decoded with a valid CRC.",
			},
			[]string{"format"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentscope",
				Subsystem: "decoder",
				Name:      "errors_total",
				Help:      "Decoder errors by kind.",
			},
			[]string{"kind"},
		),
		anomalies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sentscope",
				Subsystem: "decoder",
				Name:      "anomalies_total",
				Help:      "Frames that passed CRC but violate their format.",
			},
			[]string{"type"},
		),
		messages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sentscope",
				Subsystem: "decoder",
				Name:      "short_messages_total",
				Help:      "Short serial messages received with a valid CRC.",
			},
		),
		channels: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "sentscope",
				Subsystem: "decoder",
				Name:      "channel_value",
				Help:      "Latest fast-channel value.",
			},
			[]string{"channel"},
		),
		calibration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sentscope",
				Subsystem: "decoder",
				Name:      "calibration_ticks",
				Help:      "Sync low phase of the latest frame.",
			},
		),
	}
	reg.MustRegister(m.frames, m.errors, m.anomalies, m.messages, m.channels, m.calibration)
	return m
}

// Observe implements Observer
func (m *Metrics) Observe(res Result) {
	for _, kind := range sent.ErrorKinds(res.Err) {
		m.errors.WithLabelValues(kind.String()).Inc()
	}
	if res.Message != nil {
		m.messages.Inc()
	}
	if res.Frame == nil {
		return
	}

	f := res.Frame
	m.frames.WithLabelValues(f.Format().String()).Inc()
	m.channels.WithLabelValues("1").Set(float64(f.Channels().Ch1))
	m.channels.WithLabelValues("2").Set(float64(f.Channels().Ch2))
	m.calibration.Set(float64(f.CalibrationUnit()))
	for _, a := range res.Anomalies {
		m.anomalies.WithLabelValues(a.Type.String()).Inc()
	}
}
