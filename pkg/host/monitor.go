// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package host exposes a running SENT decoder to the outside: read-only
// registers with the latest frame and error, reset and format commands, an
// HTTP API, Prometheus metrics and MQTT publishing.
package host

import (
	"sync"
	"time"

	"github.com/Thermoquad/sentscope/pkg/capture"
	"github.com/Thermoquad/sentscope/pkg/sent"
)

// Result is the outcome of one decoded pulse
type Result struct {
	Frame     *sent.Frame
	Message   *sent.ShortMessage
	Err       error
	Anomalies []sent.ValidationError
}

// Observer receives results after they are recorded
type Observer interface {
	Observe(res Result)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(res Result)

// Observe implements Observer
func (f ObserverFunc) Observe(res Result) {
	f(res)
}

// MessageRecord is the published form of a short message
type MessageRecord struct {
	ID   uint8 `json:"id"`
	Data uint8 `json:"data"`
	CRC  uint8 `json:"crc"`
}

// Registers is a read-only snapshot of the decoder
type Registers struct {
	Format          string               `json:"format"`
	State           string               `json:"state"`
	CalibrationUnit uint32               `json:"calibration_unit"`
	Frame           *capture.FrameRecord `json:"frame,omitempty"`
	Message         *MessageRecord       `json:"message,omitempty"`
	LastErrorKind   string               `json:"last_error_kind"`
	LastError       string               `json:"last_error,omitempty"`
	LastErrorTime   *time.Time           `json:"last_error_time,omitempty"`
	Skipped         uint64               `json:"skipped"`
	Counters        Counters             `json:"counters"`
}

// Counters mirrors the decoder statistics
type Counters struct {
	TotalFrames       uint64  `json:"total_frames"`
	ValidFrames       uint64  `json:"valid_frames"`
	CRCErrors         uint64  `json:"crc_errors"`
	TimingErrors      uint64  `json:"timing_errors"`
	SyncErrors        uint64  `json:"sync_errors"`
	Anomalies         uint64  `json:"anomalies"`
	ShortMessages     uint64  `json:"short_messages"`
	ShortMessageFails uint64  `json:"short_message_fails"`
	FrameRate         float64 `json:"frame_rate"`
	ErrorRate         float64 `json:"error_rate"`
}

// Monitor owns a decoder shared by the line reader and the readback
// interfaces
type Monitor struct {
	mu        sync.Mutex
	dec       *sent.Decoder
	stats     *sent.Statistics
	counter   sent.SecureCounterTracker
	observers []Observer

	lastFrame   *sent.Frame
	lastMessage *sent.ShortMessage
	lastKind    sent.ErrorKind
	lastErr     error
	lastErrTime time.Time
}

// NewMonitor creates a monitor around a new decoder
func NewMonitor(cfg sent.Config) (*Monitor, error) {
	dec, err := sent.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	return &Monitor{
		dec:   dec,
		stats: sent.NewStatistics(),
	}, nil
}

// AddObserver registers an observer for every result
func (m *Monitor) AddObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Process decodes one pulse, records the result and notifies observers.
// Observers run outside the lock.
func (m *Monitor) Process(p sent.Pulse) Result {
	m.mu.Lock()
	frame, msg, err := m.dec.DecodePulse(p)
	res := Result{Frame: frame, Message: msg, Err: err}

	if frame != nil {
		res.Anomalies = append(sent.ValidateFrame(frame), m.counter.Check(frame)...)
		m.lastFrame = frame
	}
	if msg != nil {
		m.lastMessage = msg
	}
	if err != nil {
		m.lastKind = sent.KindOf(err)
		m.lastErr = err
		m.lastErrTime = time.Now()
	}
	if frame != nil || msg != nil || err != nil {
		m.stats.Update(frame, msg, err, res.Anomalies)
	}
	observers := m.observers
	m.mu.Unlock()

	if frame != nil || msg != nil || err != nil {
		for _, o := range observers {
			o.Observe(res)
		}
	}
	return res
}

// Reset returns the decoder to SeekSync and clears the error register
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dec.Reset()
	m.counter.Reset()
	m.lastKind = sent.KindNone
	m.lastErr = nil
}

// SetFormat reconfigures the decoder format. The decoder is reset.
func (m *Monitor) SetFormat(f sent.Format) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.dec.SetFormat(f); err != nil {
		return err
	}
	m.counter.Reset()
	m.lastFrame = nil
	return nil
}

// Format returns the configured frame format
func (m *Monitor) Format() sent.Format {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dec.Config().Format
}

// Idle reports whether the decoder is between frames
func (m *Monitor) Idle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dec.Idle()
}

// Statistics returns a copy of the statistics with current rates
func (m *Monitor) Statistics() sent.Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.CalculateRates()
	return *m.stats
}

// ResetStatistics clears all counters
func (m *Monitor) ResetStatistics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Reset()
}

// Registers returns a snapshot of the readback registers
func (m *Monitor) Registers() Registers {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.CalculateRates()
	regs := Registers{
		Format:          m.dec.Config().Format.String(),
		State:           m.dec.State().String(),
		CalibrationUnit: m.dec.CalibrationUnit(),
		LastErrorKind:   m.lastKind.String(),
		Skipped:         m.dec.Skipped(),
		Counters: Counters{
			TotalFrames:       m.stats.TotalFrames,
			ValidFrames:       m.stats.ValidFrames,
			CRCErrors:         m.stats.CRCErrors,
			TimingErrors:      m.stats.TimingErrors,
			SyncErrors:        m.stats.SyncErrors,
			Anomalies:         m.stats.Anomalies,
			ShortMessages:     m.stats.ShortMessages,
			ShortMessageFails: m.stats.ShortMessageFails,
			FrameRate:         m.stats.FrameRate,
			ErrorRate:         m.stats.ErrorRate,
		},
	}
	if m.lastFrame != nil {
		rec := capture.NewFrameRecord(m.lastFrame)
		regs.Frame = &rec
	}
	if m.lastMessage != nil {
		regs.Message = &MessageRecord{
			ID:   uint8(m.lastMessage.ID),
			Data: uint8(m.lastMessage.Data),
			CRC:  uint8(m.lastMessage.CRC),
		}
	}
	if m.lastErr != nil {
		regs.LastError = m.lastErr.Error()
		t := m.lastErrTime
		regs.LastErrorTime = &t
	}
	return regs
}
