// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/sentscope/pkg/capture"
	"github.com/Thermoquad/sentscope/pkg/host"
	"github.com/Thermoquad/sentscope/pkg/sent"
	"github.com/Thermoquad/sentscope/pkg/sim"
)

type fakeConn struct {
	*bytes.Buffer
}

func (fakeConn) Close() error { return nil }

func h2Config() sent.Config {
	cfg := sent.DefaultConfig()
	cfg.Format = sent.FormatH2
	return cfg
}

// simStream encodes frames of a simulated sensor into a pulse stream
func simStream(t *testing.T, cfg sent.Config, frames uint64) *bytes.Buffer {
	t.Helper()
	opts := sim.DefaultOptions()
	opts.Config = cfg
	opts.Seed = 1
	s, err := sim.NewSender(opts)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.Run(context.Background(), capture.NewWriter(&buf), frames, 0))
	return &buf
}

func newTestMonitor(t *testing.T, cfg sent.Config) *host.Monitor {
	t.Helper()
	mon, err := host.NewMonitor(cfg)
	require.NoError(t, err)
	return mon
}

// ============================================================
// raw_log / frame_test
// ============================================================

func TestRawLog(t *testing.T) {
	cfg := h2Config()
	mon := newTestMonitor(t, cfg)

	var out bytes.Buffer
	require.NoError(t, rawLog(&out, simStream(t, cfg, 40), mon))

	text := out.String()
	require.Equal(t, 40, strings.Count(text, "] H2 cu=4"))
	require.Contains(t, text, "Short message: id=0x1 data=0x0")
	require.NotContains(t, text, "[ERROR]")
	require.Equal(t, uint64(40), mon.Statistics().ValidFrames)
}

func TestRawLog_Errors(t *testing.T) {
	mon := newTestMonitor(t, h2Config())

	var stream bytes.Buffer
	w := capture.NewWriter(&stream)
	require.NoError(t, w.WritePulses([]sent.Pulse{{Low: 4, High: 52}, {Low: 4, High: 40}}))

	var out bytes.Buffer
	require.NoError(t, rawLog(&out, &stream, mon))
	require.Contains(t, out.String(), "[ERROR]")
	require.Contains(t, out.String(), "nibble out of range")
}

func TestWaitForFrame(t *testing.T) {
	cfg := h2Config()

	var stream bytes.Buffer
	w := capture.NewWriter(&stream)
	require.NoError(t, w.WritePulses([]sent.Pulse{{Low: 4, High: 20}, {Low: 4, High: 20}}))
	require.NoError(t, w.WritePulses(sent.NewFrame(sent.FormatH2, 5, 0, []sent.Nibble{0x3, 0xA, 0x1}).Pulses()))

	res, err := waitForFrame(&stream, cfg)
	require.NoError(t, err)
	require.NotNil(t, res.frame)
	require.Equal(t, uint64(2), res.skip)
	require.Equal(t, uint32(5), res.frame.CalibrationUnit())
	require.Equal(t, uint16(0x3A1), res.frame.Channels().Ch1)
}

func TestWaitForFrame_NoFrame(t *testing.T) {
	_, err := waitForFrame(&bytes.Buffer{}, h2Config())
	require.ErrorIs(t, err, errNoFrame)

	_, err = waitForFrame(bytes.NewBufferString("\xff\xff"), h2Config())
	require.Error(t, err)
	require.NotErrorIs(t, err, errNoFrame)
}

// ============================================================
// monitor text mode
// ============================================================

func TestResultPrinter(t *testing.T) {
	var out bytes.Buffer
	printer := &resultPrinter{out: &out}

	frame := sent.NewFrame(sent.FormatH2, 4, 0, []sent.Nibble{0x3, 0xA, 0x1})
	crcErr := &sent.CRCError{Field: "frame", Expected: 1, Got: 9}

	printer.handle(host.Result{Err: crcErr})
	require.Empty(t, out.String(), "errors before sync are counted only")

	printer.handle(host.Result{Frame: frame})
	require.Contains(t, out.String(), "[SYNC] Synchronized after 1 decode errors")
	require.NotContains(t, out.String(), "H2 cu=4", "valid frames hidden without --show-all")

	out.Reset()
	printer.handle(host.Result{Err: crcErr})
	require.Contains(t, out.String(), "DECODE ERROR")
	require.Contains(t, out.String(), "Kind: crc_mismatch")

	out.Reset()
	msg, err := sent.NewShortMessage(0x3, 0xB)
	require.NoError(t, err)
	printer.handle(host.Result{Message: &msg})
	require.Contains(t, out.String(), "SHORT MESSAGE:")
	require.Contains(t, out.String(), "crc=0xB")

	out.Reset()
	h5 := sent.NewFrame(sent.FormatH5, 4, 0, []sent.Nibble{1, 2, 3, 0, 7, 0})
	printer.handle(host.Result{Frame: h5, Anomalies: sent.ValidateFrame(h5)})
	require.Contains(t, out.String(), "VALIDATION ERROR")
	require.Contains(t, out.String(), "data[4]=0x7, expected 0x0")

	out.Reset()
	printer.showAll = true
	printer.handle(host.Result{Frame: frame})
	require.Contains(t, out.String(), "H2 cu=4")
}

// ============================================================
// monitor TUI
// ============================================================

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func updateModel(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm
}

func TestModel_Results(t *testing.T) {
	mon := newTestMonitor(t, h2Config())
	m := initialModel("Recording: test", mon, false)
	require.Contains(t, m.View(), "Waiting for synchronization")

	for _, p := range sent.NewFrame(sent.FormatH2, 4, 0, []sent.Nibble{0x3, 0xA, 0x1}).Pulses() {
		res := mon.Process(p)
		if res.Frame != nil || res.Err != nil {
			m = updateModel(t, m, pulseResultMsg{res: res})
		}
	}

	require.True(t, m.synchronized)
	require.NotNil(t, m.lastFrame)
	require.Equal(t, uint64(1), m.stats.ValidFrames)

	view := m.View()
	require.Contains(t, view, "SENTSCOPE - MONITOR")
	require.Contains(t, view, "Synchronized")
	require.Contains(t, view, "Latest Frame:")

	m = updateModel(t, m, streamEndMsg{})
	require.True(t, m.streamEnded)
	require.Contains(t, m.View(), "Stream ended")
}

func TestModel_FormatPicker(t *testing.T) {
	mon := newTestMonitor(t, h2Config())
	m := initialModel("Recording: test", mon, false)

	m = updateModel(t, m, keyRune('f'))
	require.True(t, m.picking)
	require.Equal(t, 1, m.formatList.Index(), "picker starts on the current format")

	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, m.picking)
	require.Equal(t, sent.FormatH3, mon.Format())

	m = updateModel(t, m, keyRune('f'))
	m = updateModel(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, m.picking)
	require.Equal(t, sent.FormatH3, mon.Format())
}

func TestModel_ResetKeys(t *testing.T) {
	mon := newTestMonitor(t, h2Config())
	m := initialModel("Recording: test", mon, false)

	pulses := sent.NewFrame(sent.FormatH2, 4, 0, []sent.Nibble{0x3, 0xA, 0x1}).Pulses()
	for _, p := range pulses {
		mon.Process(p)
	}
	mon.Process(pulses[0])
	require.False(t, mon.Idle())

	m = updateModel(t, m, keyRune('r'))
	require.True(t, mon.Idle())

	m = updateModel(t, m, keyRune('s'))
	require.Equal(t, uint64(0), m.stats.ValidFrames)
	require.Equal(t, uint64(0), mon.Statistics().ValidFrames)
}

// ============================================================
// link manager
// ============================================================

func TestLinkManager_Reconnect(t *testing.T) {
	saveFlags(t)
	inputPath = ""

	frame := sent.NewFrame(sent.FormatH2, 4, 0, []sent.Nibble{0x3, 0xA, 0x1}).Pulses()
	stream := func() Connection {
		var buf bytes.Buffer
		require.NoError(t, capture.NewWriter(&buf).WritePulses(frame))
		return fakeConn{&buf}
	}

	opens := 0
	open := func() (Connection, string, error) {
		opens++
		if opens == 1 {
			return nil, "", errors.New("link down")
		}
		return stream(), "fake", nil
	}

	lm := newLinkManager(stream(), "fake", open)
	lm.backoff = time.Millisecond
	reconnects := 0
	lm.onReconnect = func(string) { reconnects++ }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pulses := 0
	lm.run(ctx, func(p sent.Pulse) {
		pulses++
		if pulses == 2*len(frame) {
			cancel()
		}
	})

	require.Equal(t, 2*len(frame), pulses)
	require.Equal(t, 2, opens)
	require.Equal(t, 1, reconnects)
}

func TestOpenSimOutput_Stdout(t *testing.T) {
	old := simOutput
	t.Cleanup(func() { simOutput = old })
	simOutput = "-"

	var stdout bytes.Buffer
	out, info, err := openSimOutput(&stdout)
	require.NoError(t, err)
	require.Equal(t, "stdout", info)

	_, err = out.Write([]byte{0x82, 0x04, 0x18, 0x34})
	require.NoError(t, err)
	require.NoError(t, out.Close())
	require.Equal(t, 4, stdout.Len())
}

// ============================================================
// link_test
// ============================================================

func TestLinkVerdict(t *testing.T) {
	some := linkCounts{pulses: 12, syncs: 2}
	tests := []struct {
		name    string
		counts  linkCounts
		err     error
		verdict string
		ok      bool
	}{
		{"duration elapsed", some, nil, "PASSED (link stable)", true},
		{"end of recording", some, io.EOF, "PASSED (end of stream)", true},
		{"connection closed", some, ErrConnectionClosed, "PASSED (end of stream)", true},
		{"read error", some, errors.New("device unplugged"), "FAILED (connection error)", false},
		{"empty recording", linkCounts{}, io.EOF, "FAILED (no pulses)", false},
		{"silent link", linkCounts{}, nil, "FAILED (no pulses)", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, ok := linkVerdict(tt.counts, tt.err)
			require.Equal(t, tt.verdict, verdict)
			require.Equal(t, tt.ok, ok)
		})
	}
}

func TestPrintLinkResults_RecordingEnd(t *testing.T) {
	r := capture.NewReader(simStream(t, h2Config(), 3))

	var counts linkCounts
	var err error
	for {
		var p sent.Pulse
		if p, err = r.ReadPulse(); err != nil {
			break
		}
		counts.add(p, sent.DefaultTolerancePercent)
	}
	require.ErrorIs(t, err, io.EOF)

	var out bytes.Buffer
	require.True(t, printLinkResults(&out, time.Second, counts, err))
	require.Contains(t, out.String(), "Sync pulses: 3")
	require.Contains(t, out.String(), "Result: PASSED (end of stream)")
	require.NotContains(t, out.String(), "FAILED")
}
