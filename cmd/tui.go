// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/sentscope/pkg/host"
	"github.com/Thermoquad/sentscope/pkg/sent"
)

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for notices
}

// formatItem is a frame format in the picker
type formatItem struct {
	format sent.Format
}

// Implement list.Item interface
func (f formatItem) Title() string       { return f.format.String() }
func (f formatItem) Description() string { return f.format.Descriptor().Name }
func (f formatItem) FilterValue() string { return f.format.String() }

// TUI model
type model struct {
	connInfo      string
	showAll       bool
	mon           *host.Monitor
	stats         sent.Statistics
	errorLog      []errorLogEntry
	maxLogEntries int
	synchronized  bool
	preSync       int
	width         int
	height        int
	quitting      bool
	streamEnded   bool
	lastFrame     *sent.Frame
	lastMessage   *sent.ShortMessage

	// Format picker
	picking    bool
	formatList list.Model
}

// Messages
type tickMsg time.Time
type pulseResultMsg struct {
	res host.Result
}
type streamEndMsg struct {
	err error
}

func initialModel(connInfo string, mon *host.Monitor, showAll bool) model {
	items := make([]list.Item, len(sent.Formats))
	for i, f := range sent.Formats {
		items[i] = formatItem{format: f}
	}
	delegate := list.NewDefaultDelegate()
	formatList := list.New(items, delegate, 60, 20)
	formatList.Title = "Frame format"
	formatList.SetShowStatusBar(false)
	formatList.SetFilteringEnabled(false)

	return model{
		connInfo:      connInfo,
		showAll:       showAll,
		mon:           mon,
		stats:         mon.Statistics(),
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
		formatList:    formatList,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.picking {
			return m.updatePicker(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "f":
			m.picking = true
			for i, item := range m.formatList.Items() {
				if item.(formatItem).format == m.mon.Format() {
					m.formatList.Select(i)
				}
			}
		case "r":
			m.mon.Reset()
			m.synchronized = false
			m.preSync = 0
			m.addLogEntry("Decoder reset", false)
		case "s":
			m.mon.ResetStatistics()
			m.stats = m.mon.Statistics()
			m.addLogEntry("Statistics cleared", false)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.formatList.SetSize(msg.Width-4, msg.Height-8)

	case tickMsg:
		m.stats = m.mon.Statistics()
		return m, tickCmd()

	case streamEndMsg:
		m.streamEnded = true
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("STREAM ERROR: %v", msg.err), true)
		} else {
			m.addLogEntry("Pulse stream ended", false)
		}

	case pulseResultMsg:
		m.handleResult(msg.res)
		m.stats = m.mon.Statistics()
	}

	return m, nil
}

func (m model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.picking = false
		return m, nil
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		m.picking = false
		item, ok := m.formatList.SelectedItem().(formatItem)
		if !ok {
			return m, nil
		}
		if err := m.mon.SetFormat(item.format); err != nil {
			m.addLogEntry(fmt.Sprintf("Format change failed: %v", err), true)
			return m, nil
		}
		m.synchronized = false
		m.preSync = 0
		m.lastFrame = nil
		m.addLogEntry(fmt.Sprintf("Format set to %s", item.format.Descriptor().Name), false)
		return m, nil
	}

	var cmd tea.Cmd
	m.formatList, cmd = m.formatList.Update(msg)
	return m, cmd
}

func (m *model) handleResult(res host.Result) {
	if res.Frame != nil && !m.synchronized {
		m.synchronized = true
		if m.preSync > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after %d decode errors", m.preSync), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}
	}

	if res.Err != nil {
		if m.synchronized {
			m.addLogEntry(fmt.Sprintf("DECODE ERROR: %v", res.Err), true)
		} else {
			m.preSync++
		}
	}

	if res.Message != nil {
		m.lastMessage = res.Message
		m.addLogEntry(strings.TrimSpace(sent.FormatShortMessage(*res.Message)), false)
	}

	if res.Frame == nil {
		return
	}
	m.lastFrame = res.Frame
	if len(res.Anomalies) > 0 {
		for _, a := range res.Anomalies {
			m.addLogEntry(fmt.Sprintf("%s: %s", res.Frame.Format(), a.Message), true)
		}
	} else if m.showAll {
		m.addLogEntry(fmt.Sprintf("%s (valid) %s", res.Frame.Format(),
			strings.TrimSpace(sent.FormatChannels(res.Frame.Format(), res.Frame.Channels()))), false)
	}
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	// Keep only last N entries
	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	format := m.mon.Format()

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("SENTSCOPE - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Format: %s | Mode: %s | 'f' format, 'r' reset, 's' clear stats, 'q' quit",
		m.connInfo, format, func() string {
			if m.showAll {
				return "All frames"
			}
			return "Errors only"
		}())))
	s.WriteString("\n\n")

	if m.picking {
		s.WriteString(m.formatList.View())
		return s.String()
	}

	// Sync status
	switch {
	case m.streamEnded:
		s.WriteString(warningStyle.Render("■ Stream ended"))
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
	}
	if m.preSync > 0 {
		s.WriteString(headerStyle.Render(fmt.Sprintf(" (%d decode errors before sync)", m.preSync)))
	}
	s.WriteString("\n\n")

	// Statistics
	stats := m.stats
	var validPercent, errorPercent float64
	if stats.TotalFrames > 0 {
		validPercent = float64(stats.ValidFrames) * 100.0 / float64(stats.TotalFrames)
		errorPercent = float64(stats.Errors()) * 100.0 / float64(stats.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", stats.ValidFrames, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", stats.Errors(), errorPercent)),
	))

	if stats.CRCErrors > 0 || stats.TimingErrors > 0 || stats.SyncErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
			statsLabelStyle.Render("CRC:"), errorStyle.Render(fmt.Sprintf("%d", stats.CRCErrors)),
			statsLabelStyle.Render("Timing:"), errorStyle.Render(fmt.Sprintf("%d", stats.TimingErrors)),
			statsLabelStyle.Render("Sync:"), errorStyle.Render(fmt.Sprintf("%d", stats.SyncErrors)),
		))
		if stats.OutOfRange > 0 || stats.LowPhaseMismatch > 0 {
			statsContent.WriteString(fmt.Sprintf(" (%s: %d, %s: %d)",
				headerStyle.Render("out of range"), stats.OutOfRange,
				headerStyle.Render("low phase"), stats.LowPhaseMismatch,
			))
		}
		statsContent.WriteString("\n")
	}

	if stats.Anomalies > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Anomalies:"), warningStyle.Render(fmt.Sprintf("%d", stats.Anomalies)),
		))
	}

	if stats.ShortMessages > 0 || stats.ShortMessageFails > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Short Messages:"), statsValueStyle.Render(fmt.Sprintf("%d", stats.ShortMessages)),
			statsLabelStyle.Render("CRC Failures:"), errorStyle.Render(fmt.Sprintf("%d", stats.ShortMessageFails)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f frames/s", stats.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Latest frame section (only shown once a frame decoded)
	if m.lastFrame != nil {
		s.WriteString(statsLabelStyle.Render("Latest Frame:"))
		s.WriteString("\n")

		f := m.lastFrame
		frameContent := strings.Builder{}
		frameContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s 0x%X\n",
			statsLabelStyle.Render("Format:"), statsValueStyle.Render(f.Format().String()),
			statsLabelStyle.Render("Tick:"), statsValueStyle.Render(fmt.Sprintf("%d", f.CalibrationUnit())),
			statsLabelStyle.Render("Status:"), f.Status(),
		))
		frameContent.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Data:"), statsValueStyle.Render(sent.FormatNibbles(f.Data())),
		))
		frameContent.WriteString(strings.TrimPrefix(sent.FormatChannels(f.Format(), f.Channels()), "  "))
		if m.lastMessage != nil {
			frameContent.WriteString(fmt.Sprintf("%s id=0x%X data=0x%X",
				statsLabelStyle.Render("Short Message:"), m.lastMessage.ID, m.lastMessage.Data,
			))
		}

		s.WriteString(boxStyle.Render(strings.TrimRight(frameContent.String(), "\n")))
		s.WriteString("\n\n")
	}

	// Error log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 20 // Reserve space for header, stats and frame
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.errorLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
