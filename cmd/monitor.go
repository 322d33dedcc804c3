// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/sentscope/pkg/host"
	"github.com/Thermoquad/sentscope/pkg/sent"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Detect and analyze frame errors and anomalies",
	Long: `Track decoder errors and format anomalies with statistics.

This command decodes each frame and detects:
  - Timing errors (nibble out of range, low phase mismatch)
  - Sync pulses with an invalid calibration unit
  - CRC errors on frames and short serial messages
  - Frames that pass CRC but break their format (H.4 inverted copy and
    counter, H.5 non-zero channel 2, H.3 reserved nibble bits)
  - Statistics and trends (frame rate, error rate, success rate)

By default, only errors and short messages are displayed. Use --show-all to
display valid frames too.

In terminal UI mode press 'f' to pick the frame format, 'r' to reset the
decoder and 's' to clear the statistics.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := linkConfig()
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	mon, closeMon, err := newMonitor(cfg)
	if err != nil {
		return err
	}
	defer closeMon()

	if useTUI {
		return runTUIMode(conn, connInfo, mon)
	}
	return runTextMode(cmd.OutOrStdout(), conn, connInfo, mon)
}

// runTUIMode runs the monitor in TUI mode
func runTUIMode(conn io.Reader, connInfo string, mon *host.Monitor) error {
	m := initialModel(connInfo, mon, showAll)
	p := tea.NewProgram(m)

	// Pulse reader goroutine
	go func() {
		err := readPulses(conn, func(pulse sent.Pulse) {
			res := mon.Process(pulse)
			if res.Frame != nil || res.Message != nil || res.Err != nil {
				p.Send(pulseResultMsg{res: res})
			}
		})
		p.Send(streamEndMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// runTextMode runs the monitor in text mode
func runTextMode(out io.Writer, conn io.Reader, connInfo string, mon *host.Monitor) error {
	fmt.Fprintf(out, "Sentscope - Monitor\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Format: %s\n", mon.Format().Descriptor().Name)
	fmt.Fprintf(out, "Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Fprintf(out, "Mode: All frames\n")
	} else {
		fmt.Fprintf(out, "Mode: Errors only\n")
	}
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	printer := &resultPrinter{out: out, showAll: showAll}

	// Statistics ticker
	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	// Channel for non-blocking pulse reads
	results := make(chan host.Result, 64)
	done := make(chan error, 1)
	go func() {
		done <- readPulses(conn, func(p sent.Pulse) {
			res := mon.Process(p)
			if res.Frame != nil || res.Message != nil || res.Err != nil {
				results <- res
			}
		})
	}()

	for {
		select {
		case res := <-results:
			printer.handle(res)

		case err := <-done:
			// Drain results queued before the stream ended
			for len(results) > 0 {
				printer.handle(<-results)
			}
			stats := mon.Statistics()
			fmt.Fprintln(out)
			fmt.Fprint(out, stats.String())
			return err

		case <-statsTicker.C:
			stats := mon.Statistics()
			fmt.Fprintln(out)
			fmt.Fprint(out, stats.String())
			fmt.Fprintln(out)
		}
	}
}

// resultPrinter prints monitor results in text mode. Decode errors are
// ignored until the first valid frame.
type resultPrinter struct {
	out          io.Writer
	showAll      bool
	synchronized bool
	preSync      int
}

func (r *resultPrinter) handle(res host.Result) {
	if res.Frame != nil && !r.synchronized {
		// First frame! We're now synchronized
		r.synchronized = true
		if r.preSync > 0 {
			fmt.Fprintf(r.out, "[SYNC] Synchronized after %d decode errors\n\n", r.preSync)
		} else {
			fmt.Fprintf(r.out, "[SYNC] Synchronized\n\n")
		}
	}

	if res.Err != nil {
		if r.synchronized {
			printDecodeError(r.out, res.Err)
		} else {
			r.preSync++
		}
	}

	// Always print short messages
	if res.Message != nil {
		printShortMessage(r.out, *res.Message)
	}

	if res.Frame == nil {
		return
	}
	if len(res.Anomalies) > 0 {
		printValidationErrors(r.out, res.Frame, res.Anomalies)
	} else if r.showAll {
		fmt.Fprint(r.out, sent.FormatFrame(res.Frame))
	}
}

// printDecodeError prints a decode error in highlighted format
func printDecodeError(out io.Writer, err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(out, "[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, err)
	for _, kind := range sent.ErrorKinds(err) {
		fmt.Fprintf(out, "  Kind: %s\n", kind)
	}
	fmt.Fprintf(out, "  >>> FRAME DROPPED <<<\n\n")
}

// printShortMessage prints a completed short serial message
func printShortMessage(out io.Writer, msg sent.ShortMessage) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(out, "[%s] \033[1;32mSHORT MESSAGE:\033[0m id=0x%X data=0x%X crc=0x%X\n\n",
		timestamp, msg.ID, msg.Data, msg.CRC)
}

// printValidationErrors prints the format anomalies of a frame
func printValidationErrors(out io.Writer, f *sent.Frame, errors []sent.ValidationError) {
	timestamp := f.Timestamp().Format("15:04:05.000")

	fmt.Fprintf(out, "[%s] \033[1;33mVALIDATION ERROR:\033[0m %s\n", timestamp, f.Format().Descriptor().Name)
	fmt.Fprintf(out, "  CRC: \033[1;32mOK\033[0m\n")

	for i, err := range errors {
		switch err.Type {
		case sent.AnomalyInvertedCopy, sent.AnomalyNonZeroChannel, sent.AnomalyReservedNibbleBit:
			fmt.Fprintf(out, "  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if pos, ok := err.Details["position"].(int); ok {
				fmt.Fprintf(out, "    data[%d]=0x%X, expected 0x%X\n", pos, err.Details["got"], err.Details["expected"])
			}

		case sent.AnomalyCounterSkip:
			fmt.Fprintf(out, "  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		default:
			fmt.Fprintf(out, "  Issue %d: %s\n", i+1, err.Message)
		}
	}

	fmt.Fprintf(out, "  Data: %s\n", sent.FormatNibbles(f.Data()))
	fmt.Fprint(out, sent.FormatChannels(f.Format(), f.Channels()))
	fmt.Fprintf(out, "  >>> FRAME REJECTED <<<\n\n")
}
