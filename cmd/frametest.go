// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sentscope/pkg/capture"
	"github.com/Thermoquad/sentscope/pkg/sent"
)

var (
	frameTestTimeout int
)

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test the link by waiting for a valid SENT frame",
	Long: `Wait for a valid SENT frame on the connection until timeout.

This command connects to a serial port, WebSocket or recording and waits for
any frame of the configured format that passes the CRC check. Pulses before
the first sync and frames with errors are counted and ignored.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking the capture probe and the format setting.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

// errNoFrame is returned when the stream ends before a valid frame
var errNoFrame = errors.New("stream ended without a valid frame")

// frameTestResult is the first valid frame and what was dropped before it
type frameTestResult struct {
	frame  *sent.Frame
	errors int
	skip   uint64
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	cfg, err := linkConfig()
	if err != nil {
		return err
	}

	// Open connection (serial, WebSocket or recording)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Sentscope - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Format: %s\n", cfg.Format)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for valid SENT frame...\n\n")

	resultChan := make(chan frameTestResult, 1)
	errChan := make(chan error, 1)

	// Reader goroutine
	go func() {
		res, err := waitForFrame(conn, cfg)
		if err != nil {
			errChan <- err
			return
		}
		resultChan <- res
	}()

	// Wait for frame or timeout
	select {
	case res := <-resultChan:
		if res.skip > 0 || res.errors > 0 {
			fmt.Printf("(skipped %d pulses and %d bad frames before sync)\n", res.skip, res.errors)
		}
		f := res.frame
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Format: %s\n", f.Format())
		fmt.Printf("  Calibration: %d ticks\n", f.CalibrationUnit())
		fmt.Printf("  Data: %s\n", sent.FormatNibbles(f.Data()))
		fmt.Print(sent.FormatChannels(f.Format(), f.Channels()))
		fmt.Printf("  CRC: 0x%X\n", f.CRC())
		os.Exit(0)

	case err := <-errChan:
		if errors.Is(err, errNoFrame) {
			fmt.Fprintf(os.Stderr, "FAILED: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(frameTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", frameTestTimeout)
		os.Exit(1)
	}

	return nil
}

// waitForFrame reads pulses until the first frame that passes CRC
func waitForFrame(conn io.Reader, cfg sent.Config) (frameTestResult, error) {
	dec, err := sent.NewDecoder(cfg)
	if err != nil {
		return frameTestResult{}, err
	}

	r := capture.NewReader(conn)
	var res frameTestResult
	for {
		p, err := r.ReadPulse()
		if err != nil {
			if streamClosed(err) {
				return frameTestResult{}, errNoFrame
			}
			return frameTestResult{}, err
		}

		frame, _, decodeErr := dec.DecodePulse(p)
		if decodeErr != nil && frame == nil {
			// Ignore decode errors, just count them
			res.errors++
			continue
		}
		if frame != nil {
			res.frame = frame
			res.skip = dec.Skipped()
			return res, nil
		}
	}
}
