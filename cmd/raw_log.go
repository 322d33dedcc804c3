// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sentscope/pkg/host"
	"github.com/Thermoquad/sentscope/pkg/sent"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded frames in human-readable format",
	Long: `Continuously decode and display SENT frames as they arrive.

Each frame is shown with timestamp, format, calibration unit, status and CRC
nibbles, the data nibbles and the decoded fast channels. Completed short
serial messages are shown with the frame that finished them.

Supports serial, WebSocket and recorded connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, err := linkConfig()
	if err != nil {
		return err
	}

	// Open connection (serial, WebSocket or recording)
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

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sentscope - Raw Frame Log\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Format: %s\n", cfg.Format.Descriptor().Name)
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	return rawLog(out, conn, mon)
}

// rawLog prints every decoded frame, short message and decoder error
func rawLog(out io.Writer, conn io.Reader, mon *host.Monitor) error {
	return readPulses(conn, func(p sent.Pulse) {
		res := mon.Process(p)
		if res.Err != nil {
			fmt.Fprintf(out, "[ERROR] %v\n", res.Err)
		}
		if res.Frame != nil {
			fmt.Fprint(out, sent.FormatFrame(res.Frame))
		} else if res.Message != nil {
			fmt.Fprint(out, sent.FormatShortMessage(*res.Message))
		}
	})
}
