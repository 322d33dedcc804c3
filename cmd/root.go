// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Recorded capture input
	inputPath string

	// Link flags
	formatName       string
	tolerancePercent uint32
	pauseTicks       uint32
	calibrationUnit  uint32

	configPath string
	logLevel   string
	mqttBroker string
)

var rootCmd = &cobra.Command{
	Use:   "sentscope",
	Short: "SAE J2716 SENT Protocol Analyzer",
	Long: `Sentscope - A CLI tool for decoding and analyzing SAE J2716 SENT frames.

The capture link carries pulse durations (low and high phase in ticks) as a
CBOR sequence. Sentscope decodes them into fast-channel frames and short
serial messages, validates the frame format and reports timing, sync and CRC
errors with statistics.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]
  Recording: --input capture.cbor (or - for stdin)

For WebSocket authentication, the password is read from the SENTSCOPE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

Link settings can also be loaded from a TOML file with --config. Flags set on
the command line override values from the file.`,
	Version: "1.0.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cmd.ErrOrStderr())
		return loadSessionConfig(cmd)
	},
	SilenceUsage: true,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&inputPath, "input", "i", "", "Read a recorded pulse stream from a file (- for stdin)")

	// Link flags
	rootCmd.PersistentFlags().StringVarP(&formatName, "format", "f", "H1", "Frame format (H1-H7)")
	rootCmd.PersistentFlags().Uint32Var(&tolerancePercent, "tolerance", 5, "Timing tolerance in percent (0-5)")
	rootCmd.PersistentFlags().Uint32Var(&pauseTicks, "pause", 0, "Pause pulse length in ticks (0 disables)")
	rootCmd.PersistentFlags().Uint32Var(&calibrationUnit, "cu", 4, "Calibration unit in ticks (4-12, sender only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML session config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&mqttBroker, "mqtt-broker", "", "Publish decoded frames to an MQTT broker (mqtt://host:1883/prefix)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
