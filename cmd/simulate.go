// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sentscope/pkg/capture"
	"github.com/Thermoquad/sentscope/pkg/sim"
)

var (
	simOutput          string
	simCount           uint64
	simPeriod          time.Duration
	simStep            uint16
	simMessageInterval int
	simSeed            int64
	simRandomReserved  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate a simulated SENT sensor pulse stream",
	Long: `Encode synthetic sensor frames and write the pulse stream.

Channel 1 ramps by --step counts per frame and channel 2 ramps down (H.4
carries a rolling counter instead). Short serial messages are announced every
--message-interval frames.

The stream is written to --output (a file, or - for stdout). Without
--output it is sent over the --port or --url connection.

Example:
  sentscope simulate --format H2 --count 500 --output capture.cbor
  sentscope raw_log --format H2 --input capture.cbor`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVarP(&simOutput, "output", "o", "", "Output file (- for stdout)")
	simulateCmd.Flags().Uint64Var(&simCount, "count", 0, "Number of frames to send (0 = until interrupted)")
	simulateCmd.Flags().DurationVar(&simPeriod, "period", time.Millisecond, "Time between frames (0 = as fast as possible)")
	simulateCmd.Flags().Uint16Var(&simStep, "step", 7, "Channel 1 ramp step per frame")
	simulateCmd.Flags().IntVar(&simMessageInterval, "message-interval", 16, "Frames between short messages (0 disables)")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Seed for reserved status bits (0 = time based)")
	simulateCmd.Flags().BoolVar(&simRandomReserved, "random-reserved", false, "Fill reserved status bits with random values")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := linkConfig()
	if err != nil {
		return err
	}
	cfg.RandomReservedBits = simRandomReserved

	opts := sim.DefaultOptions()
	opts.Config = cfg
	opts.Step = simStep
	opts.MessageInterval = simMessageInterval
	opts.Seed = simSeed

	sender, err := sim.NewSender(opts)
	if err != nil {
		return err
	}

	out, outInfo, err := openSimOutput(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("output", outInfo).
		Str("format", cfg.Format.String()).
		Uint32("cu", cfg.CalibrationUnit).
		Uint64("count", simCount).
		Dur("period", simPeriod).
		Msg("simulation started")

	w := capture.NewWriter(out)
	err = sender.Run(ctx, w, simCount, simPeriod)
	logger.Info().
		Uint64("frames", sender.Frames()).
		Uint64("pulses", w.Count()).
		Uint64("ticks", sender.Ticks()).
		Msg("simulation finished")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// openSimOutput opens the simulation output from --output or the connection flags
func openSimOutput(stdout io.Writer) (io.WriteCloser, string, error) {
	switch simOutput {
	case "":
		conn, connInfo, err := OpenConnection()
		if err != nil {
			return nil, "", fmt.Errorf("no output: use --output or a connection flag: %w", err)
		}
		return conn, connInfo, nil
	case "-":
		return nopWriteCloser{stdout}, "stdout", nil
	}

	f, err := os.Create(simOutput)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s: %w", simOutput, err)
	}
	return f, simOutput, nil
}
