// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/sentscope/pkg/host"
	"github.com/Thermoquad/sentscope/pkg/sent"
)

var (
	serveListen      string
	serveCORSOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Decode the link and serve readback registers over HTTP",
	Long: `Decode the pulse stream in the background and expose the decoder over HTTP.

Endpoints:
  GET  /health        liveness
  GET  /registers     decoder state, latest frame, latest error and counters
  GET  /frame         latest valid frame
  GET  /stats         counters (?format=text for the summary)
  GET  /metrics       Prometheus metrics
  POST /reset         return the decoder to sync search
  POST /stats/reset   clear the counters
  POST /format        {"format": "H2"} reconfigures the decoder

The server keeps running after the stream ends so the final registers stay
readable. Stop it with Ctrl+C.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", ":8716", "HTTP listen address")
	serveCmd.Flags().StringSliceVar(&serveCORSOrigins, "cors-origin", nil, "Allowed CORS origins")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := linkConfig()
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	link := newLinkManager(conn, connInfo, OpenConnection)
	defer link.Close()

	mon, closeMon, err := newMonitor(cfg)
	if err != nil {
		return err
	}
	defer closeMon()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mon.AddObserver(host.NewMetrics(reg))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("connection", connInfo).Str("format", cfg.Format.String()).Msg("decoding")
	// A frame in flight is lost with the connection
	link.onReconnect = func(string) { mon.Reset() }
	go link.run(ctx, func(p sent.Pulse) {
		res := mon.Process(p)
		if res.Err != nil {
			logger.Debug().Err(res.Err).Msg("decode error")
		}
	})

	server := host.NewServer(mon, reg, logger, serveCORSOrigins)
	return server.Run(ctx, serveListen)
}
