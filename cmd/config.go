// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/sentscope/pkg/sent"
)

// fileConfig is the TOML session file. Every key is optional.
type fileConfig struct {
	Port            string   `toml:"port"`
	Baud            int      `toml:"baud"`
	URL             string   `toml:"url"`
	Username        string   `toml:"username"`
	NoSSLVerify     bool     `toml:"no_ssl_verify"`
	Format          string   `toml:"format"`
	Tolerance       uint32   `toml:"tolerance"`
	Pause           uint32   `toml:"pause"`
	CalibrationUnit uint32   `toml:"calibration_unit"`
	MQTTBroker      string   `toml:"mqtt_broker"`
	Listen          string   `toml:"listen"`
	CORSOrigins     []string `toml:"cors_origins"`
}

func loadSessionConfig(cmd *cobra.Command) error {
	if configPath == "" {
		return nil
	}
	return applyConfigFile(configPath, cmd.Flags().Changed)
}

// applyConfigFile copies values from the file into the flag variables.
// Flags for which changed returns true keep their command line value.
func applyConfigFile(path string, changed func(name string) bool) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load session config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		logger.Warn().Str("path", path).Msgf("unknown config keys: %v", undecoded)
	}

	use := func(key, flag string) bool {
		return meta.IsDefined(key) && !changed(flag)
	}

	if use("port", "port") {
		portName = strings.TrimSpace(raw.Port)
	}
	if use("baud", "baud") {
		baudRate = raw.Baud
	}
	if use("url", "url") {
		wsURL = strings.TrimSpace(raw.URL)
	}
	if use("username", "username") {
		wsUsername = strings.TrimSpace(raw.Username)
	}
	if use("no_ssl_verify", "no-ssl-verify") {
		wsNoSSLVerify = raw.NoSSLVerify
	}
	if use("format", "format") {
		formatName = strings.TrimSpace(raw.Format)
	}
	if use("tolerance", "tolerance") {
		tolerancePercent = raw.Tolerance
	}
	if use("pause", "pause") {
		pauseTicks = raw.Pause
	}
	if use("calibration_unit", "cu") {
		calibrationUnit = raw.CalibrationUnit
	}
	if use("mqtt_broker", "mqtt-broker") {
		mqttBroker = strings.TrimSpace(raw.MQTTBroker)
	}
	if use("listen", "listen") {
		serveListen = strings.TrimSpace(raw.Listen)
	}
	if use("cors_origins", "cors-origin") {
		serveCORSOrigins = raw.CORSOrigins
	}

	logger.Debug().Str("path", path).Msg("session config loaded")
	return nil
}

// linkConfig builds the codec configuration from the link flags
func linkConfig() (sent.Config, error) {
	format, err := sent.ParseFormat(formatName)
	if err != nil {
		return sent.Config{}, err
	}
	cfg := sent.Config{
		Format:           format,
		CalibrationUnit:  calibrationUnit,
		TolerancePercent: tolerancePercent,
		PauseTicks:       pauseTicks,
	}
	if err := cfg.Validate(); err != nil {
		return sent.Config{}, err
	}
	return cfg, nil
}
