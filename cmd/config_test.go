// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/sentscope/pkg/sent"
)

// saveFlags restores the flag variables after the test
func saveFlags(t *testing.T) {
	t.Helper()
	port, baud, url, user := portName, baudRate, wsURL, wsUsername
	format, tol, pause, cu := formatName, tolerancePercent, pauseTicks, calibrationUnit
	broker, listen, origins, input := mqttBroker, serveListen, serveCORSOrigins, inputPath
	t.Cleanup(func() {
		portName, baudRate, wsURL, wsUsername = port, baud, url, user
		formatName, tolerancePercent, pauseTicks, calibrationUnit = format, tol, pause, cu
		mqttBroker, serveListen, serveCORSOrigins, inputPath = broker, listen, origins, input
	})
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestApplyConfigFile(t *testing.T) {
	saveFlags(t)
	path := writeConfig(t, `
port = "/dev/ttyUSB1"
baud = 921600
format = "H.4"
tolerance = 3
pause = 200
calibration_unit = 6
mqtt_broker = "mqtt://localhost:1883/bench"
listen = ":9000"
cors_origins = ["http://localhost:3000"]
`)

	require.NoError(t, applyConfigFile(path, func(string) bool { return false }))
	require.Equal(t, "/dev/ttyUSB1", portName)
	require.Equal(t, 921600, baudRate)
	require.Equal(t, "H.4", formatName)
	require.Equal(t, uint32(3), tolerancePercent)
	require.Equal(t, uint32(200), pauseTicks)
	require.Equal(t, uint32(6), calibrationUnit)
	require.Equal(t, "mqtt://localhost:1883/bench", mqttBroker)
	require.Equal(t, ":9000", serveListen)
	require.Equal(t, []string{"http://localhost:3000"}, serveCORSOrigins)

	cfg, err := linkConfig()
	require.NoError(t, err)
	require.Equal(t, sent.FormatH4, cfg.Format)
	require.Equal(t, uint32(6), cfg.CalibrationUnit)
}

func TestApplyConfigFile_FlagsOverride(t *testing.T) {
	saveFlags(t)
	formatName = "H2"
	tolerancePercent = 5

	path := writeConfig(t, `
format = "H6"
tolerance = 2
`)
	changed := func(name string) bool { return name == "format" }

	require.NoError(t, applyConfigFile(path, changed))
	require.Equal(t, "H2", formatName, "flag set on the command line wins")
	require.Equal(t, uint32(2), tolerancePercent)
}

func TestApplyConfigFile_Errors(t *testing.T) {
	saveFlags(t)

	err := applyConfigFile(filepath.Join(t.TempDir(), "missing.toml"), func(string) bool { return false })
	require.Error(t, err)

	path := writeConfig(t, `format = [`)
	err = applyConfigFile(path, func(string) bool { return false })
	require.ErrorContains(t, err, "load session config")
}

func TestLinkConfig_Invalid(t *testing.T) {
	saveFlags(t)

	formatName = "H9"
	_, err := linkConfig()
	require.ErrorIs(t, err, sent.ErrInvalidConfig)

	formatName = "H1"
	calibrationUnit = 13
	_, err = linkConfig()
	require.ErrorIs(t, err, sent.ErrInvalidConfig)

	calibrationUnit = 4
	tolerancePercent = sent.MaxTolerancePercent + 1
	_, err = linkConfig()
	require.ErrorIs(t, err, sent.ErrInvalidConfig)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	require.Equal(t, zerolog.WarnLevel, parseLevel(" WARN "))
	require.Equal(t, zerolog.InfoLevel, parseLevel(""))
	require.Equal(t, zerolog.InfoLevel, parseLevel("loud"))
}
