// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Sentscope - SAE J2716 SENT Protocol Analyzer
//
// A CLI tool for decoding SENT pulse streams into fast-channel frames and
// short serial messages, with error detection and a host readback server.

package main

import (
	"os"

	"github.com/Thermoquad/sentscope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
