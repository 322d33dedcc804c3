// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/Thermoquad/sentscope/pkg/host"
	"github.com/Thermoquad/sentscope/pkg/sent"
)

// newMonitor creates the decoder monitor shared by the decoding commands and
// attaches the MQTT publisher when --mqtt-broker is set. The returned close
// function disconnects the publisher.
func newMonitor(cfg sent.Config) (*host.Monitor, func(), error) {
	mon, err := host.NewMonitor(cfg)
	if err != nil {
		return nil, nil, err
	}
	if mqttBroker == "" {
		return mon, func() {}, nil
	}

	pub, closePub, err := host.DialPublisher(mqttBroker, logger)
	if err != nil {
		return nil, nil, err
	}
	mon.AddObserver(pub)
	return mon, closePub, nil
}
