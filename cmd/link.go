// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"sync"
	"time"

	"github.com/Thermoquad/sentscope/pkg/sent"
)

// linkManager reads the pulse stream of a live link and reopens the
// connection with exponential backoff when it is lost
type linkManager struct {
	mu       sync.RWMutex
	conn     Connection
	connInfo string

	open        func() (Connection, string, error)
	onReconnect func(connInfo string)
	backoff     time.Duration
	maxBackoff  time.Duration
}

func newLinkManager(conn Connection, connInfo string, open func() (Connection, string, error)) *linkManager {
	return &linkManager{
		conn:       conn,
		connInfo:   connInfo,
		open:       open,
		backoff:    1 * time.Second,
		maxBackoff: 30 * time.Second,
	}
}

func (lm *linkManager) getConn() (Connection, string) {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.conn, lm.connInfo
}

func (lm *linkManager) setConn(conn Connection, connInfo string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.conn = conn
	lm.connInfo = connInfo
}

// Close closes the current connection
func (lm *linkManager) Close() error {
	conn, _ := lm.getConn()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// run handles pulses until ctx is cancelled. A recording is read once.
func (lm *linkManager) run(ctx context.Context, handle func(p sent.Pulse)) {
	go func() {
		<-ctx.Done()
		lm.Close()
	}()

	for {
		conn, connInfo := lm.getConn()
		err := readPulses(conn, handle)
		if ctx.Err() != nil {
			return
		}
		if inputPath != "" {
			return
		}
		logger.Warn().Err(err).Str("connection", connInfo).Msg("connection lost")

		if !lm.reconnect(ctx) {
			return // Shutdown requested during reconnect
		}
	}
}

func (lm *linkManager) reconnect(ctx context.Context) bool {
	lm.Close()

	backoff := lm.backoff
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}

		// Attempt to reconnect
		conn, connInfo, err := lm.open()
		if err == nil {
			lm.setConn(conn, connInfo)
			logger.Info().Str("connection", connInfo).Msg("reconnected")
			if lm.onReconnect != nil {
				lm.onReconnect(connInfo)
			}
			return true
		}
		logger.Debug().Err(err).Dur("backoff", backoff).Msg("reconnect failed")

		// Exponential backoff
		backoff *= 2
		if backoff > lm.maxBackoff {
			backoff = lm.maxBackoff
		}
	}
}
