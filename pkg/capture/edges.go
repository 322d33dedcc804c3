// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import "github.com/Thermoquad/sentscope/pkg/sent"

// Edge is a line level transition at an absolute tick
type Edge struct {
	Tick  uint64
	Level bool // level after the transition
}

// Edges converts pulses into line transitions starting at tick start.
// Each pulse opens with a falling edge and turns high after its low phase.
// A final falling edge closes the last pulse.
func Edges(pulses []sent.Pulse, start uint64) []Edge {
	if len(pulses) == 0 {
		return nil
	}
	edges := make([]Edge, 0, 2*len(pulses)+1)
	t := start
	for _, p := range pulses {
		edges = append(edges, Edge{Tick: t, Level: false})
		edges = append(edges, Edge{Tick: t + uint64(p.Low), Level: true})
		t += uint64(p.Ticks())
	}
	return append(edges, Edge{Tick: t, Level: false})
}

// EdgeConverter rebuilds pulses from timestamped transitions.
// A pulse is complete at the falling edge that ends its high phase.
type EdgeConverter struct {
	fall     uint64
	rise     uint64
	haveFall bool
	haveRise bool
}

// Push feeds one transition and returns a pulse when one completes.
// Repeated levels are ignored.
func (c *EdgeConverter) Push(e Edge) (sent.Pulse, bool) {
	if e.Level {
		if c.haveFall && !c.haveRise && e.Tick >= c.fall {
			c.rise = e.Tick
			c.haveRise = true
		}
		return sent.Pulse{}, false
	}

	if c.haveFall && !c.haveRise {
		// Falling edge while already low
		return sent.Pulse{}, false
	}

	var p sent.Pulse
	complete := c.haveFall && c.haveRise && e.Tick >= c.rise
	if complete {
		p = sent.Pulse{Low: uint32(c.rise - c.fall), High: uint32(e.Tick - c.rise)}
	}
	c.fall = e.Tick
	c.haveFall = true
	c.haveRise = false
	return p, complete
}

// Reset forgets any partial pulse
func (c *EdgeConverter) Reset() {
	*c = EdgeConverter{}
}

// LevelSampler rebuilds pulses from one line sample per tick
type LevelSampler struct {
	edges EdgeConverter
	tick  uint64
	level bool
	init  bool
}

// Sample feeds the line level for the next tick
func (s *LevelSampler) Sample(level bool) (sent.Pulse, bool) {
	if !s.init {
		// Idle line is high
		s.level = true
		s.init = true
	}
	defer func() { s.tick++ }()

	if level == s.level {
		return sent.Pulse{}, false
	}
	s.level = level
	return s.edges.Push(Edge{Tick: s.tick, Level: level})
}

// Levels expands edges into one sample per tick, up to the last edge
func Levels(edges []Edge) []bool {
	if len(edges) == 0 {
		return nil
	}
	last := edges[len(edges)-1].Tick
	levels := make([]bool, last+1)
	level := true
	next := 0
	for t := uint64(0); t <= last; t++ {
		for next < len(edges) && edges[next].Tick == t {
			level = edges[next].Level
			next++
		}
		levels[t] = level
	}
	return levels
}
