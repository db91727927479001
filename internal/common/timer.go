// Package common provides small utilities shared across packages.
package common

import (
	"fmt"
	"strings"
	"time"
)

// Lap is the time spent in one named phase.
type Lap struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration_ns"`
}

// Timer measures a run and the phases inside it.
type Timer struct {
	name     string
	start    time.Time
	lapStart time.Time
	laps     []Lap
	duration time.Duration
}

// NewNamedTimer starts a timer with the given name.
func NewNamedTimer(name string) *Timer {
	now := time.Now()
	return &Timer{name: name, start: now, lapStart: now}
}

// Lap closes the current phase under name and starts the next one.
func (t *Timer) Lap(name string) time.Duration {
	now := time.Now()
	d := now.Sub(t.lapStart)
	t.laps = append(t.laps, Lap{Name: name, Duration: d})
	t.lapStart = now
	return d
}

// Laps returns the recorded phases in order.
func (t *Timer) Laps() []Lap {
	return append([]Lap(nil), t.laps...)
}

// Stop stops the timer and returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Name returns the timer name.
func (t *Timer) Name() string {
	return t.name
}

// String renders "name: total (phase d, ...)".
func (t *Timer) String() string {
	var b strings.Builder
	if t.name != "" {
		b.WriteString(t.name)
		b.WriteString(": ")
	}
	b.WriteString(t.duration.String())
	if len(t.laps) > 0 {
		parts := make([]string, len(t.laps))
		for i, l := range t.laps {
			parts[i] = fmt.Sprintf("%s %v", l.Name, l.Duration)
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	return b.String()
}
