package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeProbe struct {
	reachable atomic.Bool
}

func (p *fakeProbe) probe(ctx context.Context) error {
	if p.reachable.Load() {
		return nil
	}
	return errors.New("unreachable")
}

func TestMonitorRequiresConfirmationBeforeTransition(t *testing.T) {
	probe := &fakeProbe{}
	probe.reachable.Store(true)

	var fired atomic.Int32
	m := NewConnectionMonitor(probe.probe, 0, func() { fired.Add(1) })
	ctx := context.Background()

	assert.Equal(t, ConnOffline, m.Status())

	// first agreeing observation is only a candidate
	m.Check(ctx)
	assert.Equal(t, ConnOffline, m.Status())
	assert.Zero(t, fired.Load())

	// confirmation flips the state and fires the callback once
	m.Check(ctx)
	assert.Equal(t, ConnOnline, m.Status())
	assert.Equal(t, int32(1), fired.Load())

	// steady state does not re-fire
	m.Check(ctx)
	m.Check(ctx)
	assert.Equal(t, int32(1), fired.Load())
}

func TestMonitorSingleFlapIsIgnored(t *testing.T) {
	probe := &fakeProbe{}
	probe.reachable.Store(true)

	var fired atomic.Int32
	m := NewConnectionMonitor(probe.probe, 0, func() { fired.Add(1) })
	ctx := context.Background()

	m.Check(ctx)
	m.Check(ctx)
	assert.Equal(t, ConnOnline, m.Status())

	// one bad probe must not take the register offline
	probe.reachable.Store(false)
	m.Check(ctx)
	assert.Equal(t, ConnOnline, m.Status())

	// and recovering resets the candidate
	probe.reachable.Store(true)
	m.Check(ctx)
	assert.Equal(t, ConnOnline, m.Status())

	// a confirmed outage does transition, without firing onOnline
	probe.reachable.Store(false)
	m.Check(ctx)
	m.Check(ctx)
	assert.Equal(t, ConnOffline, m.Status())
	assert.Equal(t, int32(1), fired.Load())
}

func TestMonitorFiresOncePerReconnect(t *testing.T) {
	probe := &fakeProbe{}
	var fired atomic.Int32
	m := NewConnectionMonitor(probe.probe, 0, func() { fired.Add(1) })
	ctx := context.Background()

	for cycle := 0; cycle < 3; cycle++ {
		probe.reachable.Store(true)
		m.Check(ctx)
		m.Check(ctx)
		probe.reachable.Store(false)
		m.Check(ctx)
		m.Check(ctx)
	}
	assert.Equal(t, int32(3), fired.Load(), "exactly one callback per offline to online transition")
}

func TestMonitorLastChangeAdvances(t *testing.T) {
	probe := &fakeProbe{}
	probe.reachable.Store(true)
	m := NewConnectionMonitor(probe.probe, 0, nil)
	ctx := context.Background()

	before := m.LastChange()
	m.Check(ctx)
	m.Check(ctx)
	assert.True(t, m.Online())
	assert.False(t, m.LastChange().Before(before))
}
