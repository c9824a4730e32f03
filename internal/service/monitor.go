package service

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	ConnOnline  = "online"
	ConnOffline = "offline"
)

// ProbeFunc reports whether the remote store is reachable right now.
type ProbeFunc func(ctx context.Context) error

// ConnectionMonitor watches reachability with periodic active probes.
// Platform connectivity events are unreliable (captive portals), so a
// state change is only accepted once a confirmation probe agrees; one
// flap never triggers a sync. The offline→online transition fires the
// onOnline callback exactly once per transition. The monitor never
// touches entity data.
type ConnectionMonitor struct {
	probe    ProbeFunc
	interval time.Duration
	onOnline func()

	mu         sync.Mutex
	status     string
	candidate  string
	lastChange time.Time
}

func NewConnectionMonitor(probe ProbeFunc, interval time.Duration, onOnline func()) *ConnectionMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ConnectionMonitor{
		probe:      probe,
		interval:   interval,
		onOnline:   onOnline,
		status:     ConnOffline,
		lastChange: time.Now().UTC(),
	}
}

// Start runs the probe loop until ctx is canceled.
func (m *ConnectionMonitor) Start(ctx context.Context) {
	go func() {
		m.Check(ctx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}

// Check performs one probe and advances the state machine. It is also
// called directly when the host environment signals a connectivity
// change, so a platform event shortens the debounce instead of being
// trusted outright.
func (m *ConnectionMonitor) Check(ctx context.Context) {
	observed := ConnOnline
	if err := m.probe(ctx); err != nil {
		observed = ConnOffline
	}

	m.mu.Lock()
	if observed == m.status {
		m.candidate = ""
		m.mu.Unlock()
		return
	}
	if m.candidate != observed {
		// first divergent observation, wait for confirmation
		m.candidate = observed
		m.mu.Unlock()
		return
	}
	m.candidate = ""
	prev := m.status
	m.status = observed
	m.lastChange = time.Now().UTC()
	m.mu.Unlock()

	log.Printf("[monitor] connection %s -> %s", prev, observed)
	if prev == ConnOffline && observed == ConnOnline && m.onOnline != nil {
		m.onOnline()
	}
}

func (m *ConnectionMonitor) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *ConnectionMonitor) LastChange() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastChange
}

func (m *ConnectionMonitor) Online() bool {
	return m.Status() == ConnOnline
}
