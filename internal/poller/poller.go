package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tuyabridge/internal/devices"
	"tuyabridge/internal/storage"
)

// tickTimeout bounds one whole polling cycle; a slow poll must never block
// the next scheduled token refresh or pile up behind itself
const tickTimeout = 45 * time.Second

// Poller periodically refreshes canonical state for all known devices. One
// failed cycle is transient: it is logged and the loop waits for the next
// interval instead of retrying tightly.
type Poller struct {
	service  devices.StateService
	registry *devices.Registry
	mappings storage.MappingStore // optional
	interval time.Duration
	stopChan chan struct{}
	logger   *slog.Logger

	mu     sync.RWMutex
	latest map[string]devices.DeviceState
}

// New creates a poller. mappings may be nil when mapping persistence is not
// configured.
func New(service devices.StateService, registry *devices.Registry, mappings storage.MappingStore, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		service:  service,
		registry: registry,
		mappings: mappings,
		interval: interval,
		stopChan: make(chan struct{}),
		logger:   logger,
		latest:   make(map[string]devices.DeviceState),
	}
}

// Start begins the polling loop
func (p *Poller) Start() {
	p.logger.Info("Device poller started", "component", "poller", "interval", p.interval.String())
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.tick()
		case <-p.stopChan:
			p.logger.Info("Device poller stopped", "component", "poller")
			return
		}
	}
}

// Stop stops the polling loop
func (p *Poller) Stop() {
	close(p.stopChan)
}

// Latest returns the last polled canonical state for a device
func (p *Poller) Latest(deviceID string) (devices.DeviceState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, ok := p.latest[deviceID]
	return state, ok
}

// All returns a copy of every last-known device state
func (p *Poller) All() map[string]devices.DeviceState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]devices.DeviceState, len(p.latest))
	for id, state := range p.latest {
		out[id] = state
	}
	return out
}

// tick performs one polling cycle
func (p *Poller) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	summaries, err := p.service.ListDevices(ctx)
	if err != nil {
		p.logger.Warn("Device discovery failed, skipping cycle",
			"component", "poller",
			"error", err,
		)
		return
	}

	for _, summary := range summaries {
		state, err := p.service.GetState(ctx, summary.ID)
		if err != nil {
			p.logger.Warn("Failed to poll device state",
				"component", "poller",
				"device_id", summary.ID,
				"error", err,
			)
			continue
		}

		p.mu.Lock()
		p.latest[summary.ID] = *state
		p.mu.Unlock()
	}

	p.persistMappings(ctx)

	p.logger.Debug("Polling cycle complete",
		"component", "poller",
		"devices", len(summaries),
	)
}

// persistMappings writes the current code mappings so a restart can serve
// commands before its first discovery
func (p *Poller) persistMappings(ctx context.Context) {
	if p.mappings == nil {
		return
	}
	for deviceID, mapping := range p.registry.Snapshot() {
		if err := p.mappings.SaveMapping(ctx, deviceID, mapping); err != nil {
			p.logger.Warn("Failed to persist device mapping",
				"component", "poller",
				"device_id", deviceID,
				"error", err,
			)
		}
	}
}
