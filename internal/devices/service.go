package devices

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tuyabridge/internal/tuya"
)

// StateService is the boundary surface consumed by the host framework's
// accessory layer: list devices, read canonical state, send a command.
type StateService interface {
	ListDevices(ctx context.Context) ([]Summary, error)
	GetState(ctx context.Context, deviceID string) (*DeviceState, error)
	SendCommand(ctx context.Context, deviceID string, intent Intent) error
}

// Service implements StateService on top of whichever protocol client the
// linked account uses
type Service struct {
	client     tuya.Client
	registry   *Registry
	translator *Translator
	logger     *slog.Logger

	mu     sync.RWMutex
	online map[string]bool
}

// NewService creates a device state service
func NewService(client tuya.Client, registry *Registry, translator *Translator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:     client,
		registry:   registry,
		translator: translator,
		logger:     logger,
		online:     make(map[string]bool),
	}
}

var _ StateService = (*Service)(nil)

// ListDevices discovers devices, refreshes each device's code mapping, and
// returns their summaries
func (s *Service) ListDevices(ctx context.Context) ([]Summary, error) {
	found, err := s.client.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(found))
	for _, device := range found {
		codes := make([]string, 0, len(device.Status))
		for _, entry := range device.Status {
			codes = append(codes, entry.Code)
		}

		mapping, rebuilt := s.registry.Observe(device.ID, device.Category, codes)
		if rebuilt {
			s.logger.Info("Resolved device code mapping",
				"component", "devices",
				"device_id", device.ID,
				"category", device.Category,
				"type", mapping.Type,
			)
		}

		s.mu.Lock()
		s.online[device.ID] = device.Online
		s.mu.Unlock()

		summaries = append(summaries, Summary{
			ID:       device.ID,
			Name:     device.Name,
			Category: device.Category,
			Type:     mapping.Type,
			Online:   device.Online,
		})
	}
	return summaries, nil
}

// GetState polls one device and translates its raw status into canonical
// state. Devices not yet discovered trigger a discovery pass first.
func (s *Service) GetState(ctx context.Context, deviceID string) (*DeviceState, error) {
	mapping, err := s.mappingFor(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	status, err := s.client.DeviceStatus(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	online := s.online[deviceID]
	s.mu.RUnlock()

	state := s.translator.ToCanonical(mapping, status, online)
	return &state, nil
}

// SendCommand translates a canonical intent into provider commands and sends
// them through the active protocol client
func (s *Service) SendCommand(ctx context.Context, deviceID string, intent Intent) error {
	mapping, err := s.mappingFor(ctx, deviceID)
	if err != nil {
		return err
	}

	commands, err := s.translator.ToCommands(mapping, intent)
	if err != nil {
		return err
	}

	return s.client.SendCommands(ctx, deviceID, commands)
}

func (s *Service) mappingFor(ctx context.Context, deviceID string) (*CodeMapping, error) {
	if mapping, ok := s.registry.Get(deviceID); ok {
		return mapping, nil
	}

	if _, err := s.ListDevices(ctx); err != nil {
		return nil, err
	}
	if mapping, ok := s.registry.Get(deviceID); ok {
		return mapping, nil
	}
	return nil, fmt.Errorf("%w: unknown device %s", tuya.ErrUnsupportedOperation, deviceID)
}
