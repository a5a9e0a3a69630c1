package device

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Logger is the logging interface the Registry writes to.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the device table with a read-through cache in front of the
// Repository. Writes go to the repository first and only reach the cache
// once they have been persisted.
//
// Devices handed out are copies. All methods are safe for concurrent use.
type Registry struct {
	repo   Repository
	logger Logger

	mu       sync.RWMutex
	byID     map[string]*Device
	complete bool // byID mirrors the whole table
}

// NewRegistry returns a registry over repo with an empty cache.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		logger: noopLogger{},
		byID:   make(map[string]*Device),
	}
}

// SetLogger replaces the registry's logger.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache replaces the cache with the repository's contents.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	byID := make(map[string]*Device, len(devices))
	for i := range devices {
		byID[devices[i].ID] = devices[i].Copy()
	}

	r.mu.Lock()
	r.byID = byID
	r.complete = true
	r.mu.Unlock()

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

func (r *Registry) cached(id string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return d.Copy(), true
}

func (r *Registry) remember(d *Device) {
	r.mu.Lock()
	r.byID[d.ID] = d.Copy()
	r.mu.Unlock()
}

func (r *Registry) forget(id string) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}

// GetDevice returns the device with id, or ErrDeviceNotFound.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	if d, ok := r.cached(id); ok {
		return d, nil
	}

	d, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.remember(d)
	return d, nil
}

// ListDevices returns every device ordered by ID. It is served from the
// cache once RefreshCache has run.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	r.mu.RLock()
	if !r.complete {
		r.mu.RUnlock()
		return r.repo.List(ctx)
	}
	devices := make([]Device, 0, len(r.byID))
	for _, d := range r.byID {
		devices = append(devices, *d)
	}
	r.mu.RUnlock()

	slices.SortFunc(devices, func(a, b Device) int { return cmp.Compare(a.ID, b.ID) })
	return devices, nil
}

// CreateDevice validates and stores a new device, generating an ID when
// none is set.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = GenerateID()
	}
	if err := ValidateDevice(d); err != nil {
		return err
	}
	if err := r.repo.Create(ctx, d); err != nil {
		return err
	}

	r.remember(d)
	r.logger.Info("device created", "id", d.ID, "address", d.Address())
	return nil
}

// CreateIfNotExists seeds a device from configuration and reports whether
// it was created. A device that already exists keeps its stored address so
// edits made through the API survive a restart.
func (r *Registry) CreateIfNotExists(ctx context.Context, d *Device) (bool, error) {
	_, err := r.GetDevice(ctx, d.ID)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, ErrDeviceNotFound):
		return false, err
	}

	err = r.CreateDevice(ctx, d)
	switch {
	case errors.Is(err, ErrDeviceExists):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// UpdateDevice changes the name or address of an existing device.
func (r *Registry) UpdateDevice(ctx context.Context, d *Device) error {
	if err := ValidateDevice(d); err != nil {
		return err
	}
	if err := r.repo.Update(ctx, d); err != nil {
		return err
	}

	r.remember(d)
	r.logger.Info("device updated", "id", d.ID, "address", d.Address())
	return nil
}

// DeleteDevice removes the device with id.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.forget(id)
	r.logger.Info("device deleted", "id", id)
	return nil
}

// GetDeviceCount returns the number of cached devices.
func (r *Registry) GetDeviceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
