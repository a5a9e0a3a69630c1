package device

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// mockRepository implements Repository in memory and counts calls.
type mockRepository struct {
	mu      sync.Mutex
	devices map[string]Device
	gets    int
	listErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{devices: make(map[string]Device)}
}

func (m *mockRepository) GetByID(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	d, ok := m.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return &d, nil
}

func (m *mockRepository) List(context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockRepository) Create(_ context.Context, d *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[d.ID]; ok {
		return ErrDeviceExists
	}
	m.devices[d.ID] = *d
	return nil
}

func (m *mockRepository) Update(_ context.Context, d *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[d.ID]; !ok {
		return ErrDeviceNotFound
	}
	m.devices[d.ID] = *d
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	return nil
}

func TestRegistry_CreateAndGet(t *testing.T) {
	repo := newMockRepository()
	r := NewRegistry(repo)
	ctx := context.Background()

	d := &Device{ID: "lamp", Name: "Lamp", House: "b", Unit: 3}
	if err := r.CreateDevice(ctx, d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if d.House != "B" {
		t.Errorf("House = %q, want normalised B", d.House)
	}

	got, err := r.GetDevice(ctx, "lamp")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Address() != "B3" {
		t.Errorf("Address() = %q, want B3", got.Address())
	}
	if repo.gets != 0 {
		t.Errorf("GetDevice() hit the repository %d times, want cache hit", repo.gets)
	}

	got.Name = "mutated"
	again, _ := r.GetDevice(ctx, "lamp")
	if again.Name != "Lamp" {
		t.Error("caller mutation leaked into the cache")
	}
}

func TestRegistry_GeneratesID(t *testing.T) {
	r := NewRegistry(newMockRepository())
	d := &Device{House: "A", Unit: 1}
	if err := r.CreateDevice(context.Background(), d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if d.ID == "" {
		t.Error("CreateDevice() did not generate an ID")
	}
}

func TestRegistry_CreateIfNotExists(t *testing.T) {
	r := NewRegistry(newMockRepository())
	ctx := context.Background()

	created, err := r.CreateIfNotExists(ctx, &Device{ID: "lamp", Name: "Seed", House: "A", Unit: 1})
	if err != nil || !created {
		t.Fatalf("CreateIfNotExists() = %v, %v, want created", created, err)
	}

	if err := r.UpdateDevice(ctx, &Device{ID: "lamp", Name: "Edited", House: "A", Unit: 2}); err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}

	created, err = r.CreateIfNotExists(ctx, &Device{ID: "lamp", Name: "Seed", House: "A", Unit: 1})
	if err != nil || created {
		t.Fatalf("second CreateIfNotExists() = %v, %v, want not created", created, err)
	}

	got, _ := r.GetDevice(ctx, "lamp")
	if got.Name != "Edited" || got.Unit != 2 {
		t.Errorf("seed overwrote edits: %+v", got)
	}

	if _, err := r.CreateIfNotExists(ctx, &Device{ID: "bad", House: "Z", Unit: 1}); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("CreateIfNotExists(bad) error = %v, want %v", err, ErrInvalidAddress)
	}
}

func TestRegistry_RefreshAndList(t *testing.T) {
	repo := newMockRepository()
	repo.devices["b"] = Device{ID: "b", House: "A", Unit: 2}
	repo.devices["a"] = Device{ID: "a", House: "A", Unit: 1}
	r := NewRegistry(repo)
	ctx := context.Background()

	if err := r.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if r.GetDeviceCount() != 2 {
		t.Errorf("GetDeviceCount() = %d, want 2", r.GetDeviceCount())
	}

	devices, err := r.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 2 || devices[0].ID != "a" || devices[1].ID != "b" {
		t.Errorf("ListDevices() = %+v", devices)
	}

	if err := r.DeleteDevice(ctx, "a"); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if r.GetDeviceCount() != 1 {
		t.Errorf("GetDeviceCount() = %d after delete, want 1", r.GetDeviceCount())
	}
	if _, err := r.GetDevice(ctx, "a"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice(deleted) error = %v, want %v", err, ErrDeviceNotFound)
	}
}

func TestRegistry_RefreshError(t *testing.T) {
	repo := newMockRepository()
	repo.listErr = errors.New("disk gone")
	r := NewRegistry(repo)

	if err := r.RefreshCache(context.Background()); !errors.Is(err, repo.listErr) {
		t.Errorf("RefreshCache() error = %v, want %v", err, repo.listErr)
	}
}
