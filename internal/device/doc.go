// Package device is the registry of X10 modules the bridge can address.
//
// Each device maps a stable ID (used in MQTT topics and the API) to an X10
// house letter and unit number. Devices are stored in the
// firecracker_devices SQLite table and cached in memory by Registry.
//
// The registry holds addressing only. X10 is one-way, so there is no
// device state to persist and no command history is kept.
//
// Usage:
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	dev, err := registry.GetDevice(ctx, "lamp-lounge")
package device
