package main

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-firecracker/internal/api"
	"github.com/nerrad567/gray-logic-firecracker/internal/bridges/firecracker"
	"github.com/nerrad567/gray-logic-firecracker/internal/device"
	"github.com/nerrad567/gray-logic-firecracker/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-firecracker/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-firecracker/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-firecracker/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-firecracker/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-firecracker/internal/infrastructure/serialport"
	"github.com/nerrad567/gray-logic-firecracker/migrations"
)

// run is the daemon, separated from the cobra command for testability.
// It returns nil on a clean shutdown after ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Firecracker",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	// Open database
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", db.Path())

	registry, err := openRegistry(ctx, db, cfg.Protocols.Firecracker.Devices, log)
	if err != nil {
		return err
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(ctx, cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
			stats := influxClient.Stats()
			log.Info("InfluxDB connection closed",
				"points_queued", stats.PointsQueued,
				"write_errors", stats.WriteErrors,
			)
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	bridge, err := newBridge(cfg, registry, mqttClient, influxClient, log)
	if err != nil {
		return err
	}
	if cfg.Protocols.Firecracker.Enabled {
		if startErr := bridge.Start(ctx); startErr != nil {
			bridge.Stop()
			return fmt.Errorf("starting firecracker bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping firecracker bridge")
			bridge.Stop()
		}()
	} else {
		log.Info("firecracker transmitter disabled; commands will be rejected")
	}

	// Start HTTP API (optional)
	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:   cfg.API,
			Security: cfg.Security,
			Logger:   log.Component("api"),
			Registry: registry,
			Bridge:   bridge,
			Ports:    serialport.Enumerator{},
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		if cfg.Security.JWT.Secret == "" {
			log.Warn("security.jwt.secret is empty; API routes are unauthenticated")
		}
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred cleanup runs in reverse order: API, bridge (closes the
	// serial port), InfluxDB, MQTT, database.
	return nil
}

// openRegistry loads the device registry and seeds it from configuration.
func openRegistry(ctx context.Context, db *database.DB, seed []config.FirecrackerDeviceConfig, log *logging.Logger) (*device.Registry, error) {
	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("device"))

	if err := registry.RefreshCache(ctx); err != nil {
		return nil, fmt.Errorf("loading device registry: %w", err)
	}

	created := 0
	for _, d := range seed {
		ok, err := registry.CreateIfNotExists(ctx, &device.Device{
			ID:    d.ID,
			Name:  d.Name,
			House: d.House,
			Unit:  d.Unit,
		})
		if err != nil {
			return nil, fmt.Errorf("seeding device %q: %w", d.ID, err)
		}
		if ok {
			created++
		}
	}

	log.Info("device registry initialised",
		"devices", registry.GetDeviceCount(),
		"seeded", created,
	)
	return registry, nil
}

// newBridge builds the transmitter session and bridge. MQTT and InfluxDB
// are wired only when their clients are non-nil.
func newBridge(cfg *config.Config, registry *device.Registry, mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) (*firecracker.Bridge, error) {
	fc := cfg.Protocols.Firecracker
	log = log.Component(firecracker.Protocol)

	session := firecracker.NewSession(firecracker.SessionOptions{
		Opener:      serialport.Opener{},
		Baud:        fc.Baud,
		BitInterval: fc.BitInterval,
		Warmup:      fc.Warmup,
		Logger:      log,
	})

	opts := firecracker.BridgeOptions{
		Config:   &fc,
		BridgeID: "firecracker-" + cfg.Site.ID,
		Version:  version,
		Session:  session,
		Resolver: registryResolver{registry: registry},
		Logger:   log,
	}
	if mqttClient != nil {
		opts.MQTTClient = &mqttBridgeAdapter{client: mqttClient}
	}
	if influxClient != nil {
		opts.Telemetry = influxTelemetry{client: influxClient}
	}

	bridge, err := firecracker.NewBridge(opts)
	if err != nil {
		return nil, fmt.Errorf("creating firecracker bridge: %w", err)
	}
	return bridge, nil
}

// healthChecker is implemented by every infrastructure client.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthCheck verifies all enabled connections concurrently. Nil clients
// are skipped.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	checks := map[string]healthChecker{"database": db}
	if mqttClient != nil {
		checks["mqtt"] = mqttClient
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}
	if apiServer != nil {
		checks["api"] = apiServer
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, c := range checks {
		g.Go(func() error {
			if err := c.HealthCheck(gctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
