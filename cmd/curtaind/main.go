// Curtain Core - Motorized Curtain Bridge
//
// This is the main entry point for curtaind, the daemon that owns the
// TCP session to a motorized-curtain hub and bridges it onto MQTT:
//   - Persistent hub session with automatic reconnect
//   - Passive device discovery from link traffic
//   - Retained per-device state, command/ack, health, and discovery topics
//   - Optional position telemetry (InfluxDB) and traffic journal (SQLite)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/slatehome/curtain-core/migrations"

	"github.com/slatehome/curtain-core/internal/bridges/curtain"
	"github.com/slatehome/curtain-core/internal/infrastructure/config"
	"github.com/slatehome/curtain-core/internal/infrastructure/database"
	"github.com/slatehome/curtain-core/internal/infrastructure/influxdb"
	"github.com/slatehome/curtain-core/internal/infrastructure/logging"
	"github.com/slatehome/curtain-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// bridgeID identifies this daemon on the bus: health topic, LWT payload,
// and ack messages all carry it.
const bridgeID = "curtain"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Stages in order: logging, config, database and migrations, InfluxDB
// (optional), MQTT, hub coordinator, traffic journal (optional), scanner,
// bridge. Deferred cleanup runs in reverse, so the bridge publishes its
// stopping status while the MQTT connection is still up.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting curtaind",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath(os.Args[1:])
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		// Set up InfluxDB error callback
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Connect to MQTT broker with the bridge health topic as LWT, so the
	// broker marks this daemon offline the moment the session drops.
	lwtPayload, err := json.Marshal(curtain.NewLWTMessage(bridgeID))
	if err != nil {
		return fmt.Errorf("building LWT payload: %w", err)
	}
	mqttClient, err := mqtt.ConnectWithWill(cfg.MQTT, curtain.HealthTopic(), lwtPayload)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to the curtain hub
	coordinator, err := curtain.Connect(ctx, curtain.CoordinatorConfig{
		Host:           cfg.Curtain.Hub.Host,
		Port:           cfg.Curtain.Hub.Port,
		ReadBufferSize: cfg.Curtain.Hub.ReadBufferSize,
		RetryInterval:  cfg.Curtain.Hub.RetryInterval,
		DialTimeout:    cfg.Curtain.Hub.DialTimeout,
		ReadTimeout:    cfg.Curtain.Hub.ReadTimeout,
		WriteTimeout:   cfg.Curtain.Hub.WriteTimeout,
		Polling: curtain.PollingSettings{
			Enabled:  cfg.Curtain.Polling.Enabled,
			Interval: cfg.Curtain.Polling.Interval,
		},
	})
	if err != nil {
		return fmt.Errorf("connecting to hub: %w", err)
	}
	coordinator.SetLogger(log)
	defer func() {
		log.Info("closing hub session")
		if closeErr := coordinator.Close(); closeErr != nil {
			log.Error("error closing hub session", "error", closeErr)
		}
	}()
	log.Info("hub connected",
		"hub", cfg.HubAddress(),
		"polling", cfg.Curtain.Polling.Enabled,
	)

	// Start the traffic journal (optional)
	if cfg.Curtain.Journal.Enabled {
		journal := curtain.NewJournal(db.DB)
		journal.SetLogger(log)
		if journalErr := journal.Start(); journalErr != nil {
			return fmt.Errorf("starting traffic journal: %w", journalErr)
		}
		defer journal.Stop()
		coordinator.SetRecorder(journal)

		if count, countErr := journal.DeviceCount(ctx); countErr == nil {
			log.Info("traffic journal started", "devices_seen", count)
		} else {
			log.Warn("traffic journal device count unavailable", "error", countErr)
		}
	} else {
		log.Info("traffic journal disabled")
	}

	// Create the discovery scanner
	scanner, err := curtain.NewScanner(coordinator, curtain.ScannerConfig{
		Names:       cfg.Curtain.Discovery.Names,
		UseNames:    cfg.Curtain.Discovery.UseNames,
		ScanTimeout: cfg.Curtain.Discovery.ScanTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating scanner: %w", err)
	}
	scanner.SetLogger(log)

	// Start the MQTT bridge
	var telemetry curtain.TelemetryWriter
	if influxClient != nil {
		telemetry = &influxTelemetry{client: influxClient}
	}
	bridge, err := curtain.NewBridge(curtain.BridgeOptions{
		BridgeID:       bridgeID,
		Version:        version,
		HubAddress:     cfg.HubAddress(),
		HealthInterval: cfg.Health.Interval,
		ScanWindow:     cfg.Curtain.Discovery.ScanTimeout,
		MQTTClient:     &mqttBridgeAdapter{client: mqttClient},
		Controller:     coordinator,
		Scanner:        scanner,
		Telemetry:      telemetry,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if startErr := bridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping bridge")
		bridge.Stop()
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, coordinator); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred cleanup runs in reverse order:
	// 1. Bridge (publishes stopping status while MQTT is still up)
	// 2. Traffic journal (if enabled)
	// 3. Hub session
	// 4. MQTT
	// 5. InfluxDB (if enabled)
	// 6. Database

	log.Info("curtaind stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Order: first command-line argument, CURTAIN_CONFIG environment variable,
// built-in default. Flag-shaped arguments are ignored so test binaries,
// which receive -test.* flags, fall through to the environment.
func getConfigPath(args []string) string {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0]
	}
	if path := os.Getenv("CURTAIN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//   - coordinator: Hub coordinator to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, coordinator *curtain.Coordinator) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// Check hub session
	if err := coordinator.HealthCheck(ctx); err != nil {
		return fmt.Errorf("hub: %w", err)
	}

	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the curtain
// bridge's MQTTClient interface. The primary difference is the Subscribe
// handler signature:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - Bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements curtain.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements curtain.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Wrap the void handler to return nil error (bridge handlers don't return errors)
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements curtain.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// Disconnect implements curtain.MQTTClient.
// Note: When wired into main.go, the MQTT client is managed by run's defer
// chain, so this is a no-op.
func (a *mqttBridgeAdapter) Disconnect(_ uint) {
	// No-op: MQTT client lifecycle is managed by run's defer chain
}

// influxTelemetry adapts the InfluxDB client to the bridge's TelemetryWriter
// interface. Writes are batched and non-blocking, which is what the
// coordinator's notification workers require.
type influxTelemetry struct {
	client *influxdb.Client
}

// WritePosition implements curtain.TelemetryWriter.
func (t *influxTelemetry) WritePosition(addr curtain.DeviceAddress, position int) {
	t.client.WritePosition(addr.String(), position)
}
