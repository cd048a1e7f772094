// Slate Core - portable computer control daemon
//
// slated exposes the machine's firmware features (power modes, GPU
// switching, keyboard backlight) over a local REST API and MQTT,
// executes trigger-bound automations, and records and replays timed
// input macros.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/earnest-s/slate-core/migrations"

	"github.com/earnest-s/slate-core/internal/acpi"
	"github.com/earnest-s/slate-core/internal/api"
	"github.com/earnest-s/slate-core/internal/automation"
	"github.com/earnest-s/slate-core/internal/feature"
	"github.com/earnest-s/slate-core/internal/infrastructure/config"
	"github.com/earnest-s/slate-core/internal/infrastructure/database"
	"github.com/earnest-s/slate-core/internal/infrastructure/influxdb"
	"github.com/earnest-s/slate-core/internal/infrastructure/logging"
	"github.com/earnest-s/slate-core/internal/infrastructure/mqtt"
	"github.com/earnest-s/slate-core/internal/listener"
	"github.com/earnest-s/slate-core/internal/macro"
	"github.com/earnest-s/slate-core/internal/procwatch"
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

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Slate Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
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

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
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

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	topics := mqtt.Topics{}

	// Build the feature registry over the firmware interface
	controller := acpi.NewSysfsController(cfg.ACPI.SysfsRoot)
	featureOpts := []feature.RegistryOption{
		feature.WithLogger(log),
		feature.WithPublisher(mqttClient, topics.FeatureState),
	}
	if influxClient != nil {
		featureOpts = append(featureOpts, feature.WithMetrics(influxClient))
	}
	features := feature.NewRegistry(featureOpts...)
	features.Register(feature.NewPowerMode(controller))
	features.Register(feature.NewHybridGPU(controller))
	features.Register(feature.NewKeyboardBacklight(controller))
	features.Register(feature.NewBatteryConservation(controller))
	features.Register(feature.NewFnLock(controller))
	features.Register(feature.NewTouchpadLock(controller))
	log.Info("feature registry initialised",
		"registered", len(features.List()),
		"supported", len(features.ListSupported(ctx)),
	)

	// Accept feature set commands from the bus
	if subErr := subscribeFeatureCommands(ctx, mqttClient, features, log); subErr != nil {
		return fmt.Errorf("subscribing to feature commands: %w", subErr)
	}

	// Macro engine: recorder, store, and bus-backed replay
	macroStore := macro.NewStore(db)
	injector := macro.NewBusInjector(mqttClient, topics.MacroInject(), byte(cfg.MQTT.QoS))
	player := macro.NewPlayer(injector)
	player.SetLogger(log)
	recorder := macro.NewRecorder(nil)

	var macroMetrics macro.MetricWriter
	if influxClient != nil {
		macroMetrics = influxClient
	}
	macroRunner := macro.NewRunner(macroStore, player, macroMetrics)

	// Automation registry and engine
	automationRepo := automation.NewSQLiteRepository(db)
	automations := automation.NewRegistry(automationRepo)
	automations.SetLogger(log)
	if refreshErr := automations.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading automations: %w", refreshErr)
	}
	log.Info("automation registry initialised", "automations", automations.Count())

	engine := automation.NewEngine(automations,
		automation.NewStepFactory(features, macroRunner),
		automationRepo, log)
	engine.SetMQTT(mqttClient, topics.AutomationExecution)
	if influxClient != nil {
		engine.SetMetrics(influxClient)
	}

	// WebSocket hub is shared between the API server and the engine
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)
	engine.SetHub(hub)

	// Trigger listeners: lazily activated, shared across automations
	listeners := automation.Listeners{
		Process: listener.New[procwatch.Event]("process",
			listener.NewProcessSource("/proc", cfg.Watch.ProcessInterval),
			listener.WithLogger[procwatch.Event](log)),
		Power: listener.New[listener.PowerState]("power",
			listener.NewPowerSource(cfg.Watch.PowerSupplyPath, cfg.Watch.FeatureInterval),
			listener.WithLogger[listener.PowerState](log)),
		Features: make(map[string]*listener.Listener[feature.State]),
	}
	for _, f := range features.List() {
		listeners.Features[f.ID()] = listener.New[feature.State](f.ID(),
			listener.NewFeatureSource(f, cfg.Watch.FeatureInterval),
			listener.WithLogger[feature.State](log))
	}

	binder := automation.NewBinder(engine, listeners, log)
	enabled, err := automations.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("listing enabled automations: %w", err)
	}
	binder.Bind(ctx, enabled)
	defer binder.Unbind(context.Background())
	log.Info("automation triggers bound", "bindings", binder.BindingCount())

	// Accept automation run requests from the bus
	if subErr := subscribeAutomationRuns(ctx, mqttClient, engine, log); subErr != nil {
		return fmt.Errorf("subscribing to automation runs: %w", subErr)
	}

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Features:    features,
		Automations: automations,
		Engine:      engine,
		Binder:      binder,
		ExecRepo:    automationRepo,
		Macros:      macroStore,
		Recorder:    recorder,
		Runner:      macroRunner,
		MQTT:        mqttClient,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Trigger bindings
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Database

	log.Info("Slate Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SLATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SLATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// subscribeFeatureCommands routes slate/feature/{id}/set payloads to
// the registry. Malformed payloads are logged and dropped; a bad bus
// message must not break the subscription.
func subscribeFeatureCommands(ctx context.Context, client *mqtt.Client, features *feature.Registry, log *logging.Logger) error {
	topics := mqtt.Topics{}
	return client.Subscribe(topics.AllFeatureCommands(), 1, func(topic string, payload []byte) error {
		featureID, ok := featureIDFromTopic(topic)
		if !ok {
			log.Warn("feature command on unexpected topic", "topic", topic)
			return nil
		}

		var cmd struct {
			State string `json:"state"`
		}
		if err := json.Unmarshal(payload, &cmd); err != nil || cmd.State == "" {
			log.Warn("malformed feature command", "topic", topic)
			return nil
		}

		if _, err := features.SetState(ctx, featureID, cmd.State); err != nil {
			log.Warn("feature command rejected",
				"feature_id", featureID,
				"state", cmd.State,
				"error", err,
			)
		}
		return nil
	})
}

// subscribeAutomationRuns routes slate/automation/{id}/run requests to
// the engine. Runs execute on the subscription goroutine's own spawned
// goroutine so slow pipelines don't stall the MQTT client.
func subscribeAutomationRuns(ctx context.Context, client *mqtt.Client, engine *automation.Engine, log *logging.Logger) error {
	topics := mqtt.Topics{}
	return client.Subscribe(topics.AllAutomationRuns(), 1, func(topic string, _ []byte) error {
		automationID, ok := automationIDFromTopic(topic)
		if !ok {
			log.Warn("run request on unexpected topic", "topic", topic)
			return nil
		}

		go func() {
			if _, err := engine.Run(ctx, automationID, automation.TriggerManual); err != nil {
				log.Warn("bus-triggered run failed",
					"automation_id", automationID,
					"error", err,
				)
			}
		}()
		return nil
	})
}

// featureIDFromTopic extracts the feature ID from slate/feature/{id}/set.
func featureIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[3] != "set" {
		return "", false
	}
	return parts[2], true
}

// automationIDFromTopic extracts the ID from slate/automation/{id}/run.
func automationIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[3] != "run" {
		return "", false
	}
	return parts[2], true
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
