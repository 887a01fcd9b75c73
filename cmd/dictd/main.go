// dictd serves an object dictionary: a tree of typed parameters and events
// that clients read, write, signal and subscribe to over several
// transports (line CLI, HTTP, websocket JSON-RPC, an MQTT mirror and a
// periodic telemetry sampler). Every client is a session with its own
// userlevel, and every change reaches subscribers through per-session
// coalescing queues.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/audit"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport/cli"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport/httpapi"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport/mirror"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport/ticker"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport/ws"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
	"github.com/nerrad567/gray-logic-dictionary/migrations"
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

// auditBufferSize bounds the entries waiting for the audit writer.
const auditBufferSize = 256

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // Linear startup sequence
	log := logging.Default()
	log.Info("starting dictd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Build the dictionary
	dict, err := loadTree(cfg, log)
	if err != nil {
		return err
	}

	// Userlevel policy
	decider, err := buildDecider(cfg)
	if err != nil {
		return err
	}
	callbacks := &session.Callbacks{Userlevel: decider}

	// Audit trail (optional)
	var auditRepo audit.Repository
	if cfg.Audit.Enabled {
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
		applied, pending, err := db.MigrationStatus(ctx, migrations.FS)
		if err != nil {
			return fmt.Errorf("reading migration status: %w", err)
		}
		for _, m := range pending {
			log.Info("applying migration", "version", m.Version, "name", m.Name)
		}
		if err := db.Migrate(ctx, migrations.FS); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		log.Info("database ready",
			"path", cfg.Database.Path,
			"migrations", len(applied)+len(pending),
		)

		auditRepo = audit.NewSQLiteRepository(db.DB)
		recorder := audit.NewRecorder(auditRepo, auditBufferSize)
		recorder.SetLogger(log.Component("audit"))
		recorder.Start()
		defer func() {
			recorder.Close()
			if n := recorder.Dropped(); n > 0 {
				log.Warn("audit entries dropped", "count", n)
			}
		}()
		callbacks = recorder.Callbacks(decider, cfg.Audit.Requests)
	} else {
		log.Info("audit trail disabled")
	}

	// MQTT mirror (optional)
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.Component("mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		m, err := mirror.New(mirror.Deps{
			Config:    cfg.MQTT.Mirror,
			Broker:    mqttClient,
			Tree:      dict,
			Callbacks: callbacks,
			Logger:    log,
		})
		if err != nil {
			return fmt.Errorf("creating MQTT mirror: %w", err)
		}
		if err := m.Start(ctx); err != nil {
			return fmt.Errorf("starting MQTT mirror: %w", err)
		}
		defer m.Close()
	} else {
		log.Info("MQTT mirror disabled")
	}

	// Telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		if cfg.Telemetry.Enabled {
			sampler, err := ticker.New(ticker.Deps{
				Config:    cfg.Telemetry,
				Tree:      dict,
				Callbacks: callbacks,
				Logger:    log,
				Sink: &ticker.InfluxSink{
					Client:      influxClient,
					Measurement: cfg.Telemetry.Measurement,
					DeviceID:    cfg.Device.ID,
				},
			})
			if err != nil {
				return fmt.Errorf("creating telemetry sampler: %w", err)
			}
			if err := sampler.Start(ctx); err != nil {
				return fmt.Errorf("starting telemetry sampler: %w", err)
			}
			// Registered after the InfluxDB close so the final batch is written first.
			defer sampler.Close()
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	// Line CLI
	if cfg.CLI.Enabled {
		cliServer, err := cli.New(cli.Deps{
			Config:    cfg.CLI,
			Tree:      dict,
			Callbacks: callbacks,
			Logger:    log,
			Userlevel: cfg.Security.DefaultUserlevel,
		})
		if err != nil {
			return fmt.Errorf("creating CLI server: %w", err)
		}
		if err := cliServer.Start(ctx); err != nil {
			return fmt.Errorf("starting CLI server: %w", err)
		}
		defer func() {
			if closeErr := cliServer.Close(); closeErr != nil {
				log.Error("error closing CLI server", "error", closeErr)
			}
		}()
	}

	// HTTP API and websocket
	if cfg.API.Enabled {
		deps := httpapi.Deps{
			Config:    cfg.API,
			Security:  cfg.Security,
			Tree:      dict,
			Callbacks: callbacks,
			Logger:    log,
			Audit:     auditRepo,
			Version:   version,
		}
		if cfg.WebSocket.Enabled {
			hub, err := ws.NewHub(ws.Deps{
				Config:    cfg.WebSocket,
				Tree:      dict,
				Callbacks: callbacks,
				Logger:    log,
				Userlevel: cfg.Security.DefaultUserlevel,
			})
			if err != nil {
				return fmt.Errorf("creating websocket hub: %w", err)
			}
			defer hub.Close()
			deps.WebSocket = hub
			deps.WebSocketPath = cfg.WebSocket.Path
		}

		apiServer, err := httpapi.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal", "nodes", dict.Len())

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: transports first, then
	// the mirror and sampler sessions, then MQTT, InfluxDB and the
	// database.

	log.Info("dictd stopped")
	return nil
}

// loadTree builds the dictionary from the configured definition file.
func loadTree(cfg *config.Config, log *logging.Logger) (*tree.Tree, error) {
	def, err := tree.LoadDefinition(cfg.Dictionary.Definition)
	if err != nil {
		return nil, fmt.Errorf("loading dictionary: %w", err)
	}

	dict := tree.New()
	dict.SetLogger(log.Component("tree"))
	if err := def.Populate(dict, nil); err != nil {
		return nil, fmt.Errorf("populating dictionary: %w", err)
	}
	log.Info("dictionary loaded", "path", cfg.Dictionary.Definition, "nodes", dict.Len())
	return dict, nil
}

// buildDecider combines the password and token policies. A raise is
// granted when either accepts the credential.
func buildDecider(cfg *config.Config) (access.Decider, error) {
	hashes, err := cfg.PasswordHashes()
	if err != nil {
		return nil, err
	}
	passwords, err := access.NewPasswordDecider(hashes)
	if err != nil {
		return nil, fmt.Errorf("userlevel passwords: %w", err)
	}

	chain := access.Chain{passwords}
	if cfg.Security.JWT.Secret != "" {
		chain = append(chain, access.TokenDecider{Secret: cfg.Security.JWT.Secret})
	}
	return chain, nil
}

// getConfigPath returns the configuration file path.
// Uses DICTD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DICTD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
