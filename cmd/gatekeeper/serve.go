package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gatekeeper-core/internal/api"
	"github.com/nerrad567/gatekeeper-core/internal/directory"
	"github.com/nerrad567/gatekeeper-core/internal/engine"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/config"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/database"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/logging"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/gatekeeper-core/internal/relay"
	"github.com/nerrad567/gatekeeper-core/migrations"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with its HTTP API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

// runServe wires every component and blocks until ctx is cancelled.
func runServe(ctx context.Context, opts *rootOptions) error { //nolint:gocognit,gocyclo // startup wiring is linear
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gatekeeper Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, configPath, err := opts.loadConfig()
	if err != nil {
		return err
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log, err = logging.New(cfg.Logging, version)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer log.Close() //nolint:errcheck // best-effort on shutdown
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	topics := mqtt.NewTopics(cfg.Relay.TopicPrefix)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, topics)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
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

	// Relay output
	actuator := relay.Nop
	if cfg.Relay.Enabled {
		actuator = relay.NewMQTTActuator(mqttClient, relay.MQTTActuatorOptions{
			Topics:       topics,
			QoS:          byte(cfg.Relay.QoS),
			PublishState: cfg.Relay.PublishState,
		})
		log.Info("relay output over MQTT", "prefix", topics.Prefix(), "qos", cfg.Relay.QoS)
	} else {
		log.Info("relay output disabled, transitions are only logged")
	}

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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	eng := engine.New(db, engine.Options{
		Actuator:        actuator,
		Logger:          log,
		LockTimeout:     cfg.LockTimeout(),
		StorageTimeout:  cfg.StorageTimeout(),
		DefaultPageSize: cfg.Engine.DefaultPageSize,
		MaxPageSize:     cfg.Engine.MaxPageSize,
	})

	// The hub is created here so the engine can broadcast into it before
	// the API server starts.
	hub := api.NewHub(cfg.WebSocket, log)
	eng.AddObserver(engine.BroadcastObserver(hub))
	if influxClient != nil {
		eng.AddObserver(engine.MetricsObserver(influxClient))
	}

	deps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Engine:   eng,
		DB:       db,
		Hub:      hub,
		Version:  version,
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	if cfg.Directory.Enabled {
		syncer := newDirectorySyncer(cfg, eng, log)
		if mqttClient != nil {
			if subErr := syncer.SubscribeTrigger(mqttClient, topics.DirectorySync(), byte(cfg.MQTT.QoS)); subErr != nil {
				log.Warn("directory sync trigger unavailable", "topic", topics.DirectorySync(), "error", subErr)
			}
		}
		g.Go(func() error {
			return syncer.Run(gctx)
		})
		log.Info("directory sync enabled", "url", cfg.Directory.URL, "interval_seconds", cfg.Directory.IntervalSeconds)
	}

	if err := server.Start(gctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, eng, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-gctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Gatekeeper Core stopped")
	return nil
}

// openDatabase opens the SQLite store and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "path", cfg.Database.Path)

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete")
	return db, nil
}

func newDirectorySyncer(cfg *config.Config, eng *engine.Engine, log *logging.Logger) *directory.Syncer {
	source := directory.NewHTTPSource(
		cfg.Directory.URL,
		cfg.Directory.Token,
		time.Duration(cfg.Directory.TimeoutSeconds)*time.Second,
	)
	return directory.New(eng, source, directory.Options{
		Interval: time.Duration(cfg.Directory.IntervalSeconds) * time.Second,
		Logger:   log.With("component", "directory"),
	})
}

func healthCheck(ctx context.Context, eng *engine.Engine, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := eng.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
