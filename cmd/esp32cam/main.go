// ESP32Cam node daemon.
//
// The node brings up its wireless uplink, connects to the broker under its
// hardware-derived topic namespace, and then serves frames over HTTP while
// publishing periodic status and snapshot telemetry.
//
// Provisioning: credentials live in the on-device settings store, not in
// config.yaml. Write them once with:
//
//	esp32cam -set WIFI_SSID=mynet -set WIFI_PASS=secret \
//	         -set MQTT_URL=tcp://broker:1883
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/FlorianBr/ESP32Cam/migrations"

	"github.com/FlorianBr/ESP32Cam/internal/api"
	"github.com/FlorianBr/ESP32Cam/internal/camera"
	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/config"
	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/influxdb"
	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/logging"
	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/mqtt"
	"github.com/FlorianBr/ESP32Cam/internal/infrastructure/settings"
	"github.com/FlorianBr/ESP32Cam/internal/telemetry"
	"github.com/FlorianBr/ESP32Cam/internal/uplink"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// setFlags collects repeated -set KEY=VALUE provisioning arguments.
type setFlags []string

func (f *setFlags) String() string { return strings.Join(*f, ",") }

func (f *setFlags) Set(value string) error {
	*f = append(*f, value)
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		configPath = flag.String("config", "", "path to config.yaml (default: $ESP32CAM_CONFIG or "+defaultConfigPath+")")
		provision  setFlags
	)
	flag.Var(&provision, "set", "provision a settings key (KEY=VALUE, repeatable), then exit")
	flag.Parse()

	if err := run(ctx, *configPath, provision); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context, configPath string, provision setFlags) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting esp32cam node", "version", version, "commit", commit)

	if configPath == "" {
		configPath = getConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open the settings store and bring its schema up to date
	store, err := settings.Open(ctx, settings.Config{
		Path:        cfg.Settings.Path,
		WALMode:     cfg.Settings.WALMode,
		BusyTimeout: cfg.Settings.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening settings store: %w", err)
	}
	defer func() {
		log.Info("closing settings store")
		if closeErr := store.Close(); closeErr != nil {
			log.Error("error closing settings store", "error", closeErr)
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating settings store: %w", err)
	}
	log.Info("settings store ready", "path", store.Path())

	// Provisioning mode: write the given keys and exit
	if len(provision) > 0 {
		return provisionSettings(ctx, store, provision, log)
	}

	// Bring up the wireless uplink. Failure here is fatal: without the
	// link the node has nothing to do.
	driver := uplink.NewSupplicantDriver(uplink.SupplicantConfig{
		Interface:    cfg.Uplink.Interface,
		Managed:      cfg.Uplink.Supplicant.Managed,
		Binary:       cfg.Uplink.Supplicant.Binary,
		Driver:       cfg.Uplink.Supplicant.Driver,
		ConfigDir:    cfg.Uplink.Supplicant.ConfigDir,
		PollInterval: time.Duration(cfg.Uplink.Supplicant.PollInterval) * time.Millisecond,
	}, log)

	link := uplink.New(uplink.Config{
		Interface:  cfg.Uplink.Interface,
		MaxRetries: cfg.Uplink.MaxRetries,
	}, store, driver, log)

	if err := link.Init(ctx); err != nil {
		log.Error("uplink failed, stopping", "error", err)
		return fmt.Errorf("bringing up uplink: %w", err)
	}
	defer func() {
		log.Info("stopping uplink")
		if stopErr := link.Stop(); stopErr != nil {
			log.Error("error stopping uplink", "error", stopErr)
		}
	}()

	// Start the broker client; it connects in the background
	broker := mqtt.New(cfg.MQTT, cfg.Device.TopicPrefix, mqtt.Deps{
		Settings: store,
		Identity: link,
		Logger:   log,
	})
	if err := broker.Init(ctx); err != nil {
		return fmt.Errorf("initialising broker client: %w", err)
	}
	defer func() {
		log.Info("disconnecting from broker")
		if closeErr := broker.Close(); closeErr != nil {
			log.Error("error closing broker client", "error", closeErr)
		}
	}()
	log.Info("broker client started", "base_topic", broker.BaseTopic())

	// Camera source
	source, err := camera.NewSource(cfg.Camera)
	if err != nil {
		return fmt.Errorf("creating camera source: %w", err)
	}
	log.Info("camera source ready", "type", cfg.Camera.Source)

	// Optional InfluxDB status mirror
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
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// HTTP surface
	server, err := api.New(api.Deps{
		Config:  cfg.HTTP,
		Logger:  log,
		Camera:  source,
		Uplink:  link,
		Broker:  broker,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating HTTP server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting HTTP server: %w", err)
	}
	defer func() {
		log.Info("stopping HTTP server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping HTTP server", "error", closeErr)
		}
	}()

	// Telemetry loops
	var mirror telemetry.StatusMirror
	if influxClient != nil {
		mirror = influxClient
	}
	tele, err := telemetry.New(telemetry.Config{
		StatusInterval: cfg.Telemetry.StatusIntervalDuration(),
		ImageInterval:  cfg.Telemetry.ImageIntervalDuration(),
		Firmware:       version,
	}, telemetry.Deps{
		Broker: broker,
		Camera: source,
		Uplink: link,
		Mirror: mirror,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating telemetry service: %w", err)
	}
	if err := tele.Start(ctx); err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	defer func() {
		log.Info("stopping telemetry")
		if closeErr := tele.Close(); closeErr != nil {
			log.Error("error stopping telemetry", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// telemetry, HTTP, InfluxDB, broker, uplink, settings store.

	log.Info("esp32cam node stopped")
	return nil
}

// provisionSettings writes -set KEY=VALUE pairs into the settings store and
// lists the resulting keys. Values are never logged.
func provisionSettings(ctx context.Context, store *settings.Store, pairs setFlags, log *logging.Logger) error {
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid -set argument %q, want KEY=VALUE", pair)
		}
		if err := store.Set(ctx, settings.Namespace, key, value); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
		log.Info("settings key written", "key", key)
	}

	keys, err := store.List(ctx, settings.Namespace)
	if err != nil {
		return fmt.Errorf("listing settings: %w", err)
	}
	log.Info("provisioning complete", "keys", keys)
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ESP32CAM_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ESP32CAM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
