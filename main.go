package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	qhttp "probeserve/http"
	"probeserve/logging"
	"probeserve/monitoring"
	"probeserve/probe"
	"probeserve/store"
)

type Config struct {
	Service struct {
		Name string `yaml:"name"`
	} `yaml:"service"`
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log   logging.Config `yaml:"log"`
	Store struct {
		Backend   string `yaml:"backend"`
		Path      string `yaml:"path"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"store"`
	Probes []probe.Descriptor `yaml:"probes"`
}

func main() {
	// 1. Load config
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize logging
	logger, err := logging.Init(config.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logger.Sync()

	// 3. Build the probe catalog
	catalog, err := probe.NewCatalog(config.Probes)
	if err != nil {
		logger.Fatal("invalid probe catalog", zap.Error(err))
	}
	logger.Info("probe catalog loaded", zap.Int("probes", len(catalog.List())))

	// 4. Open the weight store and wrap it with the process-wide cache
	weightStore, closeStore, err := openWeightStore(config)
	if err != nil {
		logger.Fatal("failed to open weight store", zap.Error(err))
	}
	defer closeStore()

	cacheSize := config.Store.CacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cached, err := store.NewCachedStore(weightStore, cacheSize)
	if err != nil {
		logger.Fatal("failed to create weight cache", zap.Error(err))
	}

	engine := probe.NewEngine(catalog, cached)

	// 5. Start monitoring
	hub := monitoring.NewHub()
	go hub.Run()
	monitor := monitoring.NewMonitor(hub)

	// 6. Start HTTP server
	qhttp.SetServiceName(config.Service.Name)
	qhttp.SetCatalog(catalog)
	qhttp.SetEngine(engine)
	qhttp.SetMonitor(monitor)

	serverConfig := qhttp.DefaultServerConfig()
	if config.Http.Port > 0 {
		serverConfig.Port = config.Http.Port
	}
	if config.Http.TimeoutSeconds > 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if len(config.Http.AllowedOrigins) > 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}

	server := qhttp.NewServer(serverConfig)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 7. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	hub.Stop()
}

func openWeightStore(config *Config) (probe.WeightStore, func(), error) {
	switch config.Store.Backend {
	case "sqlite":
		s, err := store.NewSQLiteStore(config.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "", "file":
		return store.NewFileStore(config.Store.Path), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %q", config.Store.Backend)
	}
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
