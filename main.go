package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file overriding the defaults")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	clientDir := flag.String("client", "", "Path to client directory (default: ../client)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	noDB := flag.Bool("no-db", false, "Run without persistence")
	watch := flag.Bool("watch", true, "Reload the config file when it changes")
	bench := flag.String("bench", "", "Run the named variant headless and write telemetry CSV, then exit")
	frames := flag.Int("frames", 60*60, "Frames to simulate in bench mode")
	seed := flag.Int64("seed", 1, "Encounter seed in bench mode")
	dps := flag.Int("dps", 0, "Damage applied per simulated second in bench mode")
	out := flag.String("out", "", "Telemetry output directory in bench mode (overrides config)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("loading config")
	}
	InitLogger(cfg.Log.Level, cfg.Log.Format)

	if *bench != "" {
		runBench(cfg, *bench, *frames, *seed, *dps, *out)
		return
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}
	if *noDB {
		cfg.Server.DBPath = ""
	}
	if *clientDir == "" {
		*clientDir = cfg.Server.ClientDir
	}
	if *clientDir == "" {
		exe, _ := os.Executable()
		*clientDir = filepath.Join(filepath.Dir(exe), "..", "client")
		// Fallback for development
		if _, err := os.Stat(*clientDir); os.IsNotExist(err) {
			*clientDir = "../client"
		}
	}

	var db *DB
	if cfg.Server.DBPath != "" {
		db, err = OpenDB(cfg.Server.DBPath)
		if err != nil {
			logger.WithError(err).Fatal("opening database")
		}
		defer db.Close()
	}

	store := NewConfigStore(cfg, *configPath)
	if *watch && *configPath != "" {
		watcher, err := WatchConfig(store)
		if err != nil {
			logger.WithError(err).Warn("config watch disabled")
		} else {
			defer watcher.Close()
			go func() {
				for c := range watcher.Reloads {
					InitLogger(c.Log.Level, c.Log.Format)
				}
			}()
		}
	}

	hub := NewHub(db, store)
	go hub.Run()

	mux := SetupRoutes(hub, *clientDir)
	server := &http.Server{Addr: cfg.Server.Addr, Handler: mux}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":   cfg.Server.Addr,
			"client": *clientDir,
			"db":     cfg.Server.DBPath,
		}).Info("server starting")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("ListenAndServe")
		}
	}()

	<-stop
	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("shutdown")
	}
	hub.Close()
}

func runBench(cfg *Config, name string, frames int, seed int64, dps int, out string) {
	v, err := LookupVariant(name, cfg)
	if err != nil {
		logger.WithError(err).Fatal("bench")
	}
	if out == "" {
		out = cfg.Telemetry.Dir
	}
	path, res, err := WriteBench(out, v, BenchOptions{
		Frames:         frames,
		Seed:           seed,
		IntervalFrames: cfg.Telemetry.IntervalFrames,
		DamagePerSec:   dps,
		Field:          cfg.Field(),
		PlayerSpeed:    cfg.Player.Speed,
		PlayerSize:     cfg.Player.Size,
	})
	if err != nil {
		logger.WithError(err).Fatal("bench")
	}
	logger.WithFields(logrus.Fields{
		"file":     path,
		"variant":  res.Variant,
		"frames":   res.Frames,
		"bursts":   res.Bursts,
		"spawned":  res.Spawned,
		"defeated": res.Damage >= v.Health,
	}).Info("bench finished")
}
