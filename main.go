package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/roost/config"
	"github.com/pthm-cable/roost/sim"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config seed, -1 = time-based)")
	maxTicks := flag.Int("max-ticks", 18000, "Stop after N ticks")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == -1 {
		rngSeed = time.Now().UnixNano()
	}

	world, err := sim.NewWorld(cfg, sim.Options{
		Seed:           rngSeed,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
		LogStats:       *logStats,
	})
	if err != nil {
		slog.Error("failed to build world", "error", err)
		os.Exit(1)
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"pigeons", world.PigeonCount(),
		"max_ticks", *maxTicks,
	)

	for i := 0; i < *maxTicks; i++ {
		world.Tick(sim.DT)
	}

	if err := world.Close(); err != nil {
		slog.Warn("closing output", "error", err)
	}

	slog.Info("simulation complete",
		"ticks", world.TickCount(),
		"sim_seconds", world.Clock(),
		"active_food", world.Supply().Count(),
	)
}
