/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the evaluation engine: storage, scoring
  components, the job scheduler, and recurring schedules. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load YAML runtime configuration (optional)
  3. Load engine scoring configuration (optional JSON, else defaults)
  4. Initialize SQLite store
  5. Build domain components and register job handlers
  6. Start worker pool and cron loop
  7. Wait for SIGINT/SIGTERM, then drain and exit

COMMAND-LINE FLAGS:
  -config   YAML runtime config path (optional)
  -db       SQLite database path (default: evaluations.db)
            Use ":memory:" for in-memory database
  -workers  Worker pool size (default: 4)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the cron loop (no new enqueues)
  2. Drain queued and running jobs (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./engine -db="./data/evaluations.db"

  # Run with a runtime config
  ./engine -config="./engine.yaml"

YAML CONFIG:
  database: ./data/evaluations.db
  workers: 4
  engine_config: ./scoring.json   # factory.ConfigJSON document
  schedules:
    - name: nightly-scoring
      job: evaluation_processing
      frequency: daily
      hour: 2
      minute: 0
      period: 2025-H2

SEE ALSO:
  - scheduler/scheduler.go: Worker pool and job queue
  - factory/config.go: Scoring configuration parsing
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/factory"
	"github.com/warp/evaluation-engine/scheduler"
	"github.com/warp/evaluation-engine/store/sqlite"
)

// RuntimeConfig is the YAML runtime configuration. Flags override it.
type RuntimeConfig struct {
	Database     string           `yaml:"database"`
	Workers      int              `yaml:"workers"`
	EngineConfig string           `yaml:"engine_config"`
	Schedules    []ScheduleConfig `yaml:"schedules"`
}

// ScheduleConfig is one recurring schedule entry.
type ScheduleConfig struct {
	Name      string `yaml:"name"`
	Job       string `yaml:"job"`
	Frequency string `yaml:"frequency"`
	Hour      int    `yaml:"hour"`
	Minute    int    `yaml:"minute"`
	Weekday   int    `yaml:"weekday"`
	Day       int    `yaml:"day"`
	Period    string `yaml:"period"`
}

func main() {
	configPath := flag.String("config", "", "YAML runtime config path")
	dbPath := flag.String("db", "evaluations.db", "SQLite database path")
	workers := flag.Int("workers", 4, "worker pool size")
	flag.Parse()

	cfg := loadRuntimeConfig(*configPath)
	if cfg.Database == "" {
		cfg.Database = *dbPath
	}
	if cfg.Workers == 0 {
		cfg.Workers = *workers
	}

	engineCfg := loadEngineConfig(cfg.EngineConfig)

	store, err := sqlite.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	alloc, err := evaluation.NewAllocator(engineCfg.Quota)
	if err != nil {
		log.Fatalf("Invalid quota configuration: %v", err)
	}

	eng := &scheduler.Engine{
		Calculator: evaluation.NewCalculator(engineCfg.Chart),
		Allocator:  alloc,
		Growth:     evaluation.NewGrowthEngine(engineCfg.Ladder, store),
		Promotion:  evaluation.NewPromotionAnalyzer(engineCfg.Ladder, engineCfg.Requirements, store),
		Store:      store,
	}

	sched := scheduler.New(cfg.Workers)
	scheduler.RegisterJobHandlers(sched, eng)
	sched.Start(context.Background())

	cron := scheduler.NewCron(sched)
	for _, sc := range cfg.Schedules {
		cron.Add(&scheduler.Schedule{
			Name:      sc.Name,
			JobType:   sc.Job,
			Metadata:  map[string]string{"period": sc.Period},
			Frequency: scheduler.Frequency(sc.Frequency),
			Hour:      sc.Hour,
			Minute:    sc.Minute,
			Weekday:   time.Weekday(sc.Weekday),
			Day:       sc.Day,
		})
	}
	cron.Start()

	log.Printf("Evaluation engine running (db=%s, workers=%d, schedules=%d)",
		cfg.Database, cfg.Workers, len(cfg.Schedules))

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	cron.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sched.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Engine exited")
}

func loadRuntimeConfig(path string) RuntimeConfig {
	var cfg RuntimeConfig
	if path == "" {
		return cfg
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config %s: %v", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		log.Fatalf("Failed to parse config %s: %v", path, err)
	}
	return cfg
}

func loadEngineConfig(path string) *factory.EngineConfig {
	f := factory.NewConfigFactory()
	if path == "" {
		cfg, err := f.ParseConfig(factory.StandardConfigJSON())
		if err != nil {
			log.Fatalf("Failed to build default engine config: %v", err)
		}
		return cfg
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read engine config %s: %v", path, err)
	}
	cfg, err := f.ParseConfig(string(raw))
	if err != nil {
		log.Fatalf("Failed to parse engine config %s: %v", path, err)
	}
	return cfg
}
