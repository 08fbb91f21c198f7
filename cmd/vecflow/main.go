// Copyright 2026 Open Harbor
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	vecflow "github.com/openharbor/vecflow"
	"github.com/openharbor/vecflow/ai"
	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/keypool"
	"github.com/openharbor/vecflow/objectstore"
	"github.com/openharbor/vecflow/queue"
	"github.com/openharbor/vecflow/queue/jetstream"
	"github.com/openharbor/vecflow/queue/memory"
	"github.com/openharbor/vecflow/storage"
	"github.com/openharbor/vecflow/storage/badger"
	"github.com/openharbor/vecflow/vectorindex/pgvector"
)

func main() {
	app := &cli.App{
		Name:  "vecflow",
		Usage: "Document ingestion pipeline with usage-balanced embedding credentials",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "work",
				Usage:  "Run pipeline workers and the usage reset scheduler",
				Action: workCommand,
				Flags: append(systemFlags(),
					&cli.IntFlag{
						Name:    "workers",
						Usage:   "Number of concurrent stage workers",
						Value:   8,
						EnvVars: []string{"VECFLOW_WORKERS"},
					},
					&cli.StringFlag{
						Name:    "reset-schedule",
						Usage:   "Cron expression for the usage reset job",
						Value:   "@daily",
						EnvVars: []string{"VECFLOW_RESET_SCHEDULE"},
					},
					&cli.BoolFlag{
						Name:    "dev",
						Usage:   "Use an in-process queue instead of NATS",
						EnvVars: []string{"VECFLOW_DEV"},
					},
				),
			},
			{
				Name:   "submit",
				Usage:  "Submit a document for ingestion",
				Action: submitCommand,
				Flags: append(systemFlags(),
					&cli.StringFlag{
						Name:     "uri",
						Usage:    "Object store key or URL of the document",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Declared content type (text, html, markdown)",
						Value: "text",
					},
					&cli.StringFlag{
						Name:     "tag",
						Usage:    "Destination collection tag",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "company",
						Usage:    "Tenant owning the submission",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "page-wise",
						Usage: "Extract page by page instead of as one text",
					},
				),
			},
			{
				Name:   "status",
				Usage:  "Query the status of a submitted task",
				Action: statusCommand,
				Flags: []cli.Flag{
					dbFlag(),
					&cli.StringFlag{
						Name:     "task",
						Usage:    "Task handle returned by submit",
						Required: true,
					},
				},
			},
			{
				Name:   "reset-usage",
				Usage:  "Run one usage counter reset cycle now",
				Action: resetUsageCommand,
				Flags: []cli.Flag{
					dbFlag(),
					poolFlag(),
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to the local database directory",
		Required: true,
		EnvVars:  []string{"VECFLOW_DB"},
	}
}

func poolFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "pool",
		Usage:    "Path to the credential pool YAML file",
		Required: true,
		EnvVars:  []string{"VECFLOW_POOL"},
	}
}

func systemFlags() []cli.Flag {
	return []cli.Flag{
		dbFlag(),
		poolFlag(),
		&cli.StringFlag{
			Name:    "nats-url",
			Usage:   "NATS server URL",
			Value:   "nats://localhost:4222",
			EnvVars: []string{"VECFLOW_NATS_URL"},
		},
		&cli.StringFlag{
			Name:    "object-endpoint",
			Usage:   "Object store endpoint",
			Value:   "localhost:9000",
			EnvVars: []string{"VECFLOW_OBJECT_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "object-access-key",
			Usage:   "Object store access key",
			EnvVars: []string{"VECFLOW_OBJECT_ACCESS_KEY"},
		},
		&cli.StringFlag{
			Name:    "object-secret-key",
			Usage:   "Object store secret key",
			EnvVars: []string{"VECFLOW_OBJECT_SECRET_KEY"},
		},
		&cli.StringFlag{
			Name:    "object-bucket",
			Usage:   "Object store bucket",
			Value:   "vecflow",
			EnvVars: []string{"VECFLOW_OBJECT_BUCKET"},
		},
		&cli.StringFlag{
			Name:    "pg-host",
			Usage:   "Postgres host for the vector index",
			Value:   "localhost",
			EnvVars: []string{"VECFLOW_PG_HOST"},
		},
		&cli.IntFlag{
			Name:    "pg-port",
			Usage:   "Postgres port",
			Value:   5432,
			EnvVars: []string{"VECFLOW_PG_PORT"},
		},
		&cli.StringFlag{
			Name:    "pg-user",
			Usage:   "Postgres user",
			Value:   "postgres",
			EnvVars: []string{"VECFLOW_PG_USER"},
		},
		&cli.StringFlag{
			Name:    "pg-password",
			Usage:   "Postgres password",
			EnvVars: []string{"VECFLOW_PG_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "pg-dbname",
			Usage:   "Postgres database name",
			Value:   "vecflow",
			EnvVars: []string{"VECFLOW_PG_DBNAME"},
		},
		&cli.StringFlag{
			Name:    "pg-sslmode",
			Usage:   "Postgres SSL mode",
			Value:   "disable",
			EnvVars: []string{"VECFLOW_PG_SSLMODE"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"VECFLOW_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:     "embedding-model",
			Usage:    "Embedding model name",
			Required: true,
			EnvVars:  []string{"VECFLOW_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "provider",
			Usage:   "Provider name used in usage counter keys",
			Value:   "openai",
			EnvVars: []string{"VECFLOW_PROVIDER"},
		},
	}
}

// buildSystem connects all external collaborators and wires the system.
// The returned cleanup closes them in reverse order.
func buildSystem(ctx context.Context, c *cli.Context, queueOpts ...jetstream.Option) (*vecflow.System, func(), error) {
	pool, err := keypool.LoadPool(c.String("pool"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load credential pool: %w", err)
	}

	objects, err := objectstore.NewMinioStore(ctx, objectstore.MinioConfig{
		Endpoint:  c.String("object-endpoint"),
		AccessKey: c.String("object-access-key"),
		SecretKey: c.String("object-secret-key"),
		Bucket:    c.String("object-bucket"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to object store: %w", err)
	}

	var taskQueue queue.TaskQueue
	if c.Bool("dev") {
		taskQueue, err = memory.New()
	} else {
		taskQueue, err = jetstream.New(ctx, c.String("nats-url"), queueOpts...)
	}
	if err != nil {
		objects.Close()
		return nil, nil, fmt.Errorf("failed to connect to task queue: %w", err)
	}

	index, err := pgvector.NewStore(ctx, pgvector.Config{
		Host:     c.String("pg-host"),
		Port:     c.Int("pg-port"),
		User:     c.String("pg-user"),
		Password: c.String("pg-password"),
		DBName:   c.String("pg-dbname"),
		SSLMode:  c.String("pg-sslmode"),
	})
	if err != nil {
		taskQueue.Close()
		objects.Close()
		return nil, nil, fmt.Errorf("failed to connect to vector index: %w", err)
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithProvider(c.String("provider")),
	)

	systemOpts := []vecflow.SystemOption{vecflow.WithAIConfig(aiConfig)}
	if c.Bool("dev") {
		systemOpts = append(systemOpts, vecflow.WithInMemoryStorage())
	}

	system, err := vecflow.NewSystem(c.String("db"), objects, taskQueue, index, pool, systemOpts...)
	if err != nil {
		index.Close()
		taskQueue.Close()
		objects.Close()
		return nil, nil, err
	}

	cleanup := func() {
		system.Close()
		index.Close()
		taskQueue.Close()
		objects.Close()
	}
	return system, cleanup, nil
}

func workCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	system, cleanup, err := buildSystem(ctx, c, jetstream.WithWorkers(c.Int("workers")))
	if err != nil {
		return err
	}
	defer cleanup()

	orchestrator, err := system.NewOrchestrator()
	if err != nil {
		return err
	}

	scheduler, err := system.NewResetScheduler(c.String("reset-schedule"))
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	slog.Info("worker started",
		"workers", c.Int("workers"), "resetSchedule", c.String("reset-schedule"))

	if err := orchestrator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func submitCommand(c *cli.Context) error {
	ctx := context.Background()

	system, cleanup, err := buildSystem(ctx, c)
	if err != nil {
		return err
	}
	defer cleanup()

	orchestrator, err := system.NewOrchestrator()
	if err != nil {
		return err
	}

	source := core.SourceRef{
		URI:          c.String("uri"),
		DeclaredType: c.String("type"),
		PageWise:     c.Bool("page-wise"),
	}
	taskId, err := orchestrator.Submit(ctx, source, c.String("tag"), c.String("company"))
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}

	fmt.Println(taskId)
	return nil
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	statuses, err := badger.NewTaskStatusStore(backend)
	if err != nil {
		return fmt.Errorf("failed to create status store: %w", err)
	}

	record, err := statuses.GetStatus(ctx, c.String("task"))
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("unknown task %q", c.String("task"))
	}
	if err != nil {
		return err
	}

	fmt.Printf("task:      %s\n", record.TaskId)
	fmt.Printf("status:    %s\n", record.Status)
	if record.Progress != "" {
		fmt.Printf("progress:  %s\n", record.Progress)
	}
	fmt.Printf("created:   %s\n", record.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("updated:   %s\n", record.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func resetUsageCommand(c *cli.Context) error {
	ctx := context.Background()

	pool, err := keypool.LoadPool(c.String("pool"))
	if err != nil {
		return fmt.Errorf("failed to load credential pool: %w", err)
	}

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	counters, err := badger.NewUsageCounterStore(backend)
	if err != nil {
		return fmt.Errorf("failed to create counter store: %w", err)
	}

	job, err := keypool.NewResetJob(keypool.NewStaticSource(pool), counters, slog.Default())
	if err != nil {
		return err
	}

	if err := job.Run(ctx); err != nil {
		return fmt.Errorf("reset cycle finished with errors: %w", err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Load local overrides before reading any env-backed flags.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return err
	}

	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
