/*
 * Copyright (c) 2024 openFDA Labs
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
 * associated documentation files (the "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is furnished to do
 * so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all copies or substantial
 * portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
 * NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
 * WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */

// fda-sync incrementally syncs openFDA endpoints to stdout as JSON lines,
// resuming from a local checkpoint database between runs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/openfda-labs/go-fda-connector/connector/checkpoint"
	"github.com/openfda-labs/go-fda-connector/connector/config"
	"github.com/openfda-labs/go-fda-connector/connector/endpoints"
	"github.com/openfda-labs/go-fda-connector/connector/interfaces"
	"github.com/openfda-labs/go-fda-connector/connector/metrics/prometheus"
	"github.com/openfda-labs/go-fda-connector/connector/worker"
	"github.com/openfda-labs/go-fda-connector/logger"
)

const sinceLayout = "2006-01-02"

func main() {
	app := &cli.App{
		Name:  "fda-sync",
		Usage: "incrementally sync openFDA endpoints",
		Commands: []*cli.Command{
			syncCommand(),
			endpointsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func endpointsCommand() *cli.Command {
	return &cli.Command{
		Name:  "endpoints",
		Usage: "list the supported endpoint keys and their destination tables",
		Action: func(c *cli.Context) error {
			for _, key := range endpoints.Keys() {
				schema, err := endpoints.DescribeSchema(key)
				if err != nil {
					return err
				}
				fmt.Printf("%-22s -> %s\n", key, schema.Table)
			}
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "run one incremental sync of an endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "endpoint",
				Usage:    fmt.Sprintf("endpoint key, one of: %s", strings.Join(endpoints.Keys(), ", ")),
				Required: true,
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "openFDA API key",
				EnvVars: []string{"FDA_API_KEY"},
			},
			&cli.StringFlag{
				Name:  "since",
				Usage: "only sync records dated on or after this date (YYYY-MM-DD)",
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "records per request",
				Value: config.DefaultPageSize,
			},
			&cli.StringFlag{
				Name:  "checkpoint-db",
				Usage: "path of the SQLite checkpoint database",
				Value: "fda-checkpoints.db",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "listen address for Prometheus metrics, empty disables them",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: logger.Info,
			},
			&cli.BoolFlag{
				Name:  "restart",
				Usage: "discard the saved checkpoint and sync from the beginning",
			},
		},
		Action: runSync,
	}
}

func runSync(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewLogrusLoggerWithConfig(logger.Configuration{
		EnableConsole:     true,
		ConsoleJSONFormat: false,
		ConsoleLevel:      c.String("log-level"),
	})

	cfg := config.NewSyncConfig("fda-sync", c.String("endpoint")).
		WithPageSize(c.Int("page-size")).
		WithLogger(log)

	if apiKey := c.String("api-key"); apiKey != "" {
		cfg.WithAPIKey(apiKey)
	}
	if since := c.String("since"); since != "" {
		parsed, err := time.Parse(sinceLayout, since)
		if err != nil {
			return fmt.Errorf("invalid --since date %q: %w", since, err)
		}
		cfg.WithSinceDate(parsed)
	}
	if addr := c.String("metrics-addr"); addr != "" {
		mService := prometheus.NewMonitoringService(addr, log)
		cfg.WithMonitoringService(mService)
		defer mService.Shutdown()
	}

	syncer, err := worker.NewSyncer(cfg)
	if err != nil {
		return err
	}
	if cfg.MonitoringService != nil {
		if err := cfg.MonitoringService.Start(); err != nil {
			return err
		}
	}

	checkpointer := checkpoint.NewSQLiteCheckpointer(c.String("checkpoint-db"), log)
	if err := checkpointer.Init(); err != nil {
		return fmt.Errorf("opening checkpoint database: %w", err)
	}
	defer checkpointer.Close()

	endpointKey := c.String("endpoint")
	if c.Bool("restart") {
		if err := checkpointer.RemoveCheckpoint(endpointKey); err != nil {
			return err
		}
	}

	startingState, err := checkpointer.FetchCheckpoint(endpointKey)
	if err != nil && !errors.Is(err, checkpoint.ErrCheckpointNotFound) {
		return err
	}

	out := json.NewEncoder(os.Stdout)
	var complete *interfaces.CompleteEvent

	for event := range syncer.Sync(ctx, startingState) {
		switch event.Type {
		case interfaces.UPSERT:
			if err := out.Encode(map[string]interface{}{
				"type":   "UPSERT",
				"table":  event.Upsert.Table,
				"record": event.Upsert.Record,
			}); err != nil {
				return err
			}
		case interfaces.CHECKPOINT:
			if err := checkpointer.SaveCheckpoint(endpointKey, event.Checkpoint.State); err != nil {
				return fmt.Errorf("saving checkpoint: %w", err)
			}
			if err := out.Encode(map[string]interface{}{
				"type":  "CHECKPOINT",
				"state": event.Checkpoint.State,
			}); err != nil {
				return err
			}
		case interfaces.COMPLETE:
			complete = event.Complete
		}
	}

	if complete == nil {
		log.Infof("Sync interrupted, checkpoint saved for the next run")
		return nil
	}

	status := interfaces.StatusMessage(complete.Status)
	log.Infof("Sync finished: %v, %d records synced, %d skipped",
		status, complete.RecordsSynced, complete.RecordsSkipped)
	if complete.Status != interfaces.EXHAUSTED {
		return cli.Exit(fmt.Sprintf("sync ended with status %s: %v", status, complete.Cause), 2)
	}
	return nil
}
