// Command svi-fetch fetches normalized search-volume series for a
// configured set of queries, following cc-backend/cmd/cc-backend's
// flag parsing, gops diagnostics agent, and graceful shutdown idiom.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/gops/agent"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/svidx/svi-fetch/internal/svi"
	"github.com/svidx/svi-fetch/internal/sviconfig"
	"github.com/svidx/svi-fetch/internal/sviexport"
	"github.com/svidx/svi-fetch/internal/sviexpr"
	"github.com/svidx/svi-fetch/internal/sviserve"
	"github.com/svidx/svi-fetch/pkg/log"
)

func main() {
	var (
		flagConfigFile string
		flagGops       bool
		flagRule       string
		flagLogLevel   string
	)

	flag.StringVar(&flagConfigFile, "config", "./config.json", "Path to the fetcher's `config.json`")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.StringVar(&flagRule, "rule", "", "Optional boolean expression (see internal/sviexpr) gating whether fetched data is exported")
	flag.StringVar(&flagLogLevel, "loglevel", "info", "One of: debug, info, warn, err, fatal, crit")
	flag.Parse()

	log.SetLogLevel(flagLogLevel)

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("SVIFETCH > gops agent: %s", err.Error())
		}
	}

	sub := flag.Arg(0)
	if sub == "" {
		sub = "fetch"
	}

	cfg, err := sviconfig.Load(flagConfigFile)
	if err != nil {
		log.Fatalf("SVIFETCH > %s", err.Error())
	}

	var rule *sviexpr.Rule
	if flagRule != "" {
		rule, err = sviexpr.Compile(flagRule)
		if err != nil {
			log.Fatalf("SVIFETCH > %s", err.Error())
		}
	}

	ctx := context.Background()

	switch sub {
	case "fetch":
		if err := runFetch(ctx, cfg, rule); err != nil {
			log.Fatalf("SVIFETCH > %s", err.Error())
		}
	case "watch":
		runWatch(ctx, cfg, rule)
	case "serve":
		runServe(ctx, cfg, rule)
	default:
		log.Fatalf("SVIFETCH > unknown subcommand %q (want fetch, watch, or serve)", sub)
	}
}

// buildContainer constructs the upstream client and container a fetch
// cycle needs from cfg, collapsing the config's flat query list into
// svi.Query values.
func buildContainer(ctx context.Context, cfg *sviconfig.Config, extra ...svi.ContainerOption) (*svi.Container, error) {
	client, err := svi.NewClient(ctx,
		svi.WithLanguage(cfg.Language),
		svi.WithTimezone(cfg.Timezone),
		svi.WithTimeout(time.Duration(cfg.TimeoutSeconds*float64(time.Second))),
	)
	if err != nil {
		return nil, err
	}

	queries := make([]svi.Query, len(cfg.Queries))
	for i, q := range cfg.Queries {
		queries[i] = svi.Query{Keyword: q.Keyword, Geo: q.Geo, Category: q.Category}
	}

	// Upper must be strictly in the past per svi.Bounds.valid; back off
	// by a minute so a fetch started the instant this runs still validates.
	upper := time.Now().Add(-time.Minute)
	bounds := svi.Bounds{Lower: upper.AddDate(-1, 0, 0), Upper: upper}

	opts := append([]svi.ContainerOption{
		svi.WithGranularity(svi.Granularity(cfg.Granularity)),
		svi.WithCategory(cfg.Category),
		svi.WithDelay(time.Duration(cfg.DelaySeconds*float64(time.Second))),
		svi.WithForceTruncation(cfg.ForceTruncation),
	}, extra...)
	return svi.NewContainer(client, queries, bounds, opts...)
}

// buildSinks opens every sink configured under cfg.Export. Callers
// that open a SQLiteSink are responsible for closing it.
func buildSinks(ctx context.Context, cfg *sviconfig.Config) ([]sviexport.Sink, *sviexport.SQLiteSink, error) {
	var sinks []sviexport.Sink
	var sqliteSink *sviexport.SQLiteSink

	if cfg.Export.CSVPath != "" {
		sinks = append(sinks, sviexport.NewCSVSink(cfg.Export.CSVPath))
	}
	if cfg.Export.JSONPath != "" {
		sinks = append(sinks, sviexport.NewJSONSink(cfg.Export.JSONPath))
	}
	if cfg.Export.SQLite != nil {
		sink, err := sviexport.NewSQLiteSink(cfg.Export.SQLite.Path, cfg.Export.SQLite.Table)
		if err != nil {
			return nil, nil, err
		}
		sqliteSink = sink
		sinks = append(sinks, sink)
	}
	if cfg.Export.S3 != nil {
		sink, err := sviexport.NewS3Sink(ctx, sviexport.S3Config{
			Endpoint:     cfg.Export.S3.Endpoint,
			Bucket:       cfg.Export.S3.Bucket,
			AccessKey:    cfg.Export.S3.AccessKey,
			SecretKey:    cfg.Export.S3.SecretKey,
			Region:       cfg.Export.S3.Region,
			UsePathStyle: cfg.Export.S3.UsePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, sink)
	}
	return sinks, sqliteSink, nil
}

// runFetch performs one fetch-and-export cycle: build the container,
// pull data, optionally gate it through rule, then write it to every
// configured sink.
func runFetch(ctx context.Context, cfg *sviconfig.Config, rule *sviexpr.Rule, extra ...svi.ContainerOption) error {
	container, err := buildContainer(ctx, cfg, extra...)
	if err != nil {
		return err
	}

	table, warning, err := container.GetData(ctx)
	if err != nil {
		return err
	}
	if warning != nil {
		log.Warnf("SVIFETCH > %s", warning.Error())
	}

	if rule != nil {
		matched, err := rule.Eval(table)
		if err != nil {
			return err
		}
		if !matched {
			log.Infof("SVIFETCH > rule %q did not match, skipping export", rule.String())
			return nil
		}
	}

	sinks, sqliteSink, err := buildSinks(ctx, cfg)
	if err != nil {
		return err
	}
	if sqliteSink != nil {
		defer sqliteSink.Close()
	}

	fetchedAt := time.Now().Unix()
	for _, sink := range sinks {
		if err := sink.Write(ctx, fetchedAt, table); err != nil {
			return err
		}
	}
	log.Infof("SVIFETCH > fetch complete: %d series, %d sinks", len(table), len(sinks))
	return nil
}

// runWatch re-runs runFetch on cfg's configured cadence, grounded on
// cc-backend's taskmanager gocron.NewJob(gocron.DurationJob(...))
// wiring. It blocks until SIGINT/SIGTERM.
func runWatch(ctx context.Context, cfg *sviconfig.Config, rule *sviexpr.Rule) {
	interval := time.Duration(cfg.WatchIntervalSeconds * float64(time.Second))
	if interval <= 0 {
		interval = time.Hour
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("SVIFETCH/WATCH > %s", err.Error())
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := runFetch(ctx, cfg, rule); err != nil {
				log.Errorf("SVIFETCH/WATCH > fetch failed: %s", err.Error())
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		log.Fatalf("SVIFETCH/WATCH > register job: %s", err.Error())
	}

	scheduler.Start()
	log.Infof("SVIFETCH/WATCH > scheduled fetch every %s", interval)

	waitForShutdown(func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Errorf("SVIFETCH/WATCH > scheduler shutdown: %s", err.Error())
		}
	})
}

// runServe starts both the watch schedule and the /metrics, /healthz
// HTTP server described by cfg.Serve.
func runServe(ctx context.Context, cfg *sviconfig.Config, rule *sviexpr.Rule) {
	addr := cfg.Serve.Addr
	if addr == "" {
		addr = ":8090"
	}

	registry := prometheus.NewRegistry()
	metrics := sviserve.NewMetrics(registry)
	server := sviserve.New(addr, registry)

	interval := time.Duration(cfg.WatchIntervalSeconds * float64(time.Second))
	if interval <= 0 {
		interval = time.Hour
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("SVIFETCH/SERVE > %s", err.Error())
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			start := time.Now()
			err := runFetch(ctx, cfg, rule, svi.WithProbeCounter(metrics.TournamentProbes))
			metrics.FetchDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				kind := "unknown"
				var svcErr *svi.Error
				if errors.As(err, &svcErr) {
					kind = svcErr.Kind.String()
				}
				metrics.FetchErrorsTotal.WithLabelValues(kind).Inc()
				log.Errorf("SVIFETCH/SERVE > fetch failed: %s", err.Error())
				return
			}
			metrics.FetchesTotal.Inc()
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		log.Fatalf("SVIFETCH/SERVE > register job: %s", err.Error())
	}
	scheduler.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.ListenAndServe(); err != nil {
			log.Errorf("SVIFETCH/SERVE > server: %s", err.Error())
		}
	}()

	waitForShutdown(func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Errorf("SVIFETCH/SERVE > scheduler shutdown: %s", err.Error())
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("SVIFETCH/SERVE > server shutdown: %s", err.Error())
		}
	})
	wg.Wait()
}

// waitForShutdown blocks until SIGINT/SIGTERM, then runs cleanup and
// returns, the same wait-group-plus-signal-channel shape cc-backend's
// main uses.
func waitForShutdown(cleanup func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("SVIFETCH > shutting down")
	cleanup()
}
