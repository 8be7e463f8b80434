package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/flowrank/flowrank/internal/collector"
	"github.com/flowrank/flowrank/internal/config"
	"github.com/flowrank/flowrank/internal/scheduler"
	"github.com/flowrank/flowrank/internal/snapshot"
	"github.com/flowrank/flowrank/pkg/export"
	"github.com/flowrank/flowrank/pkg/keypool"
	"github.com/flowrank/flowrank/pkg/server"
	"github.com/flowrank/flowrank/pkg/source"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildSources(cfg *config.Config, pool *keypool.Pool) []source.Source {
	yt := cfg.Sources.YouTube
	gh := cfg.Sources.GitHub

	return []source.Source{
		source.NewYouTube(pool, yt.Keywords, yt.MaxKeywords, config.ParseDelay(yt.RequestDelay)),
		source.NewForum(cfg.Sources.Forum.BaseURL),
		source.NewGitHub(gh.Token, gh.Queries, config.ParseDelay(gh.RequestDelay)),
		source.NewTrendFeed(cfg.Sources.Trends.Multipliers),
	}
}

func filterSources(all []source.Source, wanted []string) ([]source.Source, error) {
	if len(wanted) == 0 {
		return all, nil
	}

	want := make(map[string]bool)
	for _, s := range wanted {
		want[strings.ToLower(strings.TrimSpace(s))] = true
	}

	var out []source.Source
	for _, s := range all {
		if want[string(s.Name())] {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no matching sources for: %s", strings.Join(wanted, ", "))
	}
	return out, nil
}

func runCollect(wanted []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool := keypool.New(cfg.Sources.YouTube.APIKeys)
	sources, err := filterSources(buildSources(cfg, pool), wanted)
	if err != nil {
		return err
	}

	store := snapshot.NewStore()
	coll := collector.New(sources, cfg.Regions, store)

	snap, err := coll.TryRun(context.Background())
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	return export.WriteText(os.Stdout, snap)
}

func runExport(format, out string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool := keypool.New(cfg.Sources.YouTube.APIKeys)
	store := snapshot.NewStore()
	coll := collector.New(buildSources(cfg, pool), cfg.Regions, store)

	snap, err := coll.TryRun(context.Background())
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	w := os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "json":
		return export.WriteJSON(w, snap)
	case "text":
		return export.WriteText(w, snap)
	default:
		return fmt.Errorf("unknown format %q (use json or text)", format)
	}
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	pool := keypool.New(cfg.Sources.YouTube.APIKeys)
	store := snapshot.NewStore()
	coll := collector.New(buildSources(cfg, pool), cfg.Regions, store)

	srv := server.New(store, coll, port, cfg.Server.CORSOrigins, pool.Size() > 0)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	pool := keypool.New(cfg.Sources.YouTube.APIKeys)
	store := snapshot.NewStore()
	coll := collector.New(buildSources(cfg, pool), cfg.Regions, store)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(coll, pool,
		cfg.Schedule.ParseRefreshInterval(),
		cfg.Schedule.ParseKeyResetInterval(),
	)

	// Scheduler in the background; the server owns the foreground.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("scheduler error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		log.Printf("shutting down...")
	}()

	srv := server.New(store, coll, port, cfg.Server.CORSOrigins, pool.Size() > 0)
	return srv.ListenAndServe()
}
