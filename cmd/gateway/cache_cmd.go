package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/circularsync/gateway/internal/config"
	"github.com/circularsync/gateway/internal/logger"
	"github.com/circularsync/gateway/internal/service"
)

const cacheCmdTimeout = 10 * time.Second

// runCache dispatches cache subcommands (get, delete, flush).
func runCache(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printCacheHelp()
		return nil
	}

	switch args[0] {
	case "get":
		return runCacheGet(args[1:])
	case "delete":
		return runCacheDelete(args[1:])
	case "flush":
		return runCacheFlush(args[1:])
	default:
		printCacheHelp()
		return fmt.Errorf("unknown cache command: %s", args[0])
	}
}

func printCacheHelp() {
	fmt.Fprintf(os.Stderr, `Usage: gateway cache <command> [options]

Commands:
  get      Print the cached value of a key
  delete   Delete one or more keys
  flush    Delete every key matching a pattern
  help     Show this help message

Examples:
  gateway cache get admin:material-verification:stats
  gateway cache delete user:profile:u1 user:profile:u2
  gateway cache flush --pattern 'warehouse:stats:*'
`)
}

// loadCacheDeps opens the configured store. Deletes go through a
// ReadThrough so running replicas receive the invalidation event.
func loadCacheDeps(ctx context.Context) (*infra, *service.ReadThrough, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Logging.Async = false
	log, _ := logger.New(cfg.Logging)
	slog.SetDefault(log)

	in, err := openInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	rt := service.NewReadThrough(in.store)
	if in.queue != nil {
		rt.SetQueue(in.queue)
	}
	return in, rt, nil
}

func runCacheGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("exactly one key is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheCmdTimeout)
	defer cancel()

	in, _, err := loadCacheDeps(ctx)
	if err != nil {
		return err
	}
	defer in.close()

	data, found, err := in.store.Get(ctx, fs.Arg(0))
	if err != nil {
		return fmt.Errorf("get %s: %w", fs.Arg(0), err)
	}
	if !found {
		fmt.Fprintf(os.Stderr, "%s: not cached\n", fs.Arg(0))
		return nil
	}
	fmt.Println(string(data))
	return nil
}

func runCacheDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("at least one key is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheCmdTimeout)
	defer cancel()

	in, rt, err := loadCacheDeps(ctx)
	if err != nil {
		return err
	}
	defer in.close()

	if err := rt.Invalidate(ctx, fs.Args()...); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Deleted %d key(s)\n", fs.NArg())
	return nil
}

func runCacheFlush(args []string) error {
	fs := flag.NewFlagSet("flush", flag.ContinueOnError)
	pattern := fs.String("pattern", "", "glob pattern of keys to delete (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pattern == "" {
		return fmt.Errorf("--pattern is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheCmdTimeout)
	defer cancel()

	in, rt, err := loadCacheDeps(ctx)
	if err != nil {
		return err
	}
	defer in.close()

	n, err := rt.InvalidatePattern(ctx, *pattern)
	if err != nil {
		return fmt.Errorf("flush %s: %w", *pattern, err)
	}
	fmt.Fprintf(os.Stderr, "Deleted %d key(s) matching %s\n", n, *pattern)
	return nil
}
