package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/app"
	"flex_reviews/internal/shared"
)

const usage = `usage: approvals <command> [args]

  list                    print every stored approval flag
  toggle <reviewId>       flip one review's approval
  set <reviewId> <bool>   set one review's approval
  import <file.json>      apply a {"<reviewId>": bool} map`

func main() {
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, "approvals")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err := requireDurable(cfg.ApprovalStore); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := shared.OpenApprovalStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("approval store unavailable")
	}
	svc := app.NewApprovalService(store)

	args := os.Args[2:]
	switch os.Args[1] {
	case "list":
		list(ctx, svc)
	case "toggle":
		need(args, 1)
		v, err := svc.Toggle(ctx, args[0])
		if err != nil {
			log.Fatal().Err(err).Msg("toggle failed")
		}
		fmt.Printf("%s\t%t\n", args[0], v)
	case "set":
		need(args, 2)
		b, err := strconv.ParseBool(args[1])
		if err != nil {
			log.Fatal().Str("value", args[1]).Msg("approved must be true or false")
		}
		if err := svc.Set(ctx, args[0], b); err != nil {
			log.Fatal().Err(err).Msg("set failed")
		}
		fmt.Printf("%s\t%t\n", args[0], b)
	case "import":
		need(args, 1)
		n, err := importFile(ctx, svc, args[0], cfg.ImportWorkers)
		if err != nil {
			log.Fatal().Err(err).Str("file", args[0]).Msg("import failed")
		}
		log.Info().Int("applied", n).Msg("import completed")
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func need(args []string, n int) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func list(ctx context.Context, svc *app.ApprovalService) {
	a := svc.List(ctx)
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("%s\t%t\n", id, a[id])
	}
}

// importFile applies a {"<reviewId>": bool} map with bounded concurrency and
// returns how many entries were written.
func importFile(ctx context.Context, svc *app.ApprovalService, path string, workers int) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read import file: %w", err)
	}
	var in map[string]bool
	if err := json.Unmarshal(b, &in); err != nil {
		return 0, fmt.Errorf("import file must be a {\"<reviewId>\": bool} object: %w", err)
	}
	if workers <= 0 {
		workers = 1
	}

	log.Info().Int("entries", len(in)).Int("workers", workers).Msg("import starting")

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup
	var applied atomic.Int64

	for id, approved := range in {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Error().Err(err).Msg("semaphore acquire failed")
			break
		}

		wg.Add(1)
		go func(id string, approved bool) {
			defer wg.Done()
			defer sem.Release(1)

			if err := svc.Set(ctx, id, approved); err != nil {
				log.Warn().Str("review_id", id).Err(err).Msg("import entry failed")
				return
			}
			applied.Add(1)
		}(id, approved)
	}

	wg.Wait()
	n := int(applied.Load())
	if n != len(in) {
		return n, fmt.Errorf("imported %d of %d entries", n, len(in))
	}
	return n, nil
}

// requireDurable rejects the in-process backend: its state would vanish with the command.
func requireDurable(backend string) error {
	if backend == shared.BackendMemory {
		return fmt.Errorf("APPROVAL_BACKEND=%s keeps approvals in this process only; set it to %s or %s",
			backend, shared.BackendRedis, shared.BackendMySQL)
	}
	return nil
}
