package preflight

import (
	"context"
	"path/filepath"

	"loopctl/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check that applies to cfg. The service check runs
// only when prober is non-nil.
func RunAll(ctx context.Context, cfg *config.Config, prober StatusProber) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckWritableParent("Console lock", cfg.Console.LockPath)}

	if cfg.Logging.File != "" {
		results = append(results, CheckWritableParent("Log file", cfg.Logging.File))
	}

	if prober != nil {
		results = append(results, CheckService(ctx, "Stream service", prober))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// nearestExisting walks up from path until it finds a directory that exists.
func nearestExisting(path string, exists func(string) bool) string {
	dir := filepath.Clean(path)
	for {
		if exists(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
