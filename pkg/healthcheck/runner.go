/*
Author: Amjad Yaseen
Email: ayaseen@redhat.com
Date: 2023-03-06
Modified: 2026-10-15

This file implements the core runner for executing cluster probes. It:

- Manages the execution of the registered probes
- Supports parallel or sequential execution modes
- Handles timeouts, panics and fail-fast
- Collects results and computes the overall pass/fail signal
- Provides progress reporting during probe execution
*/

package healthcheck

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/ayaseen/cluster-probes/pkg/types"
)

// Config defines the configuration for the runner
type Config struct {
	// CategoryFilter limits probes to specific categories
	CategoryFilter []types.Category

	// Timeout is the maximum time allowed for a single probe
	Timeout time.Duration

	// Parallel indicates whether probes should run in parallel
	Parallel bool

	// SkipProgressBar indicates whether to skip the progress bar
	SkipProgressBar bool

	// VerboseOutput prints each result as it completes
	VerboseOutput bool

	// FailFast stops sequential execution at the first failed probe
	FailFast bool

	// ProgressOutput receives the progress banner and bar, stderr when nil
	ProgressOutput io.Writer
}

// Runner executes probes and collects results
type Runner struct {
	checks      []Check
	config      Config
	log         *logrus.Entry
	results     map[string]Result
	errs        *multierror.Error
	progressBar *progressbar.ProgressBar
	mu          sync.Mutex
}

// NewRunner creates a new probe runner
func NewRunner(config Config, log *logrus.Entry) *Runner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Runner{
		checks:  []Check{},
		config:  config,
		log:     log,
		results: make(map[string]Result),
	}
}

// AddCheck adds a probe to the runner
func (r *Runner) AddCheck(check Check) {
	r.checks = append(r.checks, check)
}

// AddChecks adds multiple probes to the runner
func (r *Runner) AddChecks(checks []Check) {
	for _, check := range checks {
		r.AddCheck(check)
	}
}

// GetChecks returns all registered probes
func (r *Runner) GetChecks() []Check {
	return r.checks
}

// Run executes all registered probes. It only returns an error when there is
// nothing to run; probe failures are reported through the results, Passed
// and Errors.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.checks) == 0 {
		return fmt.Errorf("no probes registered")
	}

	checksToRun := r.filterChecks()
	if len(checksToRun) == 0 {
		return fmt.Errorf("no probes match the specified categories")
	}

	if !r.config.SkipProgressBar {
		out := r.config.ProgressOutput
		if out == nil {
			out = os.Stderr
		}
		fmt.Fprintln(out, "Cluster probes in progress ...")

		r.progressBar = progressbar.NewOptions(len(checksToRun),
			progressbar.OptionSetWriter(out),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerPadding: " ",
				BarStart:      "|",
				BarEnd:        "|",
			}),
		)
	}

	r.log.Info("------------------- Start Custom Checks -------------------")

	if r.config.Parallel {
		r.runParallel(ctx, checksToRun)
	} else {
		r.runSequential(ctx, checksToRun)
	}

	r.log.Info("------------------- Finished Custom Checks -------------------")

	return nil
}

func (r *Runner) filterChecks() []Check {
	if len(r.config.CategoryFilter) == 0 {
		return r.checks
	}

	var filtered []Check
	for _, check := range r.checks {
		for _, cat := range r.config.CategoryFilter {
			if check.Category() == cat {
				filtered = append(filtered, check)
				break
			}
		}
	}
	return filtered
}

// runSequential runs probes one after another
func (r *Runner) runSequential(ctx context.Context, checks []Check) {
	for _, check := range checks {
		result := r.runWithTimeout(ctx, check)

		if r.config.FailFast && !result.Passed() {
			r.log.Warnf("fail-fast: stopping after %s", check.ID())
			break
		}
	}
}

// runParallel runs all probes concurrently
func (r *Runner) runParallel(ctx context.Context, checks []Check) {
	var wg sync.WaitGroup
	wg.Add(len(checks))

	for _, check := range checks {
		go func(c Check) {
			defer wg.Done()
			r.runWithTimeout(ctx, c)
		}(check)
	}

	wg.Wait()
}

func (r *Runner) runWithTimeout(ctx context.Context, check Check) Result {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	result, err := r.runCheck(ctx, check)
	r.record(check, result, err)
	return result
}

func (r *Runner) record(check Check, result Result, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.results[check.ID()] = result
	if err != nil {
		r.errs = multierror.Append(r.errs, fmt.Errorf("%s: %w", check.ID(), err))
	}

	log := r.log.WithFields(logrus.Fields{
		"probe":    check.ID(),
		"status":   result.Status,
		"duration": result.ExecutionTime.String(),
	})
	if result.Passed() {
		log.Info(result.Message)
	} else {
		log.Warn(result.Message)
	}

	if r.config.VerboseOutput && r.config.SkipProgressBar {
		fmt.Printf("[%s] %s: %s\n", result.Status, check.Name(), result.Message)
	}

	if r.progressBar != nil {
		_ = r.progressBar.Add(1)
	}
}

// runCheck executes a single probe
func (r *Runner) runCheck(ctx context.Context, check Check) (Result, error) {
	startTime := time.Now()

	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				err := fmt.Errorf("probe panicked: %v", p)
				done <- outcome{NewResult(check.ID(), types.StatusCritical, err.Error()), err}
			}
		}()
		result, err := check.Run(ctx)
		if err != nil && result.Status.Passed() {
			result = NewResult(check.ID(), types.StatusCritical, fmt.Sprintf("Check failed: %v", err))
		}
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		if o.result.CheckID == "" {
			o.result.CheckID = check.ID()
		}
		return o.result.WithExecutionTime(time.Since(startTime)), o.err

	case <-ctx.Done():
		result := NewResult(check.ID(), types.StatusCritical, "Check timed out")
		return result.WithExecutionTime(time.Since(startTime)), ctx.Err()
	}
}

// GetResults returns all probe results keyed by probe ID
func (r *Runner) GetResults() map[string]Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make(map[string]Result, len(r.results))
	for id, result := range r.results {
		results[id] = result
	}
	return results
}

// Errors returns the aggregated probe errors, or nil
func (r *Runner) Errors() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.errs.ErrorOrNil()
}

// Passed is the AND of every probe that was selected to run. Probes skipped by
// fail-fast count as failed.
func (r *Runner) Passed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	checks := r.filterChecks()
	if len(checks) == 0 {
		return false
	}
	for _, check := range checks {
		result, exists := r.results[check.ID()]
		if !exists || !result.Passed() {
			return false
		}
	}
	return true
}

// CountByStatus returns the count of results by status
func (r *Runner) CountByStatus() map[types.Status]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[types.Status]int)
	for _, result := range r.results {
		counts[result.Status]++
	}
	return counts
}
