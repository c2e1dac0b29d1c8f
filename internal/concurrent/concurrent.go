// Runs the per-repository tally over many repositories at once
package concurrent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sinclairtarget/coderank/internal/git"
	"github.com/sinclairtarget/coderank/internal/tally"
)

const DefaultParallel = 3

// How workers relate to each other.
type Isolation int

const (
	// Workers are goroutines in one process and may share the dedup store.
	Shared Isolation = iota
	// Workers share nothing. Results are handed back as detached copies.
	// Deduplication across repositories is impossible in this model.
	Isolated
)

func (i Isolation) String() string {
	switch i {
	case Shared:
		return "shared"
	case Isolated:
		return "isolated"
	default:
		panic("unrecognized isolation in switch statement")
	}
}

func ParseIsolation(s string) (Isolation, error) {
	switch s {
	case "shared", "":
		return Shared, nil
	case "isolated":
		return Isolated, nil
	default:
		return Shared, fmt.Errorf(
			"%w: unknown worker isolation %q",
			tally.ErrConfiguration,
			s,
		)
	}
}

type Opts struct {
	Parallel  int       // Max repositories processed at once
	Since     time.Time // Commits before this are ignored
	Filter    tally.Filter
	Isolation Isolation
}

func (o Opts) Validate() error {
	if o.Parallel < 1 {
		return fmt.Errorf(
			"%w: parallel must be at least 1, got %d",
			tally.ErrConfiguration,
			o.Parallel,
		)
	}

	if o.Filter.CommitLimit < 0 {
		return fmt.Errorf(
			"%w: commit limit must be positive, got %d",
			tally.ErrConfiguration,
			o.Filter.CommitLimit,
		)
	}

	if o.Isolation == Isolated && o.Filter.Unique() {
		return fmt.Errorf(
			"%w: unique commit ids need workers sharing one store; "+
				"use the shared worker model",
			tally.ErrConfiguration,
		)
	}

	return nil
}

// Outcome of processing one repository.
type Result struct {
	Ref      git.RepositoryRef
	Agg      *tally.Aggregate // Empty if Err is set
	Counts   Counts
	Err      error
	Duration time.Duration
}

func (r Result) Failed() bool {
	return r.Err != nil
}

// Tallies every repository, at most opts.Parallel at a time, and merges the
// results in the order the refs were given.
//
// A repository that fails contributes nothing; the failure is logged and kept
// in its Result, but does not stop the others. An error is returned only for
// invalid options or when ctx is cancelled.
func Run(
	ctx context.Context,
	client git.Client,
	refs []git.RepositoryRef,
	opts Opts,
) (_ *tally.Aggregate, _ []Result, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("error running concurrent tally: %w", err)
		}
	}()

	err = opts.Validate()
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	results := make([]Result, len(refs))

	nWorkers := min(opts.Parallel, len(refs))
	logger().Debug("decided to use n workers", "value", nWorkers)

	if nWorkers <= 1 {
		for i, ref := range refs {
			results[i] = runWorker(ctx, 1, client, ref, opts)
		}
	} else {
		q := make(chan int)

		var wg sync.WaitGroup
		for id := range nWorkers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range q {
					results[i] = runWorker(ctx, id+1, client, refs[i], opts)
				}
			}()
		}

		for i := range refs {
			q <- i
		}
		close(q)

		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, results, err
	}

	aggs := make([]*tally.Aggregate, len(results))
	for i, result := range results {
		aggs[i] = result.Agg
	}
	merged := tally.Reduce(aggs)

	logger().Debug(
		"merged repository tallies",
		"repos",
		len(refs),
		"authors",
		merged.Len(),
		"duration_ms",
		time.Since(start).Milliseconds(),
	)
	return merged, results, nil
}

func runWorker(
	ctx context.Context,
	id int,
	client git.Client,
	ref git.RepositoryRef,
	opts Opts,
) Result {
	logger := logger().With("workerId", id)
	logger.Debug("worker picked up repository", "url", ref.URL, "branch", ref.Branch)

	start := time.Now()
	agg := tally.NewAggregate(opts.Filter)

	counts, err := AggregateRepo(ctx, client, ref, opts.Since, agg)
	result := Result{
		Ref:      ref,
		Agg:      agg,
		Counts:   counts,
		Duration: time.Since(start),
	}

	if err != nil {
		logger.Error(
			"ignoring repository",
			"url",
			ref.URL,
			"branch",
			ref.Branch,
			"error",
			err,
		)
		result.Err = err
		result.Agg = tally.NewAggregate(tally.Filter{})
		return result
	}

	if opts.Isolation == Isolated {
		result.Agg = agg.Clone()
	}

	logger.Debug(
		"worker finished repository",
		"url",
		ref.URL,
		"branch",
		ref.Branch,
		"counted",
		counts.Counted,
		"duration_ms",
		result.Duration.Milliseconds(),
	)
	return result
}
