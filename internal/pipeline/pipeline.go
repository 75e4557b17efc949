package pipeline

import (
	"context"
	"runtime"
	"sync"
)

// Analyzer processes one submission ID.
type Analyzer func(ctx context.Context, id string) error

// AnalyzeAll runs fn over ids on a fixed pool of workers and collects every
// error. Once ctx is done no further IDs are handed out; the context error is
// reported once.
func AnalyzeAll(ctx context.Context, ids []string, workers int, fn Analyzer) []error {
	if len(ids) == 0 || fn == nil {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 1 {
			workers = 1
		}
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	jobs := make(chan string)
	errs := make(chan error, len(ids)+1)
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if err := fn(ctx, id); err != nil {
					errs <- err
				}
			}
		}()
	}

dispatch:
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs <- err
			break
		}
		select {
		case <-ctx.Done():
			errs <- ctx.Err()
			break dispatch
		case jobs <- id:
		}
	}
	close(jobs)
	wg.Wait()
	close(errs)

	out := make([]error, 0, len(errs))
	for err := range errs {
		out = append(out, err)
	}
	return out
}
