package utils

import (
	"context"
	"sync"
)

// WaitForPipeline blocks until every channel is closed and returns the first non-nil error received.
// Workers report completion by closing their channel. Returning early releases the merge goroutines.
func WaitForPipeline(ctx context.Context, errs ...<-chan error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errChan := MergeErrors(ctx, errs...)
	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// MergeErrors fans the error channels into one, closed once all inputs are closed or ctx is done
func MergeErrors(ctx context.Context, errChans ...<-chan error) <-chan error {
	var wg sync.WaitGroup

	out := make(chan error, len(errChans))

	wg.Add(len(errChans))
	output := func(c <-chan error) {
		defer wg.Done()
		for err := range c {
			select {
			case <-ctx.Done():
				return
			case out <- err:
			}
		}
	}
	for _, errChan := range errChans {
		go output(errChan)
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
