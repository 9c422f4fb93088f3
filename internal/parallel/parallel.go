// Package parallel runs independent per-frame work across a bounded set
// of workers. The pipeline's data parallelism is frame-shaped: color
// conversion, blue-noise dithering, and 3-D convolution all process
// frames with no cross-frame dependency, so a simple indexed fan-out is
// all that is needed.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Frames invokes fn for every index in [0, n), using at most
// GOMAXPROCS concurrent workers, and returns the first error. fn must
// write only to its own frame's output region. Small jobs (n <= 1) run
// inline on the calling goroutine.
func Frames(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return fn(0)
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}
