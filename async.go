package arcentry

import (
	"context"
	"strings"
)

// Future is the pending result of ReadEntryAsync. It always resolves.
type Future struct {
	done chan struct{}
	data []byte
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(data []byte, err error) {
	f.data, f.err = data, err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the read finishes and returns its outcome.
func (f *Future) Result() ([]byte, error) {
	<-f.done
	return f.data, f.err
}

// Wait is like Result but gives up when ctx is done. Giving up does not
// cancel the read itself.
func (f *Future) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-f.done:
		return f.data, f.err
	case <-ctx.Done():
		return nil, wrapError("wait", "", "", cancelled(ctx.Err()))
	}
}

// ReadEntryAsync runs ReadEntry on the engine's worker pool.
//
// Cancellation is coarse. If ctx is done before a worker picks the job up,
// the read never starts. If ctx is done by the time the read finishes, its
// result is discarded and the future resolves with ErrCancelled. A read in
// progress is not interrupted.
func (e *Engine) ReadEntryAsync(ctx context.Context, archivePath, entryName string) *Future {
	const op = "read"

	f := newFuture()
	archivePath = strings.Clone(archivePath)
	entryName = strings.Clone(entryName)

	if !e.track() {
		f.resolve(nil, wrapError(op, archivePath, entryName, ErrClosed))
		return f
	}

	go func() {
		defer e.wg.Done()

		if err := ctx.Err(); err != nil {
			f.resolve(nil, wrapError(op, archivePath, entryName, cancelled(err)))
			return
		}
		if err := e.sem.Acquire(ctx, 1); err != nil {
			f.resolve(nil, wrapError(op, archivePath, entryName, cancelled(err)))
			return
		}
		data, err := e.ReadEntry(archivePath, entryName)
		e.sem.Release(1)

		if ctxErr := ctx.Err(); ctxErr != nil {
			f.resolve(nil, wrapError(op, archivePath, entryName, cancelled(ctxErr)))
			return
		}
		f.resolve(data, err)
	}()
	return f
}
