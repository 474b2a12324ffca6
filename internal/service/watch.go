package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/the-nook/nook-api/internal/notify"
)

// Watch delivers the current value of a record on C, then a fresh value
// after every change, until Close is called or the context ends. C is
// closed when delivery stops.
type Watch[T any] struct {
	C <-chan T

	sub  *notify.Subscription
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// Close stops delivery and releases the subscription. Safe to call more than once.
func (w *Watch[T]) Close() {
	w.once.Do(func() {
		close(w.done)
		w.sub.Close()
	})
	w.wg.Wait()
}

// startWatch reads the record with load once up front and again after each
// change on sub. The subscription is opened before the first read so no
// change between the two is missed.
func startWatch[T any](ctx context.Context, sub *notify.Subscription, load func(context.Context) (T, error), log zerolog.Logger) *Watch[T] {
	out := make(chan T, 1)
	w := &Watch[T]{C: out, sub: sub, done: make(chan struct{})}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(out)
		defer sub.Close()

		emit := func() bool {
			v, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				log.Warn().Err(err).Msg("Watch reload failed")
				return true
			}
			select {
			case out <- v:
				return true
			case <-w.done:
				return false
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-w.done:
				return
			case <-ctx.Done():
				return
			case _, ok := <-sub.C:
				if !ok || !emit() {
					return
				}
			}
		}
	}()

	return w
}
