package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	slogbetterstack "github.com/samber/slog-betterstack"
)

const (
	defaultAsyncBufferSize   = 1024
	defaultAsyncFlushTimeout = 5 * time.Second
)

// AsyncOptions configures the queue in front of the remote sink.
type AsyncOptions struct {
	BufferSize   int
	FlushTimeout time.Duration
}

type queuedRecord struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// remoteQueue drains records on a single goroutine so HTTP shipping never
// blocks a webhook. Records are dropped when the buffer is full.
type remoteQueue struct {
	ch           chan queuedRecord
	flushTimeout time.Duration
	closed       atomic.Bool
	done         sync.WaitGroup
	dropped      atomic.Uint64
}

func newRemoteQueue(opts AsyncOptions) *remoteQueue {
	size := opts.BufferSize
	if size <= 0 {
		size = defaultAsyncBufferSize
	}
	timeout := opts.FlushTimeout
	if timeout <= 0 {
		timeout = defaultAsyncFlushTimeout
	}
	q := &remoteQueue{
		ch:           make(chan queuedRecord, size),
		flushTimeout: timeout,
	}
	q.done.Go(func() {
		for rec := range q.ch {
			_ = rec.handler.Handle(rec.ctx, rec.record)
		}
	})
	return q
}

func (q *remoteQueue) push(rec queuedRecord) {
	if q.closed.Load() {
		return
	}
	select {
	case q.ch <- rec:
	default:
		q.dropped.Add(1)
	}
}

func (q *remoteQueue) close(ctx context.Context) error {
	if q.closed.Swap(true) {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.flushTimeout)
		defer cancel()
	}
	close(q.ch)

	drained := make(chan struct{})
	go func() {
		q.done.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// remoteHandler forwards records to Better Stack via remoteQueue.
type remoteHandler struct {
	queue   *remoteQueue
	handler slog.Handler
}

func newRemoteHandler(level slog.Level, opts Options) *remoteHandler {
	bs := slogbetterstack.Option{
		Level:    level,
		Token:    opts.BetterStackToken,
		Endpoint: opts.BetterStackEndpoint,
	}.NewBetterstackHandler()
	return wrapRemote(bs, opts.Async)
}

func wrapRemote(h slog.Handler, opts AsyncOptions) *remoteHandler {
	return &remoteHandler{queue: newRemoteQueue(opts), handler: h}
}

func (h *remoteHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *remoteHandler) Handle(ctx context.Context, r slog.Record) error {
	h.queue.push(queuedRecord{
		ctx:     context.WithoutCancel(ctx),
		record:  r.Clone(),
		handler: h.handler,
	})
	return nil
}

func (h *remoteHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &remoteHandler{queue: h.queue, handler: h.handler.WithAttrs(attrs)}
}

func (h *remoteHandler) WithGroup(name string) slog.Handler {
	return &remoteHandler{queue: h.queue, handler: h.handler.WithGroup(name)}
}

// Dropped reports how many records were discarded because the queue was full.
func (h *remoteHandler) Dropped() uint64 {
	return h.queue.dropped.Load()
}

func (h *remoteHandler) shutdown(ctx context.Context) error {
	return h.queue.close(ctx)
}
