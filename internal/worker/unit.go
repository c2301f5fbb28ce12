// Package worker runs derivation jobs off the caller's goroutine. Each job is
// submitted under a fresh request id and its response is routed back to the
// future registered for that id.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Klingon-tech/klingnet-groupwallet/internal/log"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rs/zerolog"
)

// ErrTerminated is returned for jobs discarded by Terminate and for
// submissions to a terminated unit.
var ErrTerminated = errors.New("worker terminated")

// DefaultQueueSize is the number of jobs a unit buffers before Submit blocks.
const DefaultQueueSize = 16

// Handler performs one job. ctx is cancelled when the unit terminates.
type Handler[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

type request[Req any] struct {
	id  uuid.UUID
	req Req
}

type response[Resp any] struct {
	id     uuid.UUID
	result fn.Result[Resp]
}

// Unit is an execution unit running one job at a time.
type Unit[Req, Resp any] struct {
	name    string
	handler Handler[Req, Resp]
	discard func(Req)
	queue   chan request[Req]
	logger  zerolog.Logger

	// sendMu is held shared while Submit may enqueue and exclusively while
	// Terminate drains the queue.
	sendMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	pending    map[uuid.UUID]*Future[Resp]
	terminated bool
}

// Option configures a Unit.
type Option func(*unitConfig)

type unitConfig struct {
	queueSize int
	discard   any
}

// WithQueueSize sets how many jobs may wait behind the running one.
func WithQueueSize(n int) Option {
	return func(c *unitConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithDiscard registers f to receive every request that is dropped without
// being handled: jobs still queued at Terminate. Use it to release what a
// request owns.
func WithDiscard[Req any](f func(Req)) Option {
	return func(c *unitConfig) {
		c.discard = f
	}
}

// NewUnit starts a unit running handler. A WithDiscard callback whose
// request type differs from Req is ignored.
func NewUnit[Req, Resp any](name string, handler Handler[Req, Resp], opts ...Option) *Unit[Req, Resp] {
	cfg := unitConfig{queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	u := &Unit[Req, Resp]{
		name:    name,
		handler: handler,
		queue:   make(chan request[Req], cfg.queueSize),
		logger:  log.Worker.With().Str("unit", name).Logger(),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[uuid.UUID]*Future[Resp]),
	}
	if f, ok := cfg.discard.(func(Req)); ok {
		u.discard = f
	}

	u.wg.Add(1)
	go u.run()
	return u
}

// Name returns the unit name.
func (u *Unit[Req, Resp]) Name() string {
	return u.name
}

// Submit queues req and returns the future its response resolves. It blocks
// while the queue is full. When it returns an error req was not queued and
// still belongs to the caller.
func (u *Unit[Req, Resp]) Submit(ctx context.Context, req Req) (*Future[Resp], error) {
	id := uuid.New()
	fut := newFuture[Resp](id)

	u.mu.Lock()
	if u.terminated {
		u.mu.Unlock()
		return nil, ErrTerminated
	}
	u.pending[id] = fut
	u.mu.Unlock()

	u.sendMu.RLock()
	defer u.sendMu.RUnlock()

	select {
	case u.queue <- request[Req]{id: id, req: req}:
		u.logger.Debug().Str("request_id", id.String()).Msg("Job submitted")
		return fut, nil

	case <-u.ctx.Done():
		// Terminate already failed the future.
		return nil, ErrTerminated

	case <-ctx.Done():
		u.forget(id)
		return nil, ctx.Err()
	}
}

// Do submits req and waits for its response.
func (u *Unit[Req, Resp]) Do(ctx context.Context, req Req) (Resp, error) {
	fut, err := u.Submit(ctx, req)
	if err != nil {
		var zero Resp
		return zero, err
	}
	return fut.Await(ctx).Unpack()
}

// Pending returns the number of submitted jobs without a response yet.
func (u *Unit[Req, Resp]) Pending() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.pending)
}

// Terminate stops the unit. The running job's context is cancelled and its
// response discarded; every unresolved future fails with ErrTerminated and
// queued requests go to the discard callback. Terminate waits for the job
// goroutine to exit and is safe to call twice.
func (u *Unit[Req, Resp]) Terminate() {
	u.mu.Lock()
	if u.terminated {
		u.mu.Unlock()
		return
	}
	u.terminated = true
	pending := u.pending
	u.pending = make(map[uuid.UUID]*Future[Resp])
	u.mu.Unlock()

	u.cancel()
	for _, fut := range pending {
		fut.complete(fn.Err[Resp](ErrTerminated))
	}
	u.wg.Wait()

	u.sendMu.Lock()
	u.drain()
	u.sendMu.Unlock()

	u.logger.Debug().Int("discarded", len(pending)).Msg("Unit terminated")
}

func (u *Unit[Req, Resp]) drain() {
	for {
		select {
		case req := <-u.queue:
			u.drop(req)
		default:
			return
		}
	}
}

func (u *Unit[Req, Resp]) drop(req request[Req]) {
	if u.discard != nil {
		u.discard(req.req)
	}
}

func (u *Unit[Req, Resp]) run() {
	defer u.wg.Done()

	for {
		select {
		case <-u.ctx.Done():
			return
		case req := <-u.queue:
			// A job dequeued after termination must not run.
			if u.ctx.Err() != nil {
				u.drop(req)
				return
			}
			u.deliver(u.process(req))
		}
	}
}

func (u *Unit[Req, Resp]) process(req request[Req]) response[Resp] {
	start := time.Now()
	resp, err := u.handler(u.ctx, req.req)

	ev := u.logger.Debug()
	if err != nil {
		ev = u.logger.Warn().Err(err)
	}
	ev.Str("request_id", req.id.String()).
		Dur("elapsed", time.Since(start)).
		Msg("Job finished")

	if err != nil {
		return response[Resp]{id: req.id, result: fn.Err[Resp](err)}
	}
	return response[Resp]{id: req.id, result: fn.Ok(resp)}
}

// deliver routes a response to the future registered under its id. Responses
// with no registered future belong to discarded jobs.
func (u *Unit[Req, Resp]) deliver(resp response[Resp]) {
	fut := u.forget(resp.id)
	if fut == nil {
		u.logger.Debug().Str("request_id", resp.id.String()).Msg("Dropping response of discarded job")
		return
	}
	fut.complete(resp.result)
}

func (u *Unit[Req, Resp]) forget(id uuid.UUID) *Future[Resp] {
	u.mu.Lock()
	defer u.mu.Unlock()
	fut, ok := u.pending[id]
	if !ok {
		return nil
	}
	delete(u.pending, id)
	return fut
}
