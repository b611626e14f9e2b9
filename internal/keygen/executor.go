package keygen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"elgchat/internal/crypto"
	"elgchat/internal/crypto/elgamal"
	"elgchat/internal/crypto/modular"
)

var (
	// ErrBusy is returned by Submit while another request is in flight.
	ErrBusy = errors.New("keygen: a request is already in flight")
	// ErrNotStarted is returned by Submit before Start or after Stop.
	ErrNotStarted = errors.New("keygen: executor not running")
	// ErrCancelled is the failure reported for abandoned work.
	ErrCancelled = errors.New("keygen: cancelled")
)

// State is the executor's position in the request lifecycle.
type State int

const (
	StateIdle State = iota
	StateRequested
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequested:
		return "requested"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// GenerateFunc produces a key pair; it must honour ctx cancellation.
type GenerateFunc func(ctx context.Context, bits int) (elgamal.KeyPair, error)

// Config configures an Executor.
type Config struct {
	// Bits is the modulus size; 0 means elgamal.DefaultBits.
	Bits      int
	Generator modular.Generator
	// Sealer protects the private key; required.
	Sealer *crypto.Sealer
	// Generate overrides key generation, mainly for tests. Defaults to
	// elgamal.GenerateKeys with Generator.
	Generate GenerateFunc
	Logger   zerolog.Logger
}

type job struct {
	ctx context.Context
	req Request
	out chan Response
}

// Executor runs key generation and sealing on its own goroutine. Requests go
// in through Submit and exactly one Response comes back per request. At most
// one request is in flight; a second Submit gets ErrBusy.
//
// An Executor is owned by whoever calls Start and must be released with Stop.
type Executor struct {
	bits     int
	sealer   *crypto.Sealer
	generate GenerateFunc
	log      zerolog.Logger

	mu      sync.Mutex
	state   State
	running bool
	jobs    chan job
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewExecutor returns a stopped executor.
func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.Sealer == nil {
		return nil, errors.New("keygen: sealer required")
	}
	bits := cfg.Bits
	if bits == 0 {
		bits = elgamal.DefaultBits
	}
	if bits < elgamal.MinBits {
		return nil, elgamal.ErrBitLength
	}
	gen := cfg.Generate
	if gen == nil {
		g := cfg.Generator
		gen = func(ctx context.Context, bits int) (elgamal.KeyPair, error) {
			return elgamal.GenerateKeys(ctx, g, bits)
		}
	}
	return &Executor{
		bits:     bits,
		sealer:   cfg.Sealer,
		generate: gen,
		log:      cfg.Logger.With().Str("component", "keygen").Logger(),
	}, nil
}

// Start launches the worker goroutine. It stops when ctx is done or Stop is
// called, whichever comes first.
func (e *Executor) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return errors.New("keygen: executor already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.jobs = make(chan job, 1)
	e.done = make(chan struct{})
	e.running = true
	e.state = StateIdle
	go e.loop(ctx, e.jobs, e.done)
	return nil
}

// Stop cancels in-flight work and waits for the worker to exit. A request
// that was running is answered with ErrCancelled. Stop is idempotent.
func (e *Executor) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// State reports where the executor is in its lifecycle.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Submit queues req and returns the channel its single Response arrives on.
// Cancelling ctx abandons the request, which is then answered with
// ErrCancelled.
func (e *Executor) Submit(ctx context.Context, req Request) (<-chan Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil, ErrNotStarted
	}
	if e.state == StateRequested || e.state == StateRunning {
		return nil, ErrBusy
	}
	out := make(chan Response, 1)
	e.jobs <- job{ctx: ctx, req: req, out: out}
	e.state = StateRequested
	e.log.Debug().Str("request", req.ID).Msg("key generation requested")
	return out, nil
}

// Generate submits a request for password and waits for the result.
func (e *Executor) Generate(ctx context.Context, password string) (Result, error) {
	ch, err := e.Submit(ctx, Request{Action: ActionGenerateKeys, Password: password})
	if err != nil {
		return Result{}, err
	}
	resp := <-ch
	if !resp.Success {
		return Result{}, resp.Err
	}
	return *resp.Data, nil
}

func (e *Executor) loop(ctx context.Context, jobs chan job, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			// Submit queues under the lock, so once running is cleared the
			// only job left to answer is one already in the channel.
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			select {
			case j := <-jobs:
				e.finish(j, failure(j.req.ID, ErrCancelled))
			default:
			}
			return
		case j := <-jobs:
			e.run(ctx, j)
		}
	}
}

func (e *Executor) run(ctx context.Context, j job) {
	e.setState(StateRunning)
	start := time.Now()
	log := e.log.With().Str("request", j.req.ID).Int("bits", e.bits).Logger()
	log.Debug().Msg("key generation running")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if j.ctx != nil {
		stop := context.AfterFunc(j.ctx, cancel)
		defer stop()
	}

	resp := e.execute(ctx, j.req)
	if resp.Success {
		log.Info().Dur("took", time.Since(start)).Msg("key pair generated")
	} else {
		log.Warn().Dur("took", time.Since(start)).Str("reason", resp.Error).Msg("key generation failed")
	}
	e.finish(j, resp)
}

func (e *Executor) execute(ctx context.Context, req Request) Response {
	kp, err := e.generate(ctx, e.bits)
	if err != nil {
		if ctx.Err() != nil {
			return failure(req.ID, ErrCancelled)
		}
		return failure(req.ID, err)
	}
	blob, err := e.sealer.Seal(kp.Private, req.Password)
	if err != nil {
		kp.Private.Wipe()
		return failure(req.ID, fmt.Errorf("seal private key: %w", err))
	}
	if ctx.Err() != nil {
		kp.Private.Wipe()
		return failure(req.ID, ErrCancelled)
	}
	return Response{
		ID:      req.ID,
		Success: true,
		Data: &Result{
			PublicKey:               kp.Public.Wire(),
			PrivateKey:              kp.Private.String(),
			ProtectedPrivateKeyBlob: blob.String(),
			KDF:                     e.sealer.Params(),
		},
	}
}

func (e *Executor) finish(j job, resp Response) {
	if resp.Success {
		e.setState(StateSucceeded)
	} else {
		e.setState(StateFailed)
	}
	j.out <- resp
}

func (e *Executor) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}
