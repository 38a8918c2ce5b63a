package integrations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrHandoffUnavailable = errors.New("target app not available")
	ErrAlreadyStarted     = errors.New("target app already started")
)

// DefaultGrace is how long the handoff lock stays held after a launch, giving
// the OS time to switch apps.
const DefaultGrace = 2 * time.Second

// Outcome is what happened to a delivery attempt.
type Outcome int

const (
	OutcomeDropped Outcome = iota
	OutcomeLaunched
	OutcomeAlreadyRunning
	OutcomeShared
	OutcomeDeclined
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLaunched:
		return "launched"
	case OutcomeAlreadyRunning:
		return "already-running"
	case OutcomeShared:
		return "shared"
	case OutcomeDeclined:
		return "declined"
	default:
		return "dropped"
	}
}

// Lock is a non-reentrant try-lock with a timed release.
type Lock struct {
	mu     sync.Mutex
	active bool
	gen    uint64
	timer  *time.Timer
}

// TryAcquire takes the lock if it is free.
func (l *Lock) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		return false
	}
	l.active = true
	l.gen++
	return true
}

// Release frees the lock now and cancels any pending timed release.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releaseLocked()
}

func (l *Lock) releaseLocked() {
	l.active = false
	l.gen++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// ReleaseAfter frees the lock once d has elapsed, unless it was released and
// acquired again in the meantime.
func (l *Lock) ReleaseAfter(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	gen := l.gen
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(d, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.gen == gen {
			l.releaseLocked()
		}
	})
}

// ForceReset clears a lock that was never released.
func (l *Lock) ForceReset() {
	l.Release()
}

func (l *Lock) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Launcher opens a file directly in the target app. It returns
// ErrHandoffUnavailable when the app is missing and ErrAlreadyStarted when an
// earlier launch is still being handled.
type Launcher interface {
	Launch(ctx context.Context, file string) error
}

// Sharer offers a file through the generic share mechanism.
type Sharer interface {
	Share(ctx context.Context, file string) error
}

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(title, message string) (bool, error)
}

// AppState reports whether the host app is in the foreground.
type AppState interface {
	Foreground() bool
}

type DispatcherOption func(*Dispatcher)

func WithDispatcherLogger(log zerolog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = log }
}

func WithGrace(grace time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.grace = grace }
}

// WithLauncher enables direct app-to-app delivery.
func WithLauncher(l Launcher) DispatcherOption {
	return func(d *Dispatcher) { d.launcher = l }
}

// Dispatcher delivers archives to the consumer app, at most one at a time.
type Dispatcher struct {
	launcher Launcher
	sharer   Sharer
	prompter Prompter
	app      AppState
	lock     Lock
	grace    time.Duration
	log      zerolog.Logger
}

func NewDispatcher(sharer Sharer, prompter Prompter, app AppState, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sharer:   sharer,
		prompter: prompter,
		app:      app,
		grace:    DefaultGrace,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver hands file to the consumer app. Attempts made while another
// delivery is in flight, or while the host is in the background, are dropped.
func (d *Dispatcher) Deliver(ctx context.Context, file, title string) (Outcome, error) {
	if d.app != nil && !d.app.Foreground() {
		d.log.Debug().Str("file", file).Msg("app in background, handoff dropped")
		return OutcomeDropped, nil
	}
	if !d.lock.TryAcquire() {
		d.log.Debug().Str("file", file).Msg("handoff already active, dropped")
		return OutcomeDropped, nil
	}

	if d.launcher == nil {
		d.lock.Release()
		return d.offerShare(ctx, file, "Download Complete", fmt.Sprintf("%s ready to share!", title))
	}

	err := d.launcher.Launch(ctx, file)
	if err == nil {
		d.lock.ReleaseAfter(d.grace)
		d.log.Info().Str("file", file).Msg("opened in target app")
		return OutcomeLaunched, nil
	}
	d.lock.Release()

	if errors.Is(err, ErrAlreadyStarted) {
		return OutcomeAlreadyRunning, nil
	}
	d.log.Warn().Err(err).Str("file", file).Msg("failed to open target app")
	return d.offerShare(ctx, file, "Cannot Open File", "AstroDX app not found. Would you like to share instead?")
}

func (d *Dispatcher) offerShare(ctx context.Context, file, title, message string) (Outcome, error) {
	if d.prompter != nil {
		ok, err := d.prompter.Confirm(title, message)
		if err != nil {
			return OutcomeDeclined, fmt.Errorf("failed to prompt: %w", err)
		}
		if !ok {
			return OutcomeDeclined, nil
		}
	}
	if d.sharer == nil {
		return OutcomeDeclined, ErrHandoffUnavailable
	}
	if err := d.sharer.Share(ctx, file); err != nil {
		return OutcomeDeclined, fmt.Errorf("failed to share: %w", err)
	}
	return OutcomeShared, nil
}

// ResetLock recovers from a lock that was never released, e.g. when the user
// returns before the grace period ends.
func (d *Dispatcher) ResetLock() {
	d.lock.ForceReset()
}

// Busy reports whether a handoff is in flight.
func (d *Dispatcher) Busy() bool {
	return d.lock.Active()
}
