package resource

import (
	"runtime"
	"sync"
	"weak"

	"go.uber.org/zap"

	"github.com/wippyai/numbridge/engine"
	"github.com/wippyai/numbridge/errors"
	"github.com/wippyai/numbridge/value"
)

// Manager issues *value.Ref proxies for runtime values that have no host
// representation and tracks them through Created, Active, Released.
//
// Wrap and Close talk to the runtime and must run on its thread. Resolve,
// Acquire and Release are safe from any goroutine; the runtime-side
// release they may trigger is handed to the scheduler.
type Manager struct {
	table    *Table
	retainer Retainer
	schedule func(func())
	cleanup  bool
	mu       sync.Mutex
	closed   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithScheduler routes runtime-side releases through fn, which must run
// the task on the runtime's thread. Without it releases run inline.
func WithScheduler(fn func(func())) Option {
	return func(m *Manager) {
		m.schedule = fn
	}
}

// WithCleanup releases references whose proxies become unreachable.
// Explicit Release remains the primary mechanism.
func WithCleanup() Option {
	return func(m *Manager) {
		m.cleanup = true
	}
}

// WithObserver subscribes o to lifecycle events.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.table.Subscribe(o)
	}
}

// NewManager creates a manager retaining values through r.
func NewManager(r Retainer, opts ...Option) *Manager {
	m := &Manager{
		table:    NewTable(),
		retainer: r,
		schedule: func(fn func()) { fn() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type cleanupArg struct {
	ref    weak.Pointer[value.Ref]
	handle Handle
}

// Wrap retains v in the runtime and returns a fresh proxy for it.
func (m *Manager) Wrap(v engine.Value) (*value.Ref, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, errors.NotInitialized(errors.PhaseReference, "reference manager")
	}

	id := m.retainer.Retain(v)
	typeName := engine.TypeOf(v).String()
	h, err := m.table.Insert(typeName, v, id)
	if err != nil {
		m.retainer.Release(id)
		return nil, errors.Wrap(errors.PhaseReference, errors.KindNotInitialized, err, "reference table closed")
	}

	ref := value.NewRef(uint32(h), m)
	wp := weak.Make(ref)
	m.table.Bind(h, wp)
	if m.cleanup {
		runtime.AddCleanup(ref, m.collect, cleanupArg{ref: wp, handle: h})
	}

	logger.Debug("reference created", zap.Uint32("handle", uint32(h)), zap.String("type", typeName), zap.Uint64("id", id))
	return ref, nil
}

func (m *Manager) check(ref *value.Ref) error {
	if ref == nil {
		return errors.ReferenceInvalid(0)
	}
	if ref.Owner() != m {
		return errors.New(errors.PhaseReference, errors.KindReferenceInvalid).
			Value(ref.Handle()).
			Detail("reference %d was issued by another bridge", ref.Handle()).
			Build()
	}
	return nil
}

// Resolve returns the runtime value behind ref without pinning it.
func (m *Manager) Resolve(ref *value.Ref) (engine.Value, error) {
	if err := m.check(ref); err != nil {
		return nil, err
	}
	v, ok := m.table.Get(Handle(ref.Handle()), weak.Make(ref))
	if !ok {
		return nil, errors.ReferenceInvalid(ref.Handle())
	}
	return v, nil
}

// Acquire pins ref for the duration of a call. The value stays retained
// in the runtime until done is called, even if ref is released meanwhile.
// done is safe to call more than once.
func (m *Manager) Acquire(ref *value.Ref) (v engine.Value, done func(), err error) {
	if err := m.check(ref); err != nil {
		return nil, nil, err
	}
	h := Handle(ref.Handle())
	v, ok := m.table.Borrow(h, weak.Make(ref))
	if !ok {
		return nil, nil, errors.ReferenceInvalid(ref.Handle())
	}
	var once sync.Once
	done = func() {
		once.Do(func() {
			if r, ok := m.table.ReturnBorrow(h); ok && r.Freed {
				m.releaseHost(h, r)
			}
		})
	}
	return v, done, nil
}

// Release drops the proxy's entry. Releasing twice is a no-op. A proxy
// issued by another manager fails with ReferenceInvalid.
func (m *Manager) Release(ref *value.Ref) error {
	if err := m.check(ref); err != nil {
		return err
	}
	h := Handle(ref.Handle())
	r, ok := m.table.Remove(h, weak.Make(ref), EventReleased)
	if !ok {
		return nil
	}
	if r.Freed {
		m.releaseHost(h, r)
	} else {
		logger.Debug("reference release deferred", zap.Uint32("handle", uint32(h)))
	}
	return nil
}

func (m *Manager) collect(arg cleanupArg) {
	r, ok := m.table.Remove(arg.handle, arg.ref, EventCollected)
	if ok && r.Freed {
		m.releaseHost(arg.handle, r)
	}
}

func (m *Manager) releaseHost(h Handle, r Release) {
	logger.Debug("reference released", zap.Uint32("handle", uint32(h)), zap.Uint64("id", r.ID))
	m.schedule(func() {
		m.retainer.Release(r.ID)
	})
}

// Len returns the number of live references.
func (m *Manager) Len() int {
	return m.table.Len()
}

// Pending returns the number of released references still pinned by
// in-flight calls.
func (m *Manager) Pending() int {
	return m.table.Pending()
}

// Subscribe adds an observer for lifecycle events.
func (m *Manager) Subscribe(o Observer) {
	m.table.Subscribe(o)
}

// Close releases every outstanding reference in the runtime and rejects
// further Wrap calls.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	rs := m.table.Close()
	for _, r := range rs {
		m.retainer.Release(r.ID)
	}
	if len(rs) > 0 {
		logger.Debug("released outstanding references", zap.Int("count", len(rs)))
	}
	return nil
}
