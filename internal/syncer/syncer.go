/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package syncer replicates the in-memory field collection across two
// durability channels: an immediate local snapshot (crash line of defense)
// and a debounced, retried remote write. One Engine serves one document
// session and owns its timers; closing the engine cancels them, so a stale
// write can never land against the wrong document.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"formpress/internal/backup"
	"formpress/internal/domain"
	applog "formpress/internal/log"
)

// RemoteStore is the remote durability channel. SaveFields has idempotent
// full-replace semantics, not incremental patch.
type RemoteStore interface {
	LoadFields(ctx context.Context, documentID string) ([]domain.Field, error)
	SaveFields(ctx context.Context, documentID string, fields []domain.Field) error
}

// State is the engine's lifecycle phase for a document session.
type State int

const (
	StateUninitialized State = iota
	StateReconciling
	StateSteady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReconciling:
		return "reconciling"
	case StateSteady:
		return "steady"
	}
	return "?"
}

// Config controls timing and retry policy.
type Config struct {
	// Debounce is the quiet period after the last change before a remote
	// write fires. Rapid edits within the window coalesce into one write.
	Debounce time.Duration
	// RetryDelay is the fixed pause between failed remote write attempts.
	RetryDelay time.Duration
	// MaxRetries bounds consecutive failed attempts before the engine stops
	// timer-driven retries. The obligation stays recorded locally.
	MaxRetries int
	// WriteTimeout bounds a single remote write call.
	WriteTimeout time.Duration
	// Freshness is the maximum age at which a local snapshot is still
	// trusted over the remote store during reconciliation.
	Freshness time.Duration
}

// DefaultConfig returns the production timing policy.
func DefaultConfig() Config {
	return Config{
		Debounce:     800 * time.Millisecond,
		RetryDelay:   3 * time.Second,
		MaxRetries:   5,
		WriteTimeout: 10 * time.Second,
		Freshness:    24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Debounce <= 0 {
		c.Debounce = d.Debounce
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.Freshness <= 0 {
		c.Freshness = d.Freshness
	}
	return c
}

// Engine drives the two persistence channels for one document.
type Engine struct {
	cfg        Config
	documentID string
	local      *backup.Store
	remote     RemoteStore
	log        *slog.Logger
	now        func() time.Time

	// OnRetriesExhausted is invoked (outside the lock) when MaxRetries
	// consecutive attempts have failed. Optional.
	OnRetriesExhausted func(documentID string, attempts int)

	mu             sync.Mutex
	state          State
	syncing        bool // one remote write in flight at a time
	retryScheduled bool
	closed         bool
	lastSynced     string // signature watermark of the remote store
	pendingSig     string // signature captured when the debounce was scheduled
	latest         []domain.Field
	debounceTimer  *time.Timer
	retryTimer     *time.Timer
	retryCount     int
}

// New creates an engine for one document session.
func New(documentID string, local *backup.Store, remote RemoteStore, cfg Config) *Engine {
	return &Engine{
		cfg:        cfg.withDefaults(),
		documentID: documentID,
		local:      local,
		remote:     remote,
		log:        applog.WithComponent("syncer").With(slog.String("doc", documentID)),
		now:        time.Now,
		state:      StateUninitialized,
	}
}

// SetClock overrides the time source, for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	e.now = now
	e.mu.Unlock()
}

// State returns the lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Syncing reports whether a remote write is in flight.
func (e *Engine) Syncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncing
}

// RetryScheduled reports whether a failed write is awaiting its retry timer.
func (e *Engine) RetryScheduled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.retryScheduled
}

// Reconcile loads both durable copies and selects the collection to open the
// session with. The remote store is the authoritative source of truth; a
// fresh local snapshot wins only when it holds more fields (unsynced work
// from a previous session). A pending-retry marker from a previous session
// is resumed immediately.
func (e *Engine) Reconcile(ctx context.Context) ([]domain.Field, error) {
	e.mu.Lock()
	e.state = StateReconciling
	e.mu.Unlock()

	l := applog.WithOperation(e.log, "reconcile")

	pending, err := e.local.LoadPending(ctx, e.documentID)
	if err != nil {
		l.Warn("pending marker unreadable", slog.Any("err", err))
		pending = nil
	}

	remoteFields, remoteErr := e.remote.LoadFields(ctx, e.documentID)
	if remoteErr != nil {
		l.Warn("remote load failed, falling back to local", slog.Any("err", remoteErr))
	}

	var localSnap *domain.LocalSnapshot
	if snap, err := e.local.LoadSnapshot(ctx, e.documentID); err != nil {
		l.Warn("local snapshot unreadable", slog.Any("err", err))
	} else if snap != nil {
		if e.now().Sub(snap.Timestamp) <= e.cfg.Freshness {
			localSnap = snap
		} else {
			l.Info("local snapshot expired", slog.Time("ts", snap.Timestamp))
		}
	}

	chosen, source := choose(remoteFields, remoteErr, localSnap, pending)
	l.Info("reconciled", slog.String("source", source), slog.Int("fields", len(chosen)))

	e.mu.Lock()
	e.state = StateSteady
	e.latest = domain.CloneFields(chosen)
	push := pending != nil
	if remoteErr == nil {
		e.lastSynced = Signature(remoteFields)
		if Signature(chosen) != e.lastSynced {
			// The heuristic picked local work the remote has not seen
			// (crash before the debounce fired leaves no pending marker).
			// Push it now rather than waiting for the next edit.
			push = true
		}
	} else {
		// Remote state unknown; only a resumed pending marker may write.
		// Pushing the fallback collection blind could overwrite remote
		// work we simply failed to load.
		e.lastSynced = ""
	}
	if push {
		e.retryCount = 0 // a new session gets a fresh retry budget
	}
	e.mu.Unlock()

	if push {
		e.scheduleImmediateWrite()
	}
	return chosen, nil
}

// choose applies the reconciliation heuristic: prefer the copy with the
// greater field count; remote wins ties. A pending marker counts as local
// work (it is the newest unsynced payload).
func choose(remote []domain.Field, remoteErr error, local *domain.LocalSnapshot, pending *domain.PendingSync) ([]domain.Field, string) {
	localFields := []domain.Field(nil)
	localSource := ""
	if local != nil {
		localFields = local.Fields
		localSource = "local-snapshot"
	}
	if pending != nil && len(pending.Fields) >= len(localFields) {
		localFields = pending.Fields
		localSource = "pending-marker"
	}
	if remoteErr != nil {
		if localSource == "" {
			return nil, "empty"
		}
		return localFields, localSource
	}
	if len(localFields) > len(remote) {
		return localFields, localSource
	}
	return remote, "remote"
}

// OnChange is the store observer: it runs on every mutation of the field
// collection. A genuine signature change writes the local snapshot
// synchronously and (re)arms the debounced remote write; anything else is a
// no-op re-render and is ignored.
func (e *Engine) OnChange(fields []domain.Field) {
	sig := Signature(fields)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if sig == e.lastSynced {
		dirty := e.pendingSig != "" || e.debounceTimer != nil || e.syncing
		if !dirty {
			// No-op re-render at the synced state.
			e.mu.Unlock()
			return
		}
		// Reverted to the last-synced state while a write was armed or in
		// flight. Disarm the debounce so the stale pre-revert payload is
		// never pushed; e.latest must track the revert so an in-flight
		// write's completion re-check pushes the current state, not the
		// undone one.
		e.latest = domain.CloneFields(fields)
		e.pendingSig = ""
		if e.debounceTimer != nil {
			e.debounceTimer.Stop()
			e.debounceTimer = nil
		}
	} else {
		if sig == e.pendingSig && e.debounceTimer != nil {
			e.mu.Unlock()
			return
		}
		e.latest = domain.CloneFields(fields)
		e.pendingSig = sig
		if e.debounceTimer != nil {
			e.debounceTimer.Stop()
		}
		e.debounceTimer = time.AfterFunc(e.cfg.Debounce, func() { e.debounceFired(sig) })
	}
	snapshot := domain.CloneFields(fields)
	e.mu.Unlock()

	// Local write is the crash line of defense: synchronous, before any
	// timer exists from the caller's point of view. Failure is logged and
	// the in-memory edit proceeds; there is no more-durable fallback below.
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.WriteTimeout)
	defer cancel()
	if err := e.local.SaveSnapshot(ctx, e.documentID, snapshot, e.now()); err != nil {
		e.log.Error("local snapshot write failed", slog.Any("err", err))
	}
}

// debounceFired runs when the quiet period elapses. If the collection moved
// on since this timer was armed, a newer timer exists and this one skips.
func (e *Engine) debounceFired(scheduledSig string) {
	e.mu.Lock()
	if e.closed || scheduledSig != e.pendingSig {
		e.mu.Unlock()
		return
	}
	e.debounceTimer = nil
	e.mu.Unlock()
	e.attemptWrite()
}

// scheduleImmediateWrite arms a zero-delay write (used for resumed pending
// markers and online signals).
func (e *Engine) scheduleImmediateWrite() {
	go e.attemptWrite()
}

// attemptWrite performs one remote write of the latest collection, guarded
// by the busy flag so at most one write is in flight per document. The
// pending marker is persisted before the attempt so a crash mid-write keeps
// the obligation.
func (e *Engine) attemptWrite() {
	e.mu.Lock()
	if e.closed || e.syncing {
		e.mu.Unlock()
		return
	}
	payload := domain.CloneFields(e.latest)
	sig := Signature(payload)
	if sig == e.lastSynced {
		// Nothing to push; clear any leftover obligation.
		e.retryScheduled = false
		e.mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.WriteTimeout)
		defer cancel()
		_ = e.local.ClearPending(ctx, e.documentID)
		return
	}
	e.syncing = true
	attempt := e.retryCount
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.WriteTimeout)
	defer cancel()

	marker := domain.PendingSync{
		DocumentID: e.documentID,
		Fields:     payload,
		Timestamp:  e.now(),
		RetryCount: attempt,
	}
	if err := e.local.SavePending(ctx, marker); err != nil {
		e.log.Error("pending marker write failed", slog.Any("err", err))
	}

	err := e.remote.SaveFields(ctx, e.documentID, payload)
	e.completeWrite(sig, err)
}

// completeWrite advances the watermark on success or schedules the retry
// path on failure.
func (e *Engine) completeWrite(sig string, err error) {
	e.mu.Lock()
	if e.closed {
		// The session moved on; drop the result. The pending marker is
		// still on disk, so nothing is lost.
		e.syncing = false
		e.mu.Unlock()
		return
	}
	e.syncing = false

	if err == nil {
		e.lastSynced = sig
		if e.pendingSig == sig {
			e.pendingSig = ""
		}
		e.retryCount = 0
		e.retryScheduled = false
		newer := Signature(e.latest) != sig
		e.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.WriteTimeout)
		defer cancel()
		// Remote is caught up: both local records are now redundant.
		if cerr := e.local.ClearPending(ctx, e.documentID); cerr != nil {
			e.log.Warn("clear pending failed", slog.Any("err", cerr))
		}
		if cerr := e.local.ClearSnapshot(ctx, e.documentID); cerr != nil {
			e.log.Warn("clear snapshot failed", slog.Any("err", cerr))
		}
		e.log.Debug("remote sync complete")
		if newer {
			// Edits arrived while this write was in flight.
			e.scheduleImmediateWrite()
		}
		return
	}

	e.retryCount++
	attempts := e.retryCount
	exhausted := attempts >= e.cfg.MaxRetries
	if !exhausted {
		e.retryScheduled = true
		if e.retryTimer != nil {
			e.retryTimer.Stop()
		}
		e.retryTimer = time.AfterFunc(e.cfg.RetryDelay, func() {
			e.mu.Lock()
			e.retryScheduled = false
			e.mu.Unlock()
			e.attemptWrite()
		})
	} else {
		e.retryScheduled = false
	}
	hook := e.OnRetriesExhausted
	e.mu.Unlock()

	if exhausted {
		e.log.Error("remote sync retries exhausted; obligation kept locally",
			slog.Int("attempts", attempts), slog.Any("err", err))
		if hook != nil {
			hook(e.documentID, attempts)
		}
	} else {
		e.log.Warn("remote sync failed, retry scheduled",
			slog.Int("attempt", attempts), slog.Any("err", err))
	}
}

// HandleOnline is the network-available signal: it cancels any retry wait
// and attempts an immediate write if there is an outstanding obligation.
func (e *Engine) HandleOnline() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if e.retryTimer != nil {
		e.retryTimer.Stop()
		e.retryTimer = nil
	}
	e.retryScheduled = false
	e.retryCount = 0 // connectivity changed; start a fresh budget
	dirty := Signature(e.latest) != e.lastSynced
	e.mu.Unlock()
	if dirty {
		e.scheduleImmediateWrite()
	}
}

// ForceSave flushes both channels now: local snapshot synchronously, then a
// remote write without waiting for the debounce. When a remote write is
// already in flight the call returns after the local write only; the
// in-flight write's completion re-check picks up the newer payload and
// pushes it, so the remote still converges without a second goroutine
// racing the busy flag.
func (e *Engine) ForceSave(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errors.New("engine closed")
	}
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
		e.debounceTimer = nil
	}
	payload := domain.CloneFields(e.latest)
	e.mu.Unlock()

	if err := e.local.SaveSnapshot(ctx, e.documentID, payload, e.now()); err != nil {
		e.log.Error("force save local failed", slog.Any("err", err))
	}
	e.attemptWrite()
	return nil
}

// Unload is the teardown guard: one last best-effort local snapshot before
// the process goes away. The remote channel may not get a chance to run,
// which is exactly why the local snapshot exists.
func (e *Engine) Unload(ctx context.Context) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	payload := domain.CloneFields(e.latest)
	e.mu.Unlock()
	if err := e.local.SaveSnapshot(ctx, e.documentID, payload, e.now()); err != nil {
		e.log.Error("unload snapshot failed", slog.Any("err", err))
	}
}

// Close cancels all timers and detaches the engine. In-flight writes are not
// cancelled; their results are dropped on completion.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
		e.debounceTimer = nil
	}
	if e.retryTimer != nil {
		e.retryTimer.Stop()
		e.retryTimer = nil
	}
}
