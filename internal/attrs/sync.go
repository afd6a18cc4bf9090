package attrs

import (
	"context"
	"sync"
	"time"

	"aria/internal/logging"
	"aria/internal/rtc"
)

const (
	defaultSyncDebounce    = 2000 * time.Millisecond
	defaultSyncedSignalTTL = 1000 * time.Millisecond
)

// AttributeChannel is the remote participant attribute sink. One call
// replaces the whole mapping; there is no partial-update API.
type AttributeChannel interface {
	SetAttributes(ctx context.Context, attributes map[string]string) error
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithDebounce sets the quiet period after the last edit before a flush.
func WithDebounce(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithSyncedSignalTTL sets how long the transient synced signal stays up.
func WithSyncedSignalTTL(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.syncedTTL = d
		}
	}
}

// WithControllerLogger sets the controller's logger.
func WithControllerLogger(logger logging.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logging.OrNop(logger)
	}
}

// WithFlushObserver registers a hook invoked with every flushed mapping,
// used for metrics.
func WithFlushObserver(fn func(map[string]string)) ControllerOption {
	return func(c *Controller) {
		c.flushObserver = fn
	}
}

// Controller propagates local attribute edits to the remote channel with a
// trailing-edge debounce, gated on the session being connected.
//
// Re-arming cancels any pending timer, so a burst of edits collapses into a
// single flush fired one quiet period after the last edit. Leaving the
// connected state cancels the pending fire but keeps the dirty flag; the
// next connected-state edit re-arms the timer. There is deliberately no
// automatic flush on reconnect (see DESIGN.md).
type Controller struct {
	store         *Store
	channel       AttributeChannel
	logger        logging.Logger
	debounce      time.Duration
	syncedTTL     time.Duration
	flushObserver func(map[string]string)

	mu         sync.Mutex
	state      rtc.ConnectionState
	dirty      bool
	synced     bool
	timer      *time.Timer
	flashTimer *time.Timer
	closed     bool
}

// NewController wires a controller to the store and remote channel and
// registers itself as the store's change observer.
func NewController(store *Store, channel AttributeChannel, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:     store,
		channel:   channel,
		logger:    logging.OrNop(nil),
		debounce:  defaultSyncDebounce,
		syncedTTL: defaultSyncedSignalTTL,
		state:     rtc.StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	store.OnChange(c.handleMutation)
	return c
}

// SetConnectionState feeds the session's connection state into the
// controller. Leaving StateConnected cancels any pending flush; the dirty
// flag survives until a successful flush.
func (c *Controller) SetConnectionState(state rtc.ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	if state != rtc.StateConnected {
		c.cancelTimerLocked()
	}
}

// Dirty reports whether local edits are awaiting a flush.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Synced reports the transient confirmation signal raised after a flush.
// It clears on its own after the configured TTL.
func (c *Controller) Synced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.synced
}

// handleMutation runs after every sync-relevant store mutation.
func (c *Controller) handleMutation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state != rtc.StateConnected {
		return
	}
	c.dirty = true
	c.cancelTimerLocked()
	c.timer = time.AfterFunc(c.debounce, c.timerFire)
}

func (c *Controller) timerFire() {
	c.mu.Lock()
	c.timer = nil
	c.mu.Unlock()
	c.flush()
}

// Flush sends the current mapping immediately, bypassing the timer. It is
// subject to the same connected-state gate and cancels any pending fire;
// used for an explicit initial sync.
func (c *Controller) Flush() {
	c.mu.Lock()
	c.cancelTimerLocked()
	c.mu.Unlock()
	c.flush()
}

// flush performs the gated, whole-mapping send. The remote call is not
// awaited for acknowledgment; errors are logged and the mapping is not
// retried.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.closed || c.state != rtc.StateConnected {
		c.mu.Unlock()
		return
	}
	mapping := c.store.Mapping()
	c.dirty = false
	c.synced = true
	if c.flashTimer != nil {
		c.flashTimer.Stop()
	}
	c.flashTimer = time.AfterFunc(c.syncedTTL, c.clearSynced)
	c.mu.Unlock()

	if c.flushObserver != nil {
		c.flushObserver(mapping)
	}
	if err := c.channel.SetAttributes(context.Background(), mapping); err != nil {
		c.logger.Warn("Attribute sync failed: %v", err)
		return
	}
	c.logger.Debug("Synced %d attributes to room", len(mapping))
}

func (c *Controller) clearSynced() {
	c.mu.Lock()
	c.synced = false
	c.mu.Unlock()
}

// Close cancels pending timers. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cancelTimerLocked()
	if c.flashTimer != nil {
		c.flashTimer.Stop()
		c.flashTimer = nil
	}
}

// cancelTimerLocked stops a pending debounce fire. Caller holds the lock.
func (c *Controller) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
