// Package status fans job state transitions out to live subscribers.
package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/voicebot/consultd/internal/domain/model"
)

// ErrBroadcasterStopped is returned by Subscribe after StopAll.
var ErrBroadcasterStopped = errors.New("status broadcaster stopped")

const (
	defaultBuffer      = 16
	defaultMaxPending  = 4096
	defaultSendTimeout = 30 * time.Second
)

// Options configure a DefaultBroadcaster.
type Options struct {
	// Buffer is the default channel capacity per subscriber.
	Buffer int
	// MaxPending bounds the events queued behind a subscriber's channel. Exceeding it evicts the subscriber.
	MaxPending int
	// SendTimeout evicts a subscriber that has not taken a single event for this long.
	SendTimeout time.Duration
}

// SubscribeOptions configure a single subscription.
type SubscribeOptions struct {
	// Filter is an optional JMESPath expression evaluated against each event's JSON form.
	// Events for which it yields a falsy value are skipped.
	Filter string
	// Buffer overrides the broadcaster's channel capacity.
	Buffer int
}

// Broadcaster manages status subscriptions.
type Broadcaster interface {
	Subscribe(opts SubscribeOptions) (func(), <-chan model.StatusEvent, error)
	Publish(ev model.StatusEvent)
	StopAll()
}

// subscriber owns a pending queue drained into out by its own goroutine,
// so a slow reader never stalls Publish or other subscribers.
type subscriber struct {
	out    chan model.StatusEvent
	filter string

	mu      sync.Mutex
	pending []model.StatusEvent
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// enqueue appends ev and reports false when the pending queue is over limit.
func (s *subscriber) enqueue(ev model.StatusEvent, limit int) bool {
	s.mu.Lock()
	if len(s.pending) >= limit {
		s.mu.Unlock()
		return false
	}
	s.pending = append(s.pending, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *subscriber) next() (model.StatusEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return model.StatusEvent{}, false
	}
	ev := s.pending[0]
	s.pending[0] = model.StatusEvent{}
	s.pending = s.pending[1:]
	return ev, true
}

// DefaultBroadcaster is an in-process fan-out. Delivery never blocks the publisher.
type DefaultBroadcaster struct {
	opts Options

	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	stopped bool
}

// NewBroadcaster creates a broadcaster. Zero option values take defaults.
func NewBroadcaster(opts Options) *DefaultBroadcaster {
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = defaultMaxPending
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	return &DefaultBroadcaster{
		opts: opts,
		subs: make(map[*subscriber]struct{}),
	}
}

// ValidateFilter reports whether expr compiles as JMESPath. An empty expression is valid.
func ValidateFilter(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}
	return nil
}

// Subscribe registers a subscriber. The returned unsubscribe func is idempotent and
// the channel is closed once the subscriber is removed for any reason.
func (b *DefaultBroadcaster) Subscribe(opts SubscribeOptions) (func(), <-chan model.StatusEvent, error) {
	if err := ValidateFilter(opts.Filter); err != nil {
		return nil, nil, err
	}
	size := opts.Buffer
	if size <= 0 {
		size = b.opts.Buffer
	}
	sub := &subscriber{
		out:    make(chan model.StatusEvent, size),
		filter: strings.TrimSpace(opts.Filter),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil, nil, ErrBroadcasterStopped
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go b.pump(sub)

	return func() { b.remove(sub) }, sub.out, nil
}

// pump moves pending events into the subscriber channel in publish order.
// It owns out and closes it on exit.
func (b *DefaultBroadcaster) pump(sub *subscriber) {
	defer close(sub.out)

	timer := time.NewTimer(b.opts.SendTimeout)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-sub.done:
			return
		case <-sub.wake:
		}

		for {
			ev, ok := sub.next()
			if !ok {
				break
			}
			timer.Reset(b.opts.SendTimeout)
			select {
			case sub.out <- ev:
				timer.Stop()
			case <-sub.done:
				return
			case <-timer.C:
				b.remove(sub)
				return
			}
		}
	}
}

// Publish queues ev for every matching subscriber. A subscriber whose pending
// queue is already full is removed; the others are unaffected.
func (b *DefaultBroadcaster) Publish(ev model.StatusEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var doc any
	for sub := range b.subs {
		if sub.filter != "" {
			if doc == nil {
				doc = eventDocument(ev)
			}
			if !matches(sub.filter, doc) {
				continue
			}
		}
		if !sub.enqueue(ev, b.opts.MaxPending) {
			b.removeLocked(sub)
		}
	}
}

// Len returns the number of live subscribers.
func (b *DefaultBroadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// StopAll removes every subscriber and rejects new ones.
func (b *DefaultBroadcaster) StopAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	for sub := range b.subs {
		b.removeLocked(sub)
	}
}

func (b *DefaultBroadcaster) remove(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(sub)
}

func (b *DefaultBroadcaster) removeLocked(sub *subscriber) {
	delete(b.subs, sub)
	sub.stop()
}

// eventDocument converts ev to the generic map form JMESPath searches.
func eventDocument(ev model.StatusEvent) any {
	raw, err := json.Marshal(ev)
	if err != nil {
		return map[string]any{}
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return map[string]any{}
	}
	return doc
}

func matches(filter string, doc any) bool {
	v, err := jmespath.Search(filter, doc)
	if err != nil {
		return false
	}
	return truthy(v)
}

// truthy follows JMESPath's notion of false: null, false, and empty strings, arrays, and objects.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

var _ Broadcaster = (*DefaultBroadcaster)(nil)
