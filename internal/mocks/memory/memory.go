// Package memory contains in-process test doubles for the core ports.
// They keep state in maps and slices behind a mutex, so services can be
// exercised end to end without Redis or Postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/voicebot/consultd/internal/core"
	"github.com/voicebot/consultd/internal/domain/model"
	apperrors "github.com/voicebot/consultd/internal/errors"
)

// Ensure compile-time conformance to core ports.
var (
	_ core.WaitingQueue          = (*Queue)(nil)
	_ core.SessionIndexAllocator = (*Counter)(nil)
	_ core.CorrelationStore      = (*Correlations)(nil)
	_ core.InFlightTracker       = (*InFlight)(nil)
	_ core.ContactDirectory      = (*Contacts)(nil)
	_ core.QuestionSetCatalog    = (*Catalog)(nil)
	_ core.HistoryStore          = (*History)(nil)
	_ core.HistoryReader         = (*History)(nil)
	_ core.HistoryRetention      = (*History)(nil)
	_ core.StatusPublisher       = (*Publisher)(nil)
	_ core.CacheRepository       = (*Cache)(nil)
)

// Queue is a FIFO WaitingQueue. Jobs are round-tripped through the queue codec.
type Queue struct {
	mu      sync.Mutex
	entries [][]byte
	// EnqueueErr, when set, is returned by Enqueue.
	EnqueueErr error
	// RequeueErr, when set, is returned by Requeue.
	RequeueErr error
}

func (q *Queue) Enqueue(_ context.Context, jobs ...*model.Job) error {
	if q.EnqueueErr != nil {
		return q.EnqueueErr
	}
	encoded := make([][]byte, 0, len(jobs))
	for _, j := range jobs {
		raw, err := model.EncodeJob(j)
		if err != nil {
			return err
		}
		encoded = append(encoded, raw)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, encoded...)
	return nil
}

func (q *Queue) DequeueNext(_ context.Context) (*model.Job, error) {
	q.mu.Lock()
	if len(q.entries) == 0 {
		q.mu.Unlock()
		return nil, nil
	}
	raw := q.entries[0]
	q.entries = q.entries[1:]
	q.mu.Unlock()
	return model.DecodeJob(raw)
}

func (q *Queue) Requeue(_ context.Context, job *model.Job) error {
	if q.RequeueErr != nil {
		return q.RequeueErr
	}
	raw, err := model.EncodeJob(job)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append([][]byte{raw}, q.entries...)
	return nil
}

func (q *Queue) Peek(_ context.Context, limit int) ([]*model.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*model.Job, 0, n)
	for _, raw := range q.entries[:n] {
		j, err := model.DecodeJob(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func (q *Queue) Len(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.entries)), nil
}

// Counter is a per-contact SessionIndexAllocator.
type Counter struct {
	mu     sync.Mutex
	counts map[string]int
	// Err, when set, is returned by NextIndex.
	Err error
}

func (c *Counter) NextIndex(_ context.Context, contactID string) (int, error) {
	if c.Err != nil {
		return 0, c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[contactID]++
	return c.counts[contactID], nil
}

type correlationEntry struct {
	value     model.Correlation
	expiresAt time.Time
}

// Correlations is a CorrelationStore with TTL checked against Now.
type Correlations struct {
	mu      sync.Mutex
	entries map[string]correlationEntry
	// Now defaults to time.Now.
	Now func() time.Time
	// RememberErr, when set, is returned by Remember.
	RememberErr error
}

func correlationKey(contactID string, sessionIndex int) string {
	return fmt.Sprintf("%s:%d", contactID, sessionIndex)
}

func (s *Correlations) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Correlations) Remember(
	_ context.Context,
	contactID string,
	sessionIndex int,
	c model.Correlation,
	ttl time.Duration,
) error {
	if s.RememberErr != nil {
		return s.RememberErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = make(map[string]correlationEntry)
	}
	s.entries[correlationKey(contactID, sessionIndex)] = correlationEntry{value: c, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *Correlations) Resolve(_ context.Context, contactID string, sessionIndex int) (*model.Correlation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[correlationKey(contactID, sessionIndex)]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, nil
	}
	c := e.value
	return &c, nil
}

func (s *Correlations) Forget(_ context.Context, contactID string, sessionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, correlationKey(contactID, sessionIndex))
	return nil
}

// InFlight is an InFlightTracker ordered by start time.
type InFlight struct {
	mu      sync.Mutex
	started map[model.InFlightDispatch]time.Time
}

func (t *InFlight) Track(_ context.Context, d model.InFlightDispatch, startedAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started == nil {
		t.started = make(map[model.InFlightDispatch]time.Time)
	}
	t.started[d] = startedAt
	return nil
}

func (t *InFlight) Untrack(_ context.Context, d model.InFlightDispatch) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.started[d]; !ok {
		return false, nil
	}
	delete(t.started, d)
	return true, nil
}

func (t *InFlight) Stale(_ context.Context, cutoff time.Time, limit int) ([]model.InFlightDispatch, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []model.InFlightDispatch
	for d, at := range t.started {
		if at.Before(cutoff) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return t.started[out[i]].Before(t.started[out[j]]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of tracked dispatches.
func (t *InFlight) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.started)
}

// Contacts is a ContactDirectory keyed by id.
type Contacts struct {
	mu       sync.Mutex
	contacts map[string]model.Contact
	// SaveErr, when set, is returned by Save.
	SaveErr error
}

// NewContacts seeds a directory with cs.
func NewContacts(cs ...model.Contact) *Contacts {
	d := &Contacts{contacts: make(map[string]model.Contact, len(cs))}
	for _, c := range cs {
		d.contacts[c.ID] = c
	}
	return d
}

func (d *Contacts) FindByID(_ context.Context, id string) (*model.Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.contacts[id]
	if !ok {
		return nil, apperrors.NotFoundf("contact %s not found", id)
	}
	return &c, nil
}

func (d *Contacts) Save(_ context.Context, c *model.Contact) error {
	if d.SaveErr != nil {
		return d.SaveErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.contacts == nil {
		d.contacts = make(map[string]model.Contact)
	}
	d.contacts[c.ID] = *c
	return nil
}

// Catalog is a QuestionSetCatalog that counts reads.
type Catalog struct {
	mu    sync.Mutex
	sets  map[string]model.QuestionSet
	reads int
}

// NewCatalog seeds a catalog with sets.
func NewCatalog(sets ...model.QuestionSet) *Catalog {
	c := &Catalog{sets: make(map[string]model.QuestionSet, len(sets))}
	for _, qs := range sets {
		c.sets[qs.ID] = qs
	}
	return c
}

func (c *Catalog) FindByID(_ context.Context, id string) (*model.QuestionSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	qs, ok := c.sets[id]
	if !ok {
		return nil, apperrors.NotFoundf("question set %s not found", id)
	}
	return &qs, nil
}

// Reads returns how many times FindByID was called.
func (c *Catalog) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// History stores consultation records in insertion order.
type History struct {
	mu      sync.Mutex
	records []model.ConsultationRecord
	nextID  int64
	// SaveErr, when set, is returned by Save.
	SaveErr error
}

func (h *History) Save(_ context.Context, rec *model.ConsultationRecord) error {
	if h.SaveErr != nil {
		return h.SaveErr
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	rec.ID = h.nextID
	h.records = append(h.records, *rec)
	return nil
}

func (h *History) ListByContact(_ context.Context, contactID string, limit int) ([]model.ConsultationRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []model.ConsultationRecord
	for _, r := range h.records {
		if r.ContactID == contactID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SessionIndex > out[j].SessionIndex })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *History) DeleteOlderThan(_ context.Context, cutoff time.Time, batchSize int) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := h.records[:0]
	var deleted int64
	for _, r := range h.records {
		if r.OccurredAt.Before(cutoff) && (batchSize <= 0 || deleted < int64(batchSize)) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	h.records = kept
	return deleted, nil
}

// Records returns a copy of everything saved.
func (h *History) Records() []model.ConsultationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.ConsultationRecord(nil), h.records...)
}

// Publisher records published status events in order.
type Publisher struct {
	mu     sync.Mutex
	events []model.StatusEvent
}

func (p *Publisher) Publish(ev model.StatusEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

// Events returns a copy of everything published.
func (p *Publisher) Events() []model.StatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.StatusEvent(nil), p.events...)
}

// States returns the published states in order.
func (p *Publisher) States() []model.JobState {
	var out []model.JobState
	for _, ev := range p.Events() {
		out = append(out, ev.State)
	}
	return out
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e cacheEntry) live(now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

func (c *Cache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

// Cache is a CacheRepository with TTL checked against Now.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[key] = cacheEntry{value: append([]byte(nil), value...), expiresAt: c.expiry(ttl)}
	return nil
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.live(c.now()) {
		return nil, nil
	}
	return append([]byte(nil), e.value...), nil
}

func (c *Cache) Delete(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok, nil
}

func (c *Cache) SetIfNotExists(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.live(c.now()) {
		return false, nil
	}
	if c.entries == nil {
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[key] = cacheEntry{value: append([]byte(nil), value...), expiresAt: c.expiry(ttl)}
	return true, nil
}

func (c *Cache) Health(context.Context) error { return nil }
