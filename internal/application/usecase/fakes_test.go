// internal/application/usecase/fakes_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	cartdom "cartsync/internal/domain/cart"
	iddom "cartsync/internal/domain/identity"
	stockdom "cartsync/internal/domain/stock"
)

// fakeOracle serves stock quantities from an in-memory map.
type fakeOracle struct {
	mu    sync.Mutex
	stock map[string]int
	err   error
	calls int

	// onQuery runs before each lookup (used to race mutations against
	// in-flight queries).
	onQuery func(productID string)
}

func newFakeOracle(stock map[string]int) *fakeOracle {
	if stock == nil {
		stock = map[string]int{}
	}
	return &fakeOracle{stock: stock}
}

func (o *fakeOracle) Quantity(ctx context.Context, productID string) (int, error) {
	o.mu.Lock()
	hook := o.onQuery
	o.mu.Unlock()
	if hook != nil {
		hook(productID)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.err != nil {
		return 0, o.err
	}
	qty, ok := o.stock[productID]
	if !ok {
		return 0, stockdom.ErrNotFound
	}
	return qty, nil
}

func (o *fakeOracle) set(productID string, qty int) {
	o.mu.Lock()
	o.stock[productID] = qty
	o.mu.Unlock()
}

func (o *fakeOracle) setErr(err error) {
	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
}

func (o *fakeOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

// fakeStore is an in-memory cart store keyed by identity.
type fakeStore struct {
	mu     sync.Mutex
	carts  map[string][]cartdom.Line
	puts   int
	getErr error
	putErr error

	// canonical rewrites the stored lines before Put returns them (server
	// side adjustments).
	canonical func(lines []cartdom.Line) []cartdom.Line
}

func newFakeStore() *fakeStore {
	return &fakeStore{carts: map[string][]cartdom.Line{}}
}

func (s *fakeStore) Get(ctx context.Context, id iddom.Identity) ([]cartdom.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	lines, ok := s.carts[id.Key()]
	if !ok {
		return nil, nil
	}
	return cartdom.Clone(lines), nil
}

func (s *fakeStore) Put(ctx context.Context, id iddom.Identity, lines []cartdom.Line) ([]cartdom.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return nil, s.putErr
	}
	out := cartdom.Normalize(lines)
	if s.canonical != nil {
		out = s.canonical(out)
	}
	s.carts[id.Key()] = cartdom.Clone(out)
	return cartdom.Clone(out), nil
}

func (s *fakeStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func (s *fakeStore) lines(key string) []cartdom.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cartdom.Clone(s.carts[key])
}

func (s *fakeStore) seed(key string, lines []cartdom.Line) {
	s.mu.Lock()
	s.carts[key] = cartdom.Clone(lines)
	s.mu.Unlock()
}

// fakeMirror is an in-memory cart.Mirror.
type fakeMirror struct {
	mu      sync.Mutex
	rows    map[string][]cartdom.Line
	saveErr error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{rows: map[string][]cartdom.Line{}}
}

func (m *fakeMirror) Save(ctx context.Context, key string, lines []cartdom.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rows[key] = cartdom.Clone(lines)
	return nil
}

func (m *fakeMirror) Load(ctx context.Context, key string) ([]cartdom.Line, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, ok := m.rows[key]
	if !ok {
		return nil, false, nil
	}
	return cartdom.Clone(lines), true, nil
}

func (m *fakeMirror) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key)
	return nil
}

func (m *fakeMirror) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[key]
	return ok
}

// fakeFlusher records fire-and-forget sends.
type fakeFlusher struct {
	mu    sync.Mutex
	keys  []string
	sends [][]cartdom.Line
}

func (f *fakeFlusher) Send(identityKey string, lines []cartdom.Line) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, identityKey)
	f.sends = append(f.sends, cartdom.Clone(lines))
}

func (f *fakeFlusher) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

// fakeClock returns a controllable instant.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// captureNotifier collects notices for assertions.
type captureNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *captureNotifier) Notify(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *captureNotifier) all() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notice, len(n.notices))
	copy(out, n.notices)
	return out
}

func (n *captureNotifier) kinds() []NoticeKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]NoticeKind, 0, len(n.notices))
	for _, x := range n.notices {
		out = append(out, x.Kind)
	}
	return out
}
