package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"paysweep/internal/application/payment/gateway"
	"paysweep/internal/domain/order"
	vo "paysweep/internal/domain/order/valueobjects"
	"paysweep/internal/domain/track"
	"paysweep/internal/domain/user"
	"paysweep/internal/shared/biztime"
	"paysweep/internal/shared/logger"
)

// nopLogger is a no-op logger for testing.
type nopLogger struct{}

func newNopLogger() logger.Interface { return &nopLogger{} }

func (l *nopLogger) Debug(msg string, args ...any)                   {}
func (l *nopLogger) Info(msg string, args ...any)                    {}
func (l *nopLogger) Warn(msg string, args ...any)                    {}
func (l *nopLogger) Error(msg string, args ...any)                   {}
func (l *nopLogger) Fatal(msg string, args ...any)                   {}
func (l *nopLogger) With(args ...any) logger.Interface               { return l }
func (l *nopLogger) Named(name string) logger.Interface              { return l }
func (l *nopLogger) Debugw(msg string, keysAndValues ...interface{}) {}
func (l *nopLogger) Infow(msg string, keysAndValues ...interface{})  {}
func (l *nopLogger) Warnw(msg string, keysAndValues ...interface{})  {}
func (l *nopLogger) Errorw(msg string, keysAndValues ...interface{}) {}
func (l *nopLogger) Fatalw(msg string, keysAndValues ...interface{}) {}

type fakeOrderRepo struct {
	orders    map[string]*order.Order // keyed by trade number
	statuses  map[string]vo.OrderStatus
	updates   int
	updateErr error
	nextID    uint
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:   make(map[string]*order.Order),
		statuses: make(map[string]vo.OrderStatus),
		nextID:   1,
	}
}

func (r *fakeOrderRepo) add(o *order.Order) *order.Order {
	if o.ID() == 0 {
		o.SetID(r.nextID)
		r.nextID++
	}
	r.orders[o.TradeNo()] = o
	r.statuses[o.TradeNo()] = o.Status()
	return o
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *order.Order) error {
	r.add(o)
	return nil
}

func (r *fakeOrderRepo) Update(ctx context.Context, o *order.Order) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates++
	r.orders[o.TradeNo()] = o
	r.statuses[o.TradeNo()] = o.Status()
	return nil
}

// Transition checks the status the row held at the last durable write, not
// the shared entity, so tests can model two sweeps holding independent
// copies of the same order.
func (r *fakeOrderRepo) Transition(ctx context.Context, o *order.Order, from ...vo.OrderStatus) (bool, error) {
	if r.updateErr != nil {
		return false, r.updateErr
	}
	durable, ok := r.statuses[o.TradeNo()]
	if !ok {
		return false, nil
	}
	matched := false
	for _, s := range from {
		if durable == s {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	r.updates++
	r.orders[o.TradeNo()] = o
	r.statuses[o.TradeNo()] = o.Status()
	return true, nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id uint) (*order.Order, error) {
	for _, o := range r.orders {
		if o.ID() == id {
			return o, nil
		}
	}
	return nil, errors.New("order not found")
}

func (r *fakeOrderRepo) GetByTradeNo(ctx context.Context, tradeNo string) (*order.Order, error) {
	if o, ok := r.orders[tradeNo]; ok {
		return o, nil
	}
	return nil, errors.New("order not found")
}

func (r *fakeOrderRepo) ListByStatusesCreatedSince(ctx context.Context, statuses []vo.OrderStatus, since time.Time) ([]*order.Order, error) {
	var out []*order.Order
	for _, o := range r.orders {
		for _, s := range statuses {
			if o.Status() == s && !o.CreatedAt().Before(since) {
				out = append(out, o)
				break
			}
		}
	}
	return out, nil
}

type fakeTrackRepo struct {
	tracks  map[string]*track.Track // keyed by track id
	deleted []string                // trade numbers passed to DeleteIfUnused
}

func newFakeTrackRepo() *fakeTrackRepo {
	return &fakeTrackRepo{tracks: make(map[string]*track.Track)}
}

func (r *fakeTrackRepo) add(t *track.Track) *track.Track {
	r.tracks[t.TrackID()] = t
	return t
}

func (r *fakeTrackRepo) Create(ctx context.Context, t *track.Track) error {
	t.SetID(uint(len(r.tracks) + 1))
	r.add(t)
	return nil
}

func (r *fakeTrackRepo) GetByTradeNo(ctx context.Context, tradeNo string) (*track.Track, error) {
	for _, t := range r.tracks {
		if t.TradeNo() == tradeNo {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTrackRepo) GetByOrderID(ctx context.Context, orderID uint) (*track.Track, error) {
	for _, t := range r.tracks {
		if t.OrderID() == orderID {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTrackRepo) GetByTrackID(ctx context.Context, trackID string) (*track.Track, error) {
	if t, ok := r.tracks[trackID]; ok {
		return t, nil
	}
	return nil, nil
}

func (r *fakeTrackRepo) MarkUsed(ctx context.Context, trackID string) (bool, error) {
	t, ok := r.tracks[trackID]
	if !ok || t.IsUsed() {
		return false, nil
	}
	t.MarkUsed()
	return true, nil
}

func (r *fakeTrackRepo) DeleteIfUnused(ctx context.Context, tradeNo string) error {
	for id, t := range r.tracks {
		if t.TradeNo() == tradeNo && !t.IsUsed() {
			delete(r.tracks, id)
			r.deleted = append(r.deleted, tradeNo)
		}
	}
	return nil
}

func (r *fakeTrackRepo) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for _, t := range r.tracks {
		if t.CreatedAt().Before(cutoff) && !t.IsUsed() {
			t.MarkUsed()
			n++
		}
	}
	return n, nil
}

func (r *fakeTrackRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, t := range r.tracks {
		if t.CreatedAt().Before(cutoff) {
			delete(r.tracks, id)
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	users     map[uint]*user.User
	updateErr error
	updates   int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*user.User)}
}

// GetByID hands out a copy, as a real repository would reconstruct a fresh
// entity per read; mutations only become durable through Update.
func (r *fakeUserRepo) GetByID(ctx context.Context, id uint) (*user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user.ReconstructUser(u.ID(), u.Email(), u.Balance(), u.CreatedAt(), u.UpdatedAt()), nil
}

func (r *fakeUserRepo) GetByIDForUpdate(ctx context.Context, id uint) (*user.User, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeUserRepo) Update(ctx context.Context, u *user.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updates++
	r.users[u.ID()] = u
	return nil
}

// memStateStore is an in-memory payment.StateStore.
type memStateStore struct {
	mu         sync.Mutex
	lastCheck  map[uint]time.Time
	failCounts map[uint]int
	trackIDs   map[string]string
	processed  map[string]*gateway.VerifiedPayment
	heartbeats map[string]time.Time
}

func newMemStateStore() *memStateStore {
	return &memStateStore{
		lastCheck:  make(map[uint]time.Time),
		failCounts: make(map[uint]int),
		trackIDs:   make(map[string]string),
		processed:  make(map[string]*gateway.VerifiedPayment),
		heartbeats: make(map[string]time.Time),
	}
}

func (s *memStateStore) LastCheckedAt(ctx context.Context, orderID uint) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.lastCheck[orderID]
	return t, ok, nil
}

func (s *memStateStore) MarkChecked(ctx context.Context, orderID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCheck[orderID] = biztime.NowUTC()
	return nil
}

func (s *memStateStore) IncrFailCount(ctx context.Context, orderID uint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCounts[orderID]++
	return s.failCounts[orderID], nil
}

func (s *memStateStore) ResetFailCount(ctx context.Context, orderID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failCounts, orderID)
	return nil
}

func (s *memStateStore) CacheTrackID(ctx context.Context, tradeNo, trackID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackIDs[tradeNo] = trackID
	return nil
}

func (s *memStateStore) CachedTrackID(ctx context.Context, tradeNo string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackIDs[tradeNo], nil
}

func (s *memStateStore) ForgetTrackID(ctx context.Context, tradeNo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trackIDs, tradeNo)
	return nil
}

func (s *memStateStore) MarkProcessed(ctx context.Context, tradeNo, trackID string, result *gateway.VerifiedPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[tradeNo+":"+trackID] = result
	return nil
}

func (s *memStateStore) ProcessedResult(ctx context.Context, tradeNo, trackID string) (*gateway.VerifiedPayment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.processed[tradeNo+":"+trackID]
	return r, ok, nil
}

func (s *memStateStore) SetLastRun(ctx context.Context, variant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats[variant+":run"] = biztime.NowUTC()
	return nil
}

func (s *memStateStore) SetLastSuccess(ctx context.Context, variant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats[variant+":success"] = biztime.NowUTC()
	return nil
}

func (s *memStateStore) LastRun(ctx context.Context, variant string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.heartbeats[variant+":run"]
	return t, ok, nil
}

func (s *memStateStore) LastSuccess(ctx context.Context, variant string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.heartbeats[variant+":success"]
	return t, ok, nil
}

// fakeGateway returns scripted inquiry/verify results and counts calls.
type fakeGateway struct {
	inquiryStatus int
	inquiryErr    error
	verifyErr     error
	requestErr    error

	inquiryCalls int
	verifyCalls  int
	requestCalls int
}

func (g *fakeGateway) Request(ctx context.Context, req gateway.PaymentRequest) (*gateway.PaymentSession, error) {
	g.requestCalls++
	if g.requestErr != nil {
		return nil, g.requestErr
	}
	return &gateway.PaymentSession{
		TrackID:     "900001",
		RedirectURL: "https://gateway.example/start/900001",
	}, nil
}

func (g *fakeGateway) Inquiry(ctx context.Context, trackID string) (*gateway.InquiryResult, error) {
	g.inquiryCalls++
	if g.inquiryErr != nil {
		return nil, g.inquiryErr
	}
	return &gateway.InquiryResult{Status: g.inquiryStatus}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, trackID string, expectedAmount int64) (*gateway.VerifiedPayment, error) {
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return &gateway.VerifiedPayment{
		TrackID:    trackID,
		Amount:     expectedAmount,
		CardNumber: "603799******1234",
	}, nil
}

// fakeTxManager runs the function directly; rollback semantics are exercised
// through the repositories' error injection.
// fakeTxManager runs the function inline and restores the durable user and
// order state when it fails, mimicking a rollback.
type fakeTxManager struct {
	users  *fakeUserRepo
	orders *fakeOrderRepo
	calls  int
}

func (tm *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tm.calls++

	var userSnap map[uint]*user.User
	if tm.users != nil {
		userSnap = make(map[uint]*user.User, len(tm.users.users))
		for id, u := range tm.users.users {
			userSnap[id] = u
		}
	}
	var orderSnap map[string]*order.Order
	var statusSnap map[string]vo.OrderStatus
	if tm.orders != nil {
		orderSnap = make(map[string]*order.Order, len(tm.orders.orders))
		for k, o := range tm.orders.orders {
			orderSnap[k] = o
		}
		statusSnap = make(map[string]vo.OrderStatus, len(tm.orders.statuses))
		for k, s := range tm.orders.statuses {
			statusSnap[k] = s
		}
	}

	err := fn(ctx)
	if err != nil {
		if tm.users != nil {
			tm.users.users = userSnap
		}
		if tm.orders != nil {
			tm.orders.orders = orderSnap
			tm.orders.statuses = statusSnap
		}
	}
	return err
}

// pendingOrder builds a pending order of the given age with an id assigned.
func pendingOrder(repo *fakeOrderRepo, tradeNo string, userID uint, amount int64, age time.Duration) *order.Order {
	created := biztime.NowUTC().Add(-age)
	o := order.ReconstructOrder(0, tradeNo, userID, amount, 0, vo.OrderStatusPending, nil, created, created)
	return repo.add(o)
}

// orderWithBalance builds a pending order with an explicit wallet-covered
// portion.
func orderWithBalance(tradeNo string, userID uint, totalAmount, balanceAmount int64, created time.Time) *order.Order {
	return order.ReconstructOrder(0, tradeNo, userID, totalAmount, balanceAmount, vo.OrderStatusPending, nil, created, created)
}

// trackFor registers an unused track for the order.
func trackFor(repo *fakeTrackRepo, o *order.Order, trackID string) *track.Track {
	t := track.ReconstructTrack(0, trackID, o.ID(), o.TradeNo(), false, o.CreatedAt())
	return repo.add(t)
}
