package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rekberkan/kahade-sub000/internal/errors"
	"github.com/rekberkan/kahade-sub000/internal/models"
)

// NewMemoryManager returns a Manager backed by in-process maps. It honors the
// same repository contracts as the Postgres manager and is intended for tests
// and local runs without a database. Reads hand out copies; only Save/Create
// write back, so a transaction function that fails before saving leaves the
// store untouched.
func NewMemoryManager() Manager {
	return &memoryManager{
		wallets:     make(map[uint]models.Wallet),
		orders:      make(map[uint]models.Order),
		disputes:    make(map[uint]models.Dispute),
		events:      make(map[uint]models.PaymentEvent),
		withdrawals: make(map[uint]models.Withdrawal),
		users:       make(map[uint]models.User),
	}
}

type memoryManager struct {
	mu          sync.Mutex
	txMu        sync.Mutex
	seq         uint
	wallets     map[uint]models.Wallet
	movements   []models.LedgerMovement
	orders      map[uint]models.Order
	disputes    map[uint]models.Dispute
	timeline    []models.DisputeTimelineEntry
	events      map[uint]models.PaymentEvent
	withdrawals map[uint]models.Withdrawal
	users       map[uint]models.User
}

func (m *memoryManager) nextID() uint {
	m.seq++
	return m.seq
}

// WithinTransaction runs fn with transactions mutually exclusive, standing in
// for the row locks the database manager takes: a transaction that loses the
// race observes the winner's committed state. Rollback is approximated: reads
// return copies, so effects only land through explicit saves.
func (m *memoryManager) WithinTransaction(_ context.Context, fn func(uow UnitOfWork) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}

func (m *memoryManager) Wallets() WalletRepository             { return (*memWalletRepo)(m) }
func (m *memoryManager) Movements() MovementRepository         { return (*memMovementRepo)(m) }
func (m *memoryManager) Orders() OrderRepository               { return (*memOrderRepo)(m) }
func (m *memoryManager) Disputes() DisputeRepository           { return (*memDisputeRepo)(m) }
func (m *memoryManager) Timeline() TimelineRepository          { return (*memTimelineRepo)(m) }
func (m *memoryManager) PaymentEvents() PaymentEventRepository { return (*memPaymentEventRepo)(m) }
func (m *memoryManager) Withdrawals() WithdrawalRepository     { return (*memWithdrawalRepo)(m) }
func (m *memoryManager) Users() UserRepository                 { return (*memUserRepo)(m) }

type memWalletRepo memoryManager

func (r *memWalletRepo) GetByID(_ context.Context, id uint) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, errors.ErrWalletNotFound
	}
	return &w, nil
}

func (r *memWalletRepo) GetByUserID(_ context.Context, userID uint) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.UserID == userID {
			wallet := w
			return &wallet, nil
		}
	}
	return nil, errors.ErrWalletNotFound
}

func (r *memWalletRepo) GetForUpdate(ctx context.Context, id uint) (*models.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *memWalletRepo) GetByUserIDForUpdate(ctx context.Context, userID uint) (*models.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *memWalletRepo) Create(_ context.Context, wallet *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wallet.ID == 0 {
		wallet.ID = (*memoryManager)(r).nextID()
	}
	wallet.CreatedAt = time.Now()
	r.wallets[wallet.ID] = *wallet
	return nil
}

func (r *memWalletRepo) Save(_ context.Context, wallet *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet.UpdatedAt = time.Now()
	r.wallets[wallet.ID] = *wallet
	return nil
}

type memMovementRepo memoryManager

func (r *memMovementRepo) Create(_ context.Context, movements ...*models.LedgerMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mv := range movements {
		mv.ID = (*memoryManager)(r).nextID()
		mv.CreatedAt = time.Now()
		r.movements = append(r.movements, *mv)
	}
	return nil
}

func (r *memMovementRepo) ListByOrderID(_ context.Context, orderID uint) ([]models.LedgerMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.LedgerMovement
	for _, mv := range r.movements {
		if mv.OrderID != nil && *mv.OrderID == orderID {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (r *memMovementRepo) ListByWalletID(_ context.Context, walletID uint, limit int) ([]models.LedgerMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.LedgerMovement
	for i := len(r.movements) - 1; i >= 0 && len(out) < limit; i-- {
		if r.movements[i].WalletID == walletID {
			out = append(out, r.movements[i])
		}
	}
	return out, nil
}

type memOrderRepo memoryManager

func (r *memOrderRepo) GetByID(_ context.Context, id uint) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, errors.ErrOrderNotFound
	}
	return &o, nil
}

func (r *memOrderRepo) GetForUpdate(ctx context.Context, id uint) (*models.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *memOrderRepo) GetByExternalRef(_ context.Context, ref string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ExternalRef == ref {
			order := o
			return &order, nil
		}
	}
	return nil, errors.ErrOrderNotFound
}

func (r *memOrderRepo) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == 0 {
		order.ID = (*memoryManager)(r).nextID()
	}
	order.CreatedAt = time.Now()
	r.orders[order.ID] = *order
	return nil
}

func (r *memOrderRepo) Save(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	order.UpdatedAt = time.Now()
	r.orders[order.ID] = *order
	return nil
}

func (r *memOrderRepo) ListByParty(_ context.Context, userID uint, limit int) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if o.IsParty(userID) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memDisputeRepo memoryManager

func (r *memDisputeRepo) GetByID(_ context.Context, id uint) (*models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok {
		return nil, errors.ErrDisputeNotFound
	}
	return &d, nil
}

func (r *memDisputeRepo) GetForUpdate(ctx context.Context, id uint) (*models.Dispute, error) {
	return r.GetByID(ctx, id)
}

func (r *memDisputeRepo) GetOpenByOrderID(_ context.Context, orderID uint) (*models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.disputes {
		if d.OrderID == orderID && d.Status != models.DisputeStatusClosed {
			dispute := d
			return &dispute, nil
		}
	}
	return nil, errors.ErrDisputeNotFound
}

func (r *memDisputeRepo) Create(_ context.Context, dispute *models.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dispute.ID == 0 {
		dispute.ID = (*memoryManager)(r).nextID()
	}
	dispute.CreatedAt = time.Now()
	r.disputes[dispute.ID] = *dispute
	return nil
}

func (r *memDisputeRepo) Save(_ context.Context, dispute *models.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dispute.UpdatedAt = time.Now()
	r.disputes[dispute.ID] = *dispute
	return nil
}

func (r *memDisputeRepo) ListExpiredDecided(_ context.Context, now time.Time, limit int) ([]models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Dispute
	for _, d := range r.disputes {
		if d.Status == models.DisputeStatusDecided && d.AppealDeadline != nil && d.AppealDeadline.Before(now) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppealDeadline.Before(*out[j].AppealDeadline) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memTimelineRepo memoryManager

func (r *memTimelineRepo) Append(_ context.Context, entry *models.DisputeTimelineEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = (*memoryManager)(r).nextID()
	entry.CreatedAt = time.Now()
	r.timeline = append(r.timeline, *entry)
	return nil
}

func (r *memTimelineRepo) ListByDisputeID(_ context.Context, disputeID uint) ([]models.DisputeTimelineEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DisputeTimelineEntry
	for _, e := range r.timeline {
		if e.DisputeID == disputeID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memPaymentEventRepo memoryManager

func (r *memPaymentEventRepo) GetByID(_ context.Context, id uint) (*models.PaymentEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, errors.NotFound("payment event")
	}
	return &e, nil
}

func (r *memPaymentEventRepo) Find(_ context.Context, provider, externalEventID string) (*models.PaymentEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Provider == provider && e.ExternalEventID == externalEventID {
			event := e
			return &event, nil
		}
	}
	return nil, nil
}

func (r *memPaymentEventRepo) Create(_ context.Context, event *models.PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Provider == event.Provider && e.ExternalEventID == event.ExternalEventID {
			return errors.Conflict("duplicate payment event")
		}
	}
	if event.ID == 0 {
		event.ID = (*memoryManager)(r).nextID()
	}
	event.CreatedAt = time.Now()
	r.events[event.ID] = *event
	return nil
}

func (r *memPaymentEventRepo) Save(_ context.Context, event *models.PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event.UpdatedAt = time.Now()
	r.events[event.ID] = *event
	return nil
}

func (r *memPaymentEventRepo) ListFailedRetryable(_ context.Context, maxRetries, limit int) ([]models.PaymentEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PaymentEvent
	for _, e := range r.events {
		if e.Status == models.PaymentEventFailed && e.SignatureValid && e.RetryCount < maxRetries {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memWithdrawalRepo memoryManager

func (r *memWithdrawalRepo) GetByID(_ context.Context, id uint) (*models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.withdrawals[id]
	if !ok {
		return nil, errors.ErrWithdrawalNotFound
	}
	return &w, nil
}

func (r *memWithdrawalRepo) GetForUpdate(ctx context.Context, id uint) (*models.Withdrawal, error) {
	return r.GetByID(ctx, id)
}

func (r *memWithdrawalRepo) GetByExternalRef(_ context.Context, ref string) (*models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.withdrawals {
		if w.ExternalRef == ref {
			withdrawal := w
			return &withdrawal, nil
		}
	}
	return nil, errors.ErrWithdrawalNotFound
}

func (r *memWithdrawalRepo) Create(_ context.Context, withdrawal *models.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if withdrawal.ID == 0 {
		withdrawal.ID = (*memoryManager)(r).nextID()
	}
	withdrawal.CreatedAt = time.Now()
	r.withdrawals[withdrawal.ID] = *withdrawal
	return nil
}

func (r *memWithdrawalRepo) Save(_ context.Context, withdrawal *models.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	withdrawal.UpdatedAt = time.Now()
	r.withdrawals[withdrawal.ID] = *withdrawal
	return nil
}

type memUserRepo memoryManager

func (r *memUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("user")
	}
	return &u, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, errors.NotFound("user")
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == 0 {
		user.ID = (*memoryManager)(r).nextID()
	}
	if user.TokenVersion == 0 {
		user.TokenVersion = 1
	}
	user.CreatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.UpdatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) IncrementTokenVersion(_ context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return errors.NotFound("user")
	}
	u.TokenVersion++
	r.users[userID] = u
	return nil
}
