package payment

import (
	"context"
	"maps"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/gamestore/internal/domain/order"
	"github.com/xenking/gamestore/internal/domain/page"
)

// memState is the committed contents of memDB.
type memState struct {
	orders   map[int64]order.Order
	payments map[int64]Payment
	library  map[[2]int64]int64
	nextPay  int64
}

func (s memState) clone() memState {
	return memState{
		orders:   maps.Clone(s.orders),
		payments: maps.Clone(s.payments),
		library:  maps.Clone(s.library),
		nextPay:  s.nextPay,
	}
}

// memDB is a TxManager whose transactions work on a copy of the state and
// publish it only on success.
type memDB struct {
	state   memState
	methods []Method
	// grantFail fails the grant of this app id.
	grantFail int64
	// beforeCreate runs inside Create, before the uniqueness check.
	beforeCreate func(s *memState)
	txCount      int
}

func newMemDB(orders ...order.Order) *memDB {
	db := &memDB{
		state: memState{
			orders:   make(map[int64]order.Order),
			payments: make(map[int64]Payment),
			library:  make(map[[2]int64]int64),
		},
		methods: []Method{{ID: 1, Name: "Credit Card"}, {ID: 2, Name: "PayPal"}},
	}
	for _, o := range orders {
		db.state.orders[o.ID] = o
	}
	return db
}

func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	db.txCount++
	tx := &memTx{db: db, s: db.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	db.state = tx.s
	return nil
}

type memTx struct {
	db *memDB
	s  memState
}

func (t *memTx) Grant(_ context.Context, userID, appID int64, orderID *int64) (bool, error) {
	if appID == t.db.grantFail {
		return false, errors.New("library insert failed")
	}
	key := [2]int64{userID, appID}
	if _, ok := t.s.library[key]; ok {
		return false, nil
	}
	t.s.library[key] = *orderID
	return true, nil
}

func (t *memTx) LockOrder(_ context.Context, id int64) (*order.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (t *memTx) UpdateOrderStatus(_ context.Context, id int64, st order.Status) error {
	o := t.s.orders[id]
	o.Status = st
	t.s.orders[id] = o
	return nil
}

func (t *memTx) MethodByName(_ context.Context, name string) (*Method, error) {
	for _, m := range t.db.methods {
		if strings.EqualFold(m.Name, name) {
			return &m, nil
		}
	}
	return nil, ErrMethodNotFound
}

func (t *memTx) LatestForOrder(_ context.Context, orderID int64) (*Payment, error) {
	var latest *Payment
	for _, p := range t.s.payments {
		if p.OrderID == orderID && (latest == nil || p.ID > latest.ID) {
			latest = &p
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (t *memTx) initiatedConflict(orderID, except int64) bool {
	for _, p := range t.s.payments {
		if p.OrderID == orderID && p.ID != except && p.Status == StatusInitiated {
			return true
		}
	}
	return false
}

func (t *memTx) Create(_ context.Context, p *Payment) error {
	if t.db.beforeCreate != nil {
		t.db.beforeCreate(&t.s)
		t.db.beforeCreate = nil
	}
	if t.initiatedConflict(p.OrderID, 0) {
		return ErrInitiatedExists
	}
	t.s.nextPay++
	p.ID = t.s.nextPay
	t.s.payments[p.ID] = *p
	return nil
}

func (t *memTx) GetPayment(_ context.Context, id int64, _ bool) (*Payment, error) {
	p, ok := t.s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memTx) SetStatus(_ context.Context, id int64, st Status) (*Payment, error) {
	p := t.s.payments[id]
	if st == StatusInitiated && t.initiatedConflict(p.OrderID, id) {
		return nil, ErrInitiatedExists
	}
	p.Status = st
	t.s.payments[id] = p
	return &p, nil
}

type memRepo struct {
	db *memDB
}

func (r memRepo) Get(_ context.Context, id int64) (*Summary, error) {
	p, ok := r.db.state.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	o := r.db.state.orders[p.OrderID]
	return &Summary{Payment: p, OrderStatus: o.Status, UserID: o.UserID}, nil
}

func (r memRepo) List(_ context.Context, st Status, _ page.Request) ([]Summary, int, error) {
	var out []Summary
	for _, p := range r.db.state.payments {
		if st == "" || p.Status == st {
			out = append(out, Summary{Payment: p})
		}
	}
	return out, len(out), nil
}

func (r memRepo) Methods(_ context.Context) ([]Method, error) {
	return r.db.methods, nil
}
