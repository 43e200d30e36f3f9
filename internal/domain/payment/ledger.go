package payment

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/library"
	"github.com/xenking/gamestore/internal/domain/order"
	"github.com/xenking/gamestore/internal/domain/page"
)

// CreateRequest holds the input for starting a payment.
type CreateRequest struct {
	OrderID int64
	Method  string
}

// CreateResult is the payment returned by CreatePayment. Created is false
// when an existing initiated payment was returned instead of a new one.
type CreateResult struct {
	Payment *Payment
	Created bool
}

// Ledger owns payment creation and status transitions.
type Ledger struct {
	txm     TxManager
	repo    Repository
	tracer  trace.Tracer
	updates metric.Int64Counter
	grants  metric.Int64Counter
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithMeter records status update and grant counters on m.
func WithMeter(m metric.Meter) LedgerOption {
	return func(l *Ledger) {
		updates, err := m.Int64Counter("payments.status_updates",
			metric.WithDescription("Committed payment status updates"))
		if err == nil {
			l.updates = updates
		}
		grants, err := m.Int64Counter("library.grants",
			metric.WithDescription("Library entries inserted by payment updates"))
		if err == nil {
			l.grants = grants
		}
	}
}

// WithTracer wraps ledger transactions in spans from t.
func WithTracer(t trace.Tracer) LedgerOption {
	return func(l *Ledger) { l.tracer = t }
}

// NewLedger creates a Ledger. Telemetry defaults to no-op providers.
func NewLedger(txm TxManager, repo Repository, opts ...LedgerOption) *Ledger {
	l := &Ledger{txm: txm, repo: repo, tracer: tracenoop.NewTracerProvider().Tracer("")}
	WithMeter(metricnoop.NewMeterProvider().Meter(""))(l)
	for _, o := range opts {
		o(l)
	}
	return l
}

// CreatePayment starts a payment for a pending order owned by the caller (or
// any order, for admins). If the latest payment is still initiated it is
// returned instead of creating another one.
func (l *Ledger) CreatePayment(ctx context.Context, p auth.Principal, req CreateRequest) (*CreateResult, error) {
	method := strings.TrimSpace(req.Method)
	if req.OrderID <= 0 || method == "" {
		return nil, apperr.New(apperr.Validation, "orderId and paymentMethod are required")
	}

	ctx, span := l.tracer.Start(ctx, "payment.CreatePayment",
		trace.WithAttributes(attribute.Int64("order.id", req.OrderID)))
	defer span.End()

	var res *CreateResult
	err := l.txm.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		res, err = createInTx(ctx, tx, p, req.OrderID, method)
		return err
	})
	if errors.Is(err, ErrInitiatedExists) {
		// A concurrent request won the insert; hand back its payment.
		err = l.txm.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
			latest, err := tx.LatestForOrder(ctx, req.OrderID)
			if err != nil {
				return errors.Wrap(err, "reread latest payment")
			}
			if latest.Status != StatusInitiated {
				return ErrExists
			}
			res = &CreateResult{Payment: latest}
			return nil
		})
	}
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("payment.created", res.Created))
	return res, nil
}

func createInTx(ctx context.Context, tx Tx, p auth.Principal, orderID int64, method string) (*CreateResult, error) {
	o, err := tx.LockOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "lock order")
	}
	if o.UserID != p.UserID && !p.IsAdmin() {
		return nil, auth.ErrAccessDenied
	}
	if o.Status != order.StatusPending {
		return nil, order.ErrNotPending
	}

	m, err := tx.MethodByName(ctx, method)
	if err != nil {
		return nil, errors.Wrap(err, "find payment method")
	}

	latest, err := tx.LatestForOrder(ctx, o.ID)
	switch {
	case err == nil && latest.Status == StatusInitiated:
		return &CreateResult{Payment: latest}, nil
	case err == nil:
		return nil, ErrExists
	case !errors.Is(err, ErrNotFound):
		return nil, errors.Wrap(err, "latest payment")
	}

	pay := &Payment{
		OrderID:    o.ID,
		MethodID:   m.ID,
		MethodName: m.Name,
		Status:     StatusInitiated,
		Amount:     o.TotalPrice,
	}
	if err := tx.Create(ctx, pay); err != nil {
		return nil, errors.Wrap(err, "create payment")
	}
	return &CreateResult{Payment: pay, Created: true}, nil
}

// UpdateStatus sets a payment's status, moves the order accordingly and, when
// the order ends up paid, grants every purchased title to the buyer. All of it
// commits together or not at all.
func (l *Ledger) UpdateStatus(ctx context.Context, p auth.Principal, paymentID int64, status string) (*Payment, error) {
	if !p.IsAdmin() {
		return nil, auth.ErrAccessDenied
	}
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	ctx, span := l.tracer.Start(ctx, "payment.UpdateStatus", trace.WithAttributes(
		attribute.Int64("payment.id", paymentID),
		attribute.String("payment.status", string(st)),
	))
	defer span.End()

	var (
		updated *Payment
		granted int
	)
	err = l.txm.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		updated, granted, err = updateInTx(ctx, tx, paymentID, st)
		return err
	})
	if err != nil {
		recordErr(span, err)
		return nil, err
	}

	l.updates.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(st))))
	if granted > 0 {
		l.grants.Add(ctx, int64(granted))
	}
	span.SetAttributes(attribute.Int("library.granted", granted))
	return updated, nil
}

func updateInTx(ctx context.Context, tx Tx, paymentID int64, st Status) (*Payment, int, error) {
	// Lock the order before the payment, the same order CreatePayment uses.
	cur, err := tx.GetPayment(ctx, paymentID, false)
	if err != nil {
		return nil, 0, errors.Wrap(err, "get payment")
	}
	o, err := tx.LockOrder(ctx, cur.OrderID)
	if err != nil {
		return nil, 0, errors.Wrap(err, "lock order")
	}
	if _, err := tx.GetPayment(ctx, paymentID, true); err != nil {
		return nil, 0, errors.Wrap(err, "lock payment")
	}

	updated, err := tx.SetStatus(ctx, paymentID, st)
	if err != nil {
		return nil, 0, errors.Wrap(err, "set payment status")
	}

	resulting := o.Status
	if target, ok := OrderStatusFor(st); ok {
		changed, err := order.Transition(o.Status, target)
		if err != nil {
			return nil, 0, err
		}
		if changed {
			if err := tx.UpdateOrderStatus(ctx, o.ID, target); err != nil {
				return nil, 0, errors.Wrap(err, "update order status")
			}
		}
		resulting = target
	}

	if resulting != order.StatusPaid {
		return updated, 0, nil
	}
	granted, err := library.Grant(ctx, tx, o.UserID, o.ID, o.AppIDs())
	if err != nil {
		return nil, 0, errors.Wrap(err, "grant library")
	}
	return updated, granted, nil
}

// Get returns a payment with its order and buyer. Admin only.
func (l *Ledger) Get(ctx context.Context, p auth.Principal, id int64) (*Summary, error) {
	if !p.IsAdmin() {
		return nil, auth.ErrAccessDenied
	}
	s, err := l.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get payment")
	}
	return s, nil
}

// List returns payments, optionally filtered by status. Admin only.
func (l *Ledger) List(ctx context.Context, p auth.Principal, status string, req page.Request) ([]Summary, int, error) {
	if !p.IsAdmin() {
		return nil, 0, auth.ErrAccessDenied
	}
	var st Status
	if status != "" {
		var err error
		if st, err = ParseStatus(status); err != nil {
			return nil, 0, err
		}
	}
	items, total, err := l.repo.List(ctx, st, req.Normalize())
	if err != nil {
		return nil, 0, errors.Wrap(err, "list payments")
	}
	return items, total, nil
}

// ListPending returns payments still awaiting settlement. Admin only.
func (l *Ledger) ListPending(ctx context.Context, p auth.Principal, req page.Request) ([]Summary, int, error) {
	return l.List(ctx, p, string(StatusInitiated), req)
}

// Methods lists the supported payment methods.
func (l *Ledger) Methods(ctx context.Context) ([]Method, error) {
	m, err := l.repo.Methods(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list payment methods")
	}
	return m, nil
}

func recordErr(span trace.Span, err error) {
	if apperr.CodeOf(err) != apperr.Internal {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
