package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/bookstore-storefront/internal/address"
	"github.com/angelmondragon/bookstore-storefront/internal/payments"
	"github.com/angelmondragon/bookstore-storefront/pkg/auth"
	"github.com/angelmondragon/bookstore-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/angelmondragon/bookstore-storefront/pkg/logger"
	"github.com/angelmondragon/bookstore-storefront/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ProfileSource fetches the signed-in user's profile.
type ProfileSource interface {
	GetProfile(ctx context.Context) (types.Profile, error)
}

// PaymentService is the remote order surface. payments.IntentClient satisfies it.
type PaymentService interface {
	RequestPaymentOrder(ctx context.Context, req payments.IntentRequest) (types.PaymentOrder, error)
	PlaceCODOrder(ctx context.Context, req payments.IntentRequest) (types.Order, error)
	Verify(ctx context.Context, orderID string, bundle payments.SignatureBundle) (types.Order, error)
}

// Ledger persists every transition. Failures are logged and never change the outcome.
type Ledger interface {
	RecordTransition(ctx context.Context, attempt Attempt) error
}

// Metrics observes attempts and remote stages.
type Metrics interface {
	IncAttempt(method, state string)
	ObserveStage(stage string, err error, duration time.Duration)
}

// StartInput begins a checkout for the session carried by ctx.
type StartInput struct {
	Cart   CartSource
	Method enums.PaymentMethod
	// Address overrides the saved profile address when set.
	Address *types.Address
}

// DefaultPaymentWindow bounds how long an attempt waits on the payment collector.
const DefaultPaymentWindow = 20 * time.Minute

// Orchestrator drives checkout attempts from cart load to a settled state.
type Orchestrator struct {
	profiles      ProfileSource
	payments      PaymentService
	guard         Guard
	ledger        Ledger
	metrics       Metrics
	logg          *logger.Logger
	gateway       payments.GatewayIdentity
	paymentWindow time.Duration
	now           func() time.Time
	newID         func() string

	mu      sync.RWMutex
	entries map[string]*entry
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithGuard replaces the in-process single-flight guard.
func WithGuard(g Guard) Option {
	return func(o *Orchestrator) {
		if g != nil {
			o.guard = g
		}
	}
}

// WithLedger records transitions.
func WithLedger(l Ledger) Option {
	return func(o *Orchestrator) {
		o.ledger = l
	}
}

// WithMetrics observes attempts.
func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logg = l
		}
	}
}

// WithGateway sets the public merchant identity handed to the collector.
func WithGateway(g payments.GatewayIdentity) Option {
	return func(o *Orchestrator) {
		o.gateway = g
	}
}

// WithPaymentWindow sets how long an attempt may await external payment before it
// is cancelled. Keep it shorter than the guard TTL.
func WithPaymentWindow(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.paymentWindow = d
		}
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides attempt id generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// NewOrchestrator wires the orchestrator.
func NewOrchestrator(profiles ProfileSource, paymentSvc PaymentService, opts ...Option) (*Orchestrator, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile source required")
	}
	if paymentSvc == nil {
		return nil, fmt.Errorf("payment service required")
	}
	o := &Orchestrator{
		profiles:      profiles,
		payments:      paymentSvc,
		guard:         NewMemoryGuard(),
		logg:          logger.Nop(),
		paymentWindow: DefaultPaymentWindow,
		now:           time.Now,
		newID:         uuid.NewString,
		entries:       make(map[string]*entry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// Start runs a new attempt until it waits on the payment collector or settles.
// Remote failures end up on the attempt; the returned error covers only requests
// that could not start (no session, bad input, another attempt in progress).
func (o *Orchestrator) Start(ctx context.Context, in StartInput) (Attempt, error) {
	cred, err := auth.RequireCredential(ctx, o.now())
	if err != nil {
		return Attempt{}, err
	}
	if in.Cart == nil {
		return Attempt{}, pkgerrors.New(pkgerrors.CodeInternal, "cart source required")
	}
	if !in.Method.IsValid() {
		return Attempt{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").
			WithDetails(map[string]any{"paymentMethod": string(in.Method)})
	}

	now := o.now()
	e := &entry{
		attempt: Attempt{
			ID:        o.newID(),
			SessionID: cred.SessionID(),
			UserID:    cred.UserID(),
			Method:    in.Method,
			State:     StateIdle,
			CreatedAt: now,
			UpdatedAt: now,
		},
		cart:    in.Cart,
		contact: cred.Claims.Contact(),
	}
	if in.Address != nil {
		addr := in.Address.Normalized()
		e.attempt.Address = &addr
	}
	ctx = o.scope(ctx, e)

	holder, ok, err := o.guard.Acquire(ctx, e.attempt.SessionID, e.attempt.ID)
	if err != nil {
		return Attempt{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout guard unavailable")
	}
	if !ok {
		return Attempt{}, pkgerrors.New(pkgerrors.CodeConflict, "a checkout is already in progress").
			WithDetails(map[string]any{"attemptId": holder})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	o.register(e)

	o.runFromContext(ctx, e)
	return e.attempt.clone(), nil
}

// Resolve applies the collector's outcome to an attempt awaiting external payment.
func (o *Orchestrator) Resolve(ctx context.Context, attemptID string, outcome payments.Outcome) (Attempt, error) {
	if err := outcome.Validate(); err != nil {
		return Attempt{}, err
	}
	e, err := o.lookup(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx = o.scope(ctx, e)

	if e.attempt.State != StateAwaitingExternalPayment {
		return e.attempt.clone(), stateConflict(e.attempt, "checkout attempt is not awaiting payment")
	}
	if err := o.confirmClaim(ctx, e); err != nil {
		return e.attempt.clone(), err
	}

	switch outcome.Kind {
	case payments.OutcomeCompleted:
		o.verify(ctx, e, outcome.Signature)
	case payments.OutcomeFailed:
		o.abandon(e)
		o.fail(ctx, e, Failure{
			Kind:      FailurePayment,
			Code:      pkgerrors.CodePaymentFailed,
			Reason:    outcome.FailureReason(),
			Retryable: true,
			Stage:     StateAwaitingExternalPayment,
		})
	case payments.OutcomeDismissed:
		o.abandon(e)
		o.transition(ctx, e, StateCancelled)
	}
	return e.attempt.clone(), nil
}

// Retry re-enters a failed or cancelled attempt. Online attempts always request a new
// payment order against a freshly loaded cart.
func (o *Orchestrator) Retry(ctx context.Context, attemptID string) (Attempt, error) {
	e, err := o.lookup(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx = o.scope(ctx, e)

	if !e.attempt.CanRetry() {
		return e.attempt.clone(), stateConflict(e.attempt, "checkout attempt cannot be retried")
	}

	holder, ok, err := o.guard.Acquire(ctx, e.attempt.SessionID, e.attempt.ID)
	if err != nil {
		return e.attempt.clone(), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout guard unavailable")
	}
	if !ok {
		return e.attempt.clone(), pkgerrors.New(pkgerrors.CodeConflict, "a checkout is already in progress").
			WithDetails(map[string]any{"attemptId": holder})
	}

	o.abandon(e)
	gatePassed := e.attempt.Failure == nil || gateStageReached(e.attempt.Failure.Stage)
	e.attempt.Failure = nil
	e.attempt.Order = nil

	switch {
	case !gatePassed:
		o.runFromContext(ctx, e)
	case e.attempt.Method.RequiresCollection():
		o.requestIntent(ctx, e, true)
	default:
		o.placeCOD(ctx, e, true)
	}
	return e.attempt.clone(), nil
}

// Cancel abandons an attempt awaiting external payment. Settled attempts are returned as is.
func (o *Orchestrator) Cancel(ctx context.Context, attemptID string) (Attempt, error) {
	e, err := o.lookup(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ctx = o.scope(ctx, e)

	switch {
	case e.attempt.State == StateAwaitingExternalPayment:
		o.abandon(e)
		o.transition(ctx, e, StateCancelled)
	case e.attempt.State.Settled():
	default:
		return e.attempt.clone(), stateConflict(e.attempt, "checkout attempt is still running")
	}
	return e.attempt.clone(), nil
}

// Run drives a whole attempt with an in-process collector.
func (o *Orchestrator) Run(ctx context.Context, in StartInput, collector payments.Collector) (Attempt, error) {
	if collector == nil {
		return Attempt{}, pkgerrors.New(pkgerrors.CodeInternal, "payment collector required")
	}
	attempt, err := o.Start(ctx, in)
	if err != nil || attempt.State != StateAwaitingExternalPayment {
		return attempt, err
	}

	outcome, err := collector.Collect(ctx, *attempt.Collection)
	if err != nil {
		o.logg.Warn(o.logg.WithFields(ctx, map[string]any{"attempt_id": attempt.ID, "error": err.Error()}), "payment collector error")
		outcome = payments.Failed("payment could not be collected")
	} else if vErr := outcome.Validate(); vErr != nil {
		o.logg.Warn(o.logg.WithFields(ctx, map[string]any{"attempt_id": attempt.ID, "error": vErr.Error()}), "payment collector returned an invalid outcome")
		outcome = payments.Failed("payment collector returned an invalid result")
	}
	return o.Resolve(ctx, attempt.ID, outcome)
}

// Attempt returns the latest published view of an attempt owned by the session in ctx.
func (o *Orchestrator) Attempt(ctx context.Context, attemptID string) (Attempt, error) {
	e, err := o.lookup(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	return e.view.clone(), nil
}

// Prune forgets settled attempts untouched since before cutoff and returns how many were dropped.
func (o *Orchestrator) Prune(cutoff time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	dropped := 0
	for id, e := range o.entries {
		e.viewMu.RLock()
		stale := e.view.State.Settled() && e.view.UpdatedAt.Before(cutoff)
		e.viewMu.RUnlock()
		if stale {
			delete(o.entries, id)
			dropped++
		}
	}
	return dropped
}

// ExpireWaiting cancels attempts that entered awaiting external payment before cutoff
// and returns how many were cancelled. Their payment orders are abandoned and their
// session claims released.
func (o *Orchestrator) ExpireWaiting(ctx context.Context, cutoff time.Time) int {
	o.mu.RLock()
	candidates := make([]*entry, 0, len(o.entries))
	for _, e := range o.entries {
		e.viewMu.RLock()
		waiting := e.view.State == StateAwaitingExternalPayment && e.view.UpdatedAt.Before(cutoff)
		e.viewMu.RUnlock()
		if waiting {
			candidates = append(candidates, e)
		}
	}
	o.mu.RUnlock()

	expired := 0
	for _, e := range candidates {
		e.mu.Lock()
		// Resolve or Cancel may have moved it while the lock was free.
		if e.attempt.State == StateAwaitingExternalPayment && e.attempt.UpdatedAt.Before(cutoff) {
			o.expire(o.scope(ctx, e), e, "payment window elapsed")
			expired++
		}
		e.mu.Unlock()
	}
	return expired
}

func (o *Orchestrator) runFromContext(ctx context.Context, e *entry) {
	if !o.loadContext(ctx, e) {
		return
	}
	o.checkAddress(ctx, e)
}

// loadContext fetches cart and profile concurrently; both must succeed.
func (o *Orchestrator) loadContext(ctx context.Context, e *entry) bool {
	o.transition(ctx, e, StateLoadingContext)

	var (
		cart    types.Cart
		profile types.Profile
	)
	started := o.now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := e.cart.Load(gctx)
		if err != nil {
			return err
		}
		cart = c
		return nil
	})
	g.Go(func() error {
		p, err := o.profiles.GetProfile(gctx)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	err := g.Wait()
	o.observe("load_context", err, started)
	if err != nil {
		o.fail(ctx, e, classify(StateLoadingContext, err))
		return false
	}

	e.attempt.Cart = cart
	e.attempt.Profile = profile
	o.transition(ctx, e, StateAddressCheck)
	return true
}

func (o *Orchestrator) checkAddress(ctx context.Context, e *entry) {
	addr := e.attempt.Profile.SavedAddress()
	if e.attempt.Address != nil {
		addr = *e.attempt.Address
	}
	if !address.CanCheckout(addr) {
		e.attempt.MissingFields = address.MissingFields(addr)
		o.transition(ctx, e, StateAddressRequired)
		return
	}
	e.attempt.MissingFields = nil

	if e.attempt.Method.RequiresCollection() {
		o.requestIntent(ctx, e, false)
		return
	}
	o.placeCOD(ctx, e, false)
}

func (o *Orchestrator) requestIntent(ctx context.Context, e *entry, reloadCart bool) {
	o.transition(ctx, e, StateAwaitingPaymentIntent)
	if reloadCart && !o.reloadCart(ctx, e) {
		return
	}
	if e.attempt.Cart.IsEmpty() {
		o.fail(ctx, e, emptyCartFailure(StateAwaitingPaymentIntent))
		return
	}

	e.attempt.IntentSequence++
	started := o.now()
	order, err := o.payments.RequestPaymentOrder(ctx, o.intentRequest(e))
	o.observe("payment_intent", err, started)
	if err != nil {
		o.fail(ctx, e, classify(StateAwaitingPaymentIntent, err))
		return
	}

	if !order.Amount.Equal(e.attempt.Cart.FinalTotal) {
		e.attempt.AbandonedOrderRefs = append(e.attempt.AbandonedOrderRefs, order.GatewayOrderRef)
		o.logg.Warn(o.logg.WithFields(ctx, map[string]any{
			"order_amount": order.Amount.String(),
			"cart_total":   e.attempt.Cart.FinalTotal.String(),
		}), "payment order amount does not match cart total")
		o.fail(ctx, e, Failure{
			Kind:      FailureValidation,
			Code:      pkgerrors.CodeValidation,
			Reason:    "your cart total changed, please review your cart and try again",
			Retryable: true,
			Stage:     StateAwaitingPaymentIntent,
		})
		return
	}

	collection, err := payments.NewCollectionRequest(order, o.prefill(e), o.gateway)
	if err != nil {
		e.attempt.AbandonedOrderRefs = append(e.attempt.AbandonedOrderRefs, order.GatewayOrderRef)
		o.fail(ctx, e, classify(StateAwaitingPaymentIntent, err))
		return
	}

	e.attempt.PaymentOrder = &order
	e.attempt.Collection = &collection
	o.transition(ctx, e, StateAwaitingExternalPayment)
}

func (o *Orchestrator) placeCOD(ctx context.Context, e *entry, reloadCart bool) {
	o.transition(ctx, e, StatePlacingCODOrder)
	if reloadCart && !o.reloadCart(ctx, e) {
		return
	}
	if e.attempt.Cart.IsEmpty() {
		o.fail(ctx, e, emptyCartFailure(StatePlacingCODOrder))
		return
	}

	// An unanswered request may still have created the order, so it is resent
	// under the same idempotency key.
	if !e.codUnanswered {
		e.attempt.IntentSequence++
	}
	started := o.now()
	order, err := o.payments.PlaceCODOrder(ctx, o.intentRequest(e))
	o.observe("cod_order", err, started)
	if err != nil {
		f := classify(StatePlacingCODOrder, err)
		e.codUnanswered = f.Kind == FailureNetwork
		o.fail(ctx, e, f)
		return
	}
	e.codUnanswered = false

	e.attempt.Order = &order
	o.transition(ctx, e, StateFinalized)
}

// verify submits the bundle exactly once. A client disconnect must not abort a
// verification that may already have moved money.
func (o *Orchestrator) verify(ctx context.Context, e *entry, bundle payments.SignatureBundle) {
	e.attempt.Signature = &bundle
	o.transition(ctx, e, StateVerifyingPayment)

	started := o.now()
	order, err := o.payments.Verify(context.WithoutCancel(ctx), e.attempt.PaymentOrder.OrderID, bundle)
	o.observe("verify_payment", err, started)
	if err != nil {
		o.logg.Error(ctx, "payment verification failed", err)
		o.fail(ctx, e, verificationFailure(err))
		return
	}

	e.attempt.Order = &order
	e.attempt.Collection = nil
	o.transition(ctx, e, StateFinalized)
}

func (o *Orchestrator) reloadCart(ctx context.Context, e *entry) bool {
	cart, err := e.cart.Load(ctx)
	if err != nil {
		o.fail(ctx, e, classify(e.attempt.State, err))
		return false
	}
	e.attempt.Cart = cart
	return true
}

func (o *Orchestrator) intentRequest(e *entry) payments.IntentRequest {
	return payments.IntentRequest{
		AttemptID: e.attempt.ID,
		Sequence:  e.attempt.IntentSequence,
		Address:   e.attempt.Address,
	}
}

// prefill prefers profile contact data and falls back to the session token.
func (o *Orchestrator) prefill(e *entry) auth.Contact {
	contact := e.contact
	p := e.attempt.Profile
	if name := strings.TrimSpace(p.Name); name != "" {
		contact.Name = name
	}
	if email := strings.TrimSpace(p.Email); email != "" {
		contact.Email = email
	}
	if phone := strings.TrimSpace(p.Phone); phone != "" {
		contact.Phone = phone
	}
	return contact
}

// confirmClaim checks that a waiting attempt is inside its payment window and still
// holds the session claim. An attempt that fails either check is cancelled.
func (o *Orchestrator) confirmClaim(ctx context.Context, e *entry) error {
	if o.paymentWindow > 0 && !o.now().Before(e.attempt.UpdatedAt.Add(o.paymentWindow)) {
		o.expire(ctx, e, "payment window elapsed")
		return stateConflict(e.attempt, "checkout attempt expired, please start again")
	}
	holder, ok, err := o.guard.Acquire(ctx, e.attempt.SessionID, e.attempt.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout guard unavailable")
	}
	if !ok {
		o.expire(ctx, e, "session claim lost")
		return pkgerrors.New(pkgerrors.CodeConflict, "another checkout has started for this session").
			WithDetails(map[string]any{"attemptId": holder, "state": string(e.attempt.State)})
	}
	return nil
}

// expire cancels a waiting attempt without contacting the payment service.
func (o *Orchestrator) expire(ctx context.Context, e *entry, why string) {
	fields := map[string]any{"reason": why}
	if e.attempt.PaymentOrder != nil {
		fields["gateway_order_ref"] = e.attempt.PaymentOrder.GatewayOrderRef
	}
	o.logg.Warn(o.logg.WithFields(ctx, fields), "waiting checkout attempt cancelled")
	o.abandon(e)
	o.transition(ctx, e, StateCancelled)
}

// abandon drops the current payment order; it is never reused.
func (o *Orchestrator) abandon(e *entry) {
	if e.attempt.PaymentOrder == nil {
		return
	}
	e.attempt.AbandonedOrderRefs = append(e.attempt.AbandonedOrderRefs, e.attempt.PaymentOrder.GatewayOrderRef)
	e.attempt.PaymentOrder = nil
	e.attempt.Collection = nil
}

func (o *Orchestrator) fail(ctx context.Context, e *entry, f Failure) {
	e.attempt.Failure = &f
	o.logg.Warn(o.logg.WithFields(ctx, map[string]any{
		"failure_kind":  string(f.Kind),
		"failure_code":  string(f.Code),
		"failure_stage": string(f.Stage),
	}), "checkout attempt failed")
	o.transition(ctx, e, StateFailed)
}

func (o *Orchestrator) transition(ctx context.Context, e *entry, next State) {
	from := e.attempt.State
	if !from.CanTransitionTo(next) {
		o.logg.Error(ctx, "checkout.illegal_transition", fmt.Errorf("%s -> %s", from, next))
	}
	now := o.now()
	e.attempt.History = append(e.attempt.History, Transition{From: from, To: next, At: now})
	e.attempt.State = next
	e.attempt.UpdatedAt = now
	o.publish(e)

	o.logg.Info(o.logg.WithFields(ctx, map[string]any{"from": string(from), "to": string(next)}), "checkout.transition")

	if o.ledger != nil {
		if err := o.ledger.RecordTransition(context.WithoutCancel(ctx), e.attempt.clone()); err != nil {
			o.logg.Error(ctx, "checkout ledger write failed", err)
		}
	}

	if next.Settled() {
		if o.metrics != nil {
			o.metrics.IncAttempt(string(e.attempt.Method), string(next))
		}
		if err := o.guard.Release(context.WithoutCancel(ctx), e.attempt.SessionID, e.attempt.ID); err != nil {
			o.logg.Error(ctx, "checkout guard release failed", err)
		}
	}
}

func (o *Orchestrator) observe(stage string, err error, started time.Time) {
	if o.metrics != nil {
		o.metrics.ObserveStage(stage, err, o.now().Sub(started))
	}
}

func (o *Orchestrator) publish(e *entry) {
	view := e.attempt.clone()
	e.viewMu.Lock()
	e.view = view
	e.viewMu.Unlock()
}

func (o *Orchestrator) register(e *entry) {
	o.publish(e)
	o.mu.Lock()
	o.entries[e.attempt.ID] = e
	o.mu.Unlock()
}

// lookup finds an attempt owned by the session in ctx. Other sessions' attempts are
// reported as not found.
func (o *Orchestrator) lookup(ctx context.Context, attemptID string) (*entry, error) {
	cred, err := auth.RequireCredential(ctx, o.now())
	if err != nil {
		return nil, err
	}
	o.mu.RLock()
	e, ok := o.entries[strings.TrimSpace(attemptID)]
	o.mu.RUnlock()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout attempt not found")
	}
	e.viewMu.RLock()
	owner := e.view.SessionID
	e.viewMu.RUnlock()
	if owner != cred.SessionID() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout attempt not found")
	}
	return e, nil
}

func (o *Orchestrator) scope(ctx context.Context, e *entry) context.Context {
	ctx = o.logg.WithSessionID(ctx, e.attempt.SessionID)
	return o.logg.WithAttemptID(ctx, e.attempt.ID)
}

// gateStageReached reports whether a failure at stage happened after the address gate passed.
func gateStageReached(stage State) bool {
	switch stage {
	case StateIdle, StateLoadingContext, StateAddressCheck:
		return false
	}
	return true
}

func emptyCartFailure(stage State) Failure {
	return Failure{
		Kind:      FailureValidation,
		Code:      pkgerrors.CodeValidation,
		Reason:    "your cart is empty",
		Retryable: true,
		Stage:     stage,
	}
}

func stateConflict(a Attempt, msg string) error {
	details := map[string]any{"state": string(a.State)}
	if a.Failure != nil {
		details["failureKind"] = string(a.Failure.Kind)
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, msg).WithDetails(details)
}
