package orderresult

import (
	"net/url"
	"strings"

	"github.com/angelmondragon/bookstore-storefront/internal/checkout"
)

// Outcome is what the user is told happened.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeFailed          Outcome = "failed"
	OutcomeCancelled       Outcome = "cancelled"
	OutcomeAddressRequired Outcome = "address_required"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomePending         Outcome = "pending"
)

// ActionKind names a follow-up the user can take.
type ActionKind string

const (
	ActionViewOrder      ActionKind = "view_order"
	ActionRetry          ActionKind = "retry"
	ActionContactSupport ActionKind = "contact_support"
	ActionEditAddress    ActionKind = "edit_address"
	ActionSignIn         ActionKind = "sign_in"
	ActionReviewCart     ActionKind = "review_cart"
	ActionPay            ActionKind = "pay"
)

// Action is one affordance on the result view.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label"`
	Href  string     `json:"href,omitempty"`
}

// Navigation is where the client should route next.
type Navigation struct {
	Route   string `json:"route"`
	Replace bool   `json:"replace"`
}

// Presentation is the user-facing reading of an attempt.
type Presentation struct {
	AttemptID     string      `json:"attemptId"`
	Outcome       Outcome     `json:"outcome"`
	Title         string      `json:"title"`
	Message       string      `json:"message"`
	Actions       []Action    `json:"actions"`
	Navigation    *Navigation `json:"navigation,omitempty"`
	OrderID       string      `json:"orderId,omitempty"`
	OrderNumber   string      `json:"orderNumber,omitempty"`
	MissingFields []string    `json:"missingFields,omitempty"`
}

// Routes are the client paths the handler navigates to.
type Routes struct {
	Confirmation string // contains {orderID}
	Cart         string
	Address      string
	Login        string
	Support      string
}

// DefaultRoutes are the storefront SPA routes.
func DefaultRoutes() Routes {
	return Routes{
		Confirmation: "/orders/{orderID}/confirmation",
		Cart:         "/cart",
		Address:      "/checkout/address",
		Login:        "/login",
		Support:      "/support",
	}
}

// Handler maps attempts to presentations. It performs no I/O.
type Handler struct {
	routes Routes
}

// NewHandler builds a Handler. Empty route fields fall back to DefaultRoutes.
func NewHandler(routes Routes) *Handler {
	def := DefaultRoutes()
	if routes.Confirmation == "" {
		routes.Confirmation = def.Confirmation
	}
	if routes.Cart == "" {
		routes.Cart = def.Cart
	}
	if routes.Address == "" {
		routes.Address = def.Address
	}
	if routes.Login == "" {
		routes.Login = def.Login
	}
	if routes.Support == "" {
		routes.Support = def.Support
	}
	return &Handler{routes: routes}
}

// Present maps a. Attempts that have not settled yield OutcomePending with no navigation.
func (h *Handler) Present(a checkout.Attempt) Presentation {
	p := Presentation{AttemptID: a.ID, Actions: []Action{}}

	switch a.State {
	case checkout.StateFinalized:
		h.success(&p, a)
	case checkout.StateFailed:
		h.failed(&p, a)
	case checkout.StateCancelled:
		p.Outcome = OutcomeCancelled
		p.Title = "Payment cancelled"
		p.Message = "No payment was taken. You can try again whenever you are ready."
		p.Actions = append(p.Actions,
			Action{Kind: ActionRetry, Label: "Try again"},
			Action{Kind: ActionReviewCart, Label: "Back to cart", Href: h.routes.Cart},
		)
	case checkout.StateAddressRequired:
		p.Outcome = OutcomeAddressRequired
		p.Title = "Delivery address needed"
		p.Message = "Please complete your delivery address to continue."
		p.MissingFields = append([]string(nil), a.MissingFields...)
		p.Actions = append(p.Actions, Action{Kind: ActionEditAddress, Label: "Add address", Href: h.routes.Address})
		p.Navigation = &Navigation{Route: h.routes.Address}
	default:
		p.Outcome = OutcomePending
		p.Title = "Processing"
		p.Message = "Your checkout is in progress."
		if a.State == checkout.StateAwaitingExternalPayment {
			p.Actions = append(p.Actions, Action{Kind: ActionPay, Label: "Pay now"})
		}
	}
	return p
}

func (h *Handler) success(p *Presentation, a checkout.Attempt) {
	p.Outcome = OutcomeSuccess
	p.Title = "Order placed"
	if a.Order == nil {
		p.Message = "Your order has been placed."
		return
	}
	p.OrderID = a.Order.ID
	p.OrderNumber = a.Order.OrderNumber
	p.Message = "Your order has been placed."
	if a.Order.OrderNumber != "" {
		p.Message = "Your order " + a.Order.OrderNumber + " has been placed."
	}
	route := h.confirmation(a.Order.ID)
	p.Actions = append(p.Actions, Action{Kind: ActionViewOrder, Label: "View order", Href: route})
	p.Navigation = &Navigation{Route: route, Replace: true}
}

func (h *Handler) failed(p *Presentation, a checkout.Attempt) {
	p.Outcome = OutcomeFailed
	f := a.Failure
	if f == nil {
		p.Title = "Checkout failed"
		p.Message = "Something went wrong. Please try again."
		p.Actions = append(p.Actions, Action{Kind: ActionReviewCart, Label: "Back to cart", Href: h.routes.Cart})
		return
	}
	p.Message = f.Reason

	switch f.Kind {
	case checkout.FailureUnauthenticated:
		p.Outcome = OutcomeUnauthenticated
		p.Title = "Please sign in"
		p.Actions = append(p.Actions, Action{Kind: ActionSignIn, Label: "Sign in", Href: h.routes.Login})
		p.Navigation = &Navigation{Route: h.routes.Login}
		return
	case checkout.FailureVerification:
		p.Title = "We could not confirm your payment"
		p.Actions = append(p.Actions, Action{Kind: ActionContactSupport, Label: "Contact support", Href: h.supportLink(a)})
		return
	case checkout.FailurePayment:
		p.Title = "Payment failed"
	case checkout.FailureValidation:
		p.Title = "Please review your order"
		h.reviewNavigation(p, a)
		return
	default:
		p.Title = "Something went wrong"
	}

	if a.CanRetry() {
		p.Actions = append(p.Actions, Action{Kind: ActionRetry, Label: "Try again"})
	}
	p.Actions = append(p.Actions, Action{Kind: ActionReviewCart, Label: "Back to cart", Href: h.routes.Cart})
}

// reviewNavigation sends a rejected order back to whatever the backend objected to.
func (h *Handler) reviewNavigation(p *Presentation, a checkout.Attempt) {
	if a.CanRetry() {
		p.Actions = append(p.Actions, Action{Kind: ActionRetry, Label: "Try again"})
	}
	if addressRelated(a.Failure.Reason) {
		p.Actions = append(p.Actions, Action{Kind: ActionEditAddress, Label: "Edit address", Href: h.routes.Address})
		p.Navigation = &Navigation{Route: h.routes.Address}
		return
	}
	p.Actions = append(p.Actions, Action{Kind: ActionReviewCart, Label: "Back to cart", Href: h.routes.Cart})
	p.Navigation = &Navigation{Route: h.routes.Cart}
}

var addressTerms = []string{"address", "pincode", "pin code", "postal", "zip"}

func addressRelated(reason string) bool {
	reason = strings.ToLower(reason)
	for _, term := range addressTerms {
		if strings.Contains(reason, term) {
			return true
		}
	}
	return false
}

func (h *Handler) confirmation(orderID string) string {
	return strings.ReplaceAll(h.routes.Confirmation, "{orderID}", url.PathEscape(orderID))
}

// supportLink carries the references support needs to trace the payment.
func (h *Handler) supportLink(a checkout.Attempt) string {
	q := url.Values{}
	q.Set("attempt", a.ID)
	if a.PaymentOrder != nil {
		if a.PaymentOrder.OrderNumber != "" {
			q.Set("order", a.PaymentOrder.OrderNumber)
		}
		if a.PaymentOrder.GatewayOrderRef != "" {
			q.Set("gatewayOrder", a.PaymentOrder.GatewayOrderRef)
		}
	}
	return h.routes.Support + "?" + q.Encode()
}
