package payments

import (
	"strings"

	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
)

// OutcomeKind tags the single result a payment collector yields.
type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeDismissed OutcomeKind = "dismissed"
)

// SignatureBundle is the gateway's completion proof.
type SignatureBundle struct {
	GatewayOrderID   string `json:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId"`
	Signature        string `json:"signature"`
}

// Outcome is exactly one of Completed(bundle), Failed(reason) or Dismissed.
type Outcome struct {
	Kind      OutcomeKind
	Signature SignatureBundle
	Reason    string
}

// Completed reports a finished gateway payment.
func Completed(bundle SignatureBundle) Outcome {
	return Outcome{Kind: OutcomeCompleted, Signature: bundle}
}

// Failed reports a gateway-side failure. The reason is shown to the user verbatim.
func Failed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}

// Dismissed reports that the user closed the collector.
func Dismissed() Outcome {
	return Outcome{Kind: OutcomeDismissed}
}

// Validate checks the variant carries what it needs.
func (o Outcome) Validate() error {
	switch o.Kind {
	case OutcomeCompleted:
		var missing []string
		if strings.TrimSpace(o.Signature.GatewayOrderID) == "" {
			missing = append(missing, "gatewayOrderId")
		}
		if strings.TrimSpace(o.Signature.GatewayPaymentID) == "" {
			missing = append(missing, "gatewayPaymentId")
		}
		if strings.TrimSpace(o.Signature.Signature) == "" {
			missing = append(missing, "signature")
		}
		if len(missing) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "completed outcome is missing signature fields").
				WithDetails(map[string]any{"missing": missing})
		}
		return nil
	case OutcomeFailed, OutcomeDismissed:
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment outcome").
			WithDetails(map[string]any{"kind": string(o.Kind)})
	}
}

// FailureReason returns the reason with a fallback for empty gateway messages.
func (o Outcome) FailureReason() string {
	if reason := strings.TrimSpace(o.Reason); reason != "" {
		return reason
	}
	return "payment failed"
}
