package checkout

import (
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
)

// FailureKind groups failures by what the user can do about them.
type FailureKind string

const (
	FailureUnauthenticated FailureKind = "unauthenticated"
	FailureNetwork         FailureKind = "network"
	FailureValidation      FailureKind = "validation"
	FailurePayment         FailureKind = "payment"
	FailureVerification    FailureKind = "verification"
)

// Failure is the typed reason carried by a failed attempt.
type Failure struct {
	Kind      FailureKind    `json:"kind"`
	Code      pkgerrors.Code `json:"code"`
	Reason    string         `json:"reason"`
	Retryable bool           `json:"retryable"`
	// Stage is the state the attempt was in when it failed.
	Stage State `json:"stage"`
}

// classify turns a remote error into a Failure. Transport detail never reaches Reason.
func classify(stage State, err error) Failure {
	code := pkgerrors.CodeOf(err)
	f := Failure{Code: code, Stage: stage, Reason: reasonFor(err, code)}
	switch code {
	case pkgerrors.CodeUnauthorized, pkgerrors.CodeForbidden:
		f.Kind = FailureUnauthenticated
	case pkgerrors.CodeValidation, pkgerrors.CodeConflict, pkgerrors.CodeNotFound, pkgerrors.CodeStateConflict:
		f.Kind = FailureValidation
		f.Retryable = true
	case pkgerrors.CodePaymentFailed, pkgerrors.CodePaymentOrderExpired:
		f.Kind = FailurePayment
		f.Retryable = true
	case pkgerrors.CodePaymentVerification:
		f.Kind = FailureVerification
	default:
		f.Kind = FailureNetwork
		f.Retryable = true
	}
	return f
}

// verificationFailure maps a failed verify call. An expired payment order is an
// ordinary payment failure; anything else may have moved money and goes to support.
func verificationFailure(err error) Failure {
	if pkgerrors.IsCode(err, pkgerrors.CodePaymentOrderExpired) {
		return classify(StateVerifyingPayment, err)
	}
	return Failure{
		Kind:   FailureVerification,
		Code:   pkgerrors.CodePaymentVerification,
		Reason: pkgerrors.MetadataFor(pkgerrors.CodePaymentVerification).PublicMessage,
		Stage:  StateVerifyingPayment,
	}
}

func reasonFor(err error, code pkgerrors.Code) string {
	switch code {
	case pkgerrors.CodeValidation, pkgerrors.CodeConflict, pkgerrors.CodeNotFound,
		pkgerrors.CodePaymentFailed, pkgerrors.CodeStateConflict:
		if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
			return typed.Message()
		}
	}
	return pkgerrors.MetadataFor(code).PublicMessage
}
