package transaction

import (
	"time"

	"github.com/xraph/storefront/product"
)

// Envelope is an opaque signed payload emitted by the platform store.
// Its contents must never be trusted before the verification gate has
// checked the signature.
type Envelope struct {
	JWS string `json:"jws"`
}

// IsZero reports whether the envelope carries no payload.
func (e Envelope) IsZero() bool { return e.JWS == "" }

// RenewalState is the platform-reported state of an auto-renewable
// subscription.
type RenewalState string

const (
	RenewalSubscribed     RenewalState = "subscribed"
	RenewalExpired        RenewalState = "expired"
	RenewalInBillingRetry RenewalState = "in_billing_retry"
	RenewalInGracePeriod  RenewalState = "in_grace_period"
	RenewalRevoked        RenewalState = "revoked"
	RenewalUnknown        RenewalState = "unknown"
)

// Transaction is a verified purchase record. Instances are produced only
// by the verification gate; application code never constructs one from an
// unchecked envelope.
type Transaction struct {
	ID                  string       `json:"id"`
	OriginalID          string       `json:"original_id,omitempty"`
	ProductID           string       `json:"product_id"`
	Kind                product.Kind `json:"kind"`
	SubscriptionGroupID string       `json:"subscription_group_id,omitempty"`
	PurchaseDate        time.Time    `json:"purchase_date"`
	ExpirationDate      *time.Time   `json:"expiration_date,omitempty"`
	RevocationDate      *time.Time   `json:"revocation_date,omitempty"`
	Upgraded            bool         `json:"upgraded"`
	RenewalState        RenewalState `json:"renewal_state,omitempty"`
	AutoRenewEnabled    bool         `json:"auto_renew_enabled,omitempty"`
	AppAccountToken     string       `json:"app_account_token,omitempty"`

	// Raw is the signed envelope the transaction was decoded from.
	Raw Envelope `json:"-"`
}

// IsRevoked reports whether the platform has revoked the transaction
// (refund, family-sharing removal) as of now.
func (t *Transaction) IsRevoked(now time.Time) bool {
	return t.RevocationDate != nil && !t.RevocationDate.After(now)
}

// IsUpgraded reports whether the transaction was superseded by a
// higher-priority tier in the same subscription group. The flag is
// supplied by the platform ledger, never computed locally.
func (t *Transaction) IsUpgraded() bool {
	return t.Upgraded
}

// Entitles reports whether the transaction grants a standing entitlement:
// a non-consumable or subscription transaction that has been neither
// revoked nor upgraded away. Consumables never entitle; they are granted
// once through the push path.
func (t *Transaction) Entitles(now time.Time) bool {
	if t.Kind == product.KindConsumable {
		return false
	}
	return !t.IsUpgraded() && !t.IsRevoked(now)
}
