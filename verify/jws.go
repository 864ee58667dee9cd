package verify

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xraph/storefront/product"
	"github.com/xraph/storefront/transaction"
)

// Claims is the JWS claim set carried by platform transaction envelopes.
// The store signs one Claims per transaction; the simulator in
// store/memory uses the same shape so that verification is exercised
// end-to-end in tests.
type Claims struct {
	jwt.RegisteredClaims

	TransactionID         string `json:"transactionId"`
	OriginalTransactionID string `json:"originalTransactionId,omitempty"`
	ProductID             string `json:"productId"`
	ProductKind           string `json:"productKind"`
	SubscriptionGroupID   string `json:"subscriptionGroupId,omitempty"`
	PurchaseDateMS        int64  `json:"purchaseDate"`
	ExpiresDateMS         int64  `json:"expiresDate,omitempty"`
	RevocationDateMS      int64  `json:"revocationDate,omitempty"`
	IsUpgraded            bool   `json:"isUpgraded,omitempty"`
	RenewalState          string `json:"renewalState,omitempty"`
	AutoRenewEnabled      bool   `json:"autoRenewEnabled,omitempty"`
	AppAccountToken       string `json:"appAccountToken,omitempty"`
}

// Transaction converts the claim set into the verified transaction model.
func (c *Claims) Transaction(raw transaction.Envelope) *transaction.Transaction {
	tx := &transaction.Transaction{
		ID:                  c.TransactionID,
		OriginalID:          c.OriginalTransactionID,
		ProductID:           c.ProductID,
		Kind:                product.Kind(c.ProductKind),
		SubscriptionGroupID: c.SubscriptionGroupID,
		PurchaseDate:        time.UnixMilli(c.PurchaseDateMS).UTC(),
		Upgraded:            c.IsUpgraded,
		RenewalState:        transaction.RenewalState(c.RenewalState),
		AutoRenewEnabled:    c.AutoRenewEnabled,
		AppAccountToken:     c.AppAccountToken,
		Raw:                 raw,
	}

	if c.ExpiresDateMS > 0 {
		t := time.UnixMilli(c.ExpiresDateMS).UTC()
		tx.ExpirationDate = &t
	}
	if c.RevocationDateMS > 0 {
		t := time.UnixMilli(c.RevocationDateMS).UTC()
		tx.RevocationDate = &t
	}

	return tx
}

// Ensure JWS implements Verifier at compile time.
var _ Verifier = (*JWS)(nil)

// JWS verifies ES256-signed transaction envelopes against a trusted
// ECDSA public key.
type JWS struct {
	key    *ecdsa.PublicKey
	issuer string
}

// JWSOption configures a JWS verifier.
type JWSOption func(*JWS)

// WithIssuer requires the envelope's "iss" claim to match issuer.
func WithIssuer(issuer string) JWSOption {
	return func(v *JWS) { v.issuer = issuer }
}

// NewJWS creates a verifier trusting the given ECDSA public key.
func NewJWS(key *ecdsa.PublicKey, opts ...JWSOption) *JWS {
	v := &JWS{key: key}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify implements Verifier. Any parse, signature, or claim failure is
// reported as ErrUnverified; the envelope contents are never returned
// partially decoded.
func (v *JWS) Verify(_ context.Context, env transaction.Envelope) (*transaction.Transaction, error) {
	if env.IsZero() {
		return nil, fmt.Errorf("%w: empty envelope", ErrUnverified)
	}

	claims := &Claims{}
	parseOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{"ES256"})}
	if v.issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(env.JWS, claims, func(_ *jwt.Token) (any, error) {
		return v.key, nil
	}, parseOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnverified, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnverified)
	}

	if claims.TransactionID == "" || claims.ProductID == "" {
		return nil, fmt.Errorf("%w: missing transaction identity", ErrUnverified)
	}

	return claims.Transaction(env), nil
}
