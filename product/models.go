package product

import (
	"slices"

	"github.com/xraph/storefront/types"
)

// Kind classifies how a product is owned once purchased.
type Kind string

const (
	// KindConsumable products can be purchased repeatedly and are not
	// tracked as standing entitlements (e.g. in-app currency).
	KindConsumable Kind = "consumable"
	// KindNonConsumable products are purchased once and owned forever.
	KindNonConsumable Kind = "non_consumable"
	// KindAutoRenewable products are subscription tiers; tiers sharing a
	// subscription group are mutually exclusive.
	KindAutoRenewable Kind = "auto_renewable"
)

// Period is the billing period of a subscription product.
type Period string

const (
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
	PeriodNone    Period = "none"
)

// OfferType distinguishes introductory offers from promotional ones.
type OfferType string

const (
	OfferIntroductory OfferType = "introductory"
	OfferPromotional  OfferType = "promotional"
)

// PaymentMode describes how an offer is paid.
type PaymentMode string

const (
	PaymentFreeTrial  PaymentMode = "free_trial"
	PaymentPayAsYouGo PaymentMode = "pay_as_you_go"
	PaymentPayUpFront PaymentMode = "pay_up_front"
)

// Offer is a discounted introductory or promotional price attached to a
// subscription product.
type Offer struct {
	ID          string      `json:"id,omitempty"`
	Type        OfferType   `json:"type"`
	DisplayName string      `json:"display_name,omitempty"`
	Price       types.Money `json:"price"`
	PaymentMode PaymentMode `json:"payment_mode"`
	PeriodDays  int         `json:"period_days"`
}

// Product is an immutable catalog entry fetched from the platform store.
type Product struct {
	ID                  string            `json:"id"`
	DisplayName         string            `json:"display_name"`
	Description         string            `json:"description,omitempty"`
	Kind                Kind              `json:"kind"`
	Price               types.Money       `json:"price"`
	SubscriptionGroupID string            `json:"subscription_group_id,omitempty"`
	SubscriptionPeriod  Period            `json:"subscription_period,omitempty"`
	IntroductoryOffer   *Offer            `json:"introductory_offer,omitempty"`
	PromotionalOffers   []Offer           `json:"promotional_offers,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// DisplayPrice returns the localized price string shown on purchase buttons.
func (p Product) DisplayPrice() string {
	return p.Price.String()
}

// IsSubscription reports whether the product is an auto-renewable tier.
func (p Product) IsSubscription() bool {
	return p.Kind == KindAutoRenewable
}

// HasIntroOffer reports whether the product carries an introductory offer.
func (p Product) HasIntroOffer() bool {
	return p.IntroductoryOffer != nil
}

// SortByPrice sorts products ascending by price in place.
// Products with mismatched currencies compare by raw amount.
func SortByPrice(products []Product) {
	slices.SortStableFunc(products, func(a, b Product) int {
		switch {
		case a.Price.Amount < b.Price.Amount:
			return -1
		case a.Price.Amount > b.Price.Amount:
			return 1
		default:
			return 0
		}
	})
}

// FindByID returns the product with the given ID, or nil.
func FindByID(products []Product, productID string) *Product {
	for i := range products {
		if products[i].ID == productID {
			return &products[i]
		}
	}
	return nil
}
