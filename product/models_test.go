package product

import (
	"testing"

	"github.com/xraph/storefront/types"
)

func TestSortByPrice(t *testing.T) {
	products := []Product{
		{ID: "yearly", Price: types.USD(4999)},
		{ID: "coins", Price: types.USD(99)},
		{ID: "lifetime", Price: types.USD(9999)},
		{ID: "monthly", Price: types.USD(599)},
	}

	SortByPrice(products)

	want := []string{"coins", "monthly", "yearly", "lifetime"}
	for i, id := range want {
		if products[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, products[i].ID, id)
		}
	}
}

func TestFindByID(t *testing.T) {
	products := []Product{
		{ID: "coins"},
		{ID: "lifetime"},
	}

	tests := []struct {
		name  string
		id    string
		found bool
	}{
		{"Present", "lifetime", true},
		{"Absent", "monthly", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindByID(products, tt.id)
			if (got != nil) != tt.found {
				t.Errorf("FindByID(%q): got %v, want found=%v", tt.id, got, tt.found)
			}
			if got != nil && got.ID != tt.id {
				t.Errorf("FindByID(%q) returned product %q", tt.id, got.ID)
			}
		})
	}
}

func TestProductPredicates(t *testing.T) {
	intro := &Offer{Type: OfferIntroductory, PaymentMode: PaymentFreeTrial, PeriodDays: 7}
	sub := Product{ID: "monthly", Kind: KindAutoRenewable, IntroductoryOffer: intro, Price: types.USD(599)}
	coins := Product{ID: "coins", Kind: KindConsumable, Price: types.USD(99)}

	if !sub.IsSubscription() {
		t.Error("auto-renewable product should be a subscription")
	}
	if coins.IsSubscription() {
		t.Error("consumable product should not be a subscription")
	}
	if !sub.HasIntroOffer() {
		t.Error("expected intro offer")
	}
	if coins.HasIntroOffer() {
		t.Error("unexpected intro offer")
	}
	if sub.DisplayPrice() != "$5.99" {
		t.Errorf("DisplayPrice: got %q", sub.DisplayPrice())
	}
}
