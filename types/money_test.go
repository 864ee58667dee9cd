package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"USD", USD(999), 999, "usd", "$9.99"},
		{"EUR", EUR(1999), 1999, "eur", "€19.99"},
		{"GBP", GBP(4999), 4999, "gbp", "£49.99"},
		{"JPY", JPY(100), 100, "jpy", "¥100"},
		{"CNY", CNY(2800), 2800, "cny", "¥28.00"},
		{"Zero USD", Zero("USD"), 0, "usd", "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return USD(100).Add(USD(200)) }, USD(300)},
		{"Subtract", func() Money { return USD(500).Subtract(USD(200)) }, USD(300)},
		{"Multiply", func() Money { return USD(100).Multiply(3) }, USD(300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	// This should panic
	_ = USD(100).Add(EUR(100))
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", USD(100), USD(100), false, false, true},
		{"Less", USD(50), USD(100), true, false, false},
		{"Greater", USD(200), USD(100), false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		name  string
		money Money
		want  string
	}{
		{"TwoDecimals", USD(999), "9.99"},
		{"LeadingZeroMinor", USD(1005), "10.05"},
		{"ZeroDecimals", JPY(480), "480"},
		{"Negative", USD(-250), "-2.50"},
		{"Zero", Zero("usd"), "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.want {
				t.Errorf("FormatMajor: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMoneyMarshalJSON(t *testing.T) {
	data, err := json.Marshal(USD(999))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"display":"$9.99"`) {
		t.Errorf("expected display field in JSON, got %s", data)
	}
	if !strings.Contains(string(data), `"amount":999`) {
		t.Errorf("expected amount field in JSON, got %s", data)
	}
}

func TestUnknownCurrencyFallback(t *testing.T) {
	m := Money{Amount: 1500, Currency: "sek"}
	if got := m.String(); got != "SEK 15.00" {
		t.Errorf("unknown currency fallback: got %q", got)
	}
}
