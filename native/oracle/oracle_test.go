package oracle

import (
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestManualSetDecimal(t *testing.T) {
	manual := NewManual()
	if err := manual.SetDecimal("bvt", "12.5", time.Now()); err != nil {
		t.Fatalf("set decimal: %v", err)
	}
	quote, err := manual.PriceUSD("BVT")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if quote.PriceUSD.Cmp(big.NewInt(12_500_000)) != 0 {
		t.Fatalf("unexpected price: %s", quote.PriceUSD)
	}
	if quote.Source != "manual" {
		t.Fatalf("unexpected source: %s", quote.Source)
	}
}

func TestManualRejectsInvalidPrice(t *testing.T) {
	manual := NewManual()
	if err := manual.SetDecimal("BVT", "-3", time.Now()); err == nil {
		t.Fatal("expected error for negative price")
	}
	if err := manual.SetDecimal("BVT", "abc", time.Now()); err == nil {
		t.Fatal("expected error for malformed price")
	}
}

type staleFeed struct{}

func (staleFeed) PriceUSD(string) (Quote, error) {
	return Quote{PriceUSD: big.NewInt(1_000_000), Timestamp: time.Now().Add(-time.Hour), Source: "stale"}, nil
}

func TestAggregatorFreshnessWindow(t *testing.T) {
	agg := NewAggregator([]string{"stale", "manual"}, time.Minute)
	agg.Register("stale", staleFeed{})
	manual := NewManual()
	manual.Set("LP", big.NewInt(42_000_000), time.Now())
	agg.Register("manual", manual)

	quote, err := agg.PriceUSD("LP")
	if err != nil {
		t.Fatalf("aggregate price: %v", err)
	}
	if quote.Source != "manual" {
		t.Fatalf("expected manual feed to win, got %s", quote.Source)
	}
	if quote.PriceUSD.Cmp(big.NewInt(42_000_000)) != 0 {
		t.Fatalf("unexpected price: %s", quote.PriceUSD)
	}
}

func TestAggregatorNoFreshQuote(t *testing.T) {
	agg := NewAggregator([]string{"stale"}, time.Minute)
	agg.Register("stale", staleFeed{})
	if _, err := agg.PriceUSD("LP"); !errors.Is(err, ErrNoFreshQuote) {
		t.Fatalf("expected ErrNoFreshQuote, got %v", err)
	}
}

func TestAggregatorPriorityOrder(t *testing.T) {
	primary := NewManual()
	primary.Set("BVT", big.NewInt(10_000_000), time.Now())
	secondary := NewManual()
	secondary.Set("BVT", big.NewInt(99_000_000), time.Now())

	agg := NewAggregator([]string{"primary", "secondary"}, 0)
	agg.Register("primary", primary)
	agg.Register("secondary", secondary)

	quote, err := agg.PriceUSD("bvt")
	if err != nil {
		t.Fatalf("aggregate price: %v", err)
	}
	if quote.PriceUSD.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("priority not respected: %s", quote.PriceUSD)
	}
}
