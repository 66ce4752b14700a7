package oracle

import (
	"fmt"
	"math/big"
)

// Source adapts a PriceOracle to the flat price interface the engines
// consume: just the 6-decimal USD price, freshness already enforced
// upstream.
type Source struct {
	oracle PriceOracle
}

// NewSource wraps the provided oracle.
func NewSource(o PriceOracle) *Source {
	return &Source{oracle: o}
}

// PriceUSD returns the USD price for the asset.
func (s *Source) PriceUSD(asset string) (*big.Int, error) {
	if s == nil || s.oracle == nil {
		return nil, fmt.Errorf("oracle source not configured")
	}
	quote, err := s.oracle.PriceUSD(asset)
	if err != nil {
		return nil, err
	}
	if quote.PriceUSD == nil || quote.PriceUSD.Sign() <= 0 {
		return nil, fmt.Errorf("oracle source: invalid price for %s", asset)
	}
	return new(big.Int).Set(quote.PriceUSD), nil
}
