package rpc

import (
	"fmt"
	"math/big"
	"strings"

	"bondvault/crypto"
	"bondvault/native/bond"
)

// Amounts cross the wire as decimal strings so callers never lose precision
// to JSON number handling.

func parseAmount(amount string) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return nil, fmt.Errorf("amount is required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount")
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}

// parseNonNegative admits zero, for fields like minimum output bounds.
func parseNonNegative(amount string) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount")
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return value, nil
}

func parseAddress(addr string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return crypto.Address{}, fmt.Errorf("address is required")
	}
	return crypto.DecodeAddress(trimmed)
}

func parseParameter(name string) (bond.Parameter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "vesting":
		return bond.ParameterVesting, nil
	case "payout":
		return bond.ParameterPayout, nil
	case "fee":
		return bond.ParameterFee, nil
	case "debt":
		return bond.ParameterDebt, nil
	case "minimumrate", "minimum_rate":
		return bond.ParameterMinimumRate, nil
	default:
		return 0, fmt.Errorf("unknown parameter %q", name)
	}
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

type bondTermsResult struct {
	ControlVariable  string `json:"controlVariable"`
	VestingTerm      uint64 `json:"vestingTerm"`
	MinimumPriceRate string `json:"minimumPriceRate"`
	MaxPayout        uint64 `json:"maxPayout"`
	Fee              uint64 `json:"fee"`
	MaxDebt          string `json:"maxDebt"`
}

type bondInfoResult struct {
	Payout    string `json:"payout"`
	Vesting   uint64 `json:"vesting"`
	LastBlock uint64 `json:"lastBlock"`
	PricePaid string `json:"pricePaid"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

type priceResult struct {
	PriceUSD string `json:"priceUsd"`
}
