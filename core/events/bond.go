package events

import (
	"math/big"
	"strconv"

	"bondvault/core/types"
	"bondvault/crypto"
)

const (
	TypeBondCreated      = "bond.created"
	TypeBondRedeemed     = "bond.redeemed"
	TypeBondPriceChanged = "bond.price_changed"
	TypeControlAdjusted  = "bond.cv_adjusted"
)

// BondCreated is emitted once per successful deposit after the vesting claim
// has been recorded.
type BondCreated struct {
	Depositor crypto.Address
	Amount    *big.Int
	Payout    *big.Int
	Expires   uint64
	PriceUSD  *big.Int
}

func (BondCreated) EventType() string { return TypeBondCreated }

func (e BondCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeBondCreated,
		Attributes: map[string]string{
			"depositor": e.Depositor.String(),
			"amount":    formatAmount(e.Amount),
			"payout":    formatAmount(e.Payout),
			"expires":   strconv.FormatUint(e.Expires, 10),
			"priceUsd":  formatAmount(e.PriceUSD),
		},
	}
}

// BondRedeemed is emitted when a depositor claims vested payout. Remaining is
// zero on full redemption.
type BondRedeemed struct {
	Recipient crypto.Address
	Payout    *big.Int
	Remaining *big.Int
}

func (BondRedeemed) EventType() string { return TypeBondRedeemed }

func (e BondRedeemed) Event() *types.Event {
	return &types.Event{
		Type: TypeBondRedeemed,
		Attributes: map[string]string{
			"recipient": e.Recipient.String(),
			"payout":    formatAmount(e.Payout),
			"remaining": formatAmount(e.Remaining),
		},
	}
}

// BondPriceChanged records the post-deposit bond price and debt ratio.
type BondPriceChanged struct {
	PriceUSD  *big.Int
	DebtRatio *big.Int
}

func (BondPriceChanged) EventType() string { return TypeBondPriceChanged }

func (e BondPriceChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeBondPriceChanged,
		Attributes: map[string]string{
			"priceUsd":  formatAmount(e.PriceUSD),
			"debtRatio": formatAmount(e.DebtRatio),
		},
	}
}

// ControlAdjusted records one damped step of the control-variable ramp.
type ControlAdjusted struct {
	Initial *big.Int
	Current *big.Int
	Rate    *big.Int
	Add     bool
}

func (ControlAdjusted) EventType() string { return TypeControlAdjusted }

func (e ControlAdjusted) Event() *types.Event {
	return &types.Event{
		Type: TypeControlAdjusted,
		Attributes: map[string]string{
			"initial": formatAmount(e.Initial),
			"current": formatAmount(e.Current),
			"rate":    formatAmount(e.Rate),
			"add":     strconv.FormatBool(e.Add),
		},
	}
}
