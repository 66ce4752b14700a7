package events

import (
	"math/big"

	"bondvault/core/types"
)

const (
	TypeTreasuryDeposit = "treasury.deposit"
)

// TreasuryDeposit is emitted when a trusted depositor hands an asset to the
// treasury in exchange for reward tokens.
type TreasuryDeposit struct {
	Asset  string
	Amount *big.Int
	Pay    *big.Int
}

func (TreasuryDeposit) EventType() string { return TypeTreasuryDeposit }

func (e TreasuryDeposit) Event() *types.Event {
	return &types.Event{
		Type: TypeTreasuryDeposit,
		Attributes: map[string]string{
			"asset":  normalizeAsset(e.Asset),
			"amount": formatAmount(e.Amount),
			"pay":    formatAmount(e.Pay),
		},
	}
}
