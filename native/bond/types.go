package bond

import (
	"math/big"

	"bondvault/crypto"
)

// Parameter selects which term a governance update targets.
type Parameter uint8

const (
	ParameterVesting Parameter = iota
	ParameterPayout
	ParameterFee
	ParameterDebt
	ParameterMinimumRate
)

// Info is the one-time initialization record for the depository. Version
// gates re-initialization and future migrations.
type Info struct {
	Version     uint64
	RewardToken string
	Principle   string
	Admin       crypto.Address
	Staking     crypto.Address
	Treasury    crypto.Address
	DAO         crypto.Address
}

// Terms holds the governance-controlled bonding parameters.
type Terms struct {
	// ControlVariable scales the price formula. Strictly positive once the
	// terms are initialized; zero means "not yet initialized".
	ControlVariable *big.Int
	// VestingTerm is the number of blocks a bond vests over. It doubles as
	// the debt decay window and must stay nonzero wherever it divides.
	VestingTerm uint64
	// MinimumPriceRate floors the computed price rate, 1e9 fixed point.
	MinimumPriceRate *big.Int
	// MaxPayout caps a single bond as a fraction of reward supply, in
	// millionths. Bounded to 10000 (1%).
	MaxPayout uint64
	// Fee is the protocol cut of each payout in basis points.
	Fee uint64
	// MaxDebt rejects deposits once total debt exceeds it.
	MaxDebt *big.Int
}

// Adjustment describes an in-flight linear ramp of the control variable.
type Adjustment struct {
	Add       bool
	Rate      *big.Int
	Target    *big.Int
	Buffer    uint64
	LastBlock uint64
}

// Bond is a depositor's outstanding claim. Payout accrues additively across
// deposits; Vesting and LastBlock roll forward on every touch. PricePaid is
// retained for display and never re-enters the math.
type Bond struct {
	Payout    *big.Int
	Vesting   uint64
	LastBlock uint64
	PricePaid *big.Int
}

// DebtLedger tracks the outstanding bond-equivalent liability. TotalDebt
// decays linearly toward zero over the vesting term, anchored at LastDecay.
type DebtLedger struct {
	TotalDebt *big.Int
	LastDecay uint64
}

// Clone helpers keep engine-held records detached from state-owned copies.

func (t *Terms) Clone() *Terms {
	if t == nil {
		return nil
	}
	clone := *t
	if t.ControlVariable != nil {
		clone.ControlVariable = new(big.Int).Set(t.ControlVariable)
	}
	if t.MinimumPriceRate != nil {
		clone.MinimumPriceRate = new(big.Int).Set(t.MinimumPriceRate)
	}
	if t.MaxDebt != nil {
		clone.MaxDebt = new(big.Int).Set(t.MaxDebt)
	}
	return &clone
}

func (b *Bond) Clone() *Bond {
	if b == nil {
		return nil
	}
	clone := *b
	if b.Payout != nil {
		clone.Payout = new(big.Int).Set(b.Payout)
	}
	if b.PricePaid != nil {
		clone.PricePaid = new(big.Int).Set(b.PricePaid)
	}
	return &clone
}
