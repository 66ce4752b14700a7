package bond

import (
	"math/big"

	"bondvault/crypto"
)

// AssetPriceUSD returns the oracle price of the principle asset in 1e6 fixed
// point.
func (e *Engine) AssetPriceUSD() (*big.Int, error) {
	info, err := e.info()
	if err != nil {
		return nil, err
	}
	if e.oracle == nil {
		return nil, errNotWired
	}
	return e.oracle.PriceUSD(info.Principle)
}

// RewardPriceUSD returns the oracle price of the reward token in 1e6 fixed
// point.
func (e *Engine) RewardPriceUSD() (*big.Int, error) {
	info, err := e.info()
	if err != nil {
		return nil, err
	}
	if e.oracle == nil {
		return nil, errNotWired
	}
	return e.oracle.PriceUSD(info.RewardToken)
}

// DebtRatio reports outstanding debt relative to the circulating reward
// supply, 1e9 fixed point. Decay is applied in memory without persisting.
func (e *Engine) DebtRatio() (*big.Int, error) {
	info, err := e.info()
	if err != nil {
		return nil, err
	}
	debt, err := e.currentDebtView()
	if err != nil {
		return nil, err
	}
	return e.debtRatio(info, debt)
}

// PriceRate reports the control-variable scaled debt ratio floored at the
// configured minimum, 1e9 fixed point.
func (e *Engine) PriceRate() (*big.Int, error) {
	info, err := e.info()
	if err != nil {
		return nil, err
	}
	terms, ok, err := e.state.BondTerms()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	debt, err := e.currentDebtView()
	if err != nil {
		return nil, err
	}
	ratio, err := e.debtRatio(info, debt)
	if err != nil {
		return nil, err
	}
	return priceRate(terms, ratio), nil
}

// BondPriceUSD reports the current USD price of one reward token worth of
// bond, 1e6 fixed point.
func (e *Engine) BondPriceUSD() (*big.Int, error) {
	info, err := e.info()
	if err != nil {
		return nil, err
	}
	terms, ok, err := e.state.BondTerms()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	debt, err := e.currentDebtView()
	if err != nil {
		return nil, err
	}
	return e.bondPriceUSD(info, terms, debt)
}

// PayoutFor quotes the reward payout for a principle amount at the current
// bond price, before fees and caps.
func (e *Engine) PayoutFor(amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	info, err := e.info()
	if err != nil {
		return nil, err
	}
	if e.oracle == nil {
		return nil, errNotWired
	}
	terms, ok, err := e.state.BondTerms()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	debt, err := e.currentDebtView()
	if err != nil {
		return nil, err
	}
	price, err := e.bondPriceUSD(info, terms, debt)
	if err != nil {
		return nil, err
	}
	assetPrice, err := e.oracle.PriceUSD(info.Principle)
	if err != nil {
		return nil, err
	}
	value := new(big.Int).Mul(amount, assetPrice)
	value = value.Quo(value, principleUnit)
	return payoutFor(value, price)
}

// MaxPayout reports the largest single-bond payout permitted right now.
func (e *Engine) MaxPayout() (*big.Int, error) {
	info, err := e.info()
	if err != nil {
		return nil, err
	}
	terms, ok, err := e.state.BondTerms()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return e.maxPayout(info, terms)
}

// CurrentDebt reports the decayed outstanding debt without persisting the
// decay.
func (e *Engine) CurrentDebt() (*big.Int, error) {
	debt, err := e.currentDebtView()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(debt.TotalDebt), nil
}

// DebtDecay reports the amount of debt that would decay if touched at the
// current block.
func (e *Engine) DebtDecay() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	terms, ok, err := e.state.BondTerms()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	debt, ok, err := e.state.BondDebt()
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return debtDecay(terms, debt, e.blockHeight), nil
}

// PercentVestedFor reports how far a depositor's bond has vested in basis
// points, capped at 10000.
func (e *Engine) PercentVestedFor(depositor crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, ok, err := e.state.Bond(depositor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	percent := percentVested(record, e.blockHeight)
	if percent.Cmp(basisPoints) > 0 {
		return new(big.Int).Set(basisPoints), nil
	}
	return percent, nil
}

// PendingPayoutFor reports the payout claimable right now for a depositor.
func (e *Engine) PendingPayoutFor(depositor crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	record, ok, err := e.state.Bond(depositor)
	if err != nil {
		return nil, err
	}
	if !ok || record.Payout == nil {
		return big.NewInt(0), nil
	}
	percent := percentVested(record, e.blockHeight)
	if percent.Cmp(basisPoints) >= 0 {
		return new(big.Int).Set(record.Payout), nil
	}
	pending := new(big.Int).Mul(record.Payout, percent)
	return pending.Quo(pending, basisPoints), nil
}

// BondInfoFor returns a copy of the depositor's vesting record.
func (e *Engine) BondInfoFor(depositor crypto.Address) (*Bond, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	record, ok, err := e.state.Bond(depositor)
	if err != nil || !ok {
		return nil, false, err
	}
	return record.Clone(), true, nil
}

// CurrentTerms returns a copy of the active bonding terms.
func (e *Engine) CurrentTerms() (*Terms, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	terms, ok, err := e.state.BondTerms()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return terms.Clone(), nil
}

// currentDebtView returns the decayed debt ledger without writing it back.
func (e *Engine) currentDebtView() (*DebtLedger, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	terms, ok, err := e.state.BondTerms()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	debt, ok, err := e.state.BondDebt()
	if err != nil {
		return nil, err
	}
	if !ok {
		return &DebtLedger{TotalDebt: big.NewInt(0), LastDecay: e.blockHeight}, nil
	}
	decay := debtDecay(terms, debt, e.blockHeight)
	remaining := new(big.Int).Sub(debt.TotalDebt, decay)
	if remaining.Sign() < 0 {
		remaining = big.NewInt(0)
	}
	return &DebtLedger{TotalDebt: remaining, LastDecay: e.blockHeight}, nil
}

// decayedDebt applies linear decay and persists the updated ledger.
func (e *Engine) decayedDebt(terms *Terms) (*DebtLedger, error) {
	debt, ok, err := e.state.BondDebt()
	if err != nil {
		return nil, err
	}
	if !ok {
		debt = &DebtLedger{TotalDebt: big.NewInt(0), LastDecay: e.blockHeight}
	} else {
		decay := debtDecay(terms, debt, e.blockHeight)
		debt.TotalDebt = new(big.Int).Sub(debt.TotalDebt, decay)
		if debt.TotalDebt.Sign() < 0 {
			debt.TotalDebt = big.NewInt(0)
		}
		debt.LastDecay = e.blockHeight
	}
	if err := e.state.PutBondDebt(debt); err != nil {
		return nil, err
	}
	return debt, nil
}

// debtRatio computes totalDebt scaled by 1e9 over circulating reward supply.
func (e *Engine) debtRatio(info *Info, debt *DebtLedger) (*big.Int, error) {
	if e.tokens == nil {
		return nil, errNotWired
	}
	supply, err := e.tokens.TotalSupply(info.RewardToken)
	if err != nil {
		return nil, err
	}
	if supply == nil || supply.Sign() <= 0 {
		return nil, errRewardSupply
	}
	ratio := new(big.Int).Mul(debt.TotalDebt, rateScale)
	return ratio.Quo(ratio, supply), nil
}

// bondPriceUSD computes rewardPriceUSD * priceRate / 1e9.
func (e *Engine) bondPriceUSD(info *Info, terms *Terms, debt *DebtLedger) (*big.Int, error) {
	if e.oracle == nil {
		return nil, errNotWired
	}
	ratio, err := e.debtRatio(info, debt)
	if err != nil {
		return nil, err
	}
	rate := priceRate(terms, ratio)
	rewardPrice, err := e.oracle.PriceUSD(info.RewardToken)
	if err != nil {
		return nil, err
	}
	price := new(big.Int).Mul(rewardPrice, rate)
	price = price.Quo(price, rateScale)
	if price.Sign() <= 0 {
		return nil, errPriceZero
	}
	return price, nil
}

// maxPayout computes supply * terms.MaxPayout / 1e6.
func (e *Engine) maxPayout(info *Info, terms *Terms) (*big.Int, error) {
	if e.tokens == nil {
		return nil, errNotWired
	}
	supply, err := e.tokens.TotalSupply(info.RewardToken)
	if err != nil {
		return nil, err
	}
	cap := new(big.Int).Mul(supply, new(big.Int).SetUint64(terms.MaxPayout))
	return cap.Quo(cap, payoutScale), nil
}

// priceRate scales the debt ratio by the control variable and floors the
// result at the configured minimum.
func priceRate(terms *Terms, debtRatio *big.Int) *big.Int {
	rate := new(big.Int).Mul(terms.ControlVariable, debtRatio)
	rate = rate.Quo(rate, big.NewInt(100))
	if terms.MinimumPriceRate != nil && rate.Cmp(terms.MinimumPriceRate) < 0 {
		rate = new(big.Int).Set(terms.MinimumPriceRate)
	}
	return rate
}

// payoutFor converts a USD deposit value into reward token units at the
// given bond price.
func payoutFor(valueUSD, priceUSD *big.Int) (*big.Int, error) {
	if priceUSD == nil || priceUSD.Sign() <= 0 {
		return nil, errPriceZero
	}
	payout := new(big.Int).Mul(valueUSD, rewardUnit)
	return payout.Quo(payout, priceUSD), nil
}

// debtDecay computes the linear decay since the ledger was last touched,
// capped at the outstanding total.
func debtDecay(terms *Terms, debt *DebtLedger, height uint64) *big.Int {
	if debt.TotalDebt == nil || debt.TotalDebt.Sign() == 0 || terms.VestingTerm == 0 {
		return big.NewInt(0)
	}
	if height <= debt.LastDecay {
		return big.NewInt(0)
	}
	elapsed := height - debt.LastDecay
	if elapsed >= terms.VestingTerm {
		return new(big.Int).Set(debt.TotalDebt)
	}
	decay := new(big.Int).Mul(debt.TotalDebt, new(big.Int).SetUint64(elapsed))
	return decay.Quo(decay, new(big.Int).SetUint64(terms.VestingTerm))
}

// percentVested reports blocks-elapsed over vesting in basis points,
// uncapped. A zero-vesting record reports nothing vested until the vesting
// window is configured.
func percentVested(record *Bond, height uint64) *big.Int {
	if record.Vesting == 0 {
		return big.NewInt(0)
	}
	if height <= record.LastBlock {
		return big.NewInt(0)
	}
	elapsed := height - record.LastBlock
	percent := new(big.Int).Mul(new(big.Int).SetUint64(elapsed), basisPoints)
	return percent.Quo(percent, new(big.Int).SetUint64(record.Vesting))
}
