package bond

import (
	"math/big"

	"bondvault/core/events"
	"bondvault/crypto"
	nativecommon "bondvault/native/common"
)

const moduleName = "bond"

var (
	basisPoints = big.NewInt(10_000)
	// payoutScale divides the max-payout fraction of reward supply.
	payoutScale = big.NewInt(1_000_000)
	// rateScale is the fixed fractional precision of debt ratio and price rate.
	rateScale = big.NewInt(1_000_000_000)
	// rewardUnit is one whole reward token (9 decimals).
	rewardUnit = big.NewInt(1_000_000_000)
	// principleUnit is one whole principle token (18 decimals).
	principleUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	// minimumPayout floors a single bond at 0.01 reward tokens.
	minimumPayout = big.NewInt(10_000_000)
)

type engineState interface {
	BondInfo() (*Info, bool, error)
	PutBondInfo(info *Info) error
	BondTerms() (*Terms, bool, error)
	PutBondTerms(terms *Terms) error
	BondAdjustment() (*Adjustment, bool, error)
	PutBondAdjustment(adj *Adjustment) error
	BondDebt() (*DebtLedger, bool, error)
	PutBondDebt(debt *DebtLedger) error
	Bond(addr crypto.Address) (*Bond, bool, error)
	PutBond(addr crypto.Address, bond *Bond) error
	DeleteBond(addr crypto.Address) error
}

// TokenLedger is the asset-transfer collaborator. Every call either fully
// succeeds or fails the whole operation.
type TokenLedger interface {
	Transfer(symbol string, from, to crypto.Address, amount *big.Int) error
	TransferFrom(symbol string, spender, from, to crypto.Address, amount *big.Int) error
	Approve(symbol string, owner, spender crypto.Address, amount *big.Int) error
	TotalSupply(symbol string) (*big.Int, error)
}

// Treasury receives the bonded principle and pays out reward tokens.
type Treasury interface {
	Deposit(caller crypto.Address, amount *big.Int, asset string, payAmount *big.Int) error
}

// PriceSource returns the USD price of an asset in 1e6 fixed point.
type PriceSource interface {
	PriceUSD(asset string) (*big.Int, error)
}

// Staker locks reward tokens on a recipient's behalf.
type Staker interface {
	Stake(recipient crypto.Address, amount *big.Int) error
}

// Engine is the bonding-curve depository: it prices bonds against outstanding
// debt, forwards deposited principle to the treasury and tracks each
// depositor's vesting claim.
type Engine struct {
	state         engineState
	tokens        TokenLedger
	treasury      Treasury
	oracle        PriceSource
	staker        Staker
	moduleAddress crypto.Address
	blockHeight   uint64
	pauses        nativecommon.PauseView
	emitter       events.Emitter
}

// NewEngine constructs a depository engine bound to its module custody
// address.
func NewEngine(moduleAddr crypto.Address) *Engine {
	return &Engine{
		moduleAddress: moduleAddr,
		emitter:       events.NoopEmitter{},
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokens wires the asset-transfer collaborator.
func (e *Engine) SetTokens(ledger TokenLedger) {
	if e == nil {
		return
	}
	e.tokens = ledger
}

// SetTreasury wires the treasury collaborator.
func (e *Engine) SetTreasury(treasury Treasury) {
	if e == nil {
		return
	}
	e.treasury = treasury
}

// SetOracle wires the USD price source.
func (e *Engine) SetOracle(source PriceSource) {
	if e == nil {
		return
	}
	e.oracle = source
}

// SetStaker wires the staking collaborator used when redeemers opt to lock
// their payout.
func (e *Engine) SetStaker(staker Staker) {
	if e == nil {
		return
	}
	e.staker = staker
}

// SetPauses wires the module pause view consulted by deposit and redeem.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetBlockHeight records the block height used as the engine's clock.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.blockHeight = height
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// ModuleAddress returns the custody address bonds are settled through.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

// Initialize records the depository identities exactly once.
func (e *Engine) Initialize(rewardToken, principle string, admin, staking, treasury, dao crypto.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if rewardToken == "" || principle == "" {
		return ErrZeroAddress
	}
	if admin.IsZero() || staking.IsZero() || treasury.IsZero() || dao.IsZero() {
		return ErrZeroAddress
	}
	if _, ok, err := e.state.BondInfo(); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	return e.state.PutBondInfo(&Info{
		Version:     1,
		RewardToken: rewardToken,
		Principle:   principle,
		Admin:       admin,
		Staking:     staking,
		Treasury:    treasury,
		DAO:         dao,
	})
}

// Principle returns the configured principle asset symbol.
func (e *Engine) Principle() (string, error) {
	info, err := e.info()
	if err != nil {
		return "", err
	}
	return info.Principle, nil
}

// InitializeBondTerms sets the initial bonding parameters. It can only run
// while the control variable is zero, which makes it a one-shot operation.
func (e *Engine) InitializeBondTerms(caller crypto.Address, controlVariable *big.Int, vestingTerm uint64, minimumPriceRate *big.Int, maxPayout, fee uint64, maxDebt, initialDebt *big.Int) error {
	if _, err := e.requireAdmin(caller); err != nil {
		return err
	}
	if existing, ok, err := e.state.BondTerms(); err != nil {
		return err
	} else if ok && existing.ControlVariable != nil && existing.ControlVariable.Sign() != 0 {
		return ErrTermsInitialized
	}
	if controlVariable == nil || controlVariable.Sign() <= 0 {
		return errControlVariable
	}
	if vestingTerm == 0 {
		return errVestingZero
	}
	if maxPayout > 10_000 {
		return errPayoutBound
	}
	if fee > 10_000 {
		return errFeeBound
	}
	if minimumPriceRate == nil || minimumPriceRate.Sign() < 0 || minimumPriceRate.Cmp(rateScale) > 0 {
		return errRateBound
	}
	if maxDebt == nil || maxDebt.Sign() < 0 {
		return errInvalidAmount
	}
	debt := big.NewInt(0)
	if initialDebt != nil {
		if initialDebt.Sign() < 0 {
			return errInvalidAmount
		}
		debt = new(big.Int).Set(initialDebt)
	}
	terms := &Terms{
		ControlVariable:  new(big.Int).Set(controlVariable),
		VestingTerm:      vestingTerm,
		MinimumPriceRate: new(big.Int).Set(minimumPriceRate),
		MaxPayout:        maxPayout,
		Fee:              fee,
		MaxDebt:          new(big.Int).Set(maxDebt),
	}
	if err := e.state.PutBondTerms(terms); err != nil {
		return err
	}
	return e.state.PutBondDebt(&DebtLedger{TotalDebt: debt, LastDecay: e.blockHeight})
}

// SetBondTerms updates a single term after initialization. Payout, fee and
// minimum-rate updates are bounds-checked the same way as initialization.
func (e *Engine) SetBondTerms(caller crypto.Address, parameter Parameter, value *big.Int) error {
	if _, err := e.requireAdmin(caller); err != nil {
		return err
	}
	terms, ok, err := e.state.BondTerms()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotInitialized
	}
	if value == nil || value.Sign() < 0 {
		return errInvalidAmount
	}
	switch parameter {
	case ParameterVesting:
		if !value.IsUint64() {
			return errVestingRange
		}
		terms.VestingTerm = value.Uint64()
	case ParameterPayout:
		if value.Cmp(basisPoints) > 0 {
			return errPayoutBound
		}
		terms.MaxPayout = value.Uint64()
	case ParameterFee:
		if value.Cmp(basisPoints) > 0 {
			return errFeeBound
		}
		terms.Fee = value.Uint64()
	case ParameterDebt:
		terms.MaxDebt = new(big.Int).Set(value)
	case ParameterMinimumRate:
		if value.Cmp(rateScale) > 0 {
			return errRateBound
		}
		terms.MinimumPriceRate = new(big.Int).Set(value)
	default:
		return errInvalidParameter
	}
	return e.state.PutBondTerms(terms)
}

// SetAdjustment schedules a damped linear ramp of the control variable. The
// per-step rate is capped at 2.5% of the current control variable and the
// target must sit on the side the direction points at.
func (e *Engine) SetAdjustment(caller crypto.Address, add bool, rate, target *big.Int, buffer uint64) error {
	if _, err := e.requireAdmin(caller); err != nil {
		return err
	}
	terms, ok, err := e.state.BondTerms()
	if err != nil {
		return err
	}
	if !ok || terms.ControlVariable == nil || terms.ControlVariable.Sign() == 0 {
		return ErrNotInitialized
	}
	if rate == nil || rate.Sign() <= 0 || target == nil || target.Sign() < 0 {
		return errInvalidAmount
	}
	// rate must not exceed controlVariable * 25 / 1000.
	bound := new(big.Int).Mul(terms.ControlVariable, big.NewInt(25))
	bound = bound.Quo(bound, big.NewInt(1_000))
	if rate.Cmp(bound) > 0 {
		return errAdjustmentRate
	}
	if add && target.Cmp(terms.ControlVariable) <= 0 {
		return errAdjustmentTarget
	}
	if !add && target.Cmp(terms.ControlVariable) >= 0 {
		return errAdjustmentTarget
	}
	return e.state.PutBondAdjustment(&Adjustment{
		Add:       add,
		Rate:      new(big.Int).Set(rate),
		Target:    new(big.Int).Set(target),
		Buffer:    buffer,
		LastBlock: e.blockHeight,
	})
}

// SetStaking updates the staking destination address.
func (e *Engine) SetStaking(caller, staking crypto.Address) error {
	info, err := e.requireAdmin(caller)
	if err != nil {
		return err
	}
	if staking.IsZero() {
		return ErrZeroAddress
	}
	info.Staking = staking
	return e.state.PutBondInfo(info)
}

// Deposit bonds `amount` of principle on behalf of the depositor. The caller
// pays the principle; the depositor receives the vesting claim. maxPrice is
// the caller's slippage bound on the USD bond price. Returns the payout in
// reward token units.
func (e *Engine) Deposit(caller crypto.Address, amount, maxPrice *big.Int, depositor crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.tokens == nil || e.treasury == nil || e.oracle == nil {
		return nil, errNotWired
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if depositor.IsZero() {
		return nil, ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	info, err := e.info()
	if err != nil {
		return nil, err
	}
	terms, ok, err := e.state.BondTerms()
	if err != nil {
		return nil, err
	}
	if !ok || terms.ControlVariable == nil || terms.ControlVariable.Sign() == 0 {
		return nil, ErrNotInitialized
	}

	// Decay debt before anything else so pricing sees the aged liability.
	debt, err := e.decayedDebt(terms)
	if err != nil {
		return nil, err
	}
	if terms.MaxDebt != nil && debt.TotalDebt.Cmp(terms.MaxDebt) > 0 {
		return nil, ErrCapacityExceeded
	}

	price, err := e.bondPriceUSD(info, terms, debt)
	if err != nil {
		return nil, err
	}
	if maxPrice == nil || price.Cmp(maxPrice) > 0 {
		return nil, ErrSlippageExceeded
	}

	assetPrice, err := e.oracle.PriceUSD(info.Principle)
	if err != nil {
		return nil, err
	}
	// USD value of the deposit, 1e6 fixed point.
	value := new(big.Int).Mul(amount, assetPrice)
	value = value.Quo(value, principleUnit)

	payout, err := payoutFor(value, price)
	if err != nil {
		return nil, err
	}
	if payout.Cmp(minimumPayout) < 0 {
		return nil, ErrBondTooSmall
	}
	cap, err := e.maxPayout(info, terms)
	if err != nil {
		return nil, err
	}
	if payout.Cmp(cap) > 0 {
		return nil, ErrBondTooLarge
	}

	fee := new(big.Int).Mul(payout, new(big.Int).SetUint64(terms.Fee))
	fee = fee.Quo(fee, basisPoints)

	// Pull the principle from the caller, then hand it to the treasury in
	// exchange for payout+fee reward tokens. The treasury pulls via
	// allowance, so approve it for exactly this amount first.
	if err := e.tokens.TransferFrom(info.Principle, e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
		return nil, err
	}
	if err := e.tokens.Approve(info.Principle, e.moduleAddress, info.Treasury, amount); err != nil {
		return nil, err
	}
	totalPay := new(big.Int).Add(payout, fee)
	if err := e.treasury.Deposit(e.moduleAddress, amount, info.Principle, totalPay); err != nil {
		return nil, err
	}
	if fee.Sign() > 0 {
		if err := e.tokens.Transfer(info.RewardToken, e.moduleAddress, info.DAO, fee); err != nil {
			return nil, err
		}
	}

	debt.TotalDebt = new(big.Int).Add(debt.TotalDebt, payout)
	if err := e.state.PutBondDebt(debt); err != nil {
		return nil, err
	}

	existing, ok, err := e.state.Bond(depositor)
	if err != nil {
		return nil, err
	}
	record := &Bond{Payout: new(big.Int).Set(payout)}
	if ok && existing.Payout != nil {
		record.Payout = record.Payout.Add(record.Payout, existing.Payout)
	}
	record.Vesting = terms.VestingTerm
	record.LastBlock = e.blockHeight
	record.PricePaid = new(big.Int).Set(price)
	if err := e.state.PutBond(depositor, record); err != nil {
		return nil, err
	}

	e.emit(events.BondCreated{
		Depositor: depositor,
		Amount:    new(big.Int).Set(amount),
		Payout:    new(big.Int).Set(payout),
		Expires:   e.blockHeight + terms.VestingTerm,
		PriceUSD:  new(big.Int).Set(price),
	})
	ratio, err := e.debtRatio(info, debt)
	if err != nil {
		return nil, err
	}
	newPrice, err := e.bondPriceUSD(info, terms, debt)
	if err != nil {
		return nil, err
	}
	e.emit(events.BondPriceChanged{PriceUSD: newPrice, DebtRatio: ratio})

	if err := e.adjust(terms); err != nil {
		return nil, err
	}
	return payout, nil
}

// Redeem pays out the vested share of the recipient's bond. Fully vested
// bonds are deleted; partial redemptions roll the vesting window forward.
// Redeeming a nonexistent bond returns zero without error.
func (e *Engine) Redeem(recipient crypto.Address, stake bool) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.tokens == nil {
		return nil, errNotWired
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if recipient.IsZero() {
		return nil, ErrZeroAddress
	}
	info, err := e.info()
	if err != nil {
		return nil, err
	}
	record, ok, err := e.state.Bond(recipient)
	if err != nil {
		return nil, err
	}
	if !ok || record.Payout == nil || record.Payout.Sign() == 0 {
		return big.NewInt(0), nil
	}

	percent := percentVested(record, e.blockHeight)
	var payout *big.Int
	if percent.Cmp(basisPoints) >= 0 {
		payout = new(big.Int).Set(record.Payout)
		if err := e.state.DeleteBond(recipient); err != nil {
			return nil, err
		}
		e.emit(events.BondRedeemed{Recipient: recipient, Payout: new(big.Int).Set(payout), Remaining: big.NewInt(0)})
	} else {
		payout = new(big.Int).Mul(record.Payout, percent)
		payout = payout.Quo(payout, basisPoints)
		elapsed := e.blockHeight - record.LastBlock
		if elapsed > record.Vesting {
			elapsed = record.Vesting
		}
		record.Payout = new(big.Int).Sub(record.Payout, payout)
		record.Vesting -= elapsed
		record.LastBlock = e.blockHeight
		if err := e.state.PutBond(recipient, record); err != nil {
			return nil, err
		}
		e.emit(events.BondRedeemed{Recipient: recipient, Payout: new(big.Int).Set(payout), Remaining: new(big.Int).Set(record.Payout)})
	}

	if payout.Sign() == 0 {
		return payout, nil
	}
	if stake {
		if e.staker == nil {
			return nil, errNotWired
		}
		if err := e.tokens.Approve(info.RewardToken, e.moduleAddress, info.Staking, payout); err != nil {
			return nil, err
		}
		if err := e.staker.Stake(recipient, payout); err != nil {
			return nil, err
		}
		return payout, nil
	}
	if err := e.tokens.Transfer(info.RewardToken, e.moduleAddress, recipient, payout); err != nil {
		return nil, err
	}
	return payout, nil
}

// adjust executes one step of the scheduled control-variable ramp when the
// buffer has elapsed. Crossing the target zeroes the rate.
func (e *Engine) adjust(terms *Terms) error {
	adj, ok, err := e.state.BondAdjustment()
	if err != nil {
		return err
	}
	if !ok || adj.Rate == nil || adj.Rate.Sign() == 0 {
		return nil
	}
	if e.blockHeight < adj.LastBlock+adj.Buffer {
		return nil
	}
	initial := new(big.Int).Set(terms.ControlVariable)
	if adj.Add {
		terms.ControlVariable = new(big.Int).Add(terms.ControlVariable, adj.Rate)
		if terms.ControlVariable.Cmp(adj.Target) >= 0 {
			adj.Rate = big.NewInt(0)
		}
	} else {
		terms.ControlVariable = new(big.Int).Sub(terms.ControlVariable, adj.Rate)
		if terms.ControlVariable.Cmp(adj.Target) <= 0 {
			adj.Rate = big.NewInt(0)
		}
	}
	adj.LastBlock = e.blockHeight
	if err := e.state.PutBondTerms(terms); err != nil {
		return err
	}
	if err := e.state.PutBondAdjustment(adj); err != nil {
		return err
	}
	e.emit(events.ControlAdjusted{
		Initial: initial,
		Current: new(big.Int).Set(terms.ControlVariable),
		Rate:    new(big.Int).Set(adj.Rate),
		Add:     adj.Add,
	})
	return nil
}

func (e *Engine) info() (*Info, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	info, ok, err := e.state.BondInfo()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return info, nil
}

func (e *Engine) requireAdmin(caller crypto.Address) (*Info, error) {
	info, err := e.info()
	if err != nil {
		return nil, err
	}
	if caller.IsZero() || string(caller.Bytes()) != string(info.Admin.Bytes()) {
		return nil, ErrUnauthorized
	}
	return info, nil
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}
