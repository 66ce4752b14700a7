package core

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"bondvault/core/events"
	"bondvault/core/types"
	"bondvault/crypto"
	"bondvault/native/bond"
	"bondvault/native/staking"
	"bondvault/native/token"
	"bondvault/native/treasury"
	"bondvault/native/zap"
	"bondvault/observability/metrics"
	"bondvault/state"
)

// stateEmitter routes engine events into the state manager's buffer so they
// share the fate of the operation that produced them.
type stateEmitter struct {
	manager *state.Manager
}

func (e *stateEmitter) Emit(event events.Event) {
	if e == nil || e.manager == nil || event == nil {
		return
	}
	payload, ok := event.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	e.manager.AppendEvent(payload.Event())
}

// Node owns the engines and the state manager and turns every mutating call
// into an all-or-nothing state transition: commit on success, discard on
// failure. This is the single writer; RPC handlers never touch the manager
// directly.
type Node struct {
	mu       sync.Mutex
	manager  *state.Manager
	tokens   *token.Ledger
	bond     *bond.Engine
	treasury *treasury.Engine
	zap      *zap.Engine
	locker   *staking.Locker
	height   uint64
	log      *slog.Logger
}

// NewNode wires the engines to the manager, restores the persisted block
// height and installs the shared event emitter.
func NewNode(manager *state.Manager, tokens *token.Ledger, bondEngine *bond.Engine, treasuryEngine *treasury.Engine, zapEngine *zap.Engine, locker *staking.Locker, logger *slog.Logger) (*Node, error) {
	if manager == nil {
		return nil, fmt.Errorf("core: state manager required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	height, err := manager.BlockHeight()
	if err != nil {
		return nil, fmt.Errorf("core: load block height: %w", err)
	}
	emitter := &stateEmitter{manager: manager}
	if bondEngine != nil {
		bondEngine.SetEmitter(emitter)
		bondEngine.SetPauses(manager)
		bondEngine.SetBlockHeight(height)
	}
	if treasuryEngine != nil {
		treasuryEngine.SetEmitter(emitter)
		treasuryEngine.SetPauses(manager)
	}
	if zapEngine != nil {
		zapEngine.SetPauses(manager)
	}
	return &Node{
		manager:  manager,
		tokens:   tokens,
		bond:     bondEngine,
		treasury: treasuryEngine,
		zap:      zapEngine,
		locker:   locker,
		height:   height,
		log:      logger,
	}, nil
}

// Height reports the current block height.
func (n *Node) Height() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height
}

// AdvanceBlock bumps the chain clock by one block and persists it.
func (n *Node) AdvanceBlock() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	next := n.height + 1
	if err := n.manager.SetBlockHeight(next); err != nil {
		n.manager.Discard()
		return err
	}
	if err := n.manager.Commit(); err != nil {
		n.manager.Discard()
		return err
	}
	n.height = next
	if n.bond != nil {
		n.bond.SetBlockHeight(next)
	}
	return nil
}

// execute runs a mutating operation as one transition. Events buffered by
// the engines are logged and counted only when the transition commits.
func (n *Node) execute(method string, fn func() error) error {
	if err := fn(); err != nil {
		n.manager.Discard()
		metrics.Bond().ObserveOperation(method, "error")
		return err
	}
	drained := n.manager.Events()
	if err := n.manager.Commit(); err != nil {
		n.manager.Discard()
		metrics.Bond().ObserveOperation(method, "commit_error")
		return err
	}
	metrics.Bond().ObserveOperation(method, "ok")
	for _, event := range drained {
		metrics.Bond().ObserveEvent(event.Type)
		attrs := make([]any, 0, 2*len(event.Attributes)+2)
		attrs = append(attrs, "type", event.Type)
		for k, v := range event.Attributes {
			attrs = append(attrs, k, v)
		}
		n.log.Info("engine event", attrs...)
	}
	return nil
}

func (n *Node) BondDeposit(caller crypto.Address, amount, maxPrice *big.Int, depositor crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var payout *big.Int
	err := n.execute("bond_deposit", func() error {
		var depErr error
		payout, depErr = n.bond.Deposit(caller, amount, maxPrice, depositor)
		return depErr
	})
	if err != nil {
		return nil, err
	}
	n.observeMarket()
	return payout, nil
}

func (n *Node) BondRedeem(recipient crypto.Address, stake bool) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var payout *big.Int
	err := n.execute("bond_redeem", func() error {
		var redeemErr error
		payout, redeemErr = n.bond.Redeem(recipient, stake)
		return redeemErr
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

func (n *Node) BondInitialize(rewardToken, principle string, admin, stakingAddr, treasuryAddr, dao crypto.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.execute("bond_initialize", func() error {
		return n.bond.Initialize(rewardToken, principle, admin, stakingAddr, treasuryAddr, dao)
	})
}

func (n *Node) BondInitializeTerms(caller crypto.Address, controlVariable *big.Int, vestingTerm uint64, minimumPriceRate *big.Int, maxPayout, fee uint64, maxDebt, initialDebt *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.execute("bond_initializeTerms", func() error {
		return n.bond.InitializeBondTerms(caller, controlVariable, vestingTerm, minimumPriceRate, maxPayout, fee, maxDebt, initialDebt)
	})
}

func (n *Node) BondSetTerms(caller crypto.Address, parameter bond.Parameter, value *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.execute("bond_setTerms", func() error {
		return n.bond.SetBondTerms(caller, parameter, value)
	})
}

func (n *Node) BondSetAdjustment(caller crypto.Address, add bool, rate, target *big.Int, buffer uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.execute("bond_setAdjustment", func() error {
		return n.bond.SetAdjustment(caller, add, rate, target, buffer)
	})
}

func (n *Node) BondSetStaking(caller, stakingAddr crypto.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.execute("bond_setStaking", func() error {
		return n.bond.SetStaking(caller, stakingAddr)
	})
}

func (n *Node) BondPriceUSD() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bond.BondPriceUSD()
}

func (n *Node) BondDebtRatio() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bond.DebtRatio()
}

func (n *Node) BondCurrentDebt() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bond.CurrentDebt()
}

func (n *Node) BondMaxPayout() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bond.MaxPayout()
}

func (n *Node) BondPayoutFor(amount *big.Int) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bond.PayoutFor(amount)
}

func (n *Node) BondTerms() (*bond.Terms, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bond.CurrentTerms()
}

func (n *Node) BondRecord(depositor crypto.Address) (*bond.Bond, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bond.BondInfoFor(depositor)
}

func (n *Node) BondPendingPayout(depositor crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bond.PendingPayoutFor(depositor)
}

func (n *Node) BondPercentVested(depositor crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bond.PercentVestedFor(depositor)
}

func (n *Node) TreasuryDeposit(caller crypto.Address, amount *big.Int, asset string, payAmount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.execute("treasury_deposit", func() error {
		return n.treasury.Deposit(caller, amount, asset, payAmount)
	})
}

func (n *Node) TreasuryRegister(caller crypto.Address, asset string, depositor crypto.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.execute("treasury_register", func() error {
		return n.treasury.Register(caller, asset, depositor)
	})
}

func (n *Node) TreasuryRevokeDepositor(caller, depositor crypto.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.execute("treasury_revokeDepositor", func() error {
		return n.treasury.RevokeDepositor(caller, depositor)
	})
}

func (n *Node) TreasuryRecoverStrayAsset(asset string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var swept *big.Int
	err := n.execute("treasury_recoverStrayAsset", func() error {
		var sweepErr error
		swept, sweepErr = n.treasury.RecoverStrayAsset(asset)
		return sweepErr
	})
	if err != nil {
		return nil, err
	}
	return swept, nil
}

func (n *Node) TreasuryAssets() ([]string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.treasury.TrustedAssets()
}

func (n *Node) TreasuryDepositors() ([]crypto.Address, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.treasury.Depositors()
}

func (n *Node) TreasuryIsTrustedDepositor(addr crypto.Address) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.treasury.IsTrustedDepositor(addr)
}

func (n *Node) TreasuryPaidFor(asset string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.treasury.PaidFor(asset)
}

func (n *Node) TreasuryRewardBalance() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.treasury.RewardBalance()
}

func (n *Node) ZapToBond(caller crypto.Address, inputAsset string, amount, minPoolTokens, maxPrice *big.Int) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var payout *big.Int
	err := n.execute("zap_zapToBond", func() error {
		var zapErr error
		payout, zapErr = n.zap.ZapToBond(caller, inputAsset, amount, minPoolTokens, maxPrice)
		return zapErr
	})
	if err != nil {
		return nil, err
	}
	n.observeMarket()
	return payout, nil
}

func (n *Node) ZapEstimate(inputAsset string, amount *big.Int) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.zap.EstimatePoolTokens(inputAsset, amount)
}

func (n *Node) ZapWithdraw(caller crypto.Address, asset string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var swept *big.Int
	err := n.execute("zap_withdraw", func() error {
		var sweepErr error
		swept, sweepErr = n.zap.Withdraw(caller, asset)
		return sweepErr
	})
	if err != nil {
		return nil, err
	}
	return swept, nil
}

func (n *Node) Unstake(caller crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.execute("staking_unstake", func() error {
		return n.locker.Unstake(caller, amount)
	})
}

func (n *Node) LockedOf(addr crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.locker.LockedOf(addr)
}

func (n *Node) TotalLocked() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.locker.TotalLocked()
}

func (n *Node) TokenBalance(symbol string, addr crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens.BalanceOf(symbol, addr)
}

func (n *Node) TokenSupply(symbol string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens.TotalSupply(symbol)
}

func (n *Node) SetPaused(module string, paused bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.execute("admin_setPaused", func() error {
		return n.manager.SetPaused(module, paused)
	})
}

// observeMarket refreshes the price and debt gauges after deposits. Gauge
// staleness on a read failure is acceptable since the operation itself
// already committed.
func (n *Node) observeMarket() {
	price, err := n.bond.BondPriceUSD()
	if err == nil {
		scaled, _ := new(big.Float).Quo(new(big.Float).SetInt(price), big.NewFloat(1_000_000)).Float64()
		metrics.Bond().SetBondPrice(scaled)
	}
	debt, err := n.bond.CurrentDebt()
	if err == nil {
		value, _ := new(big.Float).SetInt(debt).Float64()
		metrics.Bond().SetTotalDebt(value)
	}
}
