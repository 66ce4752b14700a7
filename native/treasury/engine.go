package treasury

import (
	"math/big"
	"strings"

	"bondvault/core/events"
	"bondvault/crypto"
	nativecommon "bondvault/native/common"
)

const moduleName = "treasury"

// Info is the one-time initialization record. DAO receives swept stray
// assets.
type Info struct {
	Admin       crypto.Address
	RewardToken string
	DAO         crypto.Address
}

type engineState interface {
	TreasuryInfo() (*Info, bool, error)
	PutTreasuryInfo(info *Info) error
	TreasuryAssets() ([]string, error)
	PutTreasuryAssets(assets []string) error
	TreasuryAssetTrusted(asset string) (bool, error)
	SetTreasuryAssetTrusted(asset string, trusted bool) error
	TreasuryDepositors() ([]crypto.Address, error)
	PutTreasuryDepositors(depositors []crypto.Address) error
	TreasuryDepositorTrusted(addr crypto.Address) (bool, error)
	SetTreasuryDepositorTrusted(addr crypto.Address, trusted bool) error
	TreasuryPaid(asset string) (*big.Int, error)
	SetTreasuryPaid(asset string, amount *big.Int) error
}

// TokenLedger is the asset-transfer collaborator.
type TokenLedger interface {
	Transfer(symbol string, from, to crypto.Address, amount *big.Int) error
	TransferFrom(symbol string, spender, from, to crypto.Address, amount *big.Int) error
	BalanceOf(symbol string, addr crypto.Address) (*big.Int, error)
}

// Engine is the reserve treasury: it admits principle inflows from trusted
// depositors, pays out reward tokens against them and keeps the per-asset
// cumulative paid ledger.
type Engine struct {
	state         engineState
	tokens        TokenLedger
	moduleAddress crypto.Address
	pauses        nativecommon.PauseView
	emitter       events.Emitter
}

// NewEngine constructs a treasury engine bound to its custody address.
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

// SetPauses wires the module pause view consulted by deposit.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
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

// ModuleAddress returns the treasury custody address.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

// Initialize records the treasury identities exactly once.
func (e *Engine) Initialize(admin crypto.Address, rewardToken string, dao crypto.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if admin.IsZero() || dao.IsZero() {
		return ErrZeroAddress
	}
	if normalize(rewardToken) == "" {
		return errInvalidAsset
	}
	if _, ok, err := e.state.TreasuryInfo(); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	return e.state.PutTreasuryInfo(&Info{
		Admin:       admin,
		RewardToken: normalize(rewardToken),
		DAO:         dao,
	})
}

// Deposit takes `amount` of `asset` from a trusted depositor and pays
// `payAmount` of the reward token back. The treasury does not second-guess
// the pay amount: registered depositors carry their own accounting.
func (e *Engine) Deposit(caller crypto.Address, amount *big.Int, asset string, payAmount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.tokens == nil {
		return errNotWired
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	if payAmount == nil || payAmount.Sign() < 0 {
		return errInvalidAmount
	}
	info, err := e.info()
	if err != nil {
		return err
	}
	trusted, err := e.state.TreasuryDepositorTrusted(caller)
	if err != nil {
		return err
	}
	if !trusted {
		return ErrNotDepositor
	}
	sym := normalize(asset)
	registered, err := e.state.TreasuryAssetTrusted(sym)
	if err != nil {
		return err
	}
	if !registered {
		return ErrUntrustedAsset
	}
	if err := e.tokens.TransferFrom(sym, e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
		return err
	}
	if payAmount.Sign() > 0 {
		if err := e.tokens.Transfer(info.RewardToken, e.moduleAddress, caller, payAmount); err != nil {
			return err
		}
	}
	paid, err := e.state.TreasuryPaid(sym)
	if err != nil {
		return err
	}
	if paid == nil {
		paid = big.NewInt(0)
	}
	if err := e.state.SetTreasuryPaid(sym, new(big.Int).Add(paid, payAmount)); err != nil {
		return err
	}
	e.emit(events.TreasuryDeposit{
		Asset:  sym,
		Amount: new(big.Int).Set(amount),
		Pay:    new(big.Int).Set(payAmount),
	})
	return nil
}

// Register trusts an asset and a depositor in one admin action. The asset
// list is append-only; the depositor enumeration list is deduplicated by a
// linear scan so the trust flag and list can never disagree.
func (e *Engine) Register(caller crypto.Address, asset string, depositor crypto.Address) error {
	if _, err := e.requireAdmin(caller); err != nil {
		return err
	}
	sym := normalize(asset)
	if sym == "" {
		return errInvalidAsset
	}
	if depositor.IsZero() {
		return ErrZeroAddress
	}
	trusted, err := e.state.TreasuryDepositorTrusted(depositor)
	if err != nil {
		return err
	}
	if trusted {
		return ErrDepositorExists
	}
	assetTrusted, err := e.state.TreasuryAssetTrusted(sym)
	if err != nil {
		return err
	}
	if !assetTrusted {
		assets, err := e.state.TreasuryAssets()
		if err != nil {
			return err
		}
		if err := e.state.PutTreasuryAssets(append(assets, sym)); err != nil {
			return err
		}
		if err := e.state.SetTreasuryAssetTrusted(sym, true); err != nil {
			return err
		}
	}
	depositors, err := e.state.TreasuryDepositors()
	if err != nil {
		return err
	}
	listed := false
	for _, entry := range depositors {
		if sameAddress(entry, depositor) {
			listed = true
			break
		}
	}
	if !listed {
		if err := e.state.PutTreasuryDepositors(append(depositors, depositor)); err != nil {
			return err
		}
	}
	return e.state.SetTreasuryDepositorTrusted(depositor, true)
}

// RevokeDepositor clears a depositor's trust flag. The enumeration entry is
// kept for audit history.
func (e *Engine) RevokeDepositor(caller, depositor crypto.Address) error {
	if _, err := e.requireAdmin(caller); err != nil {
		return err
	}
	trusted, err := e.state.TreasuryDepositorTrusted(depositor)
	if err != nil {
		return err
	}
	if !trusted {
		return ErrDepositorUnknown
	}
	return e.state.SetTreasuryDepositorTrusted(depositor, false)
}

// RecoverStrayAsset sweeps the treasury's full balance of a mis-sent asset
// to the DAO. The reward token and registered assets are protected. Anyone
// may trigger the sweep since the destination is fixed.
func (e *Engine) RecoverStrayAsset(asset string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.tokens == nil {
		return nil, errNotWired
	}
	info, err := e.info()
	if err != nil {
		return nil, err
	}
	sym := normalize(asset)
	if sym == "" {
		return nil, errInvalidAsset
	}
	if sym == info.RewardToken {
		return nil, ErrProtectedAsset
	}
	registered, err := e.state.TreasuryAssetTrusted(sym)
	if err != nil {
		return nil, err
	}
	if registered {
		return nil, ErrProtectedAsset
	}
	balance, err := e.tokens.BalanceOf(sym, e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if err := e.tokens.Transfer(sym, e.moduleAddress, info.DAO, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// RewardBalance reports the reward tokens currently in custody.
func (e *Engine) RewardBalance() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.tokens == nil {
		return nil, errNotWired
	}
	info, err := e.info()
	if err != nil {
		return nil, err
	}
	return e.tokens.BalanceOf(info.RewardToken, e.moduleAddress)
}

// TrustedAssets returns the registered assets in registration order.
func (e *Engine) TrustedAssets() ([]string, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TreasuryAssets()
}

// Depositors returns every depositor ever registered, revoked included.
func (e *Engine) Depositors() ([]crypto.Address, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TreasuryDepositors()
}

// IsTrustedDepositor reports whether the address may call Deposit.
func (e *Engine) IsTrustedDepositor(addr crypto.Address) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.TreasuryDepositorTrusted(addr)
}

// IsTrustedAsset reports whether the asset is registered.
func (e *Engine) IsTrustedAsset(asset string) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	return e.state.TreasuryAssetTrusted(normalize(asset))
}

// PaidFor reports the cumulative reward paid out against the asset.
func (e *Engine) PaidFor(asset string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	paid, err := e.state.TreasuryPaid(normalize(asset))
	if err != nil {
		return nil, err
	}
	if paid == nil {
		return big.NewInt(0), nil
	}
	return paid, nil
}

func (e *Engine) info() (*Info, error) {
	info, ok, err := e.state.TreasuryInfo()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return info, nil
}

func (e *Engine) requireAdmin(caller crypto.Address) (*Info, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	info, err := e.info()
	if err != nil {
		return nil, err
	}
	if caller.IsZero() || !sameAddress(caller, info.Admin) {
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

func sameAddress(a, b crypto.Address) bool {
	return string(a.Bytes()) == string(b.Bytes())
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
