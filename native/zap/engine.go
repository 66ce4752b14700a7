package zap

import (
	"errors"
	"math/big"

	"bondvault/crypto"
	nativecommon "bondvault/native/common"
	"bondvault/native/token"
)

const moduleName = "zap"

var (
	ErrUnauthorized  = errors.New("zap: caller is not the admin")
	ErrReentrantCall = errors.New("zap: reentrant call rejected")
	ErrZeroAddress   = errors.New("zap: zero address")
	ErrNotPoolPair   = errors.New("zap: principle asset is not a pool pair")

	errInvalidAmount      = errors.New("zap: amount must be positive")
	errInvalidAsset       = errors.New("zap: asset symbol required")
	errNilState           = errors.New("zap: state not configured")
	errNotWired           = errors.New("zap: collaborators not configured")
	ErrNotInitialized     = errors.New("zap: not initialized")
	ErrAlreadyInitialized = errors.New("zap: already initialized")
)

// Info is the one-time initialization record.
type Info struct {
	Admin crypto.Address
}

type engineState interface {
	ZapInfo() (*Info, bool, error)
	PutZapInfo(info *Info) error
}

// TokenLedger is the asset-transfer collaborator.
type TokenLedger interface {
	Transfer(symbol string, from, to crypto.Address, amount *big.Int) error
	TransferFrom(symbol string, spender, from, to crypto.Address, amount *big.Int) error
	Approve(symbol string, owner, spender crypto.Address, amount *big.Int) error
	BalanceOf(symbol string, addr crypto.Address) (*big.Int, error)
	Info(symbol string) (*token.Info, error)
}

// Depository is the bonding engine the adapter feeds into.
type Depository interface {
	Principle() (string, error)
	ModuleAddress() crypto.Address
	Deposit(caller crypto.Address, amount, maxPrice *big.Int, depositor crypto.Address) (*big.Int, error)
}

// Converter swaps an input asset into pool-pair tokens. The produced tokens
// are credited to the recipient; minOut is enforced converter-side.
type Converter interface {
	ModuleAddress() crypto.Address
	ZapIn(recipient crypto.Address, inputAsset, token0, token1 string, amount, minOut *big.Int) (*big.Int, error)
	EstimatePoolTokens(inputAsset, token0, token1 string, amount *big.Int) (*big.Int, error)
}

// Engine converts an arbitrary input asset into the depository's principle
// pair and bonds it for the caller in one operation.
type Engine struct {
	state         engineState
	tokens        TokenLedger
	depository    Depository
	converter     Converter
	moduleAddress crypto.Address
	pauses        nativecommon.PauseView

	// entered guards against the converter re-entering ZapToBond while a
	// call is in flight. Host execution is serialized, so a plain flag is
	// sufficient.
	entered bool
}

// NewEngine constructs a zap engine bound to its custody address.
func NewEngine(moduleAddr crypto.Address) *Engine {
	return &Engine{moduleAddress: moduleAddr}
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

// SetDepository wires the bonding engine.
func (e *Engine) SetDepository(dep Depository) {
	if e == nil {
		return
	}
	e.depository = dep
}

// SetConverter wires the swap collaborator.
func (e *Engine) SetConverter(conv Converter) {
	if e == nil {
		return
	}
	e.converter = conv
}

// SetPauses wires the module pause view consulted by ZapToBond.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// ModuleAddress returns the adapter custody address.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

// Initialize records the adapter admin exactly once.
func (e *Engine) Initialize(admin crypto.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if admin.IsZero() {
		return ErrZeroAddress
	}
	if _, ok, err := e.state.ZapInfo(); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	return e.state.PutZapInfo(&Info{Admin: admin})
}

// ZapToBond pulls `amount` of the input asset from the caller, converts it
// into the depository's principle pool tokens, bonds them on the caller's
// behalf and refunds any unspent input. Returns the bond payout.
func (e *Engine) ZapToBond(caller crypto.Address, inputAsset string, amount, minPoolTokens, maxPrice *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.tokens == nil || e.depository == nil || e.converter == nil {
		return nil, errNotWired
	}
	if e.entered {
		return nil, ErrReentrantCall
	}
	e.entered = true
	defer func() { e.entered = false }()

	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if caller.IsZero() {
		return nil, ErrZeroAddress
	}
	input := token.Normalize(inputAsset)
	if input == "" {
		return nil, errInvalidAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}

	principle, err := e.depository.Principle()
	if err != nil {
		return nil, err
	}
	pairInfo, err := e.tokens.Info(principle)
	if err != nil {
		return nil, err
	}
	if !pairInfo.IsPair() {
		return nil, ErrNotPoolPair
	}

	before, err := e.tokens.BalanceOf(input, e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if err := e.tokens.TransferFrom(input, e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
		return nil, err
	}
	if err := e.tokens.Approve(input, e.moduleAddress, e.converter.ModuleAddress(), amount); err != nil {
		return nil, err
	}
	poolTokens, err := e.converter.ZapIn(e.moduleAddress, input, pairInfo.Token0, pairInfo.Token1, amount, minPoolTokens)
	if err != nil {
		return nil, err
	}
	if poolTokens == nil || poolTokens.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	if err := e.tokens.Approve(pairInfo.Symbol, e.moduleAddress, e.depository.ModuleAddress(), poolTokens); err != nil {
		return nil, err
	}
	payout, err := e.depository.Deposit(e.moduleAddress, poolTokens, maxPrice, caller)
	if err != nil {
		return nil, err
	}

	// Refund whatever part of the input the converter did not spend.
	after, err := e.tokens.BalanceOf(input, e.moduleAddress)
	if err != nil {
		return nil, err
	}
	leftover := new(big.Int).Sub(after, before)
	if leftover.Sign() > 0 {
		if err := e.tokens.Transfer(input, e.moduleAddress, caller, leftover); err != nil {
			return nil, err
		}
	}
	return payout, nil
}

// EstimatePoolTokens quotes the pool tokens the converter would produce for
// an input amount, without moving funds.
func (e *Engine) EstimatePoolTokens(inputAsset string, amount *big.Int) (*big.Int, error) {
	if e == nil {
		return nil, errNilState
	}
	if e.tokens == nil || e.depository == nil || e.converter == nil {
		return nil, errNotWired
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	principle, err := e.depository.Principle()
	if err != nil {
		return nil, err
	}
	pairInfo, err := e.tokens.Info(principle)
	if err != nil {
		return nil, err
	}
	if !pairInfo.IsPair() {
		return nil, ErrNotPoolPair
	}
	return e.converter.EstimatePoolTokens(token.Normalize(inputAsset), pairInfo.Token0, pairInfo.Token1, amount)
}

// Withdraw sweeps the adapter's own balance of an asset to the admin. Used
// to recover dust stranded by refund rounding or mis-sent tokens.
func (e *Engine) Withdraw(caller crypto.Address, asset string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.tokens == nil {
		return nil, errNotWired
	}
	info, ok, err := e.state.ZapInfo()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	if caller.IsZero() || string(caller.Bytes()) != string(info.Admin.Bytes()) {
		return nil, ErrUnauthorized
	}
	sym := token.Normalize(asset)
	if sym == "" {
		return nil, errInvalidAsset
	}
	balance, err := e.tokens.BalanceOf(sym, e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return big.NewInt(0), nil
	}
	if err := e.tokens.Transfer(sym, e.moduleAddress, info.Admin, balance); err != nil {
		return nil, err
	}
	return balance, nil
}
