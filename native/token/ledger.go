package token

import (
	"errors"
	"math/big"
	"strings"

	"bondvault/crypto"
)

var (
	ErrUnknownToken          = errors.New("token ledger: unknown token")
	ErrTokenExists           = errors.New("token ledger: token already registered")
	ErrInvalidAmount         = errors.New("token ledger: amount must be positive")
	ErrInsufficientBalance   = errors.New("token ledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("token ledger: insufficient allowance")

	errNilState     = errors.New("token ledger: state not configured")
	errInvalidToken = errors.New("token ledger: symbol required")
)

// Info describes a registered asset. Pool-pair assets carry the symbols of
// their two legs so integrators (the zap adapter) can resolve the pair.
type Info struct {
	Symbol   string
	Name     string
	Decimals uint8
	Token0   string
	Token1   string
}

// IsPair reports whether the asset is a two-legged pool token.
func (i *Info) IsPair() bool {
	return i != nil && i.Token0 != "" && i.Token1 != ""
}

// State is the persistence surface the ledger operates against.
type State interface {
	TokenInfo(symbol string) (*Info, bool, error)
	PutTokenInfo(info *Info) error
	TokenBalance(symbol string, addr crypto.Address) (*big.Int, error)
	SetTokenBalance(symbol string, addr crypto.Address, amount *big.Int) error
	TokenAllowance(symbol string, owner, spender crypto.Address) (*big.Int, error)
	SetTokenAllowance(symbol string, owner, spender crypto.Address, amount *big.Int) error
	TokenSupply(symbol string) (*big.Int, error)
	SetTokenSupply(symbol string, amount *big.Int) error
}

// Ledger moves asset balances between accounts. Every mutation either fully
// succeeds or returns an error with no partial application; callers treat a
// returned error as an aborted external call.
type Ledger struct {
	state State
}

func NewLedger() *Ledger { return &Ledger{} }

// SetState wires the ledger to the external persistence layer.
func (l *Ledger) SetState(state State) { l.state = state }

// Normalize canonicalises an asset symbol.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Register records a new asset. Registration is rejected when the symbol is
// already taken so decimals and pair legs stay immutable.
func (l *Ledger) Register(info *Info) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if info == nil || Normalize(info.Symbol) == "" {
		return errInvalidToken
	}
	symbol := Normalize(info.Symbol)
	if _, ok, err := l.state.TokenInfo(symbol); err != nil {
		return err
	} else if ok {
		return ErrTokenExists
	}
	stored := &Info{
		Symbol:   symbol,
		Name:     strings.TrimSpace(info.Name),
		Decimals: info.Decimals,
		Token0:   Normalize(info.Token0),
		Token1:   Normalize(info.Token1),
	}
	return l.state.PutTokenInfo(stored)
}

// Info returns the registered metadata for the symbol.
func (l *Ledger) Info(symbol string) (*Info, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	info, ok, err := l.state.TokenInfo(Normalize(symbol))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownToken
	}
	return info, nil
}

// BalanceOf returns the current balance, zero for untouched accounts.
func (l *Ledger) BalanceOf(symbol string, addr crypto.Address) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	if err := l.requireToken(symbol); err != nil {
		return nil, err
	}
	return l.state.TokenBalance(Normalize(symbol), addr)
}

// TotalSupply returns the minted supply of the asset.
func (l *Ledger) TotalSupply(symbol string) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	if err := l.requireToken(symbol); err != nil {
		return nil, err
	}
	return l.state.TokenSupply(Normalize(symbol))
}

// Allowance returns the remaining amount the spender may pull from the owner.
func (l *Ledger) Allowance(symbol string, owner, spender crypto.Address) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	if err := l.requireToken(symbol); err != nil {
		return nil, err
	}
	return l.state.TokenAllowance(Normalize(symbol), owner, spender)
}

// Approve sets the spender allowance on the owner's balance.
func (l *Ledger) Approve(symbol string, owner, spender crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := l.requireToken(symbol); err != nil {
		return err
	}
	return l.state.SetTokenAllowance(Normalize(symbol), owner, spender, new(big.Int).Set(amount))
}

// Mint credits freshly issued units to the recipient and grows total supply.
func (l *Ledger) Mint(symbol string, to crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	sym := Normalize(symbol)
	if err := l.requireToken(sym); err != nil {
		return err
	}
	supply, err := l.state.TokenSupply(sym)
	if err != nil {
		return err
	}
	balance, err := l.state.TokenBalance(sym, to)
	if err != nil {
		return err
	}
	if err := l.state.SetTokenSupply(sym, new(big.Int).Add(supply, amount)); err != nil {
		return err
	}
	return l.state.SetTokenBalance(sym, to, new(big.Int).Add(balance, amount))
}

// Burn destroys units held by the account and shrinks total supply.
func (l *Ledger) Burn(symbol string, from crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	sym := Normalize(symbol)
	if err := l.requireToken(sym); err != nil {
		return err
	}
	balance, err := l.state.TokenBalance(sym, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	supply, err := l.state.TokenSupply(sym)
	if err != nil {
		return err
	}
	if supply.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if err := l.state.SetTokenSupply(sym, new(big.Int).Sub(supply, amount)); err != nil {
		return err
	}
	return l.state.SetTokenBalance(sym, from, new(big.Int).Sub(balance, amount))
}

// Transfer moves units from one account to another.
func (l *Ledger) Transfer(symbol string, from, to crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	sym := Normalize(symbol)
	if err := l.requireToken(sym); err != nil {
		return err
	}
	return l.move(sym, from, to, amount)
}

// TransferFrom moves units on behalf of the owner, consuming the spender's
// allowance. The allowance check happens before any balance is touched so a
// failure leaves both accounts unchanged.
func (l *Ledger) TransferFrom(symbol string, spender, from, to crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	sym := Normalize(symbol)
	if err := l.requireToken(sym); err != nil {
		return err
	}
	allowance, err := l.state.TokenAllowance(sym, from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	balance, err := l.state.TokenBalance(sym, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if err := l.state.SetTokenAllowance(sym, from, spender, new(big.Int).Sub(allowance, amount)); err != nil {
		return err
	}
	return l.move(sym, from, to, amount)
}

func (l *Ledger) move(sym string, from, to crypto.Address, amount *big.Int) error {
	fromBal, err := l.state.TokenBalance(sym, from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBal, err := l.state.TokenBalance(sym, to)
	if err != nil {
		return err
	}
	if err := l.state.SetTokenBalance(sym, from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return l.state.SetTokenBalance(sym, to, new(big.Int).Add(toBal, amount))
}

func (l *Ledger) requireToken(symbol string) error {
	sym := Normalize(symbol)
	if sym == "" {
		return errInvalidToken
	}
	_, ok, err := l.state.TokenInfo(sym)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownToken
	}
	return nil
}
