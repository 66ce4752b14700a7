package staking

import (
	"errors"
	"math/big"

	"bondvault/crypto"
)

var (
	ErrInsufficientStake = errors.New("staking locker: insufficient locked balance")
	ErrZeroAddress       = errors.New("staking locker: zero address")

	errInvalidAmount = errors.New("staking locker: amount must be positive")
	errNilState      = errors.New("staking locker: state not configured")
	errNotWired      = errors.New("staking locker: collaborators not configured")
)

type lockerState interface {
	LockedBalance(addr crypto.Address) (*big.Int, error)
	SetLockedBalance(addr crypto.Address, amount *big.Int) error
	TotalLocked() (*big.Int, error)
	SetTotalLocked(amount *big.Int) error
}

// TokenLedger is the asset-transfer collaborator.
type TokenLedger interface {
	Transfer(symbol string, from, to crypto.Address, amount *big.Int) error
	TransferFrom(symbol string, spender, from, to crypto.Address, amount *big.Int) error
}

// Locker holds reward tokens on behalf of redeemers who chose to stake
// their payout instead of receiving it directly. It pulls the tokens from a
// configured funding source that approved the locker's address.
type Locker struct {
	state         lockerState
	tokens        TokenLedger
	moduleAddress crypto.Address
	source        crypto.Address
	rewardToken   string
}

// NewLocker constructs a locker bound to its custody address.
func NewLocker(moduleAddr crypto.Address, rewardToken string) *Locker {
	return &Locker{moduleAddress: moduleAddr, rewardToken: rewardToken}
}

// SetState wires the locker to the external persistence layer.
func (l *Locker) SetState(state lockerState) { l.state = state }

// SetTokens wires the asset-transfer collaborator.
func (l *Locker) SetTokens(ledger TokenLedger) {
	if l == nil {
		return
	}
	l.tokens = ledger
}

// SetFundingSource configures the account the locker pulls approved reward
// tokens from on Stake.
func (l *Locker) SetFundingSource(source crypto.Address) {
	if l == nil {
		return
	}
	l.source = source
}

// ModuleAddress returns the locker custody address.
func (l *Locker) ModuleAddress() crypto.Address { return l.moduleAddress }

// Stake pulls `amount` of the reward token from the funding source and
// credits the recipient's locked balance.
func (l *Locker) Stake(recipient crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if l.tokens == nil || l.source.IsZero() {
		return errNotWired
	}
	if recipient.IsZero() {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	if err := l.tokens.TransferFrom(l.rewardToken, l.moduleAddress, l.source, l.moduleAddress, amount); err != nil {
		return err
	}
	locked, err := l.state.LockedBalance(recipient)
	if err != nil {
		return err
	}
	if err := l.state.SetLockedBalance(recipient, new(big.Int).Add(locked, amount)); err != nil {
		return err
	}
	total, err := l.state.TotalLocked()
	if err != nil {
		return err
	}
	return l.state.SetTotalLocked(new(big.Int).Add(total, amount))
}

// Unstake releases locked reward tokens back to the caller.
func (l *Locker) Unstake(caller crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if l.tokens == nil {
		return errNotWired
	}
	if caller.IsZero() {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	locked, err := l.state.LockedBalance(caller)
	if err != nil {
		return err
	}
	if locked.Cmp(amount) < 0 {
		return ErrInsufficientStake
	}
	if err := l.tokens.Transfer(l.rewardToken, l.moduleAddress, caller, amount); err != nil {
		return err
	}
	if err := l.state.SetLockedBalance(caller, new(big.Int).Sub(locked, amount)); err != nil {
		return err
	}
	total, err := l.state.TotalLocked()
	if err != nil {
		return err
	}
	next := new(big.Int).Sub(total, amount)
	if next.Sign() < 0 {
		next = big.NewInt(0)
	}
	return l.state.SetTotalLocked(next)
}

// LockedOf reports the caller's locked balance.
func (l *Locker) LockedOf(addr crypto.Address) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	return l.state.LockedBalance(addr)
}

// TotalLocked reports the aggregate locked supply.
func (l *Locker) TotalLocked() (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	return l.state.TotalLocked()
}
