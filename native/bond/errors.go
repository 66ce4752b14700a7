package bond

import "errors"

// Authorization failures.
var (
	ErrUnauthorized = errors.New("bond depository: caller is not the admin")
)

// Validation failures.
var (
	ErrZeroAddress      = errors.New("bond depository: zero address")
	errInvalidAmount    = errors.New("bond depository: amount must be positive")
	errInvalidParameter = errors.New("bond depository: unknown term parameter")
	errPayoutBound      = errors.New("bond depository: max payout above 10000")
	errFeeBound         = errors.New("bond depository: fee above 10000")
	errRateBound        = errors.New("bond depository: minimum price rate above 1e9")
	errControlVariable  = errors.New("bond depository: control variable must be positive")
	errVestingZero      = errors.New("bond depository: vesting term must be nonzero")
	errVestingRange     = errors.New("bond depository: vesting term out of range")
	errAdjustmentRate   = errors.New("bond depository: adjustment rate above 2.5% of control variable")
	errAdjustmentTarget = errors.New("bond depository: adjustment target on wrong side of control variable")
)

// State failures.
var (
	errNilState           = errors.New("bond depository: state not configured")
	errNotWired           = errors.New("bond depository: collaborators not configured")
	ErrNotInitialized     = errors.New("bond depository: not initialized")
	ErrAlreadyInitialized = errors.New("bond depository: already initialized")
	ErrTermsInitialized   = errors.New("bond depository: bond terms already initialized")
)

// Economic limit failures.
var (
	ErrCapacityExceeded = errors.New("bond depository: max debt capacity exceeded")
	ErrSlippageExceeded = errors.New("bond depository: bond price above caller maximum")
	ErrBondTooSmall     = errors.New("bond depository: payout below minimum floor")
	ErrBondTooLarge     = errors.New("bond depository: payout above max payout")
	errRewardSupply     = errors.New("bond depository: reward token supply required")
	errPriceZero        = errors.New("bond depository: bond price must be positive")
)
