package swap

import (
	"errors"
	"math/big"

	"bondvault/crypto"
	"bondvault/native/token"
)

var (
	ErrInsufficientReserve = errors.New("swap converter: pool reserve below requested output")
	ErrBelowMinimum        = errors.New("swap converter: output below minimum")
	ErrPairMismatch        = errors.New("swap converter: pool legs do not match")
	ErrZeroAddress         = errors.New("swap converter: zero address")

	errInvalidAmount = errors.New("swap converter: amount must be positive")
	errInvalidAsset  = errors.New("swap converter: asset symbol required")
	errPriceZero     = errors.New("swap converter: oracle price unavailable")
	errNotWired      = errors.New("swap converter: collaborators not configured")
)

// TokenLedger is the asset-transfer collaborator.
type TokenLedger interface {
	Transfer(symbol string, from, to crypto.Address, amount *big.Int) error
	TransferFrom(symbol string, spender, from, to crypto.Address, amount *big.Int) error
	BalanceOf(symbol string, addr crypto.Address) (*big.Int, error)
	Info(symbol string) (*token.Info, error)
}

// PriceSource quotes 6-decimal USD prices.
type PriceSource interface {
	PriceUSD(asset string) (*big.Int, error)
}

// Converter fills zaps out of a pool-token reserve held at its own address,
// pricing the input against the pool token through the oracle. The reserve
// is funded by transferring pool tokens to the converter address.
type Converter struct {
	tokens        TokenLedger
	prices        PriceSource
	moduleAddress crypto.Address
	pool          string
}

// NewConverter constructs a converter bound to its custody address and the
// pool token it deals in.
func NewConverter(moduleAddr crypto.Address, pool string) *Converter {
	return &Converter{moduleAddress: moduleAddr, pool: token.Normalize(pool)}
}

// SetTokens wires the asset-transfer collaborator.
func (c *Converter) SetTokens(ledger TokenLedger) {
	if c == nil {
		return
	}
	c.tokens = ledger
}

// SetPrices wires the USD price source.
func (c *Converter) SetPrices(prices PriceSource) {
	if c == nil {
		return
	}
	c.prices = prices
}

// ModuleAddress returns the converter custody address.
func (c *Converter) ModuleAddress() crypto.Address { return c.moduleAddress }

// ZapIn pulls the input from the recipient, credits pool tokens out of the
// reserve at the oracle rate and returns the amount produced.
func (c *Converter) ZapIn(recipient crypto.Address, inputAsset, token0, token1 string, amount, minOut *big.Int) (*big.Int, error) {
	out, err := c.quote(inputAsset, token0, token1, amount)
	if err != nil {
		return nil, err
	}
	if recipient.IsZero() {
		return nil, ErrZeroAddress
	}
	if out.Sign() == 0 || (minOut != nil && out.Cmp(minOut) < 0) {
		return nil, ErrBelowMinimum
	}
	reserve, err := c.tokens.BalanceOf(c.pool, c.moduleAddress)
	if err != nil {
		return nil, err
	}
	if reserve.Cmp(out) < 0 {
		return nil, ErrInsufficientReserve
	}
	if err := c.tokens.TransferFrom(token.Normalize(inputAsset), c.moduleAddress, recipient, c.moduleAddress, amount); err != nil {
		return nil, err
	}
	if err := c.tokens.Transfer(c.pool, c.moduleAddress, recipient, out); err != nil {
		return nil, err
	}
	return out, nil
}

// EstimatePoolTokens quotes ZapIn without moving funds.
func (c *Converter) EstimatePoolTokens(inputAsset, token0, token1 string, amount *big.Int) (*big.Int, error) {
	return c.quote(inputAsset, token0, token1, amount)
}

func (c *Converter) quote(inputAsset, token0, token1 string, amount *big.Int) (*big.Int, error) {
	if c == nil || c.tokens == nil || c.prices == nil {
		return nil, errNotWired
	}
	input := token.Normalize(inputAsset)
	if input == "" {
		return nil, errInvalidAsset
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	poolInfo, err := c.tokens.Info(c.pool)
	if err != nil {
		return nil, err
	}
	if poolInfo.Token0 != token.Normalize(token0) || poolInfo.Token1 != token.Normalize(token1) {
		return nil, ErrPairMismatch
	}
	inputInfo, err := c.tokens.Info(input)
	if err != nil {
		return nil, err
	}
	inputPrice, err := c.prices.PriceUSD(input)
	if err != nil {
		return nil, err
	}
	poolPrice, err := c.prices.PriceUSD(c.pool)
	if err != nil {
		return nil, err
	}
	if inputPrice == nil || inputPrice.Sign() <= 0 || poolPrice == nil || poolPrice.Sign() <= 0 {
		return nil, errPriceZero
	}
	valueUSD := new(big.Int).Mul(amount, inputPrice)
	valueUSD.Quo(valueUSD, unit(inputInfo.Decimals))
	out := new(big.Int).Mul(valueUSD, unit(poolInfo.Decimals))
	return out.Quo(out, poolPrice), nil
}

func unit(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
