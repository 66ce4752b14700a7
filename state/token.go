package state

import (
	"fmt"
	"math/big"

	"bondvault/crypto"
	"bondvault/native/token"
)

type storedTokenInfo struct {
	Symbol   string
	Name     string
	Decimals uint8
	Token0   string
	Token1   string
}

func tokenInfoKey(symbol string) []byte {
	return hashKey(tokenInfoPrefix, []byte(symbol))
}

func tokenBalanceKey(symbol string, addr crypto.Address) []byte {
	return hashKey(tokenBalancePrefix, []byte(symbol), addr.Bytes())
}

func tokenAllowanceKey(symbol string, owner, spender crypto.Address) []byte {
	return hashKey(tokenAllowancePrefix, []byte(symbol), owner.Bytes(), spender.Bytes())
}

func tokenSupplyKey(symbol string) []byte {
	return hashKey(tokenSupplyPrefix, []byte(symbol))
}

// TokenInfo loads the metadata for a registered asset.
func (m *Manager) TokenInfo(symbol string) (*token.Info, bool, error) {
	stored := new(storedTokenInfo)
	ok, err := m.getRecord(tokenInfoKey(symbol), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &token.Info{
		Symbol:   stored.Symbol,
		Name:     stored.Name,
		Decimals: stored.Decimals,
		Token0:   stored.Token0,
		Token1:   stored.Token1,
	}, true, nil
}

// PutTokenInfo stores the metadata for a registered asset.
func (m *Manager) PutTokenInfo(info *token.Info) error {
	if info == nil {
		return fmt.Errorf("state: nil token info")
	}
	return m.putRecord(tokenInfoKey(info.Symbol), &storedTokenInfo{
		Symbol:   info.Symbol,
		Name:     info.Name,
		Decimals: info.Decimals,
		Token0:   info.Token0,
		Token1:   info.Token1,
	})
}

// TokenBalance loads an account balance, zero when untouched.
func (m *Manager) TokenBalance(symbol string, addr crypto.Address) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := m.getRecord(tokenBalanceKey(symbol, addr), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

// SetTokenBalance stores an account balance.
func (m *Manager) SetTokenBalance(symbol string, addr crypto.Address, amount *big.Int) error {
	checked, err := checkAmount(amount)
	if err != nil {
		return err
	}
	return m.putRecord(tokenBalanceKey(symbol, addr), checked)
}

// TokenAllowance loads a spender allowance, zero when unset.
func (m *Manager) TokenAllowance(symbol string, owner, spender crypto.Address) (*big.Int, error) {
	allowance := new(big.Int)
	ok, err := m.getRecord(tokenAllowanceKey(symbol, owner, spender), allowance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return allowance, nil
}

// SetTokenAllowance stores a spender allowance.
func (m *Manager) SetTokenAllowance(symbol string, owner, spender crypto.Address, amount *big.Int) error {
	checked, err := checkAmount(amount)
	if err != nil {
		return err
	}
	return m.putRecord(tokenAllowanceKey(symbol, owner, spender), checked)
}

// TokenSupply loads the minted supply of an asset.
func (m *Manager) TokenSupply(symbol string) (*big.Int, error) {
	supply := new(big.Int)
	ok, err := m.getRecord(tokenSupplyKey(symbol), supply)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return supply, nil
}

// SetTokenSupply stores the minted supply of an asset.
func (m *Manager) SetTokenSupply(symbol string, amount *big.Int) error {
	checked, err := checkAmount(amount)
	if err != nil {
		return err
	}
	return m.putRecord(tokenSupplyKey(symbol), checked)
}
