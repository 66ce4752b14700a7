package state

import (
	"fmt"
	"math/big"

	"bondvault/crypto"
	"bondvault/native/treasury"
)

type storedTreasuryInfo struct {
	Admin       [20]byte
	RewardToken string
	DAO         [20]byte
}

func treasuryAssetFlagKey(asset string) []byte {
	return hashKey(treasuryAssetPrefix, []byte(asset))
}

func treasuryDepositorFlagKey(addr crypto.Address) []byte {
	return hashKey(treasuryDepositorFlag, addr.Bytes())
}

func treasuryPaidKey(asset string) []byte {
	return hashKey(treasuryPaidPrefix, []byte(asset))
}

// TreasuryInfo loads the treasury initialization record.
func (m *Manager) TreasuryInfo() (*treasury.Info, bool, error) {
	stored := new(storedTreasuryInfo)
	ok, err := m.getRecord(hashKey(treasuryInfoKey), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &treasury.Info{
		Admin:       addressFromBytes(stored.Admin),
		RewardToken: stored.RewardToken,
		DAO:         addressFromBytes(stored.DAO),
	}, true, nil
}

// PutTreasuryInfo stores the treasury initialization record.
func (m *Manager) PutTreasuryInfo(info *treasury.Info) error {
	if info == nil {
		return fmt.Errorf("state: nil treasury info")
	}
	stored := &storedTreasuryInfo{RewardToken: info.RewardToken}
	var err error
	if stored.Admin, err = addressBytes(info.Admin); err != nil {
		return err
	}
	if stored.DAO, err = addressBytes(info.DAO); err != nil {
		return err
	}
	return m.putRecord(hashKey(treasuryInfoKey), stored)
}

// TreasuryAssets loads the ordered trusted-asset list.
func (m *Manager) TreasuryAssets() ([]string, error) {
	var assets []string
	if _, err := m.getRecord(hashKey(treasuryAssetsKey), &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// PutTreasuryAssets stores the ordered trusted-asset list.
func (m *Manager) PutTreasuryAssets(assets []string) error {
	return m.putRecord(hashKey(treasuryAssetsKey), assets)
}

// TreasuryAssetTrusted reports the trust flag for an asset.
func (m *Manager) TreasuryAssetTrusted(asset string) (bool, error) {
	var trusted bool
	ok, err := m.getRecord(treasuryAssetFlagKey(asset), &trusted)
	if err != nil || !ok {
		return false, err
	}
	return trusted, nil
}

// SetTreasuryAssetTrusted stores the trust flag for an asset.
func (m *Manager) SetTreasuryAssetTrusted(asset string, trusted bool) error {
	return m.putRecord(treasuryAssetFlagKey(asset), trusted)
}

// TreasuryDepositors loads the depositor enumeration list, revoked entries
// included.
func (m *Manager) TreasuryDepositors() ([]crypto.Address, error) {
	var raw [][20]byte
	if _, err := m.getRecord(hashKey(treasuryDepositorsKey), &raw); err != nil {
		return nil, err
	}
	out := make([]crypto.Address, len(raw))
	for i, entry := range raw {
		out[i] = addressFromBytes(entry)
	}
	return out, nil
}

// PutTreasuryDepositors stores the depositor enumeration list.
func (m *Manager) PutTreasuryDepositors(depositors []crypto.Address) error {
	raw := make([][20]byte, len(depositors))
	for i, addr := range depositors {
		entry, err := addressBytes(addr)
		if err != nil {
			return err
		}
		raw[i] = entry
	}
	return m.putRecord(hashKey(treasuryDepositorsKey), raw)
}

// TreasuryDepositorTrusted reports the trust flag for a depositor.
func (m *Manager) TreasuryDepositorTrusted(addr crypto.Address) (bool, error) {
	var trusted bool
	ok, err := m.getRecord(treasuryDepositorFlagKey(addr), &trusted)
	if err != nil || !ok {
		return false, err
	}
	return trusted, nil
}

// SetTreasuryDepositorTrusted stores the trust flag for a depositor.
func (m *Manager) SetTreasuryDepositorTrusted(addr crypto.Address, trusted bool) error {
	return m.putRecord(treasuryDepositorFlagKey(addr), trusted)
}

// TreasuryPaid loads the cumulative reward paid against an asset.
func (m *Manager) TreasuryPaid(asset string) (*big.Int, error) {
	paid := new(big.Int)
	ok, err := m.getRecord(treasuryPaidKey(asset), paid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return paid, nil
}

// SetTreasuryPaid stores the cumulative reward paid against an asset.
func (m *Manager) SetTreasuryPaid(asset string, amount *big.Int) error {
	checked, err := checkAmount(amount)
	if err != nil {
		return err
	}
	return m.putRecord(treasuryPaidKey(asset), checked)
}
