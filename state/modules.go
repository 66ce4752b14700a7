package state

import (
	"fmt"
	"math/big"

	"bondvault/crypto"
	"bondvault/native/zap"
)

type storedZapInfo struct {
	Admin [20]byte
}

// ZapInfo loads the zap adapter initialization record.
func (m *Manager) ZapInfo() (*zap.Info, bool, error) {
	stored := new(storedZapInfo)
	ok, err := m.getRecord(hashKey(zapInfoKey), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &zap.Info{Admin: addressFromBytes(stored.Admin)}, true, nil
}

// PutZapInfo stores the zap adapter initialization record.
func (m *Manager) PutZapInfo(info *zap.Info) error {
	if info == nil {
		return fmt.Errorf("state: nil zap info")
	}
	admin, err := addressBytes(info.Admin)
	if err != nil {
		return err
	}
	return m.putRecord(hashKey(zapInfoKey), &storedZapInfo{Admin: admin})
}

func stakingLockedKey(addr crypto.Address) []byte {
	return hashKey(stakingLockedPrefix, addr.Bytes())
}

// LockedBalance loads a staker's locked reward balance.
func (m *Manager) LockedBalance(addr crypto.Address) (*big.Int, error) {
	locked := new(big.Int)
	ok, err := m.getRecord(stakingLockedKey(addr), locked)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return locked, nil
}

// SetLockedBalance stores a staker's locked reward balance.
func (m *Manager) SetLockedBalance(addr crypto.Address, amount *big.Int) error {
	checked, err := checkAmount(amount)
	if err != nil {
		return err
	}
	return m.putRecord(stakingLockedKey(addr), checked)
}

// TotalLocked loads the aggregate locked supply.
func (m *Manager) TotalLocked() (*big.Int, error) {
	total := new(big.Int)
	ok, err := m.getRecord(hashKey(stakingTotalKey), total)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return total, nil
}

// SetTotalLocked stores the aggregate locked supply.
func (m *Manager) SetTotalLocked(amount *big.Int) error {
	checked, err := checkAmount(amount)
	if err != nil {
		return err
	}
	return m.putRecord(hashKey(stakingTotalKey), checked)
}

// BlockHeight loads the persisted chain height.
func (m *Manager) BlockHeight() (uint64, error) {
	var height uint64
	ok, err := m.getRecord(hashKey(chainHeightKey), &height)
	if err != nil || !ok {
		return 0, err
	}
	return height, nil
}

// SetBlockHeight stores the chain height.
func (m *Manager) SetBlockHeight(height uint64) error {
	return m.putRecord(hashKey(chainHeightKey), height)
}

func pauseKey(module string) []byte {
	return hashKey(pausePrefix, []byte(module))
}

// SetPaused flips the pause flag for a module.
func (m *Manager) SetPaused(module string, paused bool) error {
	return m.putRecord(pauseKey(module), paused)
}

// IsPaused reports the pause flag for a module. Read errors report as not
// paused so a corrupt flag cannot brick every operation.
func (m *Manager) IsPaused(module string) bool {
	var paused bool
	ok, err := m.getRecord(pauseKey(module), &paused)
	if err != nil || !ok {
		return false
	}
	return paused
}
