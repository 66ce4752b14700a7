package state

import (
	"fmt"
	"math/big"

	"bondvault/crypto"
	"bondvault/native/bond"
)

type storedBondInfo struct {
	Version     uint64
	RewardToken string
	Principle   string
	Admin       [20]byte
	Staking     [20]byte
	Treasury    [20]byte
	DAO         [20]byte
}

type storedBondTerms struct {
	ControlVariable  *big.Int
	VestingTerm      uint64
	MinimumPriceRate *big.Int
	MaxPayout        uint64
	Fee              uint64
	MaxDebt          *big.Int
}

type storedAdjustment struct {
	Add       bool
	Rate      *big.Int
	Target    *big.Int
	Buffer    uint64
	LastBlock uint64
}

type storedBond struct {
	Payout    *big.Int
	Vesting   uint64
	LastBlock uint64
	PricePaid *big.Int
}

type storedDebt struct {
	TotalDebt *big.Int
	LastDecay uint64
}

func addressBytes(addr crypto.Address) ([20]byte, error) {
	var out [20]byte
	raw := addr.Bytes()
	if len(raw) != 20 {
		return out, fmt.Errorf("state: address must be 20 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func addressFromBytes(raw [20]byte) crypto.Address {
	return crypto.NewAddress(crypto.BVPrefix, append([]byte{}, raw[:]...))
}

func bondRecordKey(addr crypto.Address) []byte {
	return hashKey(bondRecordPrefix, addr.Bytes())
}

// BondInfo loads the depository initialization record.
func (m *Manager) BondInfo() (*bond.Info, bool, error) {
	stored := new(storedBondInfo)
	ok, err := m.getRecord(hashKey(bondInfoKey), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &bond.Info{
		Version:     stored.Version,
		RewardToken: stored.RewardToken,
		Principle:   stored.Principle,
		Admin:       addressFromBytes(stored.Admin),
		Staking:     addressFromBytes(stored.Staking),
		Treasury:    addressFromBytes(stored.Treasury),
		DAO:         addressFromBytes(stored.DAO),
	}, true, nil
}

// PutBondInfo stores the depository initialization record.
func (m *Manager) PutBondInfo(info *bond.Info) error {
	if info == nil {
		return fmt.Errorf("state: nil bond info")
	}
	stored := &storedBondInfo{
		Version:     info.Version,
		RewardToken: info.RewardToken,
		Principle:   info.Principle,
	}
	var err error
	if stored.Admin, err = addressBytes(info.Admin); err != nil {
		return err
	}
	if stored.Staking, err = addressBytes(info.Staking); err != nil {
		return err
	}
	if stored.Treasury, err = addressBytes(info.Treasury); err != nil {
		return err
	}
	if stored.DAO, err = addressBytes(info.DAO); err != nil {
		return err
	}
	return m.putRecord(hashKey(bondInfoKey), stored)
}

// BondTerms loads the active bonding terms.
func (m *Manager) BondTerms() (*bond.Terms, bool, error) {
	stored := new(storedBondTerms)
	ok, err := m.getRecord(hashKey(bondTermsKey), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &bond.Terms{
		ControlVariable:  bigOrZero(stored.ControlVariable),
		VestingTerm:      stored.VestingTerm,
		MinimumPriceRate: bigOrZero(stored.MinimumPriceRate),
		MaxPayout:        stored.MaxPayout,
		Fee:              stored.Fee,
		MaxDebt:          bigOrZero(stored.MaxDebt),
	}, true, nil
}

// PutBondTerms stores the active bonding terms.
func (m *Manager) PutBondTerms(terms *bond.Terms) error {
	if terms == nil {
		return fmt.Errorf("state: nil bond terms")
	}
	cv, err := checkAmount(terms.ControlVariable)
	if err != nil {
		return err
	}
	minRate, err := checkAmount(terms.MinimumPriceRate)
	if err != nil {
		return err
	}
	maxDebt, err := checkAmount(terms.MaxDebt)
	if err != nil {
		return err
	}
	return m.putRecord(hashKey(bondTermsKey), &storedBondTerms{
		ControlVariable:  cv,
		VestingTerm:      terms.VestingTerm,
		MinimumPriceRate: minRate,
		MaxPayout:        terms.MaxPayout,
		Fee:              terms.Fee,
		MaxDebt:          maxDebt,
	})
}

// BondAdjustment loads the scheduled control-variable ramp.
func (m *Manager) BondAdjustment() (*bond.Adjustment, bool, error) {
	stored := new(storedAdjustment)
	ok, err := m.getRecord(hashKey(bondAdjustmentKey), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &bond.Adjustment{
		Add:       stored.Add,
		Rate:      bigOrZero(stored.Rate),
		Target:    bigOrZero(stored.Target),
		Buffer:    stored.Buffer,
		LastBlock: stored.LastBlock,
	}, true, nil
}

// PutBondAdjustment stores the scheduled control-variable ramp.
func (m *Manager) PutBondAdjustment(adj *bond.Adjustment) error {
	if adj == nil {
		return fmt.Errorf("state: nil bond adjustment")
	}
	rate, err := checkAmount(adj.Rate)
	if err != nil {
		return err
	}
	target, err := checkAmount(adj.Target)
	if err != nil {
		return err
	}
	return m.putRecord(hashKey(bondAdjustmentKey), &storedAdjustment{
		Add:       adj.Add,
		Rate:      rate,
		Target:    target,
		Buffer:    adj.Buffer,
		LastBlock: adj.LastBlock,
	})
}

// BondDebt loads the outstanding debt ledger.
func (m *Manager) BondDebt() (*bond.DebtLedger, bool, error) {
	stored := new(storedDebt)
	ok, err := m.getRecord(hashKey(bondDebtKey), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &bond.DebtLedger{
		TotalDebt: bigOrZero(stored.TotalDebt),
		LastDecay: stored.LastDecay,
	}, true, nil
}

// PutBondDebt stores the outstanding debt ledger.
func (m *Manager) PutBondDebt(debt *bond.DebtLedger) error {
	if debt == nil {
		return fmt.Errorf("state: nil debt ledger")
	}
	total, err := checkAmount(debt.TotalDebt)
	if err != nil {
		return err
	}
	return m.putRecord(hashKey(bondDebtKey), &storedDebt{
		TotalDebt: total,
		LastDecay: debt.LastDecay,
	})
}

// Bond loads a depositor's vesting record.
func (m *Manager) Bond(addr crypto.Address) (*bond.Bond, bool, error) {
	stored := new(storedBond)
	ok, err := m.getRecord(bondRecordKey(addr), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &bond.Bond{
		Payout:    bigOrZero(stored.Payout),
		Vesting:   stored.Vesting,
		LastBlock: stored.LastBlock,
		PricePaid: bigOrZero(stored.PricePaid),
	}, true, nil
}

// PutBond stores a depositor's vesting record.
func (m *Manager) PutBond(addr crypto.Address, record *bond.Bond) error {
	if record == nil {
		return fmt.Errorf("state: nil bond record")
	}
	payout, err := checkAmount(record.Payout)
	if err != nil {
		return err
	}
	price, err := checkAmount(record.PricePaid)
	if err != nil {
		return err
	}
	return m.putRecord(bondRecordKey(addr), &storedBond{
		Payout:    payout,
		Vesting:   record.Vesting,
		LastBlock: record.LastBlock,
		PricePaid: price,
	})
}

// DeleteBond removes a fully redeemed vesting record.
func (m *Manager) DeleteBond(addr crypto.Address) error {
	return m.delete(bondRecordKey(addr))
}
