package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"bondvault/core/types"
	"bondvault/crypto"
	"bondvault/native/bond"
	"bondvault/native/token"
	"bondvault/native/treasury"
	"bondvault/native/zap"
	"bondvault/storage"
)

func testAddr(seed byte) crypto.Address {
	buf := make([]byte, 20)
	for i := range buf {
		buf[i] = seed
	}
	return crypto.NewAddress(crypto.BVPrefix, buf)
}

func newTestManager(t *testing.T) (*Manager, *storage.MemDB) {
	t.Helper()
	db := storage.NewMemDB()
	return NewManager(db), db
}

func TestOverlayIsolatesUncommittedWrites(t *testing.T) {
	manager, db := newTestManager(t)
	require.NoError(t, manager.SetTokenSupply("BVT", big.NewInt(42)))

	// The overlay sees the write, the database does not.
	supply, err := manager.TokenSupply("BVT")
	require.NoError(t, err)
	require.Equal(t, int64(42), supply.Int64())
	_, err = db.Get(tokenSupplyKey("BVT"))
	require.ErrorIs(t, err, storage.ErrKeyNotFound)

	require.NoError(t, manager.Commit())
	_, err = db.Get(tokenSupplyKey("BVT"))
	require.NoError(t, err)

	supply, err = manager.TokenSupply("BVT")
	require.NoError(t, err)
	require.Equal(t, int64(42), supply.Int64())
}

func TestDiscardDropsWritesAndEvents(t *testing.T) {
	manager, _ := newTestManager(t)
	require.NoError(t, manager.SetTokenSupply("BVT", big.NewInt(7)))
	manager.AppendEvent(&types.Event{Type: "bond.created"})
	manager.Discard()

	supply, err := manager.TokenSupply("BVT")
	require.NoError(t, err)
	require.Zero(t, supply.Sign())
	require.Empty(t, manager.Events())
}

func TestDeleteTombstoneMasksCommittedValue(t *testing.T) {
	manager, _ := newTestManager(t)
	addr := testAddr(0x01)
	record := &bond.Bond{
		Payout:    big.NewInt(1_000),
		Vesting:   100,
		LastBlock: 5,
		PricePaid: big.NewInt(5_000_000),
	}
	require.NoError(t, manager.PutBond(addr, record))
	require.NoError(t, manager.Commit())

	require.NoError(t, manager.DeleteBond(addr))
	_, ok, err := manager.Bond(addr)
	require.NoError(t, err)
	require.False(t, ok, "tombstone must mask the committed record")

	require.NoError(t, manager.Commit())
	_, ok, err = manager.Bond(addr)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBondRoundTrips(t *testing.T) {
	manager, _ := newTestManager(t)
	info := &bond.Info{
		Version:     1,
		RewardToken: "BVT",
		Principle:   "BVT-USDC-LP",
		Admin:       testAddr(0x01),
		Staking:     testAddr(0x02),
		Treasury:    testAddr(0x03),
		DAO:         testAddr(0x04),
	}
	require.NoError(t, manager.PutBondInfo(info))
	loaded, ok, err := manager.BondInfo()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, info.RewardToken, loaded.RewardToken)
	require.Equal(t, info.Admin.String(), loaded.Admin.String())
	require.Equal(t, info.DAO.String(), loaded.DAO.String())

	terms := &bond.Terms{
		ControlVariable:  big.NewInt(1_000),
		VestingTerm:      10_000,
		MinimumPriceRate: big.NewInt(400_000_000),
		MaxPayout:        500,
		Fee:              100,
		MaxDebt:          big.NewInt(1_000_000_000_000),
	}
	require.NoError(t, manager.PutBondTerms(terms))
	loadedTerms, ok, err := manager.BondTerms()
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, terms.ControlVariable.Cmp(loadedTerms.ControlVariable))
	require.Equal(t, terms.VestingTerm, loadedTerms.VestingTerm)
	require.Zero(t, terms.MaxDebt.Cmp(loadedTerms.MaxDebt))

	adj := &bond.Adjustment{Add: true, Rate: big.NewInt(25), Target: big.NewInt(1_100), Buffer: 3, LastBlock: 77}
	require.NoError(t, manager.PutBondAdjustment(adj))
	loadedAdj, ok, err := manager.BondAdjustment()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, loadedAdj.Add)
	require.Zero(t, adj.Rate.Cmp(loadedAdj.Rate))
	require.Equal(t, uint64(77), loadedAdj.LastBlock)

	debt := &bond.DebtLedger{TotalDebt: big.NewInt(500_000_000_000), LastDecay: 100}
	require.NoError(t, manager.PutBondDebt(debt))
	loadedDebt, ok, err := manager.BondDebt()
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, debt.TotalDebt.Cmp(loadedDebt.TotalDebt))
}

func TestAmountRangeCheck(t *testing.T) {
	manager, _ := newTestManager(t)
	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	err := manager.SetTokenSupply("BVT", tooBig)
	require.ErrorIs(t, err, ErrAmountRange)
	err = manager.SetTokenBalance("BVT", testAddr(0x01), big.NewInt(-1))
	require.ErrorIs(t, err, ErrAmountRange)
}

func TestTreasuryRoundTrips(t *testing.T) {
	manager, _ := newTestManager(t)
	info := &treasury.Info{Admin: testAddr(0x01), RewardToken: "BVT", DAO: testAddr(0x02)}
	require.NoError(t, manager.PutTreasuryInfo(info))
	loaded, ok, err := manager.TreasuryInfo()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "BVT", loaded.RewardToken)

	require.NoError(t, manager.PutTreasuryAssets([]string{"BVT-USDC-LP", "WETH"}))
	assets, err := manager.TreasuryAssets()
	require.NoError(t, err)
	require.Equal(t, []string{"BVT-USDC-LP", "WETH"}, assets)

	depositors := []crypto.Address{testAddr(0x05), testAddr(0x06)}
	require.NoError(t, manager.PutTreasuryDepositors(depositors))
	loadedDeps, err := manager.TreasuryDepositors()
	require.NoError(t, err)
	require.Len(t, loadedDeps, 2)
	require.Equal(t, depositors[0].String(), loadedDeps[0].String())

	require.NoError(t, manager.SetTreasuryDepositorTrusted(depositors[0], true))
	trusted, err := manager.TreasuryDepositorTrusted(depositors[0])
	require.NoError(t, err)
	require.True(t, trusted)
	trusted, err = manager.TreasuryDepositorTrusted(depositors[1])
	require.NoError(t, err)
	require.False(t, trusted)

	require.NoError(t, manager.SetTreasuryPaid("WETH", big.NewInt(123)))
	paid, err := manager.TreasuryPaid("WETH")
	require.NoError(t, err)
	require.Equal(t, int64(123), paid.Int64())
	paid, err = manager.TreasuryPaid("UNSET")
	require.NoError(t, err)
	require.Zero(t, paid.Sign())
}

func TestTokenStateRoundTrips(t *testing.T) {
	manager, _ := newTestManager(t)
	info := &token.Info{Symbol: "BVT-USDC-LP", Name: "Pool", Decimals: 18, Token0: "BVT", Token1: "USDC"}
	require.NoError(t, manager.PutTokenInfo(info))
	loaded, ok, err := manager.TokenInfo("BVT-USDC-LP")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, loaded.IsPair())
	require.Equal(t, uint8(18), loaded.Decimals)

	owner, spender := testAddr(0x01), testAddr(0x02)
	require.NoError(t, manager.SetTokenBalance("BVT", owner, big.NewInt(55)))
	balance, err := manager.TokenBalance("BVT", owner)
	require.NoError(t, err)
	require.Equal(t, int64(55), balance.Int64())

	require.NoError(t, manager.SetTokenAllowance("BVT", owner, spender, big.NewInt(10)))
	allowance, err := manager.TokenAllowance("BVT", owner, spender)
	require.NoError(t, err)
	require.Equal(t, int64(10), allowance.Int64())
	// Reversed direction stays zero.
	allowance, err = manager.TokenAllowance("BVT", spender, owner)
	require.NoError(t, err)
	require.Zero(t, allowance.Sign())
}

func TestZapStakingAndPauseState(t *testing.T) {
	manager, _ := newTestManager(t)
	require.NoError(t, manager.PutZapInfo(&zap.Info{Admin: testAddr(0x09)}))
	info, ok, err := manager.ZapInfo()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, testAddr(0x09).String(), info.Admin.String())

	addr := testAddr(0x0a)
	require.NoError(t, manager.SetLockedBalance(addr, big.NewInt(900)))
	locked, err := manager.LockedBalance(addr)
	require.NoError(t, err)
	require.Equal(t, int64(900), locked.Int64())
	require.NoError(t, manager.SetTotalLocked(big.NewInt(900)))
	total, err := manager.TotalLocked()
	require.NoError(t, err)
	require.Equal(t, int64(900), total.Int64())

	require.False(t, manager.IsPaused("bond"))
	require.NoError(t, manager.SetPaused("bond", true))
	require.True(t, manager.IsPaused("bond"))
	require.NoError(t, manager.SetPaused("bond", false))
	require.False(t, manager.IsPaused("bond"))
}

func TestEventsDrainOnCommit(t *testing.T) {
	manager, _ := newTestManager(t)
	manager.AppendEvent(&types.Event{Type: "bond.created", Attributes: map[string]string{"payout": "1"}})
	manager.AppendEvent(&types.Event{Type: "bond.price_changed"})
	events := manager.Events()
	require.Len(t, events, 2)
	require.Equal(t, "bond.created", events[0].Type)

	require.NoError(t, manager.Commit())
	require.Empty(t, manager.Events())
}
