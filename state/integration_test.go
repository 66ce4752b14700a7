package state

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bondvault/crypto"
	"bondvault/native/bond"
	"bondvault/native/oracle"
	"bondvault/native/staking"
	"bondvault/native/token"
	"bondvault/native/treasury"
)

// Full deposit and redeem cycle with every engine running against one
// Manager, the way the daemon wires them.
func TestDepositRedeemThroughManager(t *testing.T) {
	manager, _ := newTestManager(t)

	ledger := token.NewLedger()
	ledger.SetState(manager)

	bondAddr := crypto.ModuleAddress("bond")
	treasuryAddr := crypto.ModuleAddress("treasury")
	stakingAddr := crypto.ModuleAddress("staking")

	admin := testAddr(0x01)
	dao := testAddr(0x02)
	caller := testAddr(0x03)

	require.NoError(t, ledger.Register(&token.Info{Symbol: "BVT", Name: "BondVault Token", Decimals: 9}))
	require.NoError(t, ledger.Register(&token.Info{
		Symbol:   "BVT-USDC-LP",
		Name:     "BVT/USDC Pool",
		Decimals: 18,
		Token0:   "BVT",
		Token1:   "USDC",
	}))

	feed := oracle.NewManual()
	feed.Set("BVT", big.NewInt(10_000_000), time.Now())
	feed.Set("BVT-USDC-LP", big.NewInt(100_000_000), time.Now())

	treasuryEngine := treasury.NewEngine(treasuryAddr)
	treasuryEngine.SetState(manager)
	treasuryEngine.SetTokens(ledger)
	require.NoError(t, treasuryEngine.Initialize(admin, "BVT", dao))
	require.NoError(t, treasuryEngine.Register(admin, "BVT-USDC-LP", bondAddr))

	locker := staking.NewLocker(stakingAddr, "BVT")
	locker.SetState(manager)
	locker.SetTokens(ledger)
	locker.SetFundingSource(bondAddr)

	bondEngine := bond.NewEngine(bondAddr)
	bondEngine.SetState(manager)
	bondEngine.SetTokens(ledger)
	bondEngine.SetTreasury(treasuryEngine)
	bondEngine.SetOracle(oracle.NewSource(feed))
	bondEngine.SetStaker(locker)
	bondEngine.SetBlockHeight(100)
	require.NoError(t, bondEngine.Initialize("BVT", "BVT-USDC-LP", admin, stakingAddr, treasuryAddr, dao))
	require.NoError(t, bondEngine.InitializeBondTerms(
		admin,
		big.NewInt(1_000),
		1_000,
		big.NewInt(0),
		10_000,
		500,
		new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1_000_000_000)),
		big.NewInt(500_000_000_000),
	))

	// Circulating reward supply and treasury float.
	tenThousand := new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1_000_000_000))
	require.NoError(t, ledger.Mint("BVT", testAddr(0x77), tenThousand))
	require.NoError(t, ledger.Mint("BVT", treasuryAddr, tenThousand))

	// Caller funds and approval for the depository.
	oneLP := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	require.NoError(t, ledger.Mint("BVT-USDC-LP", caller, oneLP))
	require.NoError(t, ledger.Approve("BVT-USDC-LP", caller, bondAddr, oneLP))

	require.NoError(t, manager.Commit())

	payout, err := bondEngine.Deposit(caller, oneLP, big.NewInt(6_000_000), caller)
	require.NoError(t, err)
	// Supply of 20_000 BVT halves the debt ratio: the bond trades at $2.50
	// and $100 of LP buys 40 BVT.
	require.Zero(t, payout.Cmp(big.NewInt(40_000_000_000)))
	require.NoError(t, manager.Commit())

	// The treasury took the principle and recorded the pay amount.
	lpBalance, err := ledger.BalanceOf("BVT-USDC-LP", treasuryAddr)
	require.NoError(t, err)
	require.Zero(t, lpBalance.Cmp(oneLP))
	paid, err := treasuryEngine.PaidFor("BVT-USDC-LP")
	require.NoError(t, err)
	fee := new(big.Int).Quo(payout, big.NewInt(20))
	require.Zero(t, paid.Cmp(new(big.Int).Add(payout, fee)))

	// The fee reached the DAO.
	daoBalance, err := ledger.BalanceOf("BVT", dao)
	require.NoError(t, err)
	require.Zero(t, daoBalance.Cmp(fee))

	// Half-vested redeem straight to the wallet.
	bondEngine.SetBlockHeight(600)
	claimed, err := bondEngine.Redeem(caller, false)
	require.NoError(t, err)
	half := new(big.Int).Quo(payout, big.NewInt(2))
	require.Zero(t, claimed.Cmp(half))
	require.NoError(t, manager.Commit())

	// Remaining half redeemed into the staking locker.
	bondEngine.SetBlockHeight(1_200)
	claimed, err = bondEngine.Redeem(caller, true)
	require.NoError(t, err)
	require.Zero(t, claimed.Cmp(half))
	require.NoError(t, manager.Commit())

	locked, err := locker.LockedOf(caller)
	require.NoError(t, err)
	require.Zero(t, locked.Cmp(half))
	walletBalance, err := ledger.BalanceOf("BVT", caller)
	require.NoError(t, err)
	require.Zero(t, walletBalance.Cmp(half))

	// The depository custody account ends flat.
	custody, err := ledger.BalanceOf("BVT", bondAddr)
	require.NoError(t, err)
	require.Zero(t, custody.Sign())
}

// A failed deposit discarded at the manager level leaves no trace.
func TestFailedDepositDiscardLeavesStateClean(t *testing.T) {
	manager, _ := newTestManager(t)

	ledger := token.NewLedger()
	ledger.SetState(manager)

	bondAddr := crypto.ModuleAddress("bond")
	treasuryAddr := crypto.ModuleAddress("treasury")
	admin := testAddr(0x01)
	dao := testAddr(0x02)
	caller := testAddr(0x03)

	require.NoError(t, ledger.Register(&token.Info{Symbol: "BVT", Decimals: 9}))
	require.NoError(t, ledger.Register(&token.Info{Symbol: "BVT-USDC-LP", Decimals: 18, Token0: "BVT", Token1: "USDC"}))

	feed := oracle.NewManual()
	feed.Set("BVT", big.NewInt(10_000_000), time.Now())
	feed.Set("BVT-USDC-LP", big.NewInt(100_000_000), time.Now())

	treasuryEngine := treasury.NewEngine(treasuryAddr)
	treasuryEngine.SetState(manager)
	treasuryEngine.SetTokens(ledger)
	require.NoError(t, treasuryEngine.Initialize(admin, "BVT", dao))
	// The depository is deliberately NOT registered as a depositor, so the
	// treasury leg of the deposit fails.

	bondEngine := bond.NewEngine(bondAddr)
	bondEngine.SetState(manager)
	bondEngine.SetTokens(ledger)
	bondEngine.SetTreasury(treasuryEngine)
	bondEngine.SetOracle(oracle.NewSource(feed))
	bondEngine.SetBlockHeight(100)
	require.NoError(t, bondEngine.Initialize("BVT", "BVT-USDC-LP", admin, testAddr(0x04), treasuryAddr, dao))
	require.NoError(t, bondEngine.InitializeBondTerms(
		admin, big.NewInt(1_000), 1_000, big.NewInt(0), 10_000, 500,
		new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1_000_000_000)),
		big.NewInt(500_000_000_000),
	))

	tenThousand := new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1_000_000_000))
	require.NoError(t, ledger.Mint("BVT", testAddr(0x77), tenThousand))
	oneLP := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	require.NoError(t, ledger.Mint("BVT-USDC-LP", caller, oneLP))
	require.NoError(t, ledger.Approve("BVT-USDC-LP", caller, bondAddr, oneLP))
	require.NoError(t, manager.Commit())

	_, err := bondEngine.Deposit(caller, oneLP, big.NewInt(100_000_000), caller)
	require.ErrorIs(t, err, treasury.ErrNotDepositor)
	manager.Discard()

	// Everything reads exactly as committed before the failed attempt.
	balance, err := ledger.BalanceOf("BVT-USDC-LP", caller)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(oneLP))
	debt, err := bondEngine.CurrentDebt()
	require.NoError(t, err)
	require.Zero(t, debt.Cmp(big.NewInt(500_000_000_000)))
	_, ok, err := bondEngine.BondInfoFor(caller)
	require.NoError(t, err)
	require.False(t, ok)
}
