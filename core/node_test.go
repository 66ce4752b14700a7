package core

import (
	"math/big"
	"testing"
	"time"

	"bondvault/crypto"
	"bondvault/native/bond"
	"bondvault/native/oracle"
	"bondvault/native/staking"
	"bondvault/native/token"
	"bondvault/native/treasury"
	bvzap "bondvault/native/zap"
	"bondvault/state"
	"bondvault/storage"
)

func testAddr(seed byte) crypto.Address {
	buf := make([]byte, 20)
	for i := range buf {
		buf[i] = seed
	}
	return crypto.NewAddress(crypto.BVPrefix, buf)
}

type nodeHarness struct {
	node    *Node
	manager *state.Manager
	ledger  *token.Ledger
	caller  crypto.Address
}

// newTestNode wires the full engine stack against a fresh in-memory database.
// When registerDepository is false the treasury leg of every deposit fails,
// which is how the discard path is exercised.
func newTestNode(t *testing.T, registerDepository bool) *nodeHarness {
	t.Helper()

	db := storage.NewMemDB()
	manager := state.NewManager(db)
	ledger := token.NewLedger()
	ledger.SetState(manager)

	bondAddr := crypto.ModuleAddress("bond")
	treasuryAddr := crypto.ModuleAddress("treasury")
	stakingAddr := crypto.ModuleAddress("staking")

	admin := testAddr(0x01)
	dao := testAddr(0x02)
	caller := testAddr(0x03)

	if err := ledger.Register(&token.Info{Symbol: "BVT", Decimals: 9}); err != nil {
		t.Fatalf("register BVT: %v", err)
	}
	if err := ledger.Register(&token.Info{Symbol: "BVT-USDC-LP", Decimals: 18, Token0: "BVT", Token1: "USDC"}); err != nil {
		t.Fatalf("register LP: %v", err)
	}

	feed := oracle.NewManual()
	feed.Set("BVT", big.NewInt(10_000_000), time.Now())
	feed.Set("BVT-USDC-LP", big.NewInt(100_000_000), time.Now())

	treasuryEngine := treasury.NewEngine(treasuryAddr)
	treasuryEngine.SetState(manager)
	treasuryEngine.SetTokens(ledger)
	if err := treasuryEngine.Initialize(admin, "BVT", dao); err != nil {
		t.Fatalf("treasury init: %v", err)
	}
	if registerDepository {
		if err := treasuryEngine.Register(admin, "BVT-USDC-LP", bondAddr); err != nil {
			t.Fatalf("treasury register: %v", err)
		}
	}

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
	if err := bondEngine.Initialize("BVT", "BVT-USDC-LP", admin, stakingAddr, treasuryAddr, dao); err != nil {
		t.Fatalf("bond init: %v", err)
	}
	if err := bondEngine.InitializeBondTerms(
		admin, big.NewInt(1_000), 1_000, big.NewInt(0), 10_000, 500,
		new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1_000_000_000)),
		big.NewInt(500_000_000_000),
	); err != nil {
		t.Fatalf("bond terms: %v", err)
	}

	zapEngine := bvzap.NewEngine(crypto.ModuleAddress("zap"))
	zapEngine.SetState(manager)
	zapEngine.SetTokens(ledger)
	zapEngine.SetDepository(bondEngine)

	// Circulating reward supply and treasury float.
	tenThousand := new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1_000_000_000))
	if err := ledger.Mint("BVT", testAddr(0x77), tenThousand); err != nil {
		t.Fatalf("mint BVT: %v", err)
	}
	if err := ledger.Mint("BVT", treasuryAddr, tenThousand); err != nil {
		t.Fatalf("mint BVT: %v", err)
	}
	oneLP := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	if err := ledger.Mint("BVT-USDC-LP", caller, oneLP); err != nil {
		t.Fatalf("mint LP: %v", err)
	}
	if err := ledger.Approve("BVT-USDC-LP", caller, bondAddr, oneLP); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := manager.Commit(); err != nil {
		t.Fatalf("commit genesis: %v", err)
	}

	node, err := NewNode(manager, ledger, bondEngine, treasuryEngine, zapEngine, locker, nil)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return &nodeHarness{
		node:    node,
		manager: manager,
		ledger:  ledger,
		caller:  caller,
	}
}

func oneLPUnit() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}

func TestNodeDepositCommits(t *testing.T) {
	h := newTestNode(t, true)

	payout, err := h.node.BondDeposit(h.caller, oneLPUnit(), big.NewInt(6_000_000), h.caller)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if payout.Cmp(big.NewInt(40_000_000_000)) != 0 {
		t.Fatalf("payout = %s, want 40000000000", payout)
	}

	// The transition committed: the overlay carries no pending writes and
	// no buffered events.
	if events := h.manager.Events(); len(events) != 0 {
		t.Fatalf("expected drained event buffer, found %d", len(events))
	}
	record, found, err := h.node.BondRecord(h.caller)
	if err != nil || !found {
		t.Fatalf("bond record missing: %v", err)
	}
	if record.Payout.Cmp(payout) != 0 {
		t.Fatalf("recorded payout = %s", record.Payout)
	}
}

func TestNodeDepositFailureDiscards(t *testing.T) {
	h := newTestNode(t, false)

	if _, err := h.node.BondDeposit(h.caller, oneLPUnit(), big.NewInt(6_000_000), h.caller); err == nil {
		t.Fatal("expected deposit to fail without a trusted depository")
	}

	// The failed transition left nothing behind.
	balance, err := h.ledger.BalanceOf("BVT-USDC-LP", h.caller)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(oneLPUnit()) != 0 {
		t.Fatalf("caller balance = %s, want untouched", balance)
	}
	if _, found, _ := h.node.BondRecord(h.caller); found {
		t.Fatal("no bond record should survive a failed deposit")
	}
}

func TestNodeAdvanceBlockPersistsHeight(t *testing.T) {
	h := newTestNode(t, true)

	start := h.node.Height()
	for i := 0; i < 3; i++ {
		if err := h.node.AdvanceBlock(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if got := h.node.Height(); got != start+3 {
		t.Fatalf("height = %d, want %d", got, start+3)
	}

	// A rebuilt node resumes from the stored height.
	restored, err := NewNode(h.manager, h.ledger, nil, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("rebuild node: %v", err)
	}
	if restored.Height() != start+3 {
		t.Fatalf("restored height = %d, want %d", restored.Height(), start+3)
	}
}

func TestNodeRedeemAfterVesting(t *testing.T) {
	h := newTestNode(t, true)

	payout, err := h.node.BondDeposit(h.caller, oneLPUnit(), big.NewInt(6_000_000), h.caller)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	for i := 0; i < 1_000; i++ {
		if err := h.node.AdvanceBlock(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}

	claimed, err := h.node.BondRedeem(h.caller, false)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if claimed.Cmp(payout) != 0 {
		t.Fatalf("claimed = %s, want full payout %s", claimed, payout)
	}
	if _, found, _ := h.node.BondRecord(h.caller); found {
		t.Fatal("record must clear on full redemption")
	}
}

func TestNodePauseGate(t *testing.T) {
	h := newTestNode(t, true)

	if err := h.node.SetPaused("bond", true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := h.node.BondDeposit(h.caller, oneLPUnit(), big.NewInt(6_000_000), h.caller); err == nil {
		t.Fatal("expected paused module to reject deposits")
	}
	if err := h.node.SetPaused("bond", false); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := h.node.BondDeposit(h.caller, oneLPUnit(), big.NewInt(6_000_000), h.caller); err != nil {
		t.Fatalf("deposit after unpause: %v", err)
	}
}
