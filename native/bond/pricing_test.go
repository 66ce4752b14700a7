package bond

import (
	"math/big"
	"testing"
)

func TestDebtRatioAndBondPrice(t *testing.T) {
	h := newHarness(t)
	ratio, err := h.eng.DebtRatio()
	if err != nil {
		t.Fatalf("debt ratio: %v", err)
	}
	// 500 BVT of debt against 10_000 BVT of supply is 0.05 in 1e9 terms.
	if ratio.Cmp(big.NewInt(50_000_000)) != 0 {
		t.Fatalf("debt ratio = %s", ratio)
	}
	rate, err := h.eng.PriceRate()
	if err != nil {
		t.Fatalf("price rate: %v", err)
	}
	if rate.Cmp(big.NewInt(500_000_000)) != 0 {
		t.Fatalf("price rate = %s", rate)
	}
	price, err := h.eng.BondPriceUSD()
	if err != nil {
		t.Fatalf("bond price: %v", err)
	}
	if price.Cmp(big.NewInt(5_000_000)) != 0 {
		t.Fatalf("bond price = %s", price)
	}
}

func TestPriceRateFloor(t *testing.T) {
	h := newHarness(t)
	// Raise the floor above the computed 0.5 rate.
	if err := h.eng.SetBondTerms(h.admin, ParameterMinimumRate, big.NewInt(800_000_000)); err != nil {
		t.Fatalf("set minimum rate: %v", err)
	}
	rate, err := h.eng.PriceRate()
	if err != nil {
		t.Fatalf("price rate: %v", err)
	}
	if rate.Cmp(big.NewInt(800_000_000)) != 0 {
		t.Fatalf("floored rate = %s", rate)
	}
	price, err := h.eng.BondPriceUSD()
	if err != nil {
		t.Fatalf("bond price: %v", err)
	}
	if price.Cmp(big.NewInt(8_000_000)) != 0 {
		t.Fatalf("floored price = %s", price)
	}
}

func TestDebtDecaySchedule(t *testing.T) {
	h := newHarness(t)
	decay, err := h.eng.DebtDecay()
	if err != nil {
		t.Fatalf("debt decay: %v", err)
	}
	if decay.Sign() != 0 {
		t.Fatalf("no blocks elapsed, decay = %s", decay)
	}
	h.eng.SetBlockHeight(350)
	decay, err = h.eng.DebtDecay()
	if err != nil {
		t.Fatalf("debt decay: %v", err)
	}
	// A quarter of the vesting term decays a quarter of the debt.
	if decay.Cmp(big.NewInt(125_000_000_000)) != 0 {
		t.Fatalf("quarter decay = %s", decay)
	}
	h.eng.SetBlockHeight(5_000)
	decay, err = h.eng.DebtDecay()
	if err != nil {
		t.Fatalf("debt decay: %v", err)
	}
	if decay.Cmp(big.NewInt(500_000_000_000)) != 0 {
		t.Fatalf("decay past the vesting term must cap at total debt, got %s", decay)
	}
	total, err := h.eng.CurrentDebt()
	if err != nil {
		t.Fatalf("current debt: %v", err)
	}
	if total.Sign() != 0 {
		t.Fatalf("debt should fully decay, got %s", total)
	}
}

func TestMaxPayoutTracksSupply(t *testing.T) {
	h := newHarness(t)
	cap, err := h.eng.MaxPayout()
	if err != nil {
		t.Fatalf("max payout: %v", err)
	}
	// 1% of 10_000 BVT.
	if cap.Cmp(big.NewInt(100_000_000_000)) != 0 {
		t.Fatalf("max payout = %s", cap)
	}
	h.tokens.mint(testReward, testAddr(0x78), mustBig(t, "10000000000000"))
	cap, err = h.eng.MaxPayout()
	if err != nil {
		t.Fatalf("max payout: %v", err)
	}
	if cap.Cmp(big.NewInt(200_000_000_000)) != 0 {
		t.Fatalf("max payout after supply growth = %s", cap)
	}
}

func TestPercentVestedAndPendingPayout(t *testing.T) {
	h := newHarness(t)
	payout, err := h.eng.Deposit(h.caller, oneLP(), big.NewInt(10_000_000), h.depositor)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	percent, err := h.eng.PercentVestedFor(h.depositor)
	if err != nil {
		t.Fatalf("percent vested: %v", err)
	}
	if percent.Sign() != 0 {
		t.Fatalf("fresh bond should be unvested, got %s", percent)
	}

	h.eng.SetBlockHeight(350)
	percent, err = h.eng.PercentVestedFor(h.depositor)
	if err != nil {
		t.Fatalf("percent vested: %v", err)
	}
	if percent.Cmp(big.NewInt(2_500)) != 0 {
		t.Fatalf("quarter vested = %s", percent)
	}
	pending, err := h.eng.PendingPayoutFor(h.depositor)
	if err != nil {
		t.Fatalf("pending payout: %v", err)
	}
	quarter := new(big.Int).Quo(payout, big.NewInt(4))
	if pending.Cmp(quarter) != 0 {
		t.Fatalf("pending = %s, want %s", pending, quarter)
	}

	h.eng.SetBlockHeight(5_000)
	percent, err = h.eng.PercentVestedFor(h.depositor)
	if err != nil {
		t.Fatalf("percent vested: %v", err)
	}
	if percent.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("vested percent must cap at 10000, got %s", percent)
	}
	pending, err = h.eng.PendingPayoutFor(h.depositor)
	if err != nil {
		t.Fatalf("pending payout: %v", err)
	}
	if pending.Cmp(payout) != 0 {
		t.Fatalf("fully vested pending = %s, want %s", pending, payout)
	}
}

func TestPercentVestedZeroVestingRecord(t *testing.T) {
	record := &Bond{Payout: big.NewInt(1), Vesting: 0, LastBlock: 0}
	if got := percentVested(record, 500); got.Sign() != 0 {
		t.Fatalf("zero-vesting record reported %s vested", got)
	}
}

func TestPendingPayoutMissingBond(t *testing.T) {
	h := newHarness(t)
	pending, err := h.eng.PendingPayoutFor(h.depositor)
	if err != nil {
		t.Fatalf("pending payout: %v", err)
	}
	if pending.Sign() != 0 {
		t.Fatalf("expected zero pending, got %s", pending)
	}
}

func TestPayoutQuote(t *testing.T) {
	h := newHarness(t)
	quote, err := h.eng.PayoutFor(oneLP())
	if err != nil {
		t.Fatalf("payout quote: %v", err)
	}
	if quote.Cmp(big.NewInt(20_000_000_000)) != 0 {
		t.Fatalf("quote = %s", quote)
	}
	if _, err := h.eng.PayoutFor(big.NewInt(0)); err == nil {
		t.Fatal("zero amount quote must fail")
	}
}
