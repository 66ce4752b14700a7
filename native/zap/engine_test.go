package zap

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"bondvault/crypto"
	"bondvault/native/token"
)

const (
	testInput     = "USDC"
	testPrinciple = "BVT-USDC-LP"
)

func testAddr(seed byte) crypto.Address {
	buf := make([]byte, 20)
	for i := range buf {
		buf[i] = seed
	}
	return crypto.NewAddress(crypto.BVPrefix, buf)
}

type mockState struct {
	info *Info
}

func (m *mockState) ZapInfo() (*Info, bool, error) {
	if m.info == nil {
		return nil, false, nil
	}
	copied := *m.info
	return &copied, true, nil
}

func (m *mockState) PutZapInfo(info *Info) error {
	copied := *info
	m.info = &copied
	return nil
}

type mockLedger struct {
	balances   map[string]*big.Int
	allowances map[string]*big.Int
	infos      map[string]*token.Info
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]*big.Int),
		infos:      make(map[string]*token.Info),
	}
}

func key(parts ...string) string { return strings.Join(parts, "|") }

func (m *mockLedger) balance(symbol string, addr crypto.Address) *big.Int {
	if bal, ok := m.balances[key(symbol, addr.String())]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

func (m *mockLedger) set(symbol string, addr crypto.Address, amount *big.Int) {
	m.balances[key(symbol, addr.String())] = new(big.Int).Set(amount)
}

func (m *mockLedger) Transfer(symbol string, from, to crypto.Address, amount *big.Int) error {
	fromBal := m.balance(symbol, from)
	if fromBal.Cmp(amount) < 0 {
		return errors.New("mock ledger: insufficient balance")
	}
	m.set(symbol, from, fromBal.Sub(fromBal, amount))
	m.set(symbol, to, new(big.Int).Add(m.balance(symbol, to), amount))
	return nil
}

func (m *mockLedger) TransferFrom(symbol string, spender, from, to crypto.Address, amount *big.Int) error {
	k := key(symbol, from.String(), spender.String())
	allowance, ok := m.allowances[k]
	if !ok || allowance.Cmp(amount) < 0 {
		return errors.New("mock ledger: insufficient allowance")
	}
	if err := m.Transfer(symbol, from, to, amount); err != nil {
		return err
	}
	m.allowances[k] = new(big.Int).Sub(allowance, amount)
	return nil
}

func (m *mockLedger) Approve(symbol string, owner, spender crypto.Address, amount *big.Int) error {
	m.allowances[key(symbol, owner.String(), spender.String())] = new(big.Int).Set(amount)
	return nil
}

func (m *mockLedger) BalanceOf(symbol string, addr crypto.Address) (*big.Int, error) {
	return m.balance(symbol, addr), nil
}

func (m *mockLedger) Info(symbol string) (*token.Info, error) {
	info, ok := m.infos[token.Normalize(symbol)]
	if !ok {
		return nil, token.ErrUnknownToken
	}
	copied := *info
	return &copied, nil
}

type mockDepository struct {
	tokens    *mockLedger
	addr      crypto.Address
	payout    *big.Int
	caller    crypto.Address
	depositor crypto.Address
	amount    *big.Int
	fail      bool
}

func (m *mockDepository) Principle() (string, error) { return testPrinciple, nil }

func (m *mockDepository) ModuleAddress() crypto.Address { return m.addr }

func (m *mockDepository) Deposit(caller crypto.Address, amount, maxPrice *big.Int, depositor crypto.Address) (*big.Int, error) {
	if m.fail {
		return nil, errors.New("mock depository: rejected")
	}
	if err := m.tokens.TransferFrom(testPrinciple, m.addr, caller, m.addr, amount); err != nil {
		return nil, err
	}
	m.caller = caller
	m.depositor = depositor
	m.amount = new(big.Int).Set(amount)
	return new(big.Int).Set(m.payout), nil
}

// mockConverter spends a fixed share of the input and mints pool tokens to
// the recipient. When reenter is set it calls back into the engine to probe
// the guard.
type mockConverter struct {
	tokens  *mockLedger
	addr    crypto.Address
	spend   *big.Int
	mintOut *big.Int
	reenter *Engine
	fail    bool
}

func (m *mockConverter) ModuleAddress() crypto.Address { return m.addr }

func (m *mockConverter) ZapIn(recipient crypto.Address, inputAsset, token0, token1 string, amount, minOut *big.Int) (*big.Int, error) {
	if m.reenter != nil {
		if _, err := m.reenter.ZapToBond(recipient, inputAsset, amount, minOut, big.NewInt(1)); !errors.Is(err, ErrReentrantCall) {
			return nil, errors.New("reentrant call was not rejected")
		}
		return nil, ErrReentrantCall
	}
	if m.fail {
		return nil, errors.New("mock converter: swap failed")
	}
	if minOut != nil && m.mintOut.Cmp(minOut) < 0 {
		return nil, errors.New("mock converter: output below minimum")
	}
	if err := m.tokens.TransferFrom(inputAsset, m.addr, recipient, m.addr, m.spend); err != nil {
		return nil, err
	}
	mint := new(big.Int).Set(m.mintOut)
	m.tokens.set(testPrinciple, recipient, new(big.Int).Add(m.tokens.balance(testPrinciple, recipient), mint))
	return mint, nil
}

func (m *mockConverter) EstimatePoolTokens(inputAsset, token0, token1 string, amount *big.Int) (*big.Int, error) {
	return new(big.Int).Set(m.mintOut), nil
}

type harness struct {
	eng    *Engine
	state  *mockState
	tokens *mockLedger
	dep    *mockDepository
	conv   *mockConverter
	admin  crypto.Address
	caller crypto.Address
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		state:  &mockState{},
		tokens: newMockLedger(),
		admin:  testAddr(0x01),
		caller: testAddr(0x02),
	}
	h.tokens.infos[testInput] = &token.Info{Symbol: testInput, Decimals: 6}
	h.tokens.infos[testPrinciple] = &token.Info{
		Symbol:   testPrinciple,
		Decimals: 18,
		Token0:   "BVT",
		Token1:   testInput,
	}
	h.dep = &mockDepository{
		tokens: h.tokens,
		addr:   crypto.ModuleAddress("bond"),
		payout: big.NewInt(20_000_000_000),
	}
	h.conv = &mockConverter{
		tokens:  h.tokens,
		addr:    crypto.ModuleAddress("converter"),
		spend:   big.NewInt(90),
		mintOut: big.NewInt(1_000),
	}
	h.eng = NewEngine(crypto.ModuleAddress("zap"))
	h.eng.SetState(h.state)
	h.eng.SetTokens(h.tokens)
	h.eng.SetDepository(h.dep)
	h.eng.SetConverter(h.conv)
	if err := h.eng.Initialize(h.admin); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	// Caller holds 100 USDC and approves the adapter for all of it.
	h.tokens.set(testInput, h.caller, big.NewInt(100))
	if err := h.tokens.Approve(testInput, h.caller, h.eng.ModuleAddress(), big.NewInt(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	return h
}

func TestZapToBondHappyPath(t *testing.T) {
	h := newHarness(t)
	payout, err := h.eng.ZapToBond(h.caller, testInput, big.NewInt(100), big.NewInt(500), big.NewInt(10_000_000))
	if err != nil {
		t.Fatalf("zap: %v", err)
	}
	if payout.Cmp(big.NewInt(20_000_000_000)) != 0 {
		t.Fatalf("payout = %s", payout)
	}
	// The converter spent 90, so 10 USDC comes back to the caller.
	if got := h.tokens.balance(testInput, h.caller); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("refund = %s", got)
	}
	// The adapter holds nothing once the call completes.
	if got := h.tokens.balance(testInput, h.eng.ModuleAddress()); got.Sign() != 0 {
		t.Fatalf("adapter input residue = %s", got)
	}
	if got := h.tokens.balance(testPrinciple, h.eng.ModuleAddress()); got.Sign() != 0 {
		t.Fatalf("adapter pool residue = %s", got)
	}
	// Bond credited to the end user, principle paid by the adapter.
	if h.dep.depositor.String() != h.caller.String() {
		t.Fatal("bond not credited to the caller")
	}
	if h.dep.caller.String() != h.eng.ModuleAddress().String() {
		t.Fatal("principle not paid by the adapter")
	}
	if h.dep.amount.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("bonded pool tokens = %s", h.dep.amount)
	}
}

func TestZapToBondRejectsReentrancy(t *testing.T) {
	h := newHarness(t)
	h.conv.reenter = h.eng
	if _, err := h.eng.ZapToBond(h.caller, testInput, big.NewInt(100), big.NewInt(1), big.NewInt(1)); err == nil {
		t.Fatal("expected reentrant converter to fail the zap")
	}
	// The guard is released after the failed call.
	h.conv.reenter = nil
	h.tokens.set(testInput, h.caller, big.NewInt(100))
	if err := h.tokens.Approve(testInput, h.caller, h.eng.ModuleAddress(), big.NewInt(100)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := h.eng.ZapToBond(h.caller, testInput, big.NewInt(100), big.NewInt(500), big.NewInt(10_000_000)); err != nil {
		t.Fatalf("guard not released: %v", err)
	}
}

func TestZapToBondRequiresPoolPair(t *testing.T) {
	h := newHarness(t)
	h.tokens.infos[testPrinciple] = &token.Info{Symbol: testPrinciple, Decimals: 18}
	_, err := h.eng.ZapToBond(h.caller, testInput, big.NewInt(100), big.NewInt(1), big.NewInt(1))
	if !errors.Is(err, ErrNotPoolPair) {
		t.Fatalf("expected ErrNotPoolPair, got %v", err)
	}
}

func TestZapToBondConverterMinimum(t *testing.T) {
	h := newHarness(t)
	_, err := h.eng.ZapToBond(h.caller, testInput, big.NewInt(100), big.NewInt(2_000), big.NewInt(1))
	if err == nil {
		t.Fatal("expected converter minimum to reject the zap")
	}
}

func TestZapToBondDepositoryFailurePropagates(t *testing.T) {
	h := newHarness(t)
	h.dep.fail = true
	if _, err := h.eng.ZapToBond(h.caller, testInput, big.NewInt(100), big.NewInt(500), big.NewInt(1)); err == nil {
		t.Fatal("expected depository failure to propagate")
	}
}

func TestEstimatePoolTokens(t *testing.T) {
	h := newHarness(t)
	estimate, err := h.eng.EstimatePoolTokens(testInput, big.NewInt(100))
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if estimate.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("estimate = %s", estimate)
	}
}

func TestWithdrawAdminSweep(t *testing.T) {
	h := newHarness(t)
	h.tokens.set("DUST", h.eng.ModuleAddress(), big.NewInt(55))
	h.tokens.infos["DUST"] = &token.Info{Symbol: "DUST", Decimals: 18}
	swept, err := h.eng.Withdraw(h.admin, "DUST")
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if swept.Cmp(big.NewInt(55)) != 0 {
		t.Fatalf("swept = %s", swept)
	}
	if got := h.tokens.balance("DUST", h.admin); got.Cmp(big.NewInt(55)) != 0 {
		t.Fatalf("admin balance = %s", got)
	}
	if _, err := h.eng.Withdraw(h.caller, "DUST"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
