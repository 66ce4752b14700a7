package rpc

import (
	"encoding/json"
	"net/http"

	"bondvault/crypto"
)

type bondDepositParams struct {
	Caller    string `json:"caller"`
	Amount    string `json:"amount"`
	MaxPrice  string `json:"maxPrice"`
	Depositor string `json:"depositor,omitempty"`
}

type bondRedeemParams struct {
	Recipient string `json:"recipient"`
	Stake     bool   `json:"stake,omitempty"`
}

type bondInitializeTermsParams struct {
	Caller           string `json:"caller"`
	ControlVariable  string `json:"controlVariable"`
	VestingTerm      uint64 `json:"vestingTerm"`
	MinimumPriceRate string `json:"minimumPriceRate,omitempty"`
	MaxPayout        uint64 `json:"maxPayout"`
	Fee              uint64 `json:"fee"`
	MaxDebt          string `json:"maxDebt"`
	InitialDebt      string `json:"initialDebt,omitempty"`
}

type bondSetTermsParams struct {
	Caller    string `json:"caller"`
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
}

type bondSetAdjustmentParams struct {
	Caller string `json:"caller"`
	Add    bool   `json:"add"`
	Rate   string `json:"rate"`
	Target string `json:"target"`
	Buffer uint64 `json:"buffer"`
}

type bondSetStakingParams struct {
	Caller  string `json:"caller"`
	Staking string `json:"staking"`
}

type bondAddressParams struct {
	Address string `json:"address"`
}

func (s *Server) handleBondDeposit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params bondDepositParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	maxPrice, err := parseAmount(params.MaxPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid maxPrice", err.Error())
		return
	}
	depositor := caller
	if params.Depositor != "" {
		depositor, err = parseAddress(params.Depositor)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid depositor address", err.Error())
			return
		}
	}
	payout, err := s.node.BondDeposit(caller, amount, maxPrice, depositor)
	if err != nil {
		writeEngineError(w, req.ID, "deposit failed", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(payout)})
}

func (s *Server) handleBondRedeem(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params bondRedeemParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid recipient address", err.Error())
		return
	}
	payout, err := s.node.BondRedeem(recipient, params.Stake)
	if err != nil {
		writeEngineError(w, req.ID, "redeem failed", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(payout)})
}

func (s *Server) handleBondInitializeTerms(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params bondInitializeTermsParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	controlVariable, err := parseAmount(params.ControlVariable)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid controlVariable", err.Error())
		return
	}
	minimumRate, err := parseNonNegative(params.MinimumPriceRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid minimumPriceRate", err.Error())
		return
	}
	maxDebt, err := parseAmount(params.MaxDebt)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid maxDebt", err.Error())
		return
	}
	initialDebt, err := parseNonNegative(params.InitialDebt)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid initialDebt", err.Error())
		return
	}
	if err := s.node.BondInitializeTerms(caller, controlVariable, params.VestingTerm, minimumRate, params.MaxPayout, params.Fee, maxDebt, initialDebt); err != nil {
		writeEngineError(w, req.ID, "initialize terms failed", err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleBondSetTerms(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params bondSetTermsParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	parameter, err := parseParameter(params.Parameter)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, err := parseNonNegative(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid value", err.Error())
		return
	}
	if err := s.node.BondSetTerms(caller, parameter, value); err != nil {
		writeEngineError(w, req.ID, "set terms failed", err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleBondSetAdjustment(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params bondSetAdjustmentParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	rate, err := parseNonNegative(params.Rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid rate", err.Error())
		return
	}
	target, err := parseAmount(params.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid target", err.Error())
		return
	}
	if err := s.node.BondSetAdjustment(caller, params.Add, rate, target, params.Buffer); err != nil {
		writeEngineError(w, req.ID, "set adjustment failed", err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleBondSetStaking(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params bondSetStakingParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	staking, err := parseAddress(params.Staking)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid staking address", err.Error())
		return
	}
	if err := s.node.BondSetStaking(caller, staking); err != nil {
		writeEngineError(w, req.ID, "set staking failed", err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleBondPrice(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	price, err := s.node.BondPriceUSD()
	if err != nil {
		writeEngineError(w, req.ID, "price unavailable", err)
		return
	}
	writeResult(w, req.ID, priceResult{PriceUSD: formatAmount(price)})
}

func (s *Server) handleBondDebtRatio(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	ratio, err := s.node.BondDebtRatio()
	if err != nil {
		writeEngineError(w, req.ID, "debt ratio unavailable", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(ratio)})
}

func (s *Server) handleBondCurrentDebt(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	debt, err := s.node.BondCurrentDebt()
	if err != nil {
		writeEngineError(w, req.ID, "current debt unavailable", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(debt)})
}

func (s *Server) handleBondMaxPayout(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	payout, err := s.node.BondMaxPayout()
	if err != nil {
		writeEngineError(w, req.ID, "max payout unavailable", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(payout)})
}

func (s *Server) handleBondPayoutFor(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params struct {
		Amount string `json:"amount"`
	}
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	payout, err := s.node.BondPayoutFor(amount)
	if err != nil {
		writeEngineError(w, req.ID, "payout quote unavailable", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(payout)})
}

func (s *Server) handleBondTerms(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	terms, err := s.node.BondTerms()
	if err != nil {
		writeEngineError(w, req.ID, "terms unavailable", err)
		return
	}
	writeResult(w, req.ID, bondTermsResult{
		ControlVariable:  formatAmount(terms.ControlVariable),
		VestingTerm:      terms.VestingTerm,
		MinimumPriceRate: formatAmount(terms.MinimumPriceRate),
		MaxPayout:        terms.MaxPayout,
		Fee:              terms.Fee,
		MaxDebt:          formatAmount(terms.MaxDebt),
	})
}

func (s *Server) handleBondInfo(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, ok := s.addressParam(w, req)
	if !ok {
		return
	}
	record, found, err := s.node.BondRecord(addr)
	if err != nil {
		writeEngineError(w, req.ID, "bond lookup failed", err)
		return
	}
	if !found {
		writeResult(w, req.ID, nil)
		return
	}
	writeResult(w, req.ID, bondInfoResult{
		Payout:    formatAmount(record.Payout),
		Vesting:   record.Vesting,
		LastBlock: record.LastBlock,
		PricePaid: formatAmount(record.PricePaid),
	})
}

func (s *Server) handleBondPendingPayout(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, ok := s.addressParam(w, req)
	if !ok {
		return
	}
	pending, err := s.node.BondPendingPayout(addr)
	if err != nil {
		writeEngineError(w, req.ID, "pending payout unavailable", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(pending)})
}

func (s *Server) handleBondPercentVested(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, ok := s.addressParam(w, req)
	if !ok {
		return
	}
	percent, err := s.node.BondPercentVested(addr)
	if err != nil {
		writeEngineError(w, req.ID, "vested percent unavailable", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(percent)})
}

// addressParam decodes the single {address} parameter object shared by the
// per-depositor views.
func (s *Server) addressParam(w http.ResponseWriter, req *RPCRequest) (crypto.Address, bool) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return crypto.Address{}, false
	}
	var params bondAddressParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return crypto.Address{}, false
	}
	decoded, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return crypto.Address{}, false
	}
	return decoded, true
}
