package rpc

import (
	"encoding/json"
	"net/http"
)

type zapToBondParams struct {
	Caller        string `json:"caller"`
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
	MinPoolTokens string `json:"minPoolTokens,omitempty"`
	MaxPrice      string `json:"maxPrice"`
}

type zapEstimateParams struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type zapWithdrawParams struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
}

type stakeUnstakeParams struct {
	Caller string `json:"caller"`
	Amount string `json:"amount"`
}

type tokenBalanceParams struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

type tokenSupplyParams struct {
	Symbol string `json:"symbol"`
}

type setPausedParams struct {
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

func (s *Server) handleZapToBond(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params zapToBondParams
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
	minPoolTokens, err := parseNonNegative(params.MinPoolTokens)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid minPoolTokens", err.Error())
		return
	}
	maxPrice, err := parseAmount(params.MaxPrice)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid maxPrice", err.Error())
		return
	}
	payout, err := s.node.ZapToBond(caller, params.Asset, amount, minPoolTokens, maxPrice)
	if err != nil {
		writeEngineError(w, req.ID, "zap failed", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(payout)})
}

func (s *Server) handleZapEstimate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params zapEstimateParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	estimate, err := s.node.ZapEstimate(params.Asset, amount)
	if err != nil {
		writeEngineError(w, req.ID, "estimate unavailable", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(estimate)})
}

func (s *Server) handleZapWithdraw(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params zapWithdrawParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	swept, err := s.node.ZapWithdraw(caller, params.Asset)
	if err != nil {
		writeEngineError(w, req.ID, "withdraw failed", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(swept)})
}

func (s *Server) handleStakeUnstake(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params stakeUnstakeParams
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
	if err := s.node.Unstake(caller, amount); err != nil {
		writeEngineError(w, req.ID, "unstake failed", err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleStakeLockedOf(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, ok := s.addressParam(w, req)
	if !ok {
		return
	}
	locked, err := s.node.LockedOf(addr)
	if err != nil {
		writeEngineError(w, req.ID, "locked balance unavailable", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(locked)})
}

func (s *Server) handleStakeTotalLocked(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	total, err := s.node.TotalLocked()
	if err != nil {
		writeEngineError(w, req.ID, "total locked unavailable", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(total)})
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params tokenBalanceParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return
	}
	balance, err := s.node.TokenBalance(params.Symbol, addr)
	if err != nil {
		writeEngineError(w, req.ID, "balance unavailable", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(balance)})
}

func (s *Server) handleTokenSupply(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params tokenSupplyParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	supply, err := s.node.TokenSupply(params.Symbol)
	if err != nil {
		writeEngineError(w, req.ID, "supply unavailable", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(supply)})
}

func (s *Server) handleChainHeight(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	writeResult(w, req.ID, s.node.Height())
}

func (s *Server) handleSetPaused(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params setPausedParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	if params.Module == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "module is required", nil)
		return
	}
	if err := s.node.SetPaused(params.Module, params.Paused); err != nil {
		writeEngineError(w, req.ID, "set paused failed", err)
		return
	}
	writeResult(w, req.ID, true)
}
