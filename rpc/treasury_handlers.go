package rpc

import (
	"encoding/json"
	"net/http"
)

type treasuryDepositParams struct {
	Caller    string `json:"caller"`
	Amount    string `json:"amount"`
	Asset     string `json:"asset"`
	PayAmount string `json:"payAmount,omitempty"`
}

type treasuryRegisterParams struct {
	Caller    string `json:"caller"`
	Asset     string `json:"asset"`
	Depositor string `json:"depositor"`
}

type treasuryRevokeParams struct {
	Caller    string `json:"caller"`
	Depositor string `json:"depositor"`
}

type treasuryAssetParams struct {
	Asset string `json:"asset"`
}

func (s *Server) handleTreasuryDeposit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params treasuryDepositParams
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
	payAmount, err := parseNonNegative(params.PayAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid payAmount", err.Error())
		return
	}
	if err := s.node.TreasuryDeposit(caller, amount, params.Asset, payAmount); err != nil {
		writeEngineError(w, req.ID, "treasury deposit failed", err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleTreasuryRegister(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params treasuryRegisterParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	depositor, err := parseAddress(params.Depositor)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid depositor address", err.Error())
		return
	}
	if err := s.node.TreasuryRegister(caller, params.Asset, depositor); err != nil {
		writeEngineError(w, req.ID, "register failed", err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleTreasuryRevokeDepositor(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params treasuryRevokeParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller address", err.Error())
		return
	}
	depositor, err := parseAddress(params.Depositor)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid depositor address", err.Error())
		return
	}
	if err := s.node.TreasuryRevokeDepositor(caller, depositor); err != nil {
		writeEngineError(w, req.ID, "revoke failed", err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleTreasuryRecoverStrayAsset(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params treasuryAssetParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	swept, err := s.node.TreasuryRecoverStrayAsset(params.Asset)
	if err != nil {
		writeEngineError(w, req.ID, "recover failed", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(swept)})
}

func (s *Server) handleTreasuryAssets(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	assets, err := s.node.TreasuryAssets()
	if err != nil {
		writeEngineError(w, req.ID, "asset list unavailable", err)
		return
	}
	writeResult(w, req.ID, assets)
}

func (s *Server) handleTreasuryDepositors(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	depositors, err := s.node.TreasuryDepositors()
	if err != nil {
		writeEngineError(w, req.ID, "depositor list unavailable", err)
		return
	}
	encoded := make([]string, 0, len(depositors))
	for _, addr := range depositors {
		encoded = append(encoded, addr.String())
	}
	writeResult(w, req.ID, encoded)
}

func (s *Server) handleTreasuryIsTrustedDepositor(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	addr, ok := s.addressParam(w, req)
	if !ok {
		return
	}
	trusted, err := s.node.TreasuryIsTrustedDepositor(addr)
	if err != nil {
		writeEngineError(w, req.ID, "depositor lookup failed", err)
		return
	}
	writeResult(w, req.ID, trusted)
}

func (s *Server) handleTreasuryPaidFor(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return
	}
	var params treasuryAssetParams
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	paid, err := s.node.TreasuryPaidFor(params.Asset)
	if err != nil {
		writeEngineError(w, req.ID, "paid lookup failed", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(paid)})
}

func (s *Server) handleTreasuryRewardBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	balance, err := s.node.TreasuryRewardBalance()
	if err != nil {
		writeEngineError(w, req.ID, "reward balance unavailable", err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: formatAmount(balance)})
}
