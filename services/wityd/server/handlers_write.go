package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"wity/crypto"
	"wity/native/common"
	"wity/native/staking"
	"wity/native/token"
)

func decodeBody(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func parseAddress(field, value string) ([20]byte, error) {
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %s: %v", errBadRequest, field, err)
	}
	return addr.Raw(), nil
}

func parseAmount(field, value string) (*big.Int, error) {
	amount, err := common.ParseAmount(value)
	if err != nil {
		if errors.Is(err, common.ErrAmountOverflow) || errors.Is(err, common.ErrNegativeAmount) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", errBadRequest, field, err)
	}
	return amount, nil
}

func (s *Server) caller(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthenticated", "signature required")
	}
	return caller, ok
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		PlanID *uint64 `json:"plan_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.PlanID == nil {
		s.fail(w, r, fmt.Errorf("%w: plan_id required", errBadRequest))
		return
	}
	index, err := s.economy.Stake(caller, *req.PlanID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	position, err := s.economy.Position(caller, index)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.positionView(caller, index, position)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	result, err := s.economy.MigrateStaked(r.Context(), caller)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":   crypto.FromRaw(caller).String(),
		"principal": amountOf(result.Principal),
		"reward":    amountOf(result.Reward),
		"credited":  amountOf(result.Credited),
	})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount string `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	credited, err := s.economy.Buy(caller, amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":  crypto.FromRaw(caller).String(),
		"paid":     amountOf(amount),
		"credited": amountOf(credited),
	})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		To     string `json:"to"`
		Amount string `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	symbol := token.NormalizeSymbol(chi.URLParam(r, "symbol"))
	if err := s.economy.TokenTransfer(symbol, caller, to, amount); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "amount": amountOf(amount)})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Spender string `json:"spender"`
		Amount  string `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	spender, err := parseAddress("spender", req.Spender)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	symbol := token.NormalizeSymbol(chi.URLParam(r, "symbol"))
	if err := s.economy.TokenApprove(symbol, caller, spender, amount); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "allowance": amountOf(amount)})
}

// --- administration ---

func (s *Server) handleSetAuthorized(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Target  string `json:"target"`
		Allowed bool   `json:"allowed"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	target, err := parseAddress("target", req.Target)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.economy.SetAuthorized(caller, target, req.Allowed); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		NewOwner string `json:"new_owner"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	owner, err := parseAddress("new_owner", req.NewOwner)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.economy.TransferOwnership(caller, owner); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type planRequest struct {
	Name           string `json:"name"`
	MinUSD         string `json:"min_usd"`
	DurationDays   uint64 `json:"duration_days"`
	DailyRewardBps uint64 `json:"daily_reward_bps"`
}

func (s *Server) handlePublishPlans(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Plans []planRequest `json:"plans"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	plans := make([]staking.Plan, 0, len(req.Plans))
	for i, p := range req.Plans {
		minUSD, err := parseAmount(fmt.Sprintf("plans[%d].min_usd", i), p.MinUSD)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		plans = append(plans, staking.Plan{
			ID:             uint64(i),
			Name:           strings.TrimSpace(p.Name),
			MinUSDValue:    minUSD,
			Duration:       p.DurationDays * staking.SecondsPerDay,
			DailyRewardBps: p.DailyRewardBps,
		})
	}
	version, err := s.economy.PublishPlans(caller, plans)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": version})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Module string `json:"module"`
		Paused bool   `json:"paused"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.economy.SetPaused(caller, req.Module, req.Paused); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTreasury(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Treasury string `json:"treasury"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	treasury, err := parseAddress("treasury", req.Treasury)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.economy.SetTreasury(caller, treasury); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFeeExclusion(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Symbol   string `json:"symbol"`
		Account  string `json:"account"`
		Excluded bool   `json:"excluded"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	account, err := parseAddress("account", req.Account)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.economy.ExcludeFromFee(token.NormalizeSymbol(req.Symbol), caller, account, req.Excluded); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAMMPair(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Symbol string `json:"symbol"`
		Pair   string `json:"pair"`
		Marked bool   `json:"marked"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	pair, err := parseAddress("pair", req.Pair)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.economy.SetAutomatedMarketMakerPair(token.NormalizeSymbol(req.Symbol), caller, pair, req.Marked); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
