package server

import (
	"fmt"
	"net/http"

	"wity/crypto"
	"wity/native/token"
)

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
		Amount  string `json:"amount"`
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
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.dev.FaucetCap != nil && amount.Cmp(s.dev.FaucetCap) > 0 {
		s.fail(w, r, fmt.Errorf("%w: amount exceeds faucet cap", errBadRequest))
		return
	}
	symbol := token.NormalizeSymbol(s.dev.FaucetAsset)
	if symbol == "" {
		symbol = token.SymbolUSDT
	}
	// the faucet asset is open-mint, so the recipient acts as its own minter
	if err := s.economy.TokenMint(symbol, account, account, amount); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":  symbol,
		"account": crypto.FromRaw(account).String(),
		"minted":  amountOf(amount),
	})
}

func (s *Server) handleDevPrice(w http.ResponseWriter, r *http.Request) {
	if s.dev.Price == nil {
		writeError(w, http.StatusNotImplemented, "NotConfigured", "manual price feed not in use")
		return
	}
	var req struct {
		PriceCents uint64 `json:"price_cents"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.dev.Price.SetPriceCents(req.PriceCents); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"price_cents": req.PriceCents})
}

func (s *Server) handleDevLegacyStake(w http.ResponseWriter, r *http.Request) {
	if s.dev.Legacy == nil {
		writeError(w, http.StatusNotImplemented, "NotConfigured", "static legacy source not in use")
		return
	}
	var req struct {
		Account   string `json:"account"`
		Principal string `json:"principal"`
		Reward    string `json:"reward"`
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
	principal, err := parseAmount("principal", req.Principal)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	reward, err := parseAmount("reward", req.Reward)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.dev.Legacy.SetStake(account, principal, reward)
	writeJSON(w, http.StatusOK, map[string]any{
		"account":   crypto.FromRaw(account).String(),
		"principal": amountOf(principal),
		"reward":    amountOf(reward),
	})
}
