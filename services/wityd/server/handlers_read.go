package server

import (
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"wity/crypto"
	"wity/native/common"
	"wity/native/staking"
	"wity/native/token"
)

type amountJSON struct {
	Amount string `json:"amount"`
	Wei    string `json:"wei"`
}

func amountOf(v *big.Int) amountJSON {
	if v == nil {
		v = big.NewInt(0)
	}
	return amountJSON{Amount: common.FormatAmount(v), Wei: v.String()}
}

type positionJSON struct {
	Index          uint64     `json:"index"`
	PlanID         uint64     `json:"plan_id"`
	Amount         amountJSON `json:"amount"`
	StartTime      uint64     `json:"start_time"`
	EndTime        uint64     `json:"end_time"`
	Duration       uint64     `json:"duration_seconds"`
	DailyRewardBps uint64     `json:"daily_reward_bps"`
	Active         bool       `json:"active"`
	PlanVersion    uint64     `json:"plan_version"`
	MinUSDValue    amountJSON `json:"min_usd"`
	Accrued        amountJSON `json:"accrued"`
}

type planJSON struct {
	ID             uint64     `json:"id"`
	Name           string     `json:"name"`
	MinUSDValue    amountJSON `json:"min_usd"`
	DurationDays   uint64     `json:"duration_days"`
	DailyRewardBps uint64     `json:"daily_reward_bps"`
	Required       amountJSON `json:"required"`
}

func accountParam(r *http.Request) ([20]byte, error) {
	addr, err := crypto.ParseAddress(chi.URLParam(r, "addr"))
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return addr.Raw(), nil
}

func uintParam(r *http.Request, name string) (uint64, error) {
	value, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an unsigned integer", errBadRequest, name)
	}
	return value, nil
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	account, err := accountParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	balance, err := s.economy.WalletBalance(account)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	migrated, err := s.economy.IsMigrated(account)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":  crypto.FromRaw(account).String(),
		"balance":  amountOf(balance),
		"migrated": migrated,
	})
}

func (s *Server) positionView(account [20]byte, index uint64, position staking.StakePosition) (positionJSON, error) {
	accrued, err := s.economy.Accrued(account, index)
	if err != nil {
		return positionJSON{}, err
	}
	return positionJSON{
		Index:          index,
		PlanID:         position.PlanID,
		Amount:         amountOf(position.Amount),
		StartTime:      position.StartTime,
		EndTime:        position.EndTime(),
		Duration:       position.Duration,
		DailyRewardBps: position.DailyRewardBps,
		Active:         position.Active,
		PlanVersion:    position.PlanVersion,
		MinUSDValue:    amountOf(position.MinUSDValue),
		Accrued:        amountOf(accrued),
	}, nil
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	account, err := accountParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	positions, err := s.economy.Positions(account)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]positionJSON, 0, len(positions))
	for i, position := range positions {
		view, err := s.positionView(account, uint64(i), position)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out = append(out, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":   crypto.FromRaw(account).String(),
		"positions": out,
	})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	account, err := accountParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	index, err := uintParam(r, "index")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	position, err := s.economy.Position(account, index)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.positionView(account, index, position)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	account, err := accountParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	valuation, err := s.economy.Valuation(r.Context(), account)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account":    crypto.FromRaw(account).String(),
		"wallet":     amountOf(valuation.Wallet),
		"staked":     amountOf(valuation.Staked),
		"price":      amountOf(valuation.Price),
		"wallet_usd": amountOf(valuation.WalletUSD),
		"staked_usd": amountOf(valuation.StakedUSD),
	})
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	table, err := s.economy.PlanTable()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	plans := make([]planJSON, 0, len(table.Plans))
	for _, plan := range table.Plans {
		required, err := s.economy.RequiredAmount(plan.ID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		plans = append(plans, planJSON{
			ID:             plan.ID,
			Name:           plan.Name,
			MinUSDValue:    amountOf(plan.MinUSDValue),
			DurationDays:   plan.Duration / staking.SecondsPerDay,
			DailyRewardBps: plan.DailyRewardBps,
			Required:       amountOf(required),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"version": table.Version, "plans": plans})
}

func (s *Server) handleRequired(w http.ResponseWriter, r *http.Request) {
	planID, err := uintParam(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	required, err := s.economy.RequiredAmount(planID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan_id": planID, "required": amountOf(required)})
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	account, err := accountParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	symbol := token.NormalizeSymbol(chi.URLParam(r, "symbol"))
	balance, err := s.economy.TokenBalance(symbol, account)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":  symbol,
		"account": crypto.FromRaw(account).String(),
		"balance": amountOf(balance),
	})
}

func (s *Server) handleVault(w http.ResponseWriter, r *http.Request) {
	params, err := s.economy.VaultParams()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":    params.Asset,
		"treasury": crypto.FromRaw(params.Treasury).String(),
		"rate":     params.Rate,
	})
}
