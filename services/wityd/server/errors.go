package server

import (
	"errors"
	"net/http"

	"wity/core"
	"wity/native/auth"
	"wity/native/common"
	"wity/native/migration"
	"wity/native/oracle"
	"wity/native/staking"
	"wity/native/token"
	"wity/native/vault"
)

// errBadRequest marks request decoding and parameter failures.
var errBadRequest = errors.New("invalid request")

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorBody{Error: kind, Message: message})
}

type errorClass struct {
	target error
	status int
	kind   string
}

// Order matters: the vault wraps the underlying token error in
// ErrPaymentTransferFailed.
var errorClasses = []errorClass{
	{vault.ErrPaymentTransferFailed, http.StatusUnprocessableEntity, "PaymentTransferFailed"},
	{staking.ErrCallerNotAuthorized, http.StatusForbidden, "CallerNotAuthorized"},
	{auth.ErrUnauthorized, http.StatusForbidden, "Unauthorized"},
	{token.ErrMintNotAllowed, http.StatusForbidden, "Unauthorized"},
	{staking.ErrInsufficientWalletBalance, http.StatusUnprocessableEntity, "InsufficientWalletBalance"},
	{staking.ErrAlreadyMigrated, http.StatusConflict, "AlreadyMigrated"},
	{migration.ErrNothingToMigrate, http.StatusUnprocessableEntity, "NothingToMigrate"},
	{staking.ErrIndexOutOfRange, http.StatusNotFound, "IndexOutOfRange"},
	{staking.ErrPlanNotFound, http.StatusNotFound, "PlanNotFound"},
	{token.ErrTokenNotFound, http.StatusNotFound, "TokenNotFound"},
	{token.ErrInsufficientBalance, http.StatusUnprocessableEntity, "InsufficientBalance"},
	{token.ErrInsufficientAllowance, http.StatusUnprocessableEntity, "InsufficientAllowance"},
	{common.ErrModulePaused, http.StatusServiceUnavailable, "ModulePaused"},
	{migration.ErrLegacyRead, http.StatusBadGateway, "LegacyUnavailable"},
	{oracle.ErrPriceUnavailable, http.StatusBadGateway, "PriceUnavailable"},
	{core.ErrPriceFeedUnavailable, http.StatusServiceUnavailable, "PriceUnavailable"},
	{errBadRequest, http.StatusBadRequest, "InvalidRequest"},
	{staking.ErrInvalidAmount, http.StatusBadRequest, "InvalidRequest"},
	{staking.ErrInvalidAccount, http.StatusBadRequest, "InvalidRequest"},
	{staking.ErrInvalidPlan, http.StatusBadRequest, "InvalidRequest"},
	{token.ErrInvalidAmount, http.StatusBadRequest, "InvalidRequest"},
	{token.ErrZeroAddress, http.StatusBadRequest, "InvalidRequest"},
	{token.ErrInvalidFee, http.StatusBadRequest, "InvalidRequest"},
	{token.ErrInvalidSymbol, http.StatusBadRequest, "InvalidRequest"},
	{vault.ErrInvalidAmount, http.StatusBadRequest, "InvalidRequest"},
	{vault.ErrZeroAddress, http.StatusBadRequest, "InvalidRequest"},
	{auth.ErrZeroAddress, http.StatusBadRequest, "InvalidRequest"},
	{oracle.ErrInvalidPrice, http.StatusBadRequest, "InvalidRequest"},
	{common.ErrAmountOverflow, http.StatusBadRequest, "InvalidRequest"},
	{common.ErrNegativeAmount, http.StatusBadRequest, "InvalidRequest"},
	{common.ErrUnknownModule, http.StatusBadRequest, "InvalidRequest"},
}

func classify(err error) (int, string) {
	for _, class := range errorClasses {
		if errors.Is(err, class.target) {
			return class.status, class.kind
		}
	}
	return http.StatusInternalServerError, "Internal"
}

// fail maps err onto the error envelope. Internal errors are logged and their
// detail withheld.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "route", r.URL.Path, "method", r.Method, "error", err)
		message = "internal error"
	}
	writeError(w, status, kind, message)
}
