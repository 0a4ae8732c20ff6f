package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
)

func runRead(command string, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(command, stderr)
	var addr, symbol string
	var index, plan uint64
	var required []string
	switch command {
	case "wallet", "positions", "valuation":
		fs.StringVar(&addr, "addr", "", "account address")
		required = []string{"addr"}
	case "position":
		fs.StringVar(&addr, "addr", "", "account address")
		fs.Uint64Var(&index, "index", 0, "position index")
		required = []string{"addr"}
	case "required":
		fs.Uint64Var(&plan, "plan", 0, "plan id")
	case "balance":
		fs.StringVar(&addr, "addr", "", "account address")
		fs.StringVar(&symbol, "symbol", "WTY", "token symbol")
		required = []string{"addr", "symbol"}
	}
	if !parseFlags(fs, args, stderr, required...) {
		return 1
	}
	account := url.PathEscape(strings.TrimSpace(addr))
	var path string
	switch command {
	case "wallet":
		path = "/v1/accounts/" + account + "/wallet"
	case "positions":
		path = "/v1/accounts/" + account + "/positions"
	case "position":
		path = fmt.Sprintf("/v1/accounts/%s/positions/%d", account, index)
	case "valuation":
		path = "/v1/accounts/" + account + "/valuation"
	case "plans":
		path = "/v1/plans"
	case "required":
		path = fmt.Sprintf("/v1/plans/%d/required", plan)
	case "balance":
		path = "/v1/tokens/" + url.PathEscape(strings.ToUpper(strings.TrimSpace(symbol))) + "/balances/" + account
	case "vault":
		path = "/v1/vault"
	}
	result, err := apiGet(path)
	if err != nil {
		return handleCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}
