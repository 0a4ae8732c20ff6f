package main

import (
	"io"
	"net/http"
	"net/url"
	"strings"
)

func runStake(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("stake", stderr)
	var keyPath string
	var plan uint64
	fs.StringVar(&keyPath, "key", "", "wallet keystore")
	fs.Uint64Var(&plan, "plan", 0, "plan id")
	if !parseFlags(fs, args, stderr, "key") {
		return 1
	}
	return signedCall(stdout, stderr, keyPath, http.MethodPost, "/v1/stake", map[string]any{"plan_id": plan})
}

func runMigrate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("migrate", stderr)
	var keyPath string
	fs.StringVar(&keyPath, "key", "", "wallet keystore")
	if !parseFlags(fs, args, stderr, "key") {
		return 1
	}
	return signedCall(stdout, stderr, keyPath, http.MethodPost, "/v1/migrate", nil)
}

func runBuy(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("buy", stderr)
	var keyPath, amount string
	fs.StringVar(&keyPath, "key", "", "wallet keystore")
	fs.StringVar(&amount, "amount", "", "payment asset amount, e.g. 100.5")
	if !parseFlags(fs, args, stderr, "key", "amount") {
		return 1
	}
	return signedCall(stdout, stderr, keyPath, http.MethodPost, "/v1/vault/buy", map[string]string{"amount": strings.TrimSpace(amount)})
}

func runTokenWrite(command string, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet(command, stderr)
	var keyPath, symbol, counterparty, amount string
	fs.StringVar(&keyPath, "key", "", "wallet keystore")
	fs.StringVar(&symbol, "symbol", "WTY", "token symbol")
	fs.StringVar(&amount, "amount", "", "token amount")
	field := "to"
	if command == "approve" {
		field = "spender"
	}
	fs.StringVar(&counterparty, field, "", field+" address")
	if !parseFlags(fs, args, stderr, "key", "symbol", field, "amount") {
		return 1
	}
	path := "/v1/tokens/" + url.PathEscape(strings.ToUpper(strings.TrimSpace(symbol))) + "/" + command
	payload := map[string]string{field: strings.TrimSpace(counterparty), "amount": strings.TrimSpace(amount)}
	return signedCall(stdout, stderr, keyPath, http.MethodPost, path, payload)
}

func signedCall(stdout, stderr io.Writer, keyPath, method, path string, payload any) int {
	key, err := loadKey(keyPath)
	if err != nil {
		return handleCallError(stderr, err)
	}
	result, err := apiSigned(method, path, key, payload)
	if err != nil {
		return handleCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}
