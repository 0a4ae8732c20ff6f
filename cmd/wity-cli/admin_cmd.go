package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

func runAdminCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, adminUsage())
		return 1
	}
	fs := newFlagSet("admin "+args[0], stderr)
	var keyPath string
	fs.StringVar(&keyPath, "key", "", "owner wallet keystore")
	var (
		path     string
		required = []string{"key"}
		build    func() (any, error)
	)
	switch args[0] {
	case "authorize":
		var target string
		var allowed bool
		fs.StringVar(&target, "target", "", "caller to (de)authorise")
		fs.BoolVar(&allowed, "allowed", true, "grant or revoke")
		path, required = "/v1/admin/authorized", append(required, "target")
		build = func() (any, error) {
			return map[string]any{"target": strings.TrimSpace(target), "allowed": allowed}, nil
		}
	case "owner":
		var owner string
		fs.StringVar(&owner, "new-owner", "", "new owner address")
		path, required = "/v1/admin/owner", append(required, "new-owner")
		build = func() (any, error) { return map[string]string{"new_owner": strings.TrimSpace(owner)}, nil }
	case "plans":
		var file string
		fs.StringVar(&file, "file", "", "JSON file holding {\"plans\": [...]}")
		path, required = "/v1/admin/plans", append(required, "file")
		build = func() (any, error) { return readPlansFile(file) }
	case "pause":
		var module string
		var paused bool
		fs.StringVar(&module, "module", "", "module name: staking, vault or migration")
		fs.BoolVar(&paused, "paused", true, "pause or resume")
		path, required = "/v1/admin/pause", append(required, "module")
		build = func() (any, error) {
			return map[string]any{"module": strings.TrimSpace(module), "paused": paused}, nil
		}
	case "treasury":
		var treasury string
		fs.StringVar(&treasury, "treasury", "", "vault treasury address")
		path, required = "/v1/admin/treasury", append(required, "treasury")
		build = func() (any, error) { return map[string]string{"treasury": strings.TrimSpace(treasury)}, nil }
	case "fee-exclusion":
		var symbol, account string
		var excluded bool
		fs.StringVar(&symbol, "symbol", "WTY", "token symbol")
		fs.StringVar(&account, "account", "", "account to exclude from transfer tax")
		fs.BoolVar(&excluded, "excluded", true, "exclude or include")
		path, required = "/v1/admin/fee-exclusions", append(required, "account")
		build = func() (any, error) {
			return map[string]any{"symbol": strings.TrimSpace(symbol), "account": strings.TrimSpace(account), "excluded": excluded}, nil
		}
	case "amm-pair":
		var symbol, pair string
		var marked bool
		fs.StringVar(&symbol, "symbol", "WTY", "token symbol")
		fs.StringVar(&pair, "pair", "", "pair address")
		fs.BoolVar(&marked, "marked", true, "mark or unmark")
		path, required = "/v1/admin/amm-pairs", append(required, "pair")
		build = func() (any, error) {
			return map[string]any{"symbol": strings.TrimSpace(symbol), "pair": strings.TrimSpace(pair), "marked": marked}, nil
		}
	default:
		fmt.Fprintf(stderr, "Unknown admin subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, adminUsage())
		return 1
	}
	if !parseFlags(fs, args[1:], stderr, required...) {
		return 1
	}
	payload, err := build()
	if err != nil {
		return handleCallError(stderr, err)
	}
	return signedCall(stdout, stderr, keyPath, http.MethodPost, path, payload)
}

func readPlansFile(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("read plans: %w", err)
	}
	var envelope struct {
		Plans []json.RawMessage `json:"plans"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}
	if len(envelope.Plans) == 0 {
		return nil, fmt.Errorf("plans file lists no plans")
	}
	return json.RawMessage(data), nil
}

func adminUsage() string {
	return strings.TrimSpace(`Usage:
  wity-cli admin <command> --key <owner keystore> [flags]

Commands:
  authorize      Grant or revoke a gateway caller
  owner          Transfer ownership
  plans          Publish a new plan table
  pause          Pause or resume a module
  treasury       Change the vault treasury
  fee-exclusion  Exclude an account from transfer tax
  amm-pair       Mark an AMM pair for buy/sell tax
`)
}
