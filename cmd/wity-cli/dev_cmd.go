package main

import (
	"fmt"
	"io"
	"strings"
)

func runDevCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, devUsage())
		return 1
	}
	fs := newFlagSet("dev "+args[0], stderr)
	var (
		path    string
		payload map[string]any
	)
	switch args[0] {
	case "faucet":
		var account, amount string
		fs.StringVar(&account, "account", "", "recipient address")
		fs.StringVar(&amount, "amount", "", "payment asset amount")
		if !parseFlags(fs, args[1:], stderr, "account", "amount") {
			return 1
		}
		path = "/v1/dev/faucet"
		payload = map[string]any{"account": strings.TrimSpace(account), "amount": strings.TrimSpace(amount)}
	case "price":
		var cents uint64
		fs.Uint64Var(&cents, "cents", 0, "WTY price in US cents")
		if !parseFlags(fs, args[1:], stderr) {
			return 1
		}
		if cents == 0 {
			fmt.Fprintln(stderr, "Error: --cents must be positive")
			return 1
		}
		path = "/v1/dev/price"
		payload = map[string]any{"price_cents": cents}
	case "legacy-stake":
		var account, principal, reward string
		fs.StringVar(&account, "account", "", "legacy staker address")
		fs.StringVar(&principal, "principal", "", "legacy principal")
		fs.StringVar(&reward, "reward", "0", "legacy pending reward")
		if !parseFlags(fs, args[1:], stderr, "account", "principal") {
			return 1
		}
		path = "/v1/dev/legacy-stake"
		payload = map[string]any{
			"account":   strings.TrimSpace(account),
			"principal": strings.TrimSpace(principal),
			"reward":    strings.TrimSpace(reward),
		}
	default:
		fmt.Fprintf(stderr, "Unknown dev subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, devUsage())
		return 1
	}
	result, err := apiDev(path, payload)
	if err != nil {
		return handleCallError(stderr, err)
	}
	writeResult(stdout, result)
	return 0
}

func devUsage() string {
	return strings.TrimSpace(`Usage:
  wity-cli dev <command> [flags]

Commands:
  faucet        Mint the payment asset to an account
  price         Set the manual WTY price
  legacy-stake  Seed a legacy stake for migration
`)
}
