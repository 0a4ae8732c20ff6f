package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"wity/cmd/internal/passphrase"
	"wity/crypto"
)

const passphraseEnv = "WITY_KEYSTORE_PASSPHRASE"

var keystorePassphrase = passphrase.NewSource(passphraseEnv, "wallet")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	rest := args[1:]
	switch args[0] {
	case "keygen":
		return runKeygen(rest, stdout, stderr)
	case "address":
		return runAddress(rest, stdout, stderr)
	case "init-economy":
		return runInitEconomy(rest, stdout, stderr)
	case "wallet", "positions", "position", "valuation", "plans", "required", "balance", "vault":
		return runRead(args[0], rest, stdout, stderr)
	case "stake":
		return runStake(rest, stdout, stderr)
	case "migrate":
		return runMigrate(rest, stdout, stderr)
	case "buy":
		return runBuy(rest, stdout, stderr)
	case "transfer", "approve":
		return runTokenWrite(args[0], rest, stdout, stderr)
	case "admin":
		return runAdminCommand(rest, stdout, stderr)
	case "dev":
		return runDevCommand(rest, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--api" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --api")
			}
			apiEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--api=") {
			apiEndpoint = strings.TrimPrefix(arg, "--api=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags parses args and reports the first required flag left empty.
func parseFlags(fs *flag.FlagSet, args []string, stderr io.Writer, required ...string) bool {
	if err := fs.Parse(args); err != nil {
		return false
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return false
	}
	for _, name := range required {
		f := fs.Lookup(name)
		if f == nil || strings.TrimSpace(f.Value.String()) == "" {
			fmt.Fprintf(stderr, "Error: --%s is required\n", name)
			return false
		}
	}
	return true
}

func loadKey(path string) (*crypto.PrivateKey, error) {
	pass, err := keystorePassphrase.Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(strings.TrimSpace(path), pass)
	if err != nil {
		return nil, fmt.Errorf("load keystore %s: %w", path, err)
	}
	return key, nil
}

func usage() string {
	return strings.TrimSpace(`Usage:
  wity-cli [--api URL] <command> [flags]

Wallet:
  keygen        Create an encrypted wallet keystore
  address       Print the address of a keystore
  init-economy  Write a development economy file

Reads:
  wallet        Wallet balance and migration flag
  positions     All stake positions of an account
  position      One stake position
  valuation     USD valuation of wallet and stakes
  plans         Staking plans with required WTY
  required      Required WTY for one plan
  balance       Token balance
  vault         Vault parameters

Signed:
  stake         Open a stake position from the wallet
  migrate       Migrate the legacy stake into the wallet
  buy           Buy WTY with the payment asset
  transfer      Transfer tokens
  approve       Approve a token spender
  admin         Owner administration

Operator:
  dev           Development routes (requires WITY_DEV_TOKEN)
`)
}
