package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"

	economy "wity/config"
	"wity/crypto"
)

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("keygen", stderr)
	var out string
	var light bool
	fs.StringVar(&out, "out", "wallet.json", "keystore file to create")
	fs.BoolVar(&light, "light", false, "use light scrypt parameters (development only)")
	if !parseFlags(fs, args, stderr, "out") {
		return 1
	}
	if _, err := os.Stat(out); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists\n", out)
		return 1
	}
	pass, err := keystorePassphrase.Get()
	if err != nil {
		return handleCallError(stderr, err)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return handleCallError(stderr, err)
	}
	scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
	if light {
		scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
	}
	if err := crypto.SaveToKeystoreWithParams(out, key, pass, scryptN, scryptP); err != nil {
		return handleCallError(stderr, fmt.Errorf("save keystore: %w", err))
	}
	addr := key.PubKey().Address()
	fmt.Fprintf(stdout, "Keystore written to %s\n", out)
	fmt.Fprintf(stdout, "Address: %s (%s)\n", addr.String(), addr.Hex())
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("address", stderr)
	var keyPath string
	fs.StringVar(&keyPath, "key", "", "wallet keystore")
	if !parseFlags(fs, args, stderr, "key") {
		return 1
	}
	addr, err := crypto.KeystoreAddress(strings.TrimSpace(keyPath))
	if err != nil {
		return handleCallError(stderr, err)
	}
	fmt.Fprintf(stdout, "%s\n%s\n", addr.String(), addr.Hex())
	return 0
}

func runInitEconomy(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("init-economy", stderr)
	var owner, out, backend string
	fs.StringVar(&owner, "owner", "", "owner address (hex or wty bech32)")
	fs.StringVar(&out, "out", "wity.toml", "economy file to write")
	fs.StringVar(&backend, "backend", economy.BackendLevelDB, "state backend: leveldb, bolt or memory")
	if !parseFlags(fs, args, stderr, "owner", "out") {
		return 1
	}
	if _, err := crypto.ParseAddress(owner); err != nil {
		return handleCallError(stderr, fmt.Errorf("owner: %w", err))
	}
	cfg := economy.Default(strings.TrimSpace(owner))
	cfg.Backend = strings.ToLower(strings.TrimSpace(backend))
	if err := cfg.Validate(); err != nil {
		return handleCallError(stderr, err)
	}
	if err := economy.Persist(out, cfg); err != nil {
		return handleCallError(stderr, err)
	}
	fmt.Fprintf(stdout, "Economy written to %s\n", out)
	return 0
}
