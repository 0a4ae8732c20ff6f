package crypto

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
)

func TestParseAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()

	fromBech, err := ParseAddress(addr.String())
	if err != nil {
		t.Fatalf("parse bech32: %v", err)
	}
	fromHex, err := ParseAddress(addr.Hex())
	if err != nil {
		t.Fatalf("parse hex: %v", err)
	}
	if fromBech.Raw() != addr.Raw() || fromHex.Raw() != addr.Raw() {
		t.Fatalf("parsed addresses differ: %s %s %s", addr, fromBech, fromHex)
	}
	if _, err := ParseAddress("0x1234"); err == nil {
		t.Fatalf("expected short hex address to be rejected")
	}
	if _, err := ParseAddress(""); err == nil {
		t.Fatalf("expected empty address to be rejected")
	}
}

func TestParseAddressRejectsForeignPrefix(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	foreign := NewAddress(AddressPrefix("bc"), key.PubKey().Address().Bytes())
	if _, err := ParseAddress(foreign.String()); err == nil {
		t.Fatalf("expected %s to be rejected", foreign)
	}
	decoded, err := DecodeAddress(foreign.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Prefix() != "bc" {
		t.Fatalf("unexpected prefix %q", decoded.Prefix())
	}
}

func TestDeriveModuleAddressStable(t *testing.T) {
	a := DeriveModuleAddress("vault")
	b := DeriveModuleAddress(" Vault ")
	if a != b {
		t.Fatalf("module address must ignore case and whitespace")
	}
	if a == DeriveModuleAddress("migration") {
		t.Fatalf("distinct modules must not collide")
	}
}

func TestRequestSignatureRecovery(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	digest := RequestDigest("post", "/v1/stake", 1700000000, "n-1", []byte(`{"planId":0}`))
	sig, err := SignDigest(key, digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	signer, err := RecoverSigner(digest, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if signer.Raw() != key.PubKey().Address().Raw() {
		t.Fatalf("recovered %s, want %s", signer, key.PubKey().Address())
	}
	tampered := RequestDigest("POST", "/v1/stake", 1700000000, "n-1", []byte(`{"planId":4}`))
	other, err := RecoverSigner(tampered, sig)
	if err == nil && other.Raw() == signer.Raw() {
		t.Fatalf("tampered body must not recover the same signer")
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "keys", "operator.json")
	if err := SaveToKeystoreWithParams(path, key, "correct horse", keystore.LightScryptN, keystore.LightScryptP); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFromKeystore(path, "correct horse")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.PubKey().Address().Raw() != key.PubKey().Address().Raw() {
		t.Fatalf("keystore returned a different key")
	}
	if _, err := LoadFromKeystore(path, "wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected keystore mode %v", info.Mode().Perm())
	}
	recorded, err := KeystoreAddress(path)
	if err != nil {
		t.Fatalf("keystore address: %v", err)
	}
	if recorded.Raw() != key.PubKey().Address().Raw() || recorded.Prefix() != WTYPrefix {
		t.Fatalf("unexpected recorded address %s", recorded)
	}
}

func TestKeystoreRejectsForeignAddress(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "operator.json")
	if err := SaveToKeystoreWithParams(path, key, "pw", keystore.LightScryptN, keystore.LightScryptP); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	doc["address"] = "00000000000000000000000000000000000000aa"
	raw, _ = json.Marshal(doc)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFromKeystore(path, "pw"); !errors.Is(err, ErrKeystoreMismatch) {
		t.Fatalf("expected ErrKeystoreMismatch, got %v", err)
	}
}
