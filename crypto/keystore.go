package crypto

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

var (
	// ErrWrongPassphrase reports a keystore that did not decrypt.
	ErrWrongPassphrase = errors.New("crypto: wrong keystore passphrase")
	// ErrKeystoreMismatch reports a keystore whose recorded address does not
	// belong to the key it contains.
	ErrKeystoreMismatch = errors.New("crypto: keystore address does not match key")
)

// SaveToKeystore writes key to an Ethereum v3 keystore file using the standard
// scrypt parameters.
func SaveToKeystore(path string, key *PrivateKey, passphrase string) error {
	return SaveToKeystoreWithParams(path, key, passphrase, keystore.StandardScryptN, keystore.StandardScryptP)
}

// SaveToKeystoreWithParams encrypts key and writes it to path with 0600
// permissions, creating parent directories as 0700. An existing file is
// replaced by rename so a failed write never leaves a partial keystore.
func SaveToKeystoreWithParams(path string, key *PrivateKey, passphrase string, scryptN, scryptP int) error {
	if key == nil {
		return errors.New("crypto: nil private key")
	}
	if path == "" {
		return errors.New("crypto: empty keystore path")
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("crypto: keystore id: %w", err)
	}
	encrypted, err := keystore.EncryptKey(&keystore.Key{
		Id:         id,
		Address:    common.BytesToAddress(key.PubKey().Address().Bytes()),
		PrivateKey: key.PrivateKey,
	}, passphrase, scryptN, scryptP)
	if err != nil {
		return fmt.Errorf("crypto: encrypt keystore: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(encrypted); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// KeystoreAddress reads the account recorded in a keystore without
// decrypting it.
func KeystoreAddress(path string) (Address, error) {
	raw, err := readKeystore(path)
	if err != nil {
		return Address{}, err
	}
	var header struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return Address{}, fmt.Errorf("crypto: decode keystore %s: %w", path, err)
	}
	if !common.IsHexAddress(header.Address) {
		return Address{}, fmt.Errorf("crypto: keystore %s has no valid address", path)
	}
	return NewAddress(WTYPrefix, common.HexToAddress(header.Address).Bytes()), nil
}

// LoadFromKeystore decrypts the keystore at path and checks that the key
// matches the address the file records.
func LoadFromKeystore(path, passphrase string) (*PrivateKey, error) {
	raw, err := readKeystore(path)
	if err != nil {
		return nil, err
	}
	decrypted, err := keystore.DecryptKey(raw, passphrase)
	if errors.Is(err, keystore.ErrDecrypt) {
		return nil, ErrWrongPassphrase
	}
	if err != nil {
		return nil, err
	}
	key := &PrivateKey{PrivateKey: decrypted.PrivateKey}
	recorded, err := KeystoreAddress(path)
	if err != nil {
		return nil, err
	}
	if recorded.Raw() != key.PubKey().Address().Raw() {
		return nil, ErrKeystoreMismatch
	}
	return key, nil
}

func readKeystore(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("crypto: empty keystore path")
	}
	return os.ReadFile(path)
}
