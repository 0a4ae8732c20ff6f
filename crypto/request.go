package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// RequestDigest hashes the parts of an API mutation that a caller signs. The
// body is hashed separately so large payloads do not change the layout.
func RequestDigest(method, path string, timestamp int64, nonce string, body []byte) []byte {
	var b strings.Builder
	b.WriteString(strings.ToUpper(strings.TrimSpace(method)))
	b.WriteByte('\n')
	b.WriteString(path)
	b.WriteByte('\n')
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteByte('\n')
	b.WriteString(nonce)
	b.WriteByte('\n')
	b.WriteString(hex.EncodeToString(crypto.Keccak256(body)))
	return crypto.Keccak256([]byte(b.String()))
}

// SignDigest produces a 65-byte recoverable signature encoded as hex.
func SignDigest(key *PrivateKey, digest []byte) (string, error) {
	if key == nil || key.PrivateKey == nil {
		return "", errors.New("crypto: nil private key")
	}
	sig, err := crypto.Sign(digest, key.PrivateKey)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// RecoverSigner returns the address that produced sigHex over digest.
func RecoverSigner(digest []byte, sigHex string) (Address, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(sigHex), "0x")
	sig, err := hex.DecodeString(raw)
	if err != nil {
		return Address{}, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != 65 {
		return Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return NewAddress(WTYPrefix, crypto.PubkeyToAddress(*pub).Bytes()), nil
}
