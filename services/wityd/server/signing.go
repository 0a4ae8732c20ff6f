package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wity/crypto"
	"wity/observability"
)

// Signed request headers.
const (
	HeaderTimestamp = "X-Wity-Timestamp"
	HeaderNonce     = "X-Wity-Nonce"
	HeaderSignature = "X-Wity-Signature"

	// MaxBodyForSignature bounds the request body hashed into the digest.
	MaxBodyForSignature = 64 << 10
)

var (
	errBodyTooLarge   = errors.New("request body exceeds signature limit")
	errMissingHeaders = errors.New("missing signature headers")
	errStaleRequest   = errors.New("request timestamp outside allowed skew")
	errReplayedNonce  = errors.New("nonce already used")
)

type callerContextKey struct{}

// CallerFromContext returns the address recovered from the request signature.
func CallerFromContext(ctx context.Context) ([20]byte, bool) {
	caller, ok := ctx.Value(callerContextKey{}).([20]byte)
	return caller, ok
}

// SignatureVerifier authenticates mutations by recovering the secp256k1
// signer of the request digest. Nonces are single use per signer.
type SignatureVerifier struct {
	nonces  NonceStore
	maxSkew time.Duration
	now     func() time.Time
}

// NewSignatureVerifier builds a verifier. A non-positive skew defaults to two
// minutes.
func NewSignatureVerifier(nonces NonceStore, maxSkew time.Duration, now func() time.Time) *SignatureVerifier {
	if maxSkew <= 0 {
		maxSkew = 2 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &SignatureVerifier{nonces: nonces, maxSkew: maxSkew, now: now}
}

// Middleware rejects unsigned, stale or replayed requests and stores the
// recovered caller in the request context.
func (v *SignatureVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := readRequestBody(r)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, errBodyTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			writeError(w, status, "InvalidRequest", err.Error())
			return
		}
		caller, err := v.authenticate(r, body)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, errReplayedNonce) {
				status = http.StatusConflict
				observability.HTTP().RecordThrottle(r.URL.Path, "replay")
			}
			writeError(w, status, "Unauthenticated", err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), callerContextKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (v *SignatureVerifier) authenticate(r *http.Request, body []byte) ([20]byte, error) {
	tsRaw := strings.TrimSpace(r.Header.Get(HeaderTimestamp))
	nonce := strings.TrimSpace(r.Header.Get(HeaderNonce))
	sig := strings.TrimSpace(r.Header.Get(HeaderSignature))
	if tsRaw == "" || nonce == "" || sig == "" {
		return [20]byte{}, errMissingHeaders
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	drift := v.now().Sub(time.Unix(ts, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > v.maxSkew {
		return [20]byte{}, errStaleRequest
	}
	digest := crypto.RequestDigest(r.Method, r.URL.Path, ts, nonce, body)
	signer, err := crypto.RecoverSigner(digest, sig)
	if err != nil {
		return [20]byte{}, err
	}
	replay, err := v.nonces.EnsureNonce(r.Context(), signer.Hex(), nonce, ts)
	if err != nil {
		return [20]byte{}, fmt.Errorf("record nonce: %w", err)
	}
	if replay {
		return [20]byte{}, errReplayedNonce
	}
	return signer.Raw(), nil
}

func readRequestBody(r *http.Request) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, nil
	}
	original := r.Body
	limited := io.LimitReader(original, int64(MaxBodyForSignature)+1)
	data, err := io.ReadAll(limited)
	original.Close()
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(data) > MaxBodyForSignature {
		return nil, errBodyTooLarge
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

// SignRequest sets the signature headers on req for key. Clients use it to
// call the signed routes.
func SignRequest(req *http.Request, key *crypto.PrivateKey, body []byte, nonce string, now time.Time) error {
	ts := now.Unix()
	digest := crypto.RequestDigest(req.Method, req.URL.Path, ts, nonce, body)
	sig, err := crypto.SignDigest(key, digest)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderNonce, nonce)
	req.Header.Set(HeaderSignature, sig)
	return nil
}
