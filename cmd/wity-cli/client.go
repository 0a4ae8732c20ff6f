package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"wity/crypto"
	"wity/services/wityd/server"
)

var (
	apiEndpoint = defaultAPIEndpoint()
	devToken    = os.Getenv("WITY_DEV_TOKEN")
	httpClient  = &http.Client{Timeout: 30 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	clockNow    = time.Now
	newNonce    = uuid.NewString
)

func defaultAPIEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("WITY_API")); v != "" {
		return v
	}
	return "http://localhost:7080"
}

// apiError carries the wityd error envelope of a non-2xx response.
type apiError struct {
	Status  int
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.Status, e.Kind, e.Message)
}

func endpointURL(path string) string {
	return strings.TrimRight(apiEndpoint, "/") + path
}

func apiGet(path string) (json.RawMessage, error) {
	req, err := http.NewRequest(http.MethodGet, endpointURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return doAPIRequest(req)
}

// apiSigned sends a mutation signed by key.
func apiSigned(method, path string, key *crypto.PrivateKey, payload any) (json.RawMessage, error) {
	body, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(method, endpointURL(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := server.SignRequest(req, key, body, newNonce(), clockNow()); err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	return doAPIRequest(req)
}

// apiDev sends an operator request authorised by WITY_DEV_TOKEN.
func apiDev(path string, payload any) (json.RawMessage, error) {
	token := strings.TrimSpace(devToken)
	if token == "" {
		return nil, fmt.Errorf("dev routes require WITY_DEV_TOKEN to be set")
	}
	body, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, endpointURL(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return doAPIRequest(req)
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return body, nil
}

func doAPIRequest(req *http.Request) (json.RawMessage, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return nil, apiErr
	}
	return json.RawMessage(data), nil
}

func writeResult(w io.Writer, result json.RawMessage) {
	if len(bytes.TrimSpace(result)) == 0 {
		fmt.Fprintln(w, "ok")
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		w.Write(result)
		fmt.Fprintln(w)
		return
	}
	pretty.WriteByte('\n')
	w.Write(pretty.Bytes())
}

func handleCallError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
