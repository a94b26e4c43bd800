package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/kasuganosora/sedna-go/pkg/config"
)

const (
	headerAPIKey    = "X-API-Key"
	headerTimestamp = "X-Timestamp"
	headerNonce     = "X-Nonce"
	headerSignature = "X-Signature"

	// timestampTolerance is the maximum allowed time difference for request timestamps
	timestampTolerance = 5 * time.Minute
)

// ClientStore looks up API clients by key.
type ClientStore struct {
	clients map[string]*config.APIClient // keyed by APIKey
}

// NewClientStore indexes the configured clients.
func NewClientStore(clients []config.APIClient) *ClientStore {
	s := &ClientStore{clients: make(map[string]*config.APIClient, len(clients))}
	for i := range clients {
		s.clients[clients[i].APIKey] = &clients[i]
	}
	return s
}

// GetClient returns an enabled API client by API key
func (s *ClientStore) GetClient(apiKey string) (*config.APIClient, error) {
	client, ok := s.clients[apiKey]
	if !ok {
		return nil, fmt.Errorf("invalid api key")
	}
	if !client.Enabled {
		return nil, fmt.Errorf("api client '%s' is disabled", client.Name)
	}
	return client, nil
}

// ValidateSignature validates the HMAC-SHA256 signature of
// method + path + timestamp + nonce + body.
func ValidateSignature(secret, method, path, timestamp, nonce, body, signature string) error {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp")
	}

	diff := time.Since(time.Unix(ts, 0))
	if math.Abs(diff.Seconds()) > timestampTolerance.Seconds() {
		return fmt.Errorf("timestamp expired")
	}

	expected := Sign(secret, method, path, timestamp, nonce, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("invalid signature")
	}
	return nil
}

// Sign computes the request signature clients send in X-Signature.
func Sign(secret, method, path, timestamp, nonce, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method + path + timestamp + nonce + body))
	return hex.EncodeToString(mac.Sum(nil))
}
