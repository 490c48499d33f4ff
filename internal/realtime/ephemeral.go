package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// EphemeralKey is a short-lived client secret a browser uses to open its own
// WebRTC session with the model.
type EphemeralKey struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
	Model     string    `json:"model"`
}

type createSessionRequest struct {
	Model string `json:"model"`
	sessionParams
}

type createSessionResponse struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// MintEphemeralKey creates a realtime session configured with cfg and returns
// its client secret. The API key never leaves the server.
func (c *Client) MintEphemeralKey(ctx context.Context, cfg SessionConfig) (EphemeralKey, error) {
	if c.apiKey == "" {
		return EphemeralKey{}, errors.New("realtime: api key not configured")
	}

	api := oai.NewClient(
		option.WithAPIKey(c.apiKey),
		option.WithBaseURL(c.apiURL),
		option.WithMaxRetries(1),
	)

	body := createSessionRequest{Model: c.model, sessionParams: newSessionParams(cfg)}
	var res createSessionResponse
	if err := api.Post(ctx, "realtime/sessions", body, &res); err != nil {
		return EphemeralKey{}, fmt.Errorf("realtime: create session: %w", err)
	}
	if res.ClientSecret.Value == "" {
		return EphemeralKey{}, errors.New("realtime: create session: empty client secret")
	}

	key := EphemeralKey{Value: res.ClientSecret.Value, Model: res.Model}
	if key.Model == "" {
		key.Model = c.model
	}
	if res.ClientSecret.ExpiresAt > 0 {
		key.ExpiresAt = time.Unix(res.ClientSecret.ExpiresAt, 0).UTC()
	}
	return key, nil
}
