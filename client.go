package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient talks to a scorer server over its JSON API
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewClient creates a client for the server at baseURL. A nil httpClient
// uses a client with a 30 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *HTTPClient) Challenge(ctx context.Context, address string) (string, error) {
	path := "/challenge"
	if address != "" {
		path += "?address=" + url.QueryEscape(address)
	}
	var resp ChallengeResponse
	if err := c.do(ctx, http.MethodGet, path, "", nil, &resp); err != nil {
		return "", err
	}
	return resp.Nonce, nil
}

func (c *HTTPClient) Verify(ctx context.Context, msg SignInMessage, signature string) (TokenPair, error) {
	var tokens TokenPair
	err := c.do(ctx, http.MethodPost, "/verify", "", VerifyRequest{Message: msg, Signature: signature}, &tokens)
	return tokens, err
}

func (c *HTTPClient) Refresh(ctx context.Context, refresh string) (TokenPair, error) {
	var tokens TokenPair
	err := c.do(ctx, http.MethodPost, "/refresh", "", RefreshRequest{Refresh: refresh}, &tokens)
	return tokens, err
}

func (c *HTTPClient) Logout(ctx context.Context, refresh string) error {
	return c.do(ctx, http.MethodPost, "/logout", "", RefreshRequest{Refresh: refresh}, nil)
}

func (c *HTTPClient) SigningMessage(ctx context.Context) (SigningMessageResponse, error) {
	var resp SigningMessageResponse
	err := c.do(ctx, http.MethodGet, "/signing-message", "", nil, &resp)
	return resp, err
}

func (c *HTTPClient) SubmitPassport(ctx context.Context, apiKey string, req SubmitPassportRequest) (*ScoreResponse, error) {
	var score ScoreResponse
	if err := c.do(ctx, http.MethodPost, "/submit-passport", "Token "+apiKey, req, &score); err != nil {
		return nil, err
	}
	return &score, nil
}

func (c *HTTPClient) GetScore(ctx context.Context, apiKey string, community uint, address string) (*ScoreResponse, error) {
	var score ScoreResponse
	path := fmt.Sprintf("/score/%d/%s", community, url.PathEscape(address))
	if err := c.do(ctx, http.MethodGet, path, "Token "+apiKey, nil, &score); err != nil {
		return nil, err
	}
	return &score, nil
}

func (c *HTTPClient) CreateCommunity(ctx context.Context, accessToken string, req CommunityRequest) (*CommunityResponse, error) {
	var community CommunityResponse
	if err := c.do(ctx, http.MethodPost, "/account/communities", "Bearer "+accessToken, req, &community); err != nil {
		return nil, err
	}
	return &community, nil
}

func (c *HTTPClient) CreateAPIKey(ctx context.Context, accessToken, name string) (*APIKeyResponse, error) {
	var key APIKeyResponse
	if err := c.do(ctx, http.MethodPost, "/account/api-keys", "Bearer "+accessToken, APIKeyRequest{Name: name}, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, authorization string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
