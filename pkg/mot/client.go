// Package mot is a client for the DVSA MOT History API.
package mot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrVehicleNotFound is returned when the MOT service has no history for the registration.
var ErrVehicleNotFound = errors.New("mot: vehicle not found")

const tokenSkew = 30 * time.Second

// Test is a single MOT test result.
type Test struct {
	CompletedDate time.Time
	Result        string
	ExpiryDate    *time.Time
	Odometer      *int
	OdometerUnit  string
}

// History is the MOT history of one vehicle, newest test first.
type History struct {
	Registration string
	Make         string
	Model        string
	Tests        []Test
}

// LatestExpiry returns the expiry date of the most recent passed test.
func (h *History) LatestExpiry() *time.Time {
	for _, test := range h.Tests {
		if test.ExpiryDate != nil && strings.EqualFold(test.Result, "PASSED") {
			return test.ExpiryDate
		}
	}
	return nil
}

// LatestMileage returns the most recent odometer reading in miles.
func (h *History) LatestMileage() *int {
	for _, test := range h.Tests {
		if test.Odometer == nil {
			continue
		}
		if strings.EqualFold(test.OdometerUnit, "km") {
			miles := int(float64(*test.Odometer) / 1.609344)
			return &miles
		}
		return test.Odometer
	}
	return nil
}

// Config holds the OAuth client-credentials settings and API key.
type Config struct {
	BaseURL      string
	APIKey       string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	Timeout      time.Duration
}

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// Client is safe for concurrent use. The bearer token is cached until shortly before expiry.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     *zap.Logger

	mu    sync.RWMutex
	token *cachedToken
	now   func() time.Time
}

// New creates an MOT History client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger.With(zap.String("component", "mot_client")),
		now:        time.Now,
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.BaseURL != "" && c.cfg.APIKey != "" && c.cfg.TokenURL != "" && c.cfg.ClientID != ""
}

// FetchHistory loads the MOT history for a registration.
func (c *Client) FetchHistory(ctx context.Context, reg string) (*History, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/vehicles/registration/%s", c.cfg.BaseURL, url.PathEscape(reg))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build mot request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-API-Key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mot request for %s: %w", reg, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrVehicleNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		c.invalidateToken()
		return nil, fmt.Errorf("mot rejected access token for %s", reg)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("mot returned status %d for %s: %s", resp.StatusCode, reg, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Registration string `json:"registration"`
		Make         string `json:"make"`
		Model        string `json:"model"`
		MOTTests     []struct {
			CompletedDate string `json:"completedDate"`
			TestResult    string `json:"testResult"`
			ExpiryDate    string `json:"expiryDate"`
			OdometerValue string `json:"odometerValue"`
			OdometerUnit  string `json:"odometerUnit"`
		} `json:"motTests"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode mot response: %w", err)
	}

	history := &History{Registration: payload.Registration, Make: payload.Make, Model: payload.Model}
	for _, raw := range payload.MOTTests {
		test := Test{Result: raw.TestResult, OdometerUnit: raw.OdometerUnit}
		if completed, err := time.Parse(time.RFC3339, raw.CompletedDate); err == nil {
			test.CompletedDate = completed
		}
		if expiry, err := time.Parse("2006-01-02", raw.ExpiryDate); err == nil {
			test.ExpiryDate = &expiry
		}
		if odometer, err := strconv.Atoi(raw.OdometerValue); err == nil {
			test.Odometer = &odometer
		}
		history.Tests = append(history.Tests, test)
	}
	return history, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.token != nil && c.now().Before(c.token.expiresAt) {
		token := c.token.accessToken
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != nil && c.now().Before(c.token.expiresAt) {
		return c.token.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	if c.cfg.Scope != "" {
		form.Set("scope", c.cfg.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mot token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("mot token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", errors.New("mot token endpoint returned empty access_token")
	}

	c.token = &cachedToken{
		accessToken: tokenResp.AccessToken,
		expiresAt:   c.now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - tokenSkew),
	}
	c.logger.Debug("mot token refreshed", zap.Int("expires_in", tokenResp.ExpiresIn))
	return tokenResp.AccessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}
