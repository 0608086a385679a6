// Package dvla is a client for the DVLA Vehicle Enquiry Service.
package dvla

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrVehicleNotFound is returned when DVLA has no record for the registration.
var ErrVehicleNotFound = errors.New("dvla: vehicle not found")

const dateLayout = "2006-01-02"

// Vehicle is the subset of the enquiry response the fleet uses.
type Vehicle struct {
	RegistrationNumber string
	Make               string
	Colour             string
	FuelType           string
	YearOfManufacture  int
	TaxStatus          string
	TaxDueDate         *time.Time
	MOTStatus          string
	MOTExpiryDate      *time.Time
}

type enquiryResponse struct {
	RegistrationNumber string `json:"registrationNumber"`
	TaxStatus          string `json:"taxStatus"`
	TaxDueDate         string `json:"taxDueDate"`
	MOTStatus          string `json:"motStatus"`
	MOTExpiryDate      string `json:"motExpiryDate"`
	Make               string `json:"make"`
	Colour             string `json:"colour"`
	FuelType           string `json:"fuelType"`
	YearOfManufacture  int    `json:"yearOfManufacture"`
}

// Client calls POST {base}/vehicles with the x-api-key header.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// New creates a DVLA client.
func New(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger.With(zap.String("component", "dvla_client")),
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != "" && c.baseURL != ""
}

// LookupVehicle fetches the DVLA record for a registration.
func (c *Client) LookupVehicle(ctx context.Context, reg string) (*Vehicle, error) {
	payload, err := json.Marshal(map[string]string{"registrationNumber": reg})
	if err != nil {
		return nil, fmt.Errorf("encode dvla request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/vehicles", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build dvla request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dvla request for %s: %w", reg, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrVehicleNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("dvla returned status %d for %s: %s", resp.StatusCode, reg, strings.TrimSpace(string(body)))
	}

	var out enquiryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode dvla response: %w", err)
	}

	vehicle := &Vehicle{
		RegistrationNumber: out.RegistrationNumber,
		Make:               out.Make,
		Colour:             out.Colour,
		FuelType:           out.FuelType,
		YearOfManufacture:  out.YearOfManufacture,
		TaxStatus:          out.TaxStatus,
		MOTStatus:          out.MOTStatus,
	}
	vehicle.TaxDueDate = parseDate(out.TaxDueDate)
	vehicle.MOTExpiryDate = parseDate(out.MOTExpiryDate)

	c.logger.Debug("dvla lookup", zap.String("reg", reg), zap.String("tax_status", out.TaxStatus))
	return vehicle, nil
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}
