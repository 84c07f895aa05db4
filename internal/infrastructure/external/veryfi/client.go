// Package veryfi implements document extraction against the Veryfi
// partner documents API.
package veryfi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

const defaultBaseURL = "https://api.veryfi.com"

// Config holds Veryfi API credentials and client settings
type Config struct {
	BaseURL  string
	ClientID string
	Username string
	APIKey   string
	Timeout  time.Duration
}

// Client calls the Veryfi document processing API
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new Veryfi client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type processRequest struct {
	FileData   string `json:"file_data"`
	FileName   string `json:"file_name"`
	AutoDelete bool   `json:"auto_delete"`
}

type documentResponse struct {
	Vendor struct {
		Name string `json:"name"`
	} `json:"vendor"`
	Total         float64 `json:"total"`
	InvoiceNumber string  `json:"invoice_number"`
	TaxID         string  `json:"tax_id"`
	Confidence    float64 `json:"confidence"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Extract submits the document for processing and maps the response to
// structured purchase fields
func (c *Client) Extract(ctx context.Context, content []byte, filename string) (*entity.ExtractedData, error) {
	body, err := json.Marshal(processRequest{
		FileData:   base64.StdEncoding.EncodeToString(content),
		FileName:   filename,
		AutoDelete: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := c.cfg.BaseURL + "/api/v8/partner/documents"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("CLIENT-ID", c.cfg.ClientID)
	req.Header.Set("Authorization", fmt.Sprintf("apikey %s:%s", c.cfg.Username, c.cfg.APIKey))

	c.logger.Debug("Submitting document for extraction",
		zap.String("file", filename),
		zap.Int("size", len(content)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Veryfi request failed", zap.Error(err))
		return nil, fmt.Errorf("veryfi request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr errorResponse
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("veryfi returned %d: %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("veryfi returned %d", resp.StatusCode)
	}

	var doc documentResponse
	if err := json.Unmarshal(respBody, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	data := &entity.ExtractedData{
		VendorName:    doc.Vendor.Name,
		Amount:        doc.Total,
		InvoiceNumber: doc.InvoiceNumber,
		TaxNumber:     doc.TaxID,
		Confidence:    normalizeConfidence(doc.Confidence),
	}

	c.logger.Info("Document extracted",
		zap.String("file", filename),
		zap.String("vendor", data.VendorName),
		zap.Float64("amount", data.Amount),
		zap.Float64("confidence", data.Confidence))

	return data, nil
}

// normalizeConfidence maps the API's 0..1 score onto the 0..100 scale the
// rest of the system uses
func normalizeConfidence(v float64) float64 {
	if v > 0 && v <= 1 {
		v *= 100
	}
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Verify interface compliance
var _ port.DocumentExtractor = (*Client)(nil)
