// Package openai implements document extraction with the GPT-4 Vision API.
// It is an alternative to the Veryfi provider for deployments without a
// Veryfi account.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

// Extractor extracts bill data from images and PDFs using GPT-4 Vision
type Extractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewExtractor creates a new vision-based extractor
func NewExtractor(apiKey, model string, logger *zap.Logger) *Extractor {
	return &Extractor{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// visionResult mirrors the JSON shape the model is asked to produce
type visionResult struct {
	VendorName    string  `json:"vendor_name"`
	Amount        float64 `json:"amount"`
	InvoiceNumber string  `json:"invoice_number"`
	TaxNumber     string  `json:"tax_number"`
	Confidence    float64 `json:"confidence"`
}

// Extract renders the document to images and asks the model for structured
// bill fields
func (e *Extractor) Extract(ctx context.Context, content []byte, filename string) (*entity.ExtractedData, error) {
	images, err := renderToImages(content, filename)
	if err != nil {
		e.logger.Error("Failed to render document", zap.String("file", filename), zap.Error(err))
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no pages rendered from %s", filename)
	}

	// First two pages are enough for a bill and keep token costs bounded
	if len(images) > 2 {
		images = images[:2]
	}

	contentParts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: extractionPrompt,
		},
	}
	for _, img := range images {
		contentParts = append(contentParts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(img)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert at reading bills and invoices. Extract structured data from the supplied images and respond with JSON only.",
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: contentParts,
			},
		},
	})
	if err != nil {
		e.logger.Error("Vision API call failed", zap.Error(err))
		return nil, fmt.Errorf("vision API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from vision API")
	}

	answer := resp.Choices[0].Message.Content

	var result visionResult
	if err := json.Unmarshal([]byte(answer), &result); err != nil {
		// The model sometimes wraps JSON in a markdown code block
		if jsonStr := extractJSON(answer); jsonStr != "" {
			err = json.Unmarshal([]byte(jsonStr), &result)
		}
		if err != nil {
			e.logger.Error("Failed to parse vision result",
				zap.Error(err),
				zap.String("content", answer))
			return nil, fmt.Errorf("failed to parse vision result: %w", err)
		}
	}

	data := &entity.ExtractedData{
		VendorName:    result.VendorName,
		Amount:        result.Amount,
		InvoiceNumber: result.InvoiceNumber,
		TaxNumber:     result.TaxNumber,
		Confidence:    clampConfidence(result.Confidence),
	}

	e.logger.Info("Bill extracted",
		zap.String("file", filename),
		zap.String("vendor", data.VendorName),
		zap.Float64("amount", data.Amount),
		zap.Float64("confidence", data.Confidence))

	return data, nil
}

const extractionPrompt = `Extract the following fields from this bill/invoice and respond with a single JSON object:
{
  "vendor_name": "name of the vendor issuing the bill",
  "amount": total amount as a number,
  "invoice_number": "invoice or bill number",
  "tax_number": "tax identification number if present",
  "confidence": your confidence in the extraction as a number from 0 to 100
}
Use empty strings or 0 for fields you cannot read.`

var jsonBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSON pulls a JSON object out of a markdown code block
func extractJSON(content string) string {
	if m := jsonBlockRe.FindStringSubmatch(content); len(m) == 2 {
		return m[1]
	}
	// Fall back to the outermost braces
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return ""
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Verify interface compliance
var _ port.DocumentExtractor = (*Extractor)(nil)
