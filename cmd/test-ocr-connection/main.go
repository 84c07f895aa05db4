package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/infrastructure/external/openai"
	"github.com/garyjia/purchase-approval/internal/infrastructure/external/veryfi"
)

func main() {
	// Parse command line flags
	provider := flag.String("provider", "veryfi", "Extraction provider: veryfi or openai")
	file := flag.String("file", "", "Path to a bill document (PDF, JPG or PNG)")
	timeout := flag.Duration("timeout", 30*time.Second, "API call timeout")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	gotenv.Load()

	// Initialize logger
	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *file == "" {
		fmt.Fprintf(os.Stderr, "ERROR: no bill document provided\n")
		fmt.Fprintf(os.Stderr, "Usage: test-ocr-connection --file bill.pdf [--provider veryfi|openai] [--timeout 30s]\n")
		os.Exit(1)
	}

	content, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to read %s: %v\n", *file, err)
		os.Exit(1)
	}

	fmt.Println("=== OCR Connection Test ===")
	fmt.Println("Configuration:")
	fmt.Printf("  Provider: %s\n", *provider)
	fmt.Printf("  File: %s (%d bytes)\n", *file, len(content))
	fmt.Printf("  Timeout: %v\n", *timeout)
	fmt.Println()

	extractor, err := buildExtractor(*provider, *timeout, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Extractor initialized")

	// Make API call with timeout
	fmt.Println("Submitting document for extraction...")
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	startTime := time.Now()
	result, err := extractor.Extract(ctx, content, *file)
	duration := time.Since(startTime)

	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ ERROR: extraction failed\n")
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		fmt.Fprintf(os.Stderr, "Possible causes:\n")
		fmt.Fprintf(os.Stderr, "  1. Missing or invalid API credentials\n")
		fmt.Fprintf(os.Stderr, "  2. Network connectivity issue\n")
		fmt.Fprintf(os.Stderr, "  3. API quota exceeded\n")
		fmt.Fprintf(os.Stderr, "  4. Unsupported or corrupt document\n")
		os.Exit(1)
	}

	fmt.Println("✓ Received extraction response!")
	fmt.Printf("API Response Time: %v\n", duration)
	fmt.Println()

	// Display results
	fmt.Println("=== Extracted Data ===")
	fmt.Printf("Vendor: %s\n", result.VendorName)
	fmt.Printf("Amount: %.2f\n", result.Amount)
	fmt.Printf("Invoice Number: %s\n", result.InvoiceNumber)
	fmt.Printf("Tax Number: %s\n", result.TaxNumber)
	fmt.Printf("Confidence: %.0f%%\n", result.Confidence)

	// Show JSON response
	fmt.Println("\n=== Full Response (JSON) ===")
	jsonBytes, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(jsonBytes))

	fmt.Println("\n✅ OCR Connection Test PASSED!")
}

// buildExtractor constructs the requested provider from environment
// credentials
func buildExtractor(provider string, timeout time.Duration, logger *zap.Logger) (port.DocumentExtractor, error) {
	switch provider {
	case "veryfi":
		clientID := os.Getenv("VERYFI_CLIENT_ID")
		username := os.Getenv("VERYFI_USERNAME")
		apiKey := os.Getenv("VERYFI_API_KEY")
		if clientID == "" || username == "" || apiKey == "" {
			return nil, fmt.Errorf("VERYFI_CLIENT_ID, VERYFI_USERNAME and VERYFI_API_KEY must be set")
		}
		return veryfi.NewClient(veryfi.Config{
			ClientID: clientID,
			Username: username,
			APIKey:   apiKey,
			Timeout:  timeout,
		}, logger), nil
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY must be set")
		}
		return openai.NewExtractor(apiKey, "gpt-4o", logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
