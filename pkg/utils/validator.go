package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidateAmount validates a purchase amount
func ValidateAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %.2f", amount)
	}
	return nil
}

// ValidateUploadFilename checks that an uploaded bill has a supported
// extension
func ValidateUploadFilename(name string) error {
	lower := strings.ToLower(name)
	for _, ext := range []string{".pdf", ".jpg", ".jpeg", ".png"} {
		if strings.HasSuffix(lower, ext) {
			return nil
		}
	}
	return fmt.Errorf("unsupported file type: %s", name)
}

// SanitizeString removes potentially harmful characters
func SanitizeString(s string) string {
	// Remove control characters
	sanitized := regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(s, "")
	return strings.TrimSpace(sanitized)
}
