// Package sheets publishes mapping tables to Google Sheets.
package sheets

import (
	"fmt"
	"os"
	"time"
)

// Default tab titles.
const (
	DefaultMappingTitle    = "Mapping"
	DefaultUnresolvedTitle = "Unresolved"
)

// Config holds the configuration for the Google Sheets writer.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	TokenFile          string // OAuth2 token saved by the auth flow
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	MappingTitle       string
	UnresolvedTitle    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EnableFormatting: true,
		SpreadsheetName:  "Chart of Accounts Mapping",
		MappingTitle:     DefaultMappingTitle,
		UnresolvedTitle:  DefaultUnresolvedTitle,
		TimeZone:         "Europe/Paris",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// LoadFromEnv fills credentials and spreadsheet settings from environment
// variables, leaving fields untouched when a variable is unset.
func (c *Config) LoadFromEnv() error {
	setFromEnv(&c.ClientID, "GOOGLE_SHEETS_CLIENT_ID")
	setFromEnv(&c.ClientSecret, "GOOGLE_SHEETS_CLIENT_SECRET")
	setFromEnv(&c.RefreshToken, "GOOGLE_SHEETS_REFRESH_TOKEN")
	setFromEnv(&c.TokenFile, "GOOGLE_SHEETS_TOKEN_FILE")
	setFromEnv(&c.ServiceAccountPath, "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	setFromEnv(&c.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")
	setFromEnv(&c.SpreadsheetName, "GOOGLE_SHEETS_SPREADSHEET_NAME")

	if !c.hasServiceAccount() && !c.hasOAuth() {
		return fmt.Errorf("missing Google Sheets authentication: provide either service account path or OAuth2 credentials")
	}
	return nil
}

func setFromEnv(field *string, key string) {
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}

func (c *Config) hasServiceAccount() bool {
	return c.ServiceAccountPath != ""
}

func (c *Config) hasOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && (c.RefreshToken != "" || c.TokenFile != "")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasOAuth := c.hasOAuth()
	hasServiceAccount := c.hasServiceAccount()

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("no authentication method configured")
	}

	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("multiple authentication methods configured; use either OAuth2 or service account")
	}

	if c.MappingTitle == "" || c.UnresolvedTitle == "" {
		return fmt.Errorf("sheet titles cannot be empty")
	}

	if c.MappingTitle == c.UnresolvedTitle {
		return fmt.Errorf("mapping and unresolved sheets need distinct titles")
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	return nil
}
