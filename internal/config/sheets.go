package config

import (
	"github.com/Veraticus/transco/internal/sheets"
	"github.com/spf13/viper"
)

// LoadSheetsConfig loads Google Sheets configuration.
// It follows this precedence:
// 1. Viper configuration (from config file or TRANSCO_ env vars)
// 2. Direct environment variables (GOOGLE_SHEETS_*)
// 3. Default values
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	config := sheets.DefaultConfig()

	if err := config.LoadFromEnv(); err != nil && !hasSheetsAuth(v) {
		return nil, err
	}

	setString(v, "sheets.service_account_path", &config.ServiceAccountPath)
	setString(v, "sheets.client_id", &config.ClientID)
	setString(v, "sheets.client_secret", &config.ClientSecret)
	setString(v, "sheets.refresh_token", &config.RefreshToken)
	setString(v, "sheets.spreadsheet_id", &config.SpreadsheetID)
	setString(v, "sheets.spreadsheet_name", &config.SpreadsheetName)
	setString(v, "sheets.mapping_title", &config.MappingTitle)
	setString(v, "sheets.unresolved_title", &config.UnresolvedTitle)
	setString(v, "sheets.time_zone", &config.TimeZone)

	config.ServiceAccountPath = ExpandPath(config.ServiceAccountPath)

	// Only OAuth2 falls back to the token saved by the auth flow.
	if config.ServiceAccountPath == "" {
		setString(v, "sheets.token_file", &config.TokenFile)
		config.TokenFile = ExpandPath(config.TokenFile)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setString(v *viper.Viper, key string, field *string) {
	if s := v.GetString(key); s != "" {
		*field = s
	}
}

func hasSheetsAuth(v *viper.Viper) bool {
	return v.GetString("sheets.service_account_path") != "" ||
		(v.GetString("sheets.client_id") != "" && v.GetString("sheets.client_secret") != "")
}
