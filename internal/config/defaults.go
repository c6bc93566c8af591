package config

import (
	"time"

	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyProvider        = "llm.provider"
	KeyModel           = "llm.model"
	KeyBaseURL         = "llm.base_url"
	KeyOpenAIKey       = "llm.openai_api_key"
	KeyAnthropicKey    = "llm.anthropic_api_key"
	KeyTemperature     = "llm.temperature"
	KeyMaxTokens       = "llm.max_tokens"
	KeyMaxRetries      = "llm.max_retries"
	KeyRetryDelay      = "llm.retry_delay"
	KeyTimeout         = "llm.timeout"
	KeyRateLimit       = "llm.rate_limit"
	KeyResponseMode    = "llm.response_mode"
	KeyLanguage        = "llm.language"
	KeyBatchMaxRows    = "batch.max_rows"
	KeyBatchMaxTokens  = "batch.max_tokens"
	KeyClassifier      = "matching.classifier"
	KeySequential      = "matching.sequential"
	KeyRetryCeiling    = "reconcile.retry_ceiling"
	KeyCooldown        = "reconcile.cooldown"
	KeyPromptRate      = "cost.prompt_per_1k"
	KeyCompletionRate  = "cost.completion_per_1k"
	KeyOutputPerAcct   = "cost.output_tokens_per_account"
	KeyInputExtensions = "input.extensions"
	KeyInputMaxFileMB  = "input.max_file_mb"
	KeyPromptsPath     = "prompts.path"
	KeyReferencePath   = "reference.path"
	KeyOutput          = "output"
	KeyDatabasePath    = "database.path"
	KeyLogLevel        = "logging.level"
	KeyLogFormat       = "logging.format"
)

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyProvider, "openai")
	v.SetDefault(KeyTemperature, 0.2)
	v.SetDefault(KeyMaxTokens, 16000)
	v.SetDefault(KeyMaxRetries, 3)
	v.SetDefault(KeyRetryDelay, 2*time.Second)
	v.SetDefault(KeyTimeout, 5*time.Minute)
	v.SetDefault(KeyRateLimit, 60)
	v.SetDefault(KeyResponseMode, "schema")
	v.SetDefault(KeyLanguage, "")

	v.SetDefault(KeyBatchMaxRows, 25)
	v.SetDefault(KeyBatchMaxTokens, 16000)

	v.SetDefault(KeyClassifier, "first_letter")
	v.SetDefault(KeySequential, false)
	v.SetDefault(KeyRetryCeiling, 3)
	v.SetDefault(KeyCooldown, 2*time.Second)

	v.SetDefault(KeyPromptRate, "0.0025")
	v.SetDefault(KeyCompletionRate, "0.01")
	v.SetDefault(KeyOutputPerAcct, 120)

	v.SetDefault(KeyInputExtensions, []string{".xlsx", ".csv"})
	v.SetDefault(KeyInputMaxFileMB, 10)

	v.SetDefault(KeyPromptsPath, "")
	v.SetDefault(KeyReferencePath, "reference.xlsx")
	v.SetDefault(KeyOutput, "mapping.xlsx")
	v.SetDefault(KeyDatabasePath, "~/.local/share/transco/history.db")

	v.SetDefault("sheets.enabled", false)
	v.SetDefault("sheets.spreadsheet_name", "Chart of Accounts Mapping")
	v.SetDefault("sheets.mapping_title", "Mapping")
	v.SetDefault("sheets.unresolved_title", "Unresolved")
	v.SetDefault("sheets.time_zone", "Europe/Paris")
	v.SetDefault("sheets.token_file", "~/.config/transco/sheets-token.json")

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}
