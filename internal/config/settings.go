package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/transco/internal/batch"
	"github.com/Veraticus/transco/internal/common"
	"github.com/Veraticus/transco/internal/cost"
	"github.com/Veraticus/transco/internal/engine"
	"github.com/Veraticus/transco/internal/ledger"
	"github.com/Veraticus/transco/internal/llm"
	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/normalize"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// LLM builds the provider configuration. The API key comes from the config
// file first and the provider's usual environment variable second. When
// requireKey is false a missing key is not an error, for offline commands.
func LLM(v *viper.Viper, requireKey bool) (llm.Config, error) {
	mode, err := model.ParseResponseMode(v.GetString(KeyResponseMode))
	if err != nil {
		return llm.Config{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg := llm.Config{
		Provider:    strings.ToLower(v.GetString(KeyProvider)),
		Model:       v.GetString(KeyModel),
		BaseURL:     v.GetString(KeyBaseURL),
		Mode:        mode,
		Temperature: v.GetFloat64(KeyTemperature),
		MaxTokens:   v.GetInt(KeyMaxTokens),
		MaxRetries:  v.GetInt(KeyMaxRetries),
		RetryDelay:  v.GetDuration(KeyRetryDelay),
		Timeout:     v.GetDuration(KeyTimeout),
		RateLimit:   v.GetInt(KeyRateLimit),
	}

	var keyName, envName string
	switch cfg.Provider {
	case llm.ProviderOpenAI, "":
		cfg.Provider = llm.ProviderOpenAI
		keyName, envName = KeyOpenAIKey, "OPENAI_API_KEY"
		if cfg.Model == "" {
			cfg.Model = llm.DefaultOpenAIModel
		}
	case llm.ProviderAnthropic:
		keyName, envName = KeyAnthropicKey, "ANTHROPIC_API_KEY"
		if cfg.Model == "" {
			cfg.Model = llm.DefaultAnthropicModel
		}
	default:
		return llm.Config{}, fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, cfg.Provider)
	}

	cfg.APIKey = v.GetString(keyName)
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(envName)
	}
	if cfg.APIKey == "" && requireKey {
		return llm.Config{}, fmt.Errorf("%w: %s API key not found in config (%s) or %s environment variable",
			common.ErrMissingConfig, cfg.Provider, keyName, envName)
	}

	return cfg, nil
}

// BatchLimits returns the planner ceilings.
func BatchLimits(v *viper.Viper) (batch.Limits, error) {
	limits := batch.Limits{
		MaxRows:   v.GetInt(KeyBatchMaxRows),
		MaxTokens: v.GetInt(KeyBatchMaxTokens),
	}
	if limits.MaxRows < 0 || limits.MaxTokens < 0 {
		return batch.Limits{}, fmt.Errorf("%w: batch ceilings cannot be negative", common.ErrInvalidConfig)
	}
	return limits, nil
}

// Reconcile returns the reconciliation loop settings.
func Reconcile(v *viper.Viper) (engine.Config, error) {
	mode, err := model.ParseResponseMode(v.GetString(KeyResponseMode))
	if err != nil {
		return engine.Config{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	cfg := engine.Config{
		Mode:         mode,
		Language:     v.GetString(KeyLanguage),
		RetryCeiling: v.GetInt(KeyRetryCeiling),
		Cooldown:     v.GetDuration(KeyCooldown),
	}
	if cfg.RetryCeiling < 0 {
		return engine.Config{}, fmt.Errorf("%w: %s cannot be negative", common.ErrInvalidConfig, KeyRetryCeiling)
	}
	if cfg.Cooldown < 0 {
		return engine.Config{}, fmt.Errorf("%w: %s cannot be negative", common.ErrInvalidConfig, KeyCooldown)
	}
	return cfg, nil
}

// Rates returns the token prices used for cost reporting.
func Rates(v *viper.Viper) (cost.Rates, error) {
	prompt, err := decimal.NewFromString(v.GetString(KeyPromptRate))
	if err != nil {
		return cost.Rates{}, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, KeyPromptRate, err)
	}
	completion, err := decimal.NewFromString(v.GetString(KeyCompletionRate))
	if err != nil {
		return cost.Rates{}, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, KeyCompletionRate, err)
	}
	return cost.Rates{PromptPer1K: prompt, CompletionPer1K: completion}, nil
}

// Classifier returns the configured class indicator classifier.
func Classifier(v *viper.Viper) (normalize.Classifier, error) {
	c, err := normalize.NewClassifier(v.GetString(KeyClassifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return c, nil
}

// LedgerOptions returns the input validation settings.
func LedgerOptions(v *viper.Viper) (ledger.Options, error) {
	classifier, err := Classifier(v)
	if err != nil {
		return ledger.Options{}, err
	}

	exts := append([]string(nil), v.GetStringSlice(KeyInputExtensions)...)
	for i, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[i] = ext
	}

	return ledger.Options{
		Classifier:  classifier,
		Extensions:  exts,
		MaxFileSize: int64(v.GetFloat64(KeyInputMaxFileMB) * (1 << 20)),
	}, nil
}

// Path returns the expanded path stored under key.
func Path(v *viper.Viper, key string) string {
	return ExpandPath(v.GetString(key))
}
