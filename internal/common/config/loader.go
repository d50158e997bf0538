package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on
// top, expands ${VAR} placeholders and applies the legacy env names.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile reads a single YAML file, used by tests and the CLI --config flag.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.daily_hour", 8)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

func setIfEmpty(dst *string, envKey string) {
	if *dst != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*dst = val
	}
}

// overrideEmptyConfig keeps the variable names operators already use in
// their .env files working.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Messaging.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	setIfEmpty(&cfg.Messaging.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	setIfEmpty(&cfg.Messaging.Twilio.PhoneNumber, "TWILIO_PHONE_NUMBER")

	switch cfg.LLM.Provider {
	case ProviderGemini:
		setIfEmpty(&cfg.LLM.APIKey, "GEMINI_API_KEY")
	default:
		setIfEmpty(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	}

	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")

	if cfg.Server.Port == 0 {
		if val := os.Getenv("PORT"); val != "" {
			fmt.Sscanf(val, "%d", &cfg.Server.Port)
		}
	}
	if !cfg.App.Debug {
		if val := strings.ToLower(os.Getenv("DEBUG")); val == "1" || val == "true" {
			cfg.App.Debug = true
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "hospitality-commands"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAI
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case ProviderGemini:
			cfg.LLM.Model = "gemini-2.0-flash"
		default:
			cfg.LLM.Model = "gpt-3.5-turbo"
		}
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == ProviderOpenAI {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 150
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 15000
	}

	if cfg.Messaging.Transport == "" {
		cfg.Messaging.Transport = TransportTwilio
	}
	if cfg.Messaging.Timeout == 0 {
		cfg.Messaging.Timeout = 10000
	}
	if cfg.Messaging.Twilio.BaseURL == "" {
		cfg.Messaging.Twilio.BaseURL = "https://api.twilio.com"
	}
	if cfg.Messaging.AWS.Region == "" {
		cfg.Messaging.AWS.Region = "us-east-1"
	}

	if cfg.Dispatch.Index == "" {
		cfg.Dispatch.Index = "whatsapp-commands"
	}
	if cfg.Dispatch.RecentLimit == 0 {
		cfg.Dispatch.RecentLimit = 100
	}
	if cfg.Dispatch.Timeout == 0 {
		cfg.Dispatch.Timeout = 5000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "UTC"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 5
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
		if cfg.App.Debug {
			cfg.Logging.Level = "debug"
		}
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.LLM.Provider {
	case ProviderOpenAI:
		if cfg.LLM.BaseURL == "" {
			return fmt.Errorf("llm.base_url is required for provider %s", ProviderOpenAI)
		}
	case ProviderGemini:
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, cfg.LLM.Provider)
	}

	switch cfg.Messaging.Transport {
	case TransportTwilio:
		if cfg.Messaging.Twilio.AccountSID == "" || cfg.Messaging.Twilio.AuthToken == "" {
			return fmt.Errorf("messaging.twilio.account_sid and auth_token are required for transport twilio")
		}
		if cfg.Messaging.Twilio.PhoneNumber == "" {
			return fmt.Errorf("messaging.twilio.phone_number is required for transport twilio")
		}
	case TransportSNS, TransportLog:
	default:
		return fmt.Errorf("messaging.transport must be twilio, sns or log, got %q", cfg.Messaging.Transport)
	}

	if cfg.Messaging.AWS.SES.Enabled && cfg.Messaging.AWS.SES.FromEmail == "" {
		return fmt.Errorf("messaging.aws.ses.from_email is required when ses is enabled")
	}

	if cfg.Dispatch.Postgres {
		if cfg.Database.Postgres.Host == "" || cfg.Database.Postgres.Database == "" || cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres host, database and user are required when dispatch.postgres is on")
		}
	}
	if cfg.Dispatch.Redis && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when dispatch.redis is on")
	}
	if cfg.Dispatch.Elasticsearch && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when dispatch.elasticsearch is on")
	}

	if cfg.Scheduler.DailyHour < 0 || cfg.Scheduler.DailyHour > 23 {
		return fmt.Errorf("scheduler.daily_hour must be between 0 and 23")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}

	return nil
}
