package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	OpenAI struct {
		APIKey                   string `yaml:"api_key"`
		Model                    string `yaml:"model"`
		ClassifierTimeoutSeconds int64  `yaml:"classifier_timeout_seconds"`
		GeneratorTimeoutSeconds  int64  `yaml:"generator_timeout_seconds"`
	} `yaml:"openai"`
	Retrieval struct {
		URL            string `yaml:"url"`
		Enabled        bool   `yaml:"enabled"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
		DocumentLimit  int    `yaml:"document_limit"`
	} `yaml:"retrieval"`
	RuleStore struct {
		TimeoutSeconds int64 `yaml:"timeout_seconds"`
	} `yaml:"rule_store"`
	Notifier struct {
		TelegramBotToken string `yaml:"telegram_bot_token"`
		ReviewersChatID  int64  `yaml:"reviewers_chat_id"`
	} `yaml:"notifier"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}
