package llm

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Supported drivers.
const (
	DriverOpenAI = "openai"
	DriverOllama = "ollama"
)

// Config selects and tunes the chat model.
type Config struct {
	Driver      string        `yaml:"driver"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature *float32      `yaml:"temperature"`
}

// Validate validates the model configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverOpenAI, DriverOllama)),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxTokens, validation.Min(0)),
	)
}
