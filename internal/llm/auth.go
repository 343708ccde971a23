package llm

import (
	"os"
	"strings"

	"github.com/starford/taskwise/internal/apperr"
)

// ResolveAPIKey picks the key for the configured driver.
// Resolution order: explicit value -> configured api_key -> driver env var.
// Values of the form ${VAR} are read from the environment.
func ResolveAPIKey(explicit string, cfg Config) (string, error) {
	if strings.EqualFold(cfg.Driver, DriverOllama) {
		return resolve(explicit), nil
	}
	if key := resolve(explicit); key != "" {
		return key, nil
	}
	if key := resolve(cfg.APIKey); key != "" {
		return key, nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}
	return "", apperr.ErrNoCredentials
}

func resolve(v string) string {
	trimmed := strings.TrimSpace(v)
	if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") {
		return strings.TrimSpace(os.Getenv(trimmed[2 : len(trimmed)-1]))
	}
	return trimmed
}
