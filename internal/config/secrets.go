package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const apiKeyName = "OPENROUTER_API_KEY"

type secretsFile struct {
	OpenRouterAPIKey string `toml:"OPENROUTER_API_KEY"`
}

// LoadAPIKey resolves the completion API key. A non-empty value in the TOML
// secrets file wins; otherwise the OPENROUTER_API_KEY environment variable is
// used, including when the file exists but leaves the key empty. An
// unreadable or malformed secrets file is treated as absent.
func LoadAPIKey(secretsPath string) string {
	if key := readSecretsAPIKey(secretsPath); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv(apiKeyName))
}

func readSecretsAPIKey(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("secrets file %s unreadable: %v", path, err)
		}
		return ""
	}

	var secrets secretsFile
	if err := toml.Unmarshal(raw, &secrets); err != nil {
		log.Printf("secrets file %s is not valid TOML: %v", path, err)
		return ""
	}
	return strings.TrimSpace(secrets.OpenRouterAPIKey)
}
