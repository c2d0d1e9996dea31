package cli

import (
	"os"
	"path/filepath"
)

// Config holds CLI configuration
type Config struct {
	ServerURL   string
	Token       string
	TokenFile   string
	DisplayName string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:   getEnvOrDefault("MASTERMIND_SERVER", "http://localhost:8080"),
		Token:       os.Getenv("MASTERMIND_TOKEN"),
		TokenFile:   getEnvOrDefault("MASTERMIND_TOKEN_FILE", defaultTokenFile()),
		DisplayName: getEnvOrDefault("MASTERMIND_NAME", "anonymous"),
	}
}

// LoadToken loads the token from file if not already set. The saved token is
// what lets a new process resume the previous session's identity.
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No token file is fine
		}
		return err
	}

	c.Token = string(data)
	return nil
}

// SaveToken saves the token to the token file
func (c *Config) SaveToken(token string) error {
	c.Token = token

	dir := filepath.Dir(c.TokenFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.TokenFile, []byte(token), 0600)
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mastermind/token"
	}
	return filepath.Join(home, ".mastermind", "token")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
