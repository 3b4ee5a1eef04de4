// Package config resolves runtime configuration from the process environment,
// optionally seeded from a dotenv file. Values are read once at load time;
// the rest of the module receives a plain Config value.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names read by LoadEnv.
const (
	EnvAPIKey      = "AGENTSWARM_API_KEY"
	EnvEndpointURL = "AGENTSWARM_ENDPOINT_URL"
	EnvRegion      = "AGENTSWARM_REGION"
	EnvProfile     = "AGENTSWARM_PROFILE"
)

// Config carries provider credentials and endpoint overrides. Zero values
// mean "use the provider SDK default".
type Config struct {
	// APIKey authenticates against the model provider.
	APIKey string
	// EndpointURL overrides the provider base URL, e.g. for proxies.
	EndpointURL string
	// Region selects a provider region where applicable.
	Region string
	// Profile names a credential profile where applicable.
	Profile string
}

// LoadEnv loads a .env file from the working directory when present, then
// resolves the configuration from environment variables. A missing .env file
// is not an error; explicit environment variables win over dotenv values.
func LoadEnv() *Config {
	_ = godotenv.Load()
	return fromEnv()
}

// LoadEnvFile behaves like LoadEnv but reads the named dotenv file. The file
// must exist.
func LoadEnvFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, err
	}
	return fromEnv(), nil
}

func fromEnv() *Config {
	return &Config{
		APIKey:      os.Getenv(EnvAPIKey),
		EndpointURL: os.Getenv(EnvEndpointURL),
		Region:      os.Getenv(EnvRegion),
		Profile:     os.Getenv(EnvProfile),
	}
}
