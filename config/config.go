package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/hhhjonson/courseselector/learn"
	"github.com/hhhjonson/courseselector/unifiedllm"
)

// EnvPrefix prefixes every environment variable, e.g. COURSESELECTOR_LEARN_URL.
const EnvPrefix = "COURSESELECTOR"

// Model providers.
const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
	ProviderGollm  = "gollm"
)

// Learn configures the identity provider and the course catalog.
type Learn struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TenantID     string `mapstructure:"tenant_id"`
	URL          string `mapstructure:"url"`
	TokenURL     string `mapstructure:"token_url"`
	Scope        string `mapstructure:"scope"`
}

// Credentials returns the service principal credentials.
func (l Learn) Credentials() learn.Credentials {
	return learn.Credentials{
		ClientID:     l.ClientID,
		ClientSecret: l.ClientSecret,
		TenantID:     l.TenantID,
	}
}

// Model configures the language model provider.
type Model struct {
	Provider   string `mapstructure:"provider"`
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	APIVersion string `mapstructure:"api_version"`
	// Name is the model, or the deployment name for Azure.
	Name string `mapstructure:"name"`
	// Backend selects the gollm provider when Provider is "gollm".
	Backend string `mapstructure:"backend"`
}

// Config is the complete application configuration.
type Config struct {
	Learn          Learn         `mapstructure:"learn"`
	Model          Model         `mapstructure:"model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	LogLevel       string        `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"learn.client_id":     "",
	"learn.client_secret": "",
	"learn.tenant_id":     "",
	"learn.url":           "",
	"learn.token_url":     "",
	"learn.scope":         learn.DefaultScope,
	"model.provider":      ProviderAzure,
	"model.endpoint":      "",
	"model.api_key":       "",
	"model.api_version":   unifiedllm.DefaultAzureAPIVersion,
	"model.name":          "",
	"model.backend":       "openai",
	"request_timeout":     "60s",
	"log_level":           "info",
}

// Well-known variables accepted in addition to the prefixed names.
var envAliases = map[string]string{
	"model.endpoint":    "AZURE_OPENAI_ENDPOINT",
	"model.api_key":     "AZURE_OPENAI_API_KEY",
	"model.api_version": "OPENAI_API_VERSION",
}

// Load reads the configuration from defaults, the optional YAML file at path
// and the environment, in increasing order of precedence. A missing file is
// not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return Config{}, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

// ValidateLearn reports every missing catalog setting.
func (c Config) ValidateLearn() error {
	var multiErr *multierror.Error
	for name, value := range map[string]string{
		"learn.client_id":     c.Learn.ClientID,
		"learn.client_secret": c.Learn.ClientSecret,
		"learn.tenant_id":     c.Learn.TenantID,
		"learn.url":           c.Learn.URL,
	} {
		if value == "" {
			multiErr = multierror.Append(multiErr, fmt.Errorf("%s is required", name))
		}
	}
	return sorted(multiErr).ErrorOrNil()
}

// ValidateModel reports every missing or invalid model setting.
func (c Config) ValidateModel() error {
	var multiErr *multierror.Error
	required := func(name, value string) {
		if value == "" {
			multiErr = multierror.Append(multiErr, fmt.Errorf("%s is required for provider %q", name, c.Model.Provider))
		}
	}

	switch c.Model.Provider {
	case ProviderAzure:
		required("model.endpoint", c.Model.Endpoint)
		required("model.api_key", c.Model.APIKey)
		required("model.name", c.Model.Name)
	case ProviderOpenAI:
		required("model.api_key", c.Model.APIKey)
		required("model.name", c.Model.Name)
	case ProviderGollm:
		required("model.backend", c.Model.Backend)
	default:
		multiErr = multierror.Append(multiErr, fmt.Errorf("model.provider %q is not one of %s, %s, %s",
			c.Model.Provider, ProviderAzure, ProviderOpenAI, ProviderGollm))
	}
	if c.RequestTimeout <= 0 {
		multiErr = multierror.Append(multiErr, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}
	return sorted(multiErr).ErrorOrNil()
}

// sorted orders the aggregated errors by message so reports are stable.
func sorted(multiErr *multierror.Error) *multierror.Error {
	if multiErr == nil {
		return nil
	}
	sort.Slice(multiErr.Errors, func(i, j int) bool {
		return multiErr.Errors[i].Error() < multiErr.Errors[j].Error()
	})
	return multiErr
}
