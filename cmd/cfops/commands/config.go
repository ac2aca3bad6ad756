package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/pkg/cfclient"
)

// Config represents the CLI configuration file.
type Config struct {
	APIs       map[string]*APIConfig `json:"apis,omitempty"        yaml:"apis,omitempty"`
	CurrentAPI string                `json:"current_api,omitempty" yaml:"current_api,omitempty"`
}

// APIConfig represents configuration for a single Cloud Controller.
type APIConfig struct {
	Endpoint          string     `json:"endpoint"                   yaml:"endpoint"`
	APIVersion        string     `json:"api_version,omitempty"      yaml:"api_version,omitempty"`
	Token             string     `json:"token,omitempty"            yaml:"token,omitempty"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	RefreshToken      string     `json:"refresh_token,omitempty"    yaml:"refresh_token,omitempty"`
	LastRefreshed     *time.Time `json:"last_refreshed,omitempty"   yaml:"last_refreshed,omitempty"`
	Username          string     `json:"username,omitempty"         yaml:"username,omitempty"`
	ClientID          string     `json:"client_id,omitempty"        yaml:"client_id,omitempty"`
	ClientSecret      string     `json:"client_secret,omitempty"    yaml:"client_secret,omitempty"`
	SkipSSLValidation bool       `json:"skip_ssl_validation"        yaml:"skip_ssl_validation"`
}

// configPath returns the file viper read, or the default location.
func configPath() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".cfops", "config.yml"), nil
}

// loadConfig reads the config file. A missing file yields an empty config.
func loadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	config := &Config{}

	// #nosec G304 -- path comes from the --config flag or the user's home directory
	data, err := os.ReadFile(path)

	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if config.APIs == nil {
		config.APIs = make(map[string]*APIConfig)
	}

	return config, nil
}

func saveConfig(config *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, constants.ConfigFilePerm); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}

	return nil
}

// apiName derives the config key for an endpoint: its host.
func apiName(endpoint string) (string, error) {
	u, err := url.Parse(cfclient.NormalizeEndpoint(endpoint))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q", constants.ErrNoDomainForAPI, endpoint)
	}

	return u.Host, nil
}

// findAPI resolves ref as a configured name or endpoint.
func (c *Config) findAPI(ref string) (string, *APIConfig, bool) {
	if api, ok := c.APIs[ref]; ok {
		return ref, api, true
	}

	want := cfclient.NormalizeEndpoint(ref)

	for name, api := range c.APIs {
		if cfclient.NormalizeEndpoint(api.Endpoint) == want {
			return name, api, true
		}
	}

	return "", nil, false
}

// selectAPI picks the API a command runs against: the --api flag if set,
// otherwise the current API. An unknown --api endpoint is used ad hoc.
func selectAPI(config *Config, ref string) (*APIConfig, error) {
	if ref != "" {
		if _, api, ok := config.findAPI(ref); ok {
			selected := *api

			return &selected, nil
		}

		return &APIConfig{Endpoint: ref}, nil
	}

	if config.CurrentAPI == "" {
		return nil, constants.ErrNoAPIsConfigured
	}

	api, ok := config.APIs[config.CurrentAPI]
	if !ok {
		return nil, fmt.Errorf("%w: %s", constants.ErrAPIConfigNotFound, config.CurrentAPI)
	}

	selected := *api

	return &selected, nil
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show configured APIs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), masked(config), func(table *tablewriter.Table) {
				table.Header("Name", "Endpoint", "Version", "User", "Token", "Current")

				names := make([]string, 0, len(config.APIs))
				for name := range config.APIs {
					names = append(names, name)
				}

				sort.Strings(names)

				for _, name := range names {
					api := config.APIs[name]

					current := ""
					if name == config.CurrentAPI {
						current = "*"
					}

					user := api.Username
					if user == "" {
						user = api.ClientID
					}

					_ = table.Append(name, api.Endpoint, orDefault(api.APIVersion, "auto"), orDefault(user, constants.None), tokenStatus(api), current)
				}
			})
		},
	})

	return cmd
}

// masked copies config with secrets replaced.
func masked(config *Config) *Config {
	out := &Config{CurrentAPI: config.CurrentAPI, APIs: make(map[string]*APIConfig, len(config.APIs))}

	for name, api := range config.APIs {
		c := *api

		for _, secret := range []*string{&c.Token, &c.RefreshToken, &c.ClientSecret} {
			if *secret != "" {
				*secret = constants.MaskedSecret
			}
		}

		out.APIs[name] = &c
	}

	return out
}

func tokenStatus(api *APIConfig) string {
	switch {
	case api.Token == "":
		return constants.None
	case api.TokenExpiresAt != nil && time.Now().After(*api.TokenExpiresAt):
		return "expired"
	default:
		return "valid"
	}
}
