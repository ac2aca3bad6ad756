package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/pkg/cfclient"
)

type loginOptions struct {
	username     string
	password     string
	clientID     string
	clientSecret string
}

// NewLoginCommand creates the login command. Tokens obtained are saved to the
// config file and refreshed from there by later commands.
func NewLoginCommand() *cobra.Command {
	opts := &loginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the current or given API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&opts.clientID, "client-id", "", "OAuth client ID for client credentials")
	cmd.Flags().StringVar(&opts.clientSecret, "client-secret", "", "OAuth client secret")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *loginOptions) error {
	if opts.username == "" && opts.clientID == "" {
		return constants.ErrCredentialsRequired
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}

	key, api, err := loginTarget(config, viper.GetString("api"))
	if err != nil {
		return err
	}

	if opts.username != "" && opts.password == "" {
		if opts.password, err = readPassword(cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	*api = APIConfig{
		Endpoint:          api.Endpoint,
		APIVersion:        api.APIVersion,
		SkipSSLValidation: api.SkipSSLValidation,
		Username:          opts.username,
		ClientID:          opts.clientID,
		ClientSecret:      opts.clientSecret,
	}
	config.CurrentAPI = key

	if err := saveConfig(config); err != nil {
		return err
	}

	clientCfg := clientConfig(api, cmd.ErrOrStderr())
	clientCfg.Username = opts.username
	clientCfg.Password = opts.password

	conns := cfclient.NewConnections(cfclient.WithTokenPersister(NewConfigPersister(), nil))
	defer func() { _ = conns.Close() }()

	client, err := conns.Get(cmd.Context(), clientCfg)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", api.Endpoint, err)
	}

	orgs, err := client.Organizations().List(cmd.Context())
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Authenticated with %s (API %s), %d organizations visible\n",
		api.Endpoint, client.APIVersion(), len(orgs))

	return nil
}

// loginTarget returns the API to log in to, adding ref to config if it is new.
func loginTarget(config *Config, ref string) (string, *APIConfig, error) {
	if ref == "" {
		if config.CurrentAPI == "" {
			return "", nil, constants.ErrNoAPIsConfigured
		}

		api, ok := config.APIs[config.CurrentAPI]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", constants.ErrAPIConfigNotFound, config.CurrentAPI)
		}

		return config.CurrentAPI, api, nil
	}

	if key, api, ok := config.findAPI(ref); ok {
		return key, api, nil
	}

	key, err := apiName(ref)
	if err != nil {
		return "", nil, err
	}

	api := &APIConfig{Endpoint: cfclient.NormalizeEndpoint(ref)}
	config.APIs[key] = api

	return key, api, nil
}

func readPassword(prompt io.Writer) (string, error) {
	fd := int(os.Stdin.Fd()) // #nosec G115 -- file descriptors fit in int

	if !term.IsTerminal(fd) {
		return "", constants.ErrPasswordRequired
	}

	_, _ = fmt.Fprint(prompt, "Password: ")

	password, err := term.ReadPassword(fd)

	_, _ = fmt.Fprintln(prompt)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(password), nil
}

// NewLogoutCommand creates the logout command, which forgets saved credentials.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove saved tokens for the current or given API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			ref := viper.GetString("api")
			if ref == "" {
				ref = config.CurrentAPI
			}

			key, api, ok := config.findAPI(ref)
			if !ok {
				return fmt.Errorf("%w: %s", constants.ErrAPIConfigNotFound, ref)
			}

			api.Token = ""
			api.TokenExpiresAt = nil
			api.RefreshToken = ""
			api.ClientSecret = ""

			if err := saveConfig(config); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged out of %s\n", key)

			return nil
		},
	}
}
