package commands

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/cfops/internal/constants"
	"github.com/fivetwenty-io/cfops/pkg/capi"
	"github.com/fivetwenty-io/cfops/pkg/cfclient"
)

// newLogger writes client logs to w. Only warnings and errors are shown
// unless --verbose is set.
func newLogger(w io.Writer) capi.Logger {
	level := zerolog.WarnLevel
	if viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}

	out := zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "15:04:05"}

	return capi.NewZerologLogger(zerolog.New(out).Level(level).With().Timestamp().Logger())
}

// clientConfig builds the client configuration for api, applying the
// global flags on top of what was saved.
func clientConfig(api *APIConfig, logs io.Writer) *capi.Config {
	version := viper.GetString("api-version")
	if version == "" {
		version = api.APIVersion
	}

	config := &capi.Config{
		APIEndpoint:   api.Endpoint,
		APIVersion:    capi.APIVersion(version),
		AccessToken:   api.Token,
		RefreshToken:  api.RefreshToken,
		ClientID:      api.ClientID,
		ClientSecret:  api.ClientSecret,
		SkipTLSVerify: api.SkipSSLValidation || viper.GetBool("skip-ssl-validation"),
		Debug:         viper.GetBool("verbose"),
		Logger:        newLogger(logs),
		Metrics:       currentMetrics(),
		UserAgent:     constants.DefaultUserAgent,
	}

	// An explicit token is used as is, without refreshing.
	if token := viper.GetString("token"); token != "" {
		config.AccessToken = token
		config.RefreshToken = ""
		config.ClientID = ""
		config.ClientSecret = ""
	}

	return config
}

// connect opens a client for the selected API. The returned func releases it.
func connect(cmd *cobra.Command) (capi.Client, func(), error) {
	config, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	api, err := selectAPI(config, viper.GetString("api"))
	if err != nil {
		return nil, nil, err
	}

	conns := cfclient.NewConnections(cfclient.WithTokenPersister(NewConfigPersister(), savedToken(api)))

	client, err := conns.Get(cmd.Context(), clientConfig(api, cmd.ErrOrStderr()))
	if err != nil {
		_ = conns.Close()

		return nil, nil, fmt.Errorf("connecting to %s: %w", api.Endpoint, err)
	}

	return client, func() { _ = conns.Close() }, nil
}
