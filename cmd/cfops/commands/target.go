package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/cfops/pkg/capi"
	"github.com/fivetwenty-io/cfops/pkg/cfclient"
)

// NewTargetCommand creates the target command, which adds or selects an API.
func NewTargetCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "target [URL|NAME]",
		Short: "Show or set the current API",
		Long: `Without an argument, show the current API. With a URL or a configured
name, make it the current API, adding it to the configuration if needed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				api, err := selectAPI(config, "")
				if err != nil {
					return err
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "API: %s (%s)\n", api.Endpoint, orDefault(api.APIVersion, string(capi.APIVersionAuto)))

				return nil
			}

			key, api, ok := config.findAPI(args[0])
			if !ok {
				if key = name; key == "" {
					if key, err = apiName(args[0]); err != nil {
						return err
					}
				}

				api = &APIConfig{Endpoint: cfclient.NormalizeEndpoint(args[0])}
				config.APIs[key] = api
			}

			if version := viper.GetString("api-version"); version != "" {
				api.APIVersion = version
			}

			if cmd.Flags().Changed("skip-ssl-validation") {
				api.SkipSSLValidation = viper.GetBool("skip-ssl-validation")
			}

			config.CurrentAPI = key

			if err := saveConfig(config); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Targeted %s at %s\n", key, api.Endpoint)

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name for a new API (default is its host)")

	return cmd
}
