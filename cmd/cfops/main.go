package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/cfops/cmd/cfops/commands"
	"github.com/fivetwenty-io/cfops/internal/constants"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cfops",
		Short: "Cloud Foundry operations CLI",
		Long: `A command-line interface for reading and operating Cloud Foundry resources.

cfops talks to either the v2 or the v3 Cloud Controller API. The generation is
discovered from the API root unless --api-version pins it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return commands.StartMetricsServer(cmd.Context(), viper.GetString("metrics-addr"))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.cfops/config.yml)")
	flags.StringP("api", "a", "", "API endpoint URL or configured API name")
	flags.String("api-version", "", "API generation to use (auto, v2, v3)")
	flags.StringP("token", "t", "", "authentication token")
	flags.StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.Bool("skip-ssl-validation", false, "skip SSL certificate validation (requires "+constants.DevModeEnv+"=true)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	for _, name := range []string{"config", "api", "api-version", "token", "output", "verbose", "skip-ssl-validation", "metrics-addr"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewTargetCommand())
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewLogoutCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewOrgsCommand())
	rootCmd.AddCommand(commands.NewSpacesCommand())
	rootCmd.AddCommand(commands.NewStacksCommand())
	rootCmd.AddCommand(commands.NewDomainsCommand())
	rootCmd.AddCommand(commands.NewRoutesCommand())
	rootCmd.AddCommand(commands.NewPlansCommand())
	rootCmd.AddCommand(commands.NewAppsCommand())
	rootCmd.AddCommand(commands.NewServicesCommand())
	rootCmd.AddCommand(commands.NewBuildsCommand())
	rootCmd.AddCommand(commands.NewPackagesCommand())

	return rootCmd
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".cfops"))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("CFOPS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	cobra.OnInitialize(initConfig)

	rootCmd := newRootCommand()

	err := rootCmd.Execute()

	commands.StopMetricsServer()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
