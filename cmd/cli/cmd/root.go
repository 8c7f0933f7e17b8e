package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "vibectl",
	Short: "Vibectl is a command line tool for interacting with the vibeplane platform",
	Long: `vibectl is the command-line interface for the VibePlane generation platform.

VibePlane turns natural-language prompts into runnable app artifacts with a
live sandboxed preview. Each submission consumes credits from a per-user
daily budget, runs through a background worker and ends with a preview URL
once the generated code executed successfully in an isolated sandbox.

Common workflows:

  Submit a generation job:
    vibectl submit --prompt "a pomodoro timer with dark mode"

  Check job status:
    vibectl status <job-id>

  Cancel a running job:
    vibectl cancel <job-id>

  Check remaining credits:
    vibectl credits

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    VIBEPLANE_URL      API endpoint (default: http://localhost:6161)
    VIBEPLANE_TOKEN    API token for authentication`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".vibectl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".vibectl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "VIBEPLANE_VARNAME"
	viper.SetEnvPrefix("VIBEPLANE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vibectl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "VibePlane Controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "API Token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
