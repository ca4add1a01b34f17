package cmd

import (
	"fmt"
	"os"

	// Subcommands
	image "github.com/genaker/agento/cmd/agento/image"
	mock "github.com/genaker/agento/cmd/agento/mock"
	models "github.com/genaker/agento/cmd/agento/models"
	serve "github.com/genaker/agento/cmd/agento/serve"
	video "github.com/genaker/agento/cmd/agento/video"
	"github.com/genaker/agento/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Cmd = &cobra.Command{
	Use:   "agento",
	Short: "Gemini image and Veo video generation for Magento media",
	Long:  "Generates product videos with Veo and lookbook images with Gemini, caches the results under the Magento media directory and serves them over HTTP",

	SilenceUsage:  true,
	SilenceErrors: true,

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.BindEnvs()

		if err := config.BindAnnotatedFlags(cmd.Flags()); err != nil {
			return err
		}

		// Load config and env files
		return config.LoadEnvAndConfigFiles()
	},
}

func Execute() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := Cmd.PersistentFlags()

	pflags.String("config-file", "", "Path to a YAML config file")
	pflags.String("env-file", "", "Path to the env file (defaults to ./.env when present)")
	pflags.String("environment", "dev", "Environment: dev, prod or test")
	pflags.BoolP("verbose", "v", false, "Enable debug logging")

	// Bind flags to viper
	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))
	config.BindFlag(pflags, "environment", "environment")
	config.BindFlag(pflags, "verbose", "verbose")

	// Add subcommands
	Cmd.AddCommand(video.Cmd, image.Cmd, serve.Cmd, mock.Cmd, models.Cmd)
	Cmd.CompletionOptions.HiddenDefaultCmd = true
}
