package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "chronosight v0.1.0"

var (
	cfgFile string
	verbose bool
	logger  = slog.Default()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "chronosight",
	Short: "ChronoSight - explore the history of any place on Earth",
	Long: `ChronoSight turns a place name or a pair of coordinates into a short
historical narrative, a handful of visually distinct eras, and AI-generated
images of the spot as it looks today and as it may have looked in the past.

Historical depictions are AI-generated interpretations and may not be
perfectly accurate.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for ChronoSight.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.chronosight/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Provider flags
	flags.String("provider", "", "text provider (gemini, openai, ollama)")
	flags.String("image-provider", "", "image provider (gemini, openai); defaults to --provider")
	flags.String("text-model", "", "text model name")
	flags.String("image-model", "", "image model name")
	flags.String("base-url", "", "custom API endpoint for the text provider")
	flags.Bool("no-cache", false, "disable the context cache")
	flags.String("stale-results", "", "stale result policy (last-writer-wins, latest-request)")
	flags.Bool("no-color", false, "disable ANSI colors")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("llm.provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("llm.image_provider", flags.Lookup("image-provider"))
	_ = viper.BindPFlag("llm.text_model", flags.Lookup("text-model"))
	_ = viper.BindPFlag("llm.image_model", flags.Lookup("image-model"))
	_ = viper.BindPFlag("llm.base_url", flags.Lookup("base-url"))
	_ = viper.BindPFlag("session.stale_results", flags.Lookup("stale-results"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and ENV variables, then sets up
// the logger
func initConfig() {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
		} else {
			viper.AddConfigPath(filepath.Join(home, ".chronosight"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	setDefaults()

	// CHRONOSIGHT_LLM_PROVIDER overrides llm.provider and so on
	viper.SetEnvPrefix("CHRONOSIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configErr := viper.ReadInConfig()

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if configErr == nil {
		logger.Debug("using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		logger.Warn("config file not loaded", "path", cfgFile, "error", configErr)
	}
}
