package cmd

import (
	"strings"

	configcmd "github.com/Iron-Ham/kla/internal/cmd/config"
	"github.com/Iron-Ham/kla/internal/config"
	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "kla",
	Short: "Scripted terminal sessions with screenshots and recordings",
	Long: `kla runs a shell inside a pseudo-terminal, drives it through a script
of commands and keystrokes, and captures the screen as PNG screenshots and
GIF or MP4 recordings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// FormatError renders a command failure for stderr. Severity picks the
// label color; errors that were not written for users point at the log.
func FormatError(err error) string {
	style := errorStyle
	if errors.GetSeverity(err) <= errors.SeverityWarning {
		style = warningStyle
	}

	var sb strings.Builder
	sb.WriteString(style.Render("Error:") + " " + err.Error())
	if errors.IsRetryable(err) {
		sb.WriteString("\n" + mutedStyle.Render("This may succeed if you try again."))
	}
	if !errors.IsUserFacing(err) {
		sb.WriteString("\n" + mutedStyle.Render("Run 'kla logs --level debug' for details."))
	}
	return sb.String()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/kla/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides logging.level)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	configcmd.Register(rootCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("KLA")
	// Replace dots with underscores for nested keys in env vars
	// e.g., KLA_OUTPUT_DIR for output.dir
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()

	if termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}
