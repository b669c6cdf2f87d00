package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ldisse/airtrack/internal/config"
	"github.com/ldisse/airtrack/internal/logger"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	configPath string

	rootCmd = &cobra.Command{
		Use:   "airtrack",
		Short: "Airtrack - hand-tracking device client",
		Long: `Airtrack connects to a hand-tracking daemon and exposes its event
stream: device and service connectivity, tracking frames, camera images and
focus changes. Use it to watch the live event stream or to query and
configure a running daemon.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				config.SetConfigPath(configPath)
			}
			if err := config.Init(); err != nil {
				return err
			}
			if lvl := config.Get().Logging.LogLevel; lvl != "" {
				logger.SetLevel(lvl)
			}
			return nil
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(gestureCmd)
}
