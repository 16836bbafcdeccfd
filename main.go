// Package main provides the entry point for the trello-player CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/config"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "trello-player"

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	listID     string
	track      string
	noAutoplay bool
	debug      bool

	// set by the persistent pre-run once the configuration is loaded
	cfg      config.Config
	closeLog = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:   appName,
		Short: "Play the audio attachments of a Trello list",
		Long: paragraph(
			fmt.Sprintf("\nPlay the audio attachments of a Trello list, with %s.", keyword("pitch, tempo and A|B repeat")),
		),
		SilenceErrors:     false,
		SilenceUsage:      true,
		TraverseChildren:  true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: loadConfig,
		RunE:              runPlay,
	}
)

// loadConfig reads the configuration and sets up logging for cmd.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if configFile != "" && cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	c, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if debug {
		c.Log.Level = "debug"
	}
	if c.Storage.Path == "" {
		p, err := gap.NewScope(gap.User, appName).DataPath("store.yml")
		if err != nil {
			return fmt.Errorf("unable to locate data directory: %w", err)
		}
		c.Storage.Path = p
	}
	cfg = c

	closer, err := setupLog(cfg.Log, cmd.Annotations[logAnnotation] == logToStderr)
	if err != nil {
		return err
	}
	closeLog = closer
	return nil
}

func main() {
	err := rootCmd.Execute()
	_ = closeLog()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", configFile, "config file")
	rootCmd.PersistentFlags().StringVar(&listID, "list", "", "Trello list id to play")
	rootCmd.PersistentFlags().StringVar(&track, "track", "", "fuzzy name of the track to start with")
	rootCmd.PersistentFlags().BoolVar(&noAutoplay, "no-autoplay", false, "do not start playing after loading")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")

	// Config bindings
	_ = viper.BindPFlag("trello.list_id", rootCmd.PersistentFlags().Lookup("list"))

	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(playCmd, proxyCmd, authCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, appName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, appName)}, dirs...)
	}

	if c := os.Getenv("TRELLO_PLAYER_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(appName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("trello_player")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		configFile = used
		return
	}

	configFile = filepath.Join(dirs[0], appName+".yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
