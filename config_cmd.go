package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# Trello settings
trello:
  # API key of your Power-Up (stored after the first "trello-player auth")
  # api_key: ""
  # id of the list whose card attachments are played
  # list_id: ""
  api_url: "https://api.trello.com"
  # maximum Trello API requests per second
  rate_limit: 10

# CORS proxy
proxy:
  # where the player downloads attachments through
  url: "http://localhost:8787/"
  # origin the player presents to the proxy
  origin: "https://yourdomain.com"
  # address "trello-player proxy" listens on
  listen: ":8787"
  # domains (and their subdomains) allowed to use the proxy
  allowed_origins:
    - "yourdomain.com"

# Playback
player:
  # number of downloaded attachments kept in memory
  cache_limit: 6
  # start playing as soon as a track is loaded
  autoplay: true
  # how long a single attachment download may take
  fetch_timeout: "2m"

# Stored credentials and pitch preferences
storage:
  # defaults to the user data directory
  # path: "~/.local/share/trello-player/store.yml"

# Debug log
log:
  # debug, info, warn or error
  level: "info"
  # defaults to the user cache directory
  # file: "~/trello-player.log"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the trello-player config file",
	Long:    paragraph(fmt.Sprintf("\n%s the trello-player config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("trello-player config\ntrello-player config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	// the file may not parse yet; editing it must still work
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("trello-player", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
