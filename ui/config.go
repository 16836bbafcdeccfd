package ui

// Config contains TUI-specific configuration.
type Config struct {
	// Title shown above the track list.
	Title       string
	EnableMouse bool

	// Seconds moved by the seek keys.
	SeekStep float64 `env:"TRELLO_PLAYER_SEEK_STEP" envDefault:"5"`
	// Seconds the loop region moves per nudge.
	RegionStep float64 `env:"TRELLO_PLAYER_REGION_STEP" envDefault:"0.5"`

	// For debugging the UI
	AltScreen bool `env:"TRELLO_PLAYER_ALT_SCREEN" envDefault:"true"`
}
