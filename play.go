package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/attachment"
	"github.com/dgnsrekt/trello-player/internal/auth"
	"github.com/dgnsrekt/trello-player/internal/cache"
	"github.com/dgnsrekt/trello-player/internal/event"
	"github.com/dgnsrekt/trello-player/internal/media"
	"github.com/dgnsrekt/trello-player/internal/player"
	"github.com/dgnsrekt/trello-player/internal/storage"
	"github.com/dgnsrekt/trello-player/ui"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var playCmd = &cobra.Command{
	Use:     "play",
	Short:   "Play the list in the terminal",
	Example: paragraph("trello-player play --list 5f1c...\ntrello-player play --track intro --no-autoplay"),
	Args:    cobra.NoArgs,
	RunE:    runPlay,
}

func runPlay(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec
		return errors.New("play needs an interactive terminal")
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := storage.OpenFileStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	manager := auth.NewManager(store, auth.NewValidator(cfg.Trello.APIURL))
	if cfg.Trello.APIKey != "" {
		if err := manager.SetAPIKey(ctx, cfg.Trello.APIKey); err != nil {
			return err
		}
	}
	if err := manager.Init(ctx); err != nil {
		if errors.Is(err, auth.ErrAuthRequired) {
			return fmt.Errorf("%w: run %s first", err, keyword(appName+" auth"))
		}
		return err
	}

	source := attachment.NewTrelloSource(cfg.Trello.APIURL, cfg.Trello.ListID, manager.Credentials, cfg.Trello.RateLimit)

	fetcher := cache.NewProxyFetcher(cfg.Proxy.URL, manager.Credentials)
	fetcher.Origin = cfg.Proxy.Origin
	blobs := cache.NewBlobCache(fetcher,
		cache.WithLimit(cfg.Player.CacheLimit),
		cache.WithFetchTimeout(cfg.Player.FetchTimeout),
	)
	defer blobs.Close() //nolint:errcheck

	urls := media.NewURLRegistry()
	element := media.NewElement(urls)
	defer element.Close() //nolint:errcheck

	bridge := ui.NewBridge()
	region := ui.NewRegion()

	p := player.New(source, blobs, element, urls,
		player.WithPreferences(storage.Preferences{Store: store}),
		player.WithGraph(media.NopGraph{}),
		player.WithRegionView(region),
		player.WithAutoplay(cfg.Player.Autoplay && !noAutoplay),
		player.WithTrackPicker(pickTrack(track)),
		player.WithChangeHandler(bridge.OnChange),
		player.WithAlertHandler(bridge.OnAlert),
	)
	defer p.Close() //nolint:errcheck

	go p.Run(ctx, element.Events())

	// A token stored by "trello-player auth" in another terminal takes
	// effect without a restart.
	if err := store.Watch(ctx, func() { reauthorize(ctx, store, manager, p) }); err != nil {
		log.Warn("Unable to watch the store", "path", store.Path(), "err", err)
	}

	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	uiCfg.Title = "Trello Player"

	if _, err := ui.NewProgram(uiCfg, p, bridge, region).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func reauthorize(ctx context.Context, store storage.Store, manager *auth.Manager, p *player.Player) {
	token, err := storage.LoadToken(ctx, store)
	if err != nil {
		log.Warn("Unable to read stored token", "err", err)
		return
	}
	if _, current := manager.Credentials(); token == current {
		return
	}
	if err := manager.Init(ctx); err != nil {
		log.Warn("Stored credentials changed but are not usable", "err", err)
		return
	}
	log.Info("Stored credentials changed, reloading")
	p.Emit(event.Reload{})
}

// pickTrack returns a picker that starts with the best fuzzy match for
// pattern.
func pickTrack(pattern string) player.TrackPicker {
	if pattern == "" {
		return nil
	}
	return func(list []attachment.Attachment) int {
		names := make([]string, len(list))
		for i, a := range list {
			names[i] = a.Name
		}
		matches := fuzzy.Find(pattern, names)
		if len(matches) == 0 {
			log.Warn("No track matches", "track", pattern)
			return 0
		}
		return matches[0].Index
	}
}
