// Package ui provides the terminal player.
package ui

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/attachment"
	"github.com/dgnsrekt/trello-player/internal/event"
	"github.com/dgnsrekt/trello-player/internal/pitch"
	"github.com/dgnsrekt/trello-player/internal/player"
)

const (
	statusMessageTimeout = time.Second * 3
	refreshInterval      = 250 * time.Millisecond

	// title, now playing, progress, region, controls, status bar
	chromeHeight = 7
)

// Controller is the player as seen by the UI.
type Controller interface {
	Emit(ev event.Event)
	Snapshot() player.Snapshot
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, ctrl Controller, bridge *Bridge, region *Region) *tea.Program {
	log.Debug("Starting player UI", "alt_screen", cfg.AltScreen, "mouse", cfg.EnableMouse)

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, ctrl, bridge, region), opts...)
}

type (
	refreshMsg      time.Time
	statusClearMsg  int
	clipboardMsg    struct{ err error }
	statusMessageID int
)

type item struct {
	attachment attachment.Attachment
	duration   float64
	current    bool
}

func (i item) Title() string {
	if i.current {
		return "▶ " + i.attachment.Name
	}
	return "  " + i.attachment.Name
}

func (i item) Description() string {
	return "  " + formatClock(i.duration) + " · " + strings.TrimPrefix(strings.ToLower(path.Ext(i.attachment.URL)), ".")
}

func (i item) FilterValue() string { return i.attachment.Name }

type model struct {
	cfg    Config
	ctrl   Controller
	bridge *Bridge
	region *Region

	keys     keyMap
	help     help.Model
	list     list.Model
	progress progress.Model
	spinner  spinner.Model

	snap   player.Snapshot
	synced bool

	status   string
	statusID statusMessageID
	alert    string

	width  int
	height int
}

func newModel(cfg Config, ctrl Controller, bridge *Bridge, region *Region) model {
	if cfg.Title == "" {
		cfg.Title = "Trello Player"
	}
	if cfg.SeekStep <= 0 {
		cfg.SeekStep = 5
	}
	if cfg.RegionStep <= 0 {
		cfg.RegionStep = 0.5
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = cfg.Title
	l.Styles.Title = titleStyle
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.DisableQuitKeybindings()
	l.KeyMap.PrevPage.SetKeys("pgup")
	l.KeyMap.NextPage.SetKeys("pgdown")

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		cfg:      cfg,
		ctrl:     ctrl,
		bridge:   bridge,
		region:   region,
		keys:     defaultKeyMap(),
		help:     help.New(),
		list:     l,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spinner:  sp,
		snap:     player.Snapshot{Tempo: pitch.DefaultTempo},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.emit(event.Reload{}),
		m.bridge.waitForSnapshot(),
		m.bridge.waitForAlert(),
		m.spinner.Tick,
		refresh(),
	)
}

func (m model) emit(ev event.Event) tea.Cmd {
	return func() tea.Msg {
		m.ctrl.Emit(ev)
		return nil
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// pass through all keys while editing the filter
		if m.list.FilterState() == list.Filtering {
			break
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(10, msg.Width-16)
		m.list.SetSize(msg.Width, max(3, msg.Height-chromeHeight-lineCount(m.helpView())))

	case snapshotMsg:
		cmds = append(cmds, m.applySnapshot(player.Snapshot(msg)), m.bridge.waitForSnapshot())

	case alertMsg:
		m.alert = string(msg)
		cmds = append(cmds, m.bridge.waitForAlert())

	case refreshMsg:
		cmds = append(cmds, m.applySnapshot(m.ctrl.Snapshot()), refresh())

	case clipboardMsg:
		if msg.err != nil {
			log.Warn("Unable to copy to clipboard", "err", msg.err)
			return m, m.showStatus("Could not copy URL")
		}
		return m, m.showStatus("Copied URL")

	case statusClearMsg:
		if statusMessageID(msg) == m.statusID {
			m.status = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	// any key dismisses an alert
	m.alert = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.list.SetHeight(max(3, m.height-chromeHeight-lineCount(m.helpView())))
		return nil, true
	case key.Matches(msg, m.keys.Play):
		return m.emit(event.TogglePlay{}), true
	case key.Matches(msg, m.keys.Stop):
		return m.emit(event.Stop{}), true
	case key.Matches(msg, m.keys.Next):
		return m.emit(event.Next{}), true
	case key.Matches(msg, m.keys.Prev):
		return m.emit(event.Prev{}), true
	case key.Matches(msg, m.keys.Select):
		if it, ok := m.list.SelectedItem().(item); ok {
			return m.emit(event.Select{ID: it.attachment.ID}), true
		}
		return nil, true
	case key.Matches(msg, m.keys.SeekBack):
		return m.seek(-m.cfg.SeekStep), true
	case key.Matches(msg, m.keys.SeekForward):
		return m.seek(m.cfg.SeekStep), true
	case key.Matches(msg, m.keys.PitchUp):
		return m.emit(event.SetPitch{Value: m.snap.Pitch + 1, Commit: true}), true
	case key.Matches(msg, m.keys.PitchDown):
		return m.emit(event.SetPitch{Value: m.snap.Pitch - 1, Commit: true}), true
	case key.Matches(msg, m.keys.TempoUp):
		return m.emit(event.SetTempo{Value: m.snap.Tempo + pitch.TempoStep}), true
	case key.Matches(msg, m.keys.TempoDown):
		return m.emit(event.SetTempo{Value: m.snap.Tempo - pitch.TempoStep}), true
	case key.Matches(msg, m.keys.Loop):
		return m.emit(event.ToggleLoop{}), true
	case key.Matches(msg, m.keys.LoopEarlier):
		m.region.Shift(-m.cfg.RegionStep)
		return nil, true
	case key.Matches(msg, m.keys.LoopLater):
		m.region.Shift(m.cfg.RegionStep)
		return nil, true
	case key.Matches(msg, m.keys.LoopRemove):
		m.region.Remove()
		return nil, true
	case key.Matches(msg, m.keys.Copy):
		if a, ok := m.snap.Current(); ok {
			return copyURL(a.URL), true
		}
		return nil, true
	case key.Matches(msg, m.keys.Reload):
		return m.emit(event.Reload{}), true
	}
	return nil, false
}

func (m model) seek(delta float64) tea.Cmd {
	if !m.snap.Loaded {
		return nil
	}
	return m.emit(event.Seek{Time: max(0, m.snap.Position+delta)})
}

func copyURL(url string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{err: clipboard.WriteAll(url)}
	}
}

func (m *model) showStatus(s string) tea.Cmd {
	m.statusID++
	m.status = s
	id := m.statusID
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusClearMsg(id)
	})
}

// applySnapshot mirrors player state into the list. The cursor follows
// the current track only when the track changes.
func (m *model) applySnapshot(s player.Snapshot) tea.Cmd {
	items := make([]list.Item, len(s.Attachments))
	for i, a := range s.Attachments {
		d, ok := s.Durations[a.ID]
		if !ok {
			d = -1
		}
		items[i] = item{attachment: a, duration: d, current: s.Loaded && i == s.Index}
	}
	cmd := m.list.SetItems(items)
	m.region.SetLimit(s.Duration)

	switch {
	case s.ScrollToTop && !m.snap.ScrollToTop:
		m.list.Select(0)
	case !m.synced || s.Index != m.snap.Index:
		if s.Index >= 0 && s.Index < len(items) {
			m.list.Select(s.Index)
		}
	}

	m.snap = s
	m.synced = true
	return cmd
}

func (m model) View() string {
	var b strings.Builder

	fmt.Fprintln(&b, m.list.View())

	// Now playing
	if a, ok := m.snap.Current(); ok {
		name := a.Name
		if m.snap.Loading {
			name = m.spinner.View() + " " + name
		}
		fmt.Fprintln(&b, nowPlayingStyle(name))
	} else {
		fmt.Fprintln(&b, controlStyle("Nothing loaded"))
	}

	// Progress and loop region
	clock := fmt.Sprintf(" %s / %s", formatClock(m.snap.Position), formatClock(m.snap.Duration))
	fmt.Fprintln(&b, m.progress.ViewAs(progressPercent(m.snap.Position, m.snap.Duration))+controlStyle(clock))
	fmt.Fprintln(&b, regionStyle(regionLine(m.progress.Width, m.snap.Duration, m.snap.LoopRegion)))

	fmt.Fprintln(&b, controlsLine(m.snap))

	m.statusBarView(&b)

	fmt.Fprint(&b, "\n"+m.helpView())
	return b.String()
}

func (m model) statusBarView(b *strings.Builder) {
	switch {
	case m.alert != "":
		fmt.Fprint(b, alertStyle(m.alert))
	case m.status != "":
		fmt.Fprint(b, statusBarMessageStyle(padRight(" "+m.status, m.width)))
	case m.snap.Status != "":
		fmt.Fprint(b, statusBarMessageStyle(padRight(" "+m.snap.Status, m.width)))
	default:
		fmt.Fprint(b, statusBarStyle(padRight(" "+trackStatus(m.snap), m.width)))
	}
}

func (m model) helpView() string {
	return m.help.View(m.keys)
}

func lineCount(s string) int {
	return strings.Count(s, "\n") + 1
}
