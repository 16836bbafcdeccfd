package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/trello-player/internal/player"
)

type (
	snapshotMsg player.Snapshot
	alertMsg    string
)

// Bridge carries player notifications into the Bubble Tea loop. Its
// handlers never block the player.
type Bridge struct {
	snapshots chan player.Snapshot
	alerts    chan string
}

// NewBridge creates a bridge.
func NewBridge() *Bridge {
	return &Bridge{
		snapshots: make(chan player.Snapshot, 1),
		alerts:    make(chan string, 8),
	}
}

// OnChange keeps only the newest pending snapshot.
func (b *Bridge) OnChange(s player.Snapshot) {
	for {
		select {
		case b.snapshots <- s:
			return
		default:
		}
		select {
		case <-b.snapshots:
		default:
		}
	}
}

// OnAlert queues a user-facing message.
func (b *Bridge) OnAlert(msg string) {
	select {
	case b.alerts <- msg:
	default:
		log.Warn("Dropping alert", "message", msg)
	}
}

func (b *Bridge) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-b.snapshots)
	}
}

func (b *Bridge) waitForAlert() tea.Cmd {
	return func() tea.Msg {
		return alertMsg(<-b.alerts)
	}
}
