package tui

import (
	"context"
	"strings"

	"walletview/pkg/models"
	"walletview/pkg/watcher"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Version is set by Start()
var Version = "dev"

// maxHistory caps the balance history kept for the graph.
const maxHistory = 500

// Session is the connection view controller the TUI renders and drives.
// *watcher.Watcher implements it.
type Session interface {
	Start(ctx context.Context) error
	Snapshot() models.ViewState
	Subscribe() watcher.Subscriber
	Unsubscribe(watcher.Subscriber)
	Connect(ctx context.Context) error
	Resync() error
	DismissError()
}

// --- Messages ---

type clearStatusMsg struct{}

type startResultMsg struct{ err error }

type connectResultMsg struct{ err error }

type resyncResultMsg struct{ err error }

// --- Model ---

type model struct {
	ctx            context.Context
	session        Session
	sub            watcher.Subscriber
	state          models.ViewState
	walletName     string
	width          int
	height         int
	spinner        spinner.Model
	statusMessage  string
	balanceHistory []float64
	historyAccount string
	showGraph      bool
	showHelp       bool
}

func initialModel(ctx context.Context, s Session, expectedWallet string) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	name := strings.TrimSpace(expectedWallet)
	if name == "" {
		name = "Wallet"
	}

	return model{
		ctx:        ctx,
		session:    s,
		sub:        s.Subscribe(),
		state:      s.Snapshot(),
		walletName: name,
		spinner:    sp,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		listenForWatcher(m.sub),
		startSession(m.ctx, m.session),
		m.spinner.Tick,
	)
}

// busy reports whether a spinner should be shown.
func (m model) busy() bool {
	return m.state.HasProvider == nil || m.state.IsConnecting
}
