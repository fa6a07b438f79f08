package tui

import (
	"context"
	"strconv"
	"time"

	"walletview/pkg/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

func listenForWatcher(sub watcher.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}

// startSession runs provider detection off the UI loop.
func startSession(ctx context.Context, s Session) tea.Cmd {
	return func() tea.Msg {
		return startResultMsg{err: s.Start(ctx)}
	}
}

func connectCmd(ctx context.Context, s Session) tea.Cmd {
	return func() tea.Msg {
		return connectResultMsg{err: s.Connect(ctx)}
	}
}

func resyncCmd(s Session) tea.Cmd {
	return func() tea.Msg {
		return resyncResultMsg{err: s.Resync()}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

// recordBalance appends the connected balance to the graph history. The
// history restarts whenever the active account changes.
func (m *model) recordBalance() {
	wallet := m.state.Wallet
	if !wallet.Connected() {
		m.balanceHistory = nil
		m.historyAccount = ""
		return
	}
	if wallet.ActiveAccount() != m.historyAccount {
		m.balanceHistory = nil
		m.historyAccount = wallet.ActiveAccount()
	}
	v, err := strconv.ParseFloat(wallet.Balance, 64)
	if err != nil {
		return
	}
	m.balanceHistory = append(m.balanceHistory, v)
	if len(m.balanceHistory) > maxHistory {
		m.balanceHistory = m.balanceHistory[len(m.balanceHistory)-maxHistory:]
	}
}
