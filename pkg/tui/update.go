package tui

import (
	"errors"
	"fmt"
	"time"

	"walletview/pkg/watcher"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case watcher.Event:
		cmds = append(cmds, listenForWatcher(m.sub))
		m.state = msg.State
		if msg.Type == watcher.EventWalletRefreshed || !m.state.Wallet.Connected() {
			m.recordBalance()
		}

	case startResultMsg:
		m.state = m.session.Snapshot()
		if msg.err != nil && !errors.Is(msg.err, watcher.ErrStopped) {
			m.statusMessage = fmt.Sprintf("Provider listeners failed: %v", msg.err)
			cmds = append(cmds, clearStatusAfter(5*time.Second))
		}

	case connectResultMsg:
		m.state = m.session.Snapshot()
		if errors.Is(msg.err, watcher.ErrConnectUnavailable) || errors.Is(msg.err, watcher.ErrNoProvider) {
			m.statusMessage = "Connect is not available"
			cmds = append(cmds, clearStatusAfter(2*time.Second))
		}

	case resyncResultMsg:
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("Resync failed: %v", msg.err)
		} else {
			m.statusMessage = "Accounts resynced"
		}
		cmds = append(cmds, clearStatusAfter(2*time.Second))

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && m.state.Error {
			m.dismissError()
		}

	case tea.KeyMsg:
		if msg.String() == "?" {
			m.showHelp = !m.showHelp
			return m, nil
		}
		if m.showHelp {
			if msg.String() == "q" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.session.Unsubscribe(m.sub)
			return m, tea.Quit

		case "c":
			if !m.state.CanConnect() {
				return m, nil
			}
			m.state.IsConnecting = true
			cmds = append(cmds, connectCmd(m.ctx, m.session), m.spinner.Tick)

		case "x", "esc":
			if m.state.Error {
				m.dismissError()
			}

		case "r":
			if !m.state.ProviderFound() {
				return m, nil
			}
			m.statusMessage = "Resyncing accounts..."
			cmds = append(cmds, resyncCmd(m.session))

		case "y":
			if !m.state.Wallet.Connected() {
				return m, nil
			}
			if err := clipboard.WriteAll(m.state.Wallet.ActiveAccount()); err != nil {
				m.statusMessage = "Failed to copy to clipboard"
			} else {
				m.statusMessage = "Address copied to clipboard!"
			}
			cmds = append(cmds, clearStatusAfter(2*time.Second))

		case "g":
			m.showGraph = !m.showGraph
		}

	case clearStatusMsg:
		m.statusMessage = ""
	}

	if m.busy() {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) dismissError() {
	m.session.DismissError()
	m.state = m.session.Snapshot()
}
