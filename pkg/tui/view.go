package tui

import (
	"fmt"
	"strings"

	"walletview/pkg/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

func (m model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}

	sections := []string{titleStyle.Render("walletview"), "", m.viewStatus()}

	if m.state.CanConnect() {
		sections = append(sections, "", buttonStyle.Render(fmt.Sprintf("[c] Connect %s", m.walletName)))
	}
	if m.state.IsConnecting {
		sections = append(sections, "", fmt.Sprintf("%s Waiting for approval in %s...", m.spinner.View(), m.walletName))
	}
	if m.state.Wallet.Connected() {
		sections = append(sections, "", m.viewWallet())
	}
	if m.state.Error {
		sections = append(sections, "", m.viewError())
	}
	if m.showGraph {
		sections = append(sections, "", m.viewBalanceGraph())
	}

	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))

	line := "c:connect • r:resync • y:copy • g:graph • ?:help • q:quit"
	line += fmt.Sprintf(" • v%s", Version)
	var footer string
	if m.width > 0 {
		footer = subtleStyle.Width(m.width).Align(lipgloss.Center).Render(line)
	} else {
		footer = subtleStyle.Render(line)
	}
	if m.statusMessage != "" {
		footer = lipgloss.JoinVertical(lipgloss.Center, infoStyle.Render(m.statusMessage), footer)
	}

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
	)
}

func (m model) viewStatus() string {
	if m.state.HasProvider == nil {
		return fmt.Sprintf("%s Detecting injected provider...", m.spinner.View())
	}
	if !m.state.ProviderFound() {
		return errStyle.Render("Injected Provider DOES NOT Exist")
	}

	lines := []string{infoStyle.Render("Injected Provider DOES Exist")}
	if m.state.ClientVersion != "" {
		lines = append(lines, subtleStyle.Render(m.state.ClientVersion))
	}
	if !m.state.WalletIdentified {
		lines = append(lines, errStyle.Render(fmt.Sprintf("Provider is not %s", m.walletName)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m model) viewWallet() string {
	wallet := m.state.Wallet
	account := wallet.ActiveAccount()
	if m.width > 0 && m.width < 60 {
		account = utils.TruncateString(account, 14)
	}
	rows := []string{
		labelStyle.Render("Wallet Accounts:") + " " + account,
		labelStyle.Render("Wallet Balance:") + " " + utils.AddCommas(wallet.Balance),
		labelStyle.Render("Hex ChainId:") + " " + wallet.ChainID,
		labelStyle.Render("Numeric ChainId:") + " " + utils.FormatChainAsNum(wallet.ChainID),
	}
	if extra := len(wallet.Accounts) - 1; extra > 0 {
		rows = append(rows, subtleStyle.Render(fmt.Sprintf("(+%d more authorized)", extra)))
	}
	return strings.Join(rows, "\n")
}

func (m model) viewError() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		errStyle.Render("Error: "+m.state.ErrorMessage),
		subtleStyle.Render("click or press x to dismiss"),
	)
	return errBoxStyle.Render(body)
}

func (m model) viewBalanceGraph() string {
	if len(m.balanceHistory) < 2 {
		return subtleStyle.Render("Not enough data to draw graph.")
	}
	width := m.width - 16
	if width < 10 {
		width = 10
	}
	height := m.height / 4
	if height < 3 {
		height = 3
	}
	return asciigraph.Plot(m.balanceHistory,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("Balance History (ETH)"),
	)
}

func (m model) viewHelp() string {
	shortcuts := []string{
		"c: Connect Wallet",
		"x/esc/click: Dismiss Error",
		"r: Resync Accounts",
		"y: Copy Address",
		"g: Toggle Balance Graph",
		"q: Quit",
		"?: Toggle Help",
	}

	header := titleStyle.Render("Help")
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", strings.Join(shortcuts, "\n")))
	footer := subtleStyle.Render("Press '?' or 'esc' to close")

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer),
	)
}
