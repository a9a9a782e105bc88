package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
	"github.com/tanpawarit/vehicle-ai-concierge/client/resolver"
)

type uiTheme struct {
	header     lipgloss.Style
	panel      lipgloss.Style
	panelTitle lipgloss.Style
	inputPanel lipgloss.Style
	footer     lipgloss.Style
	status     lipgloss.Style
	errStatus  lipgloss.Style
	user       lipgloss.Style
	assistant  lipgloss.Style
	section    lipgloss.Style
	chipIndex  lipgloss.Style
	muted      lipgloss.Style
}

func newTheme() uiTheme {
	blue := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	pink := lipgloss.Color("#ff71ce")
	muted := lipgloss.Color("#9ca3d8")

	return uiTheme{
		header: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Bold(true).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().Foreground(mint).Bold(true),
		inputPanel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mint).
			Padding(0, 1),
		footer:    lipgloss.NewStyle().Foreground(muted).Padding(0, 1),
		status:    lipgloss.NewStyle().Foreground(blue).Bold(true),
		errStatus: lipgloss.NewStyle().Foreground(pink).Bold(true),
		user:      lipgloss.NewStyle().Foreground(mint).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(blue).Bold(true),
		section:   lipgloss.NewStyle().Foreground(pink).Bold(true),
		chipIndex: lipgloss.NewStyle().Foreground(mint),
		muted:     lipgloss.NewStyle().Foreground(muted),
	}
}

func (m model) View() string {
	header := m.theme.header.Render("Buick Concierge")

	body := m.theme.panel.Render(m.timeline.View())
	if kind, payload, ok := m.sess.Panel().Current(); ok {
		body = m.theme.panel.Render(m.theme.panelTitle.Render(panelTitle(kind)) + "\n\n" + itemDetail(kind, payload) +
			"\n\n" + m.theme.muted.Render("esc or /close to go back"))
	}

	status := m.theme.status.Render(m.status)
	if m.isError {
		status = m.theme.errStatus.Render(m.status)
	}
	if m.pending {
		status = m.spinner.View() + " " + status
	}
	footer := m.theme.footer.Render(status)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.theme.inputPanel.Render(m.input.View()),
		footer,
	)
}

func sectionTitle(s resolver.Section) string {
	switch s.Kind {
	case envelopex.KindSearchResult:
		return "From buick.com"
	case envelopex.KindDealer:
		return "Dealers near you"
	case envelopex.KindAccessory:
		return "Accessories"
	case envelopex.KindLeadCapture:
		return "Your quote request"
	case envelopex.KindEditedImage:
		return "Edited image"
	default:
		return string(s.Kind)
	}
}

func panelTitle(kind envelopex.Kind) string {
	return strings.ToUpper(strings.ReplaceAll(string(kind), "_", " "))
}

func chipLabel(it envelopex.RichItem) string {
	switch it.Kind {
	case envelopex.KindSearchResult:
		return it.SearchResult.Title
	case envelopex.KindDealer:
		d := it.Dealer
		if d.DistanceMiles != nil {
			return fmt.Sprintf("%s (%.2f mi)", d.Name, *d.DistanceMiles)
		}
		return d.Name
	case envelopex.KindAccessory:
		return fmt.Sprintf("%s %s", it.Accessory.Name, it.Accessory.Price)
	case envelopex.KindLeadCapture:
		l := it.LeadCapture
		return strings.TrimSpace(fmt.Sprintf("Quote for %s %s, %s", l.FirstName, l.LastName, l.VehicleModel))
	case envelopex.KindEditedImage:
		return it.EditedImage.ImageURL
	default:
		return string(it.Kind)
	}
}
