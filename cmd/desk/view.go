package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/voltdesk/voltdesk/pkg/types"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	soldStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (m *model) View() string {
	switch m.mode {
	case modeLogin:
		return m.loginView()
	case modePortfolio:
		return m.portfolioView()
	case modeDetail:
		return m.detailView()
	}
	return m.browseView()
}

func (m *model) browseView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("voltdesk — energy contracts"))
	b.WriteString("\n\n")
	b.WriteString(m.filterLine())
	b.WriteString("\n")
	b.WriteString(m.priceLine())
	b.WriteString("\n\n")

	switch {
	case m.snap.Unauthorized:
		b.WriteString(errStyle.Render("not logged in — press L to log in"))
		b.WriteString("\n")
	case m.snap.InvalidRange:
		b.WriteString(errStyle.Render("quantity max is below quantity min — nothing to fetch"))
		b.WriteString("\n")
	case m.snap.Err != nil:
		b.WriteString(errStyle.Render("fetch failed: " + m.snap.Err.Error()))
		b.WriteString("\n")
		b.WriteString(m.contractTable())
	default:
		b.WriteString(m.contractTable())
	}

	b.WriteString("\n")
	b.WriteString(m.pageLine())
	b.WriteString("\n")
	if m.mode == modeEdit {
		b.WriteString(labelStyle.Render(editorLabel(m.field)) + " " + m.inputs[m.field].View())
		b.WriteString("\n")
		if m.field == fieldLocation && len(m.locations) > 0 {
			b.WriteString(helpStyle.Render("known: " + strings.Join(m.locations, ", ")))
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("enter apply · esc cancel"))
	} else {
		if m.status != "" {
			b.WriteString(statusStyle.Render(m.status))
			b.WriteString("\n")
		}
		b.WriteString(helpStyle.Render("1-6 energy · o location · n/x qty · f/t dates · [/] min { } max price · s/d sort · ←/→ page · a buy · ! sell · p portfolio · w save · c clear · L login · q quit"))
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("url: ?" + m.snap.URL))
	return b.String()
}

func editorLabel(field int) string {
	switch field {
	case fieldLocation:
		return "locations:"
	case fieldQtyMin:
		return "qty min:"
	case fieldQtyMax:
		return "qty max:"
	case fieldDateFrom:
		return "delivery from:"
	case fieldDateTo:
		return "delivery to:"
	}
	return ""
}

func (m *model) filterLine() string {
	f := m.snap.Filters
	var parts []string
	for i, et := range types.EnergyTypes {
		label := fmt.Sprintf("%d:%s", i+1, et)
		if contains(f.EnergyTypes, et) {
			parts = append(parts, activeStyle.Render("["+label+"]"))
		} else {
			parts = append(parts, labelStyle.Render(" "+label+" "))
		}
	}
	line := strings.Join(parts, " ")
	if len(f.Locations) > 0 {
		line += "  " + activeStyle.Render("@ "+strings.Join(f.Locations, ", "))
	}
	qty := qtyLabel(m.snap.QtyMinInput, m.snap.QtyMaxInput)
	if qty != "" {
		line += "  " + activeStyle.Render(qty)
	}
	if f.DeliveryStart != nil || f.DeliveryEnd != nil {
		line += "  " + activeStyle.Render(dateLabel(f.DeliveryStart, f.DeliveryEnd))
	}
	if f.SortBy != "" {
		line += "  " + labelStyle.Render("sort "+f.SortBy+" "+f.SortDir)
	}
	return line
}

func qtyLabel(min, max string) string {
	if min == "" && max == "" {
		return ""
	}
	if min == "" {
		min = "·"
	}
	if max == "" {
		max = "·"
	}
	return "qty " + min + "–" + max + " MWh"
}

func dateLabel(from, to *types.Date) string {
	f, t := "·", "·"
	if from != nil {
		f = from.String()
	}
	if to != nil {
		t = to.String()
	}
	return "delivery " + f + " → " + t
}

// priceLine renders the price control as a text slider over the
// server-computed bounds.
func (m *model) priceLine() string {
	if !m.snap.HaveBounds {
		return labelStyle.Render("price: computing bounds...")
	}
	b := m.snap.Bounds
	lo, hi := m.snap.PriceInputMin, m.snap.PriceInputMax

	const width = 32
	span := b.Max - b.Min
	pos := func(v float64) int {
		if span <= 0 {
			return 0
		}
		p := int(float64(width-1) * (v - b.Min) / span)
		return min(max(p, 0), width-1)
	}
	bar := []rune(strings.Repeat("─", width))
	bar[pos(lo)] = '├'
	bar[pos(hi)] = '┤'

	mode := labelStyle.Render("(auto)")
	if m.snap.Filters.PriceTouched {
		mode = activeStyle.Render("(set)")
	}
	return fmt.Sprintf("price: %6.2f %s %6.2f  %s  bounds %.2f–%.2f €/MWh",
		lo, string(bar), hi, mode, b.Min, b.Max)
}

func (m *model) contractTable() string {
	if m.snap.Result == nil {
		if m.snap.Loading {
			return labelStyle.Render("loading contracts...")
		}
		return labelStyle.Render("no results yet")
	}
	var b strings.Builder
	header := fmt.Sprintf("%-6s %-12s %10s %12s  %-23s %-14s %s",
		"id", "energy", "qty MWh", "€/MWh", "delivery", "location", "status")
	b.WriteString(labelStyle.Render(header))
	b.WriteString("\n")
	for i, c := range m.snap.Result.Items {
		row := fmt.Sprintf("%-6d %-12s %10d %12s  %s → %s %-14s %s",
			c.Id, c.EnergyType, c.QuantityMwh, c.PricePerMwh.StringFixed(2),
			c.DeliveryStart, c.DeliveryEnd, c.Location, c.Status)
		switch {
		case i == m.cursor:
			b.WriteString(selectedStyle.Render(row))
		case c.Status == types.StatusSold:
			b.WriteString(soldStyle.Render(row))
		default:
			b.WriteString(row)
		}
		b.WriteString("\n")
	}
	if len(m.snap.Result.Items) == 0 {
		b.WriteString(labelStyle.Render("no contracts match the current filters"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *model) pageLine() string {
	total := 0
	if m.snap.Result != nil {
		total = m.snap.Result.Total
	}
	line := fmt.Sprintf("page %d/%d · %d contracts", m.snap.Filters.Page, m.snap.PageCount, total)
	if m.snap.Loading {
		line += " · " + statusStyle.Render("loading...")
	}
	return line
}

func (m *model) portfolioView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("voltdesk — portfolio"))
	b.WriteString("\n\n")
	if m.pfErr != nil {
		b.WriteString(errStyle.Render(m.pfErr.Error()))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("L login · esc back"))
		return b.String()
	}
	if m.metrics != nil {
		b.WriteString(fmt.Sprintf("%d contracts · %d MWh · total %s € · weighted avg %s €/MWh\n",
			m.metrics.TotalContracts, m.metrics.TotalCapacityMwh,
			m.metrics.TotalCost.StringFixed(2), m.metrics.WeightedAvgPricePerMwh.StringFixed(2)))
		for _, et := range types.EnergyTypes {
			if em, ok := m.metrics.ByEnergyType[et]; ok {
				b.WriteString(labelStyle.Render(fmt.Sprintf("  %-12s %10s MWh %12s €\n",
					et, em.CapacityMwh.StringFixed(0), em.Cost.StringFixed(2))))
			}
		}
		b.WriteString("\n")
	}
	for i, item := range m.items {
		c := item.Contract
		row := fmt.Sprintf("%-6d %-12s %10d MWh %10s €/MWh  %s → %s  %s",
			c.Id, c.EnergyType, c.QuantityMwh, c.PricePerMwh.StringFixed(2),
			c.DeliveryStart, c.DeliveryEnd, c.Location)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(row))
		} else {
			b.WriteString(row)
		}
		b.WriteString("\n")
	}
	if len(m.items) == 0 {
		b.WriteString(labelStyle.Render("portfolio is empty"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("x remove · r reload · esc back"))
	return b.String()
}

func (m *model) loginView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("voltdesk — login"))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("username:") + " " + m.username.View())
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("password:") + " " + m.password.View())
	b.WriteString("\n\n")
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("tab switch · enter submit · esc cancel"))
	return b.String()
}

func (m *model) detailView() string {
	c := m.detail
	if c == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("contract #%d", c.Id)))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("energy type:  %s\n", c.EnergyType))
	b.WriteString(fmt.Sprintf("quantity:     %d MWh\n", c.QuantityMwh))
	b.WriteString(fmt.Sprintf("price:        %s €/MWh\n", c.PricePerMwh.StringFixed(2)))
	b.WriteString(fmt.Sprintf("delivery:     %s → %s\n", c.DeliveryStart, c.DeliveryEnd))
	b.WriteString(fmt.Sprintf("location:     %s\n", c.Location))
	status := c.Status
	if c.Status == types.StatusSold {
		status = soldStyle.Render(status)
	}
	b.WriteString(fmt.Sprintf("status:       %s\n", status))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("esc back"))
	return b.String()
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
