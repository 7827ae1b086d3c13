package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/voltdesk/voltdesk/pkg/browse"
	"github.com/voltdesk/voltdesk/pkg/client"
	"github.com/voltdesk/voltdesk/pkg/portfolio"
	"github.com/voltdesk/voltdesk/pkg/storage"
	"github.com/voltdesk/voltdesk/pkg/types"
)

type mode int

const (
	modeBrowse mode = iota
	modeEdit
	modePortfolio
	modeLogin
	modeDetail
)

// edit targets, indexed into model.inputs
const (
	fieldLocation = iota
	fieldQtyMin
	fieldQtyMax
	fieldDateFrom
	fieldDateTo
	fieldCount
)

type snapshotMsg browse.Snapshot

type sessionClosedMsg struct{}

type portfolioMsg struct {
	items   []types.PortfolioItem
	metrics *types.PortfolioMetrics
	err     error
}

type contractMsg struct {
	contract *types.Contract
	err      error
}

type loginMsg struct{ err error }

type locationsMsg struct{ locations []string }

type actionMsg struct {
	note string
	err  error
}

var sortFields = []string{"", "price_per_mwh", "quantity_mwh", "delivery_start"}

type model struct {
	session *browse.Session
	pf      *portfolio.View
	api     *client.Client
	store   *storage.DiskStorage

	snap   browse.Snapshot
	cursor int
	width  int
	height int
	status string

	mode   mode
	field  int
	inputs [fieldCount]textinput.Model

	username textinput.Model
	password textinput.Model

	items   []types.PortfolioItem
	metrics *types.PortfolioMetrics
	pfErr   error

	locations []string

	detail *types.Contract
}

func newModel(session *browse.Session, pf *portfolio.View, api *client.Client, store *storage.DiskStorage) *model {
	m := &model{
		session: session,
		pf:      pf,
		api:     api,
		store:   store,
		snap:    session.Snapshot(),
	}
	placeholders := [fieldCount]string{
		"locations, comma separated",
		"min quantity (MWh)",
		"max quantity (MWh)",
		"delivery from (YYYY-MM-DD)",
		"delivery to (YYYY-MM-DD)",
	}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 64
		m.inputs[i] = ti
	}
	m.username = textinput.New()
	m.username.Placeholder = "username"
	m.password = textinput.New()
	m.password.Placeholder = "password"
	m.password.EchoMode = textinput.EchoPassword
	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.session.Updates()), m.fetchLocations())
}

func waitForUpdate(ch <-chan browse.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return sessionClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m *model) loadPortfolio() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		items, err := m.pf.Items(ctx)
		if err != nil {
			return portfolioMsg{err: err}
		}
		metrics, err := m.pf.Metrics(ctx)
		return portfolioMsg{items: items, metrics: metrics, err: err}
	}
}

func (m *model) loadDetail(id int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c, err := m.session.ViewContract(ctx, id)
		return contractMsg{contract: c, err: err}
	}
}

func (m *model) fetchLocations() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		locations, err := m.api.Locations(ctx)
		if err != nil {
			return locationsMsg{}
		}
		return locationsMsg{locations: locations}
	}
}

func (m *model) doLogin(user, pass string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.api.Login(ctx, user, pass); err != nil {
			return loginMsg{err: err}
		}
		if err := m.store.SaveToken(m.api.Session().Token()); err != nil {
			return loginMsg{err: fmt.Errorf("logged in, but could not save token: %w", err)}
		}
		return loginMsg{}
	}
}

func (m *model) addToPortfolio(id int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.pf.Add(ctx, id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{note: fmt.Sprintf("contract #%d added to portfolio", id)}
	}
}

func (m *model) removeFromPortfolio(id int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.pf.Remove(ctx, id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{note: fmt.Sprintf("contract #%d removed from portfolio", id)}
	}
}

func (m *model) markSold(id int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.session.MarkSold(ctx, id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{note: fmt.Sprintf("contract #%d marked sold", id)}
	}
}

func (m *model) saveSearch() tea.Cmd {
	url := m.snap.URL
	total := 0
	if m.snap.Result != nil {
		total = m.snap.Result.Total
	}
	return func() tea.Msg {
		searches, err := m.store.LoadSavedSearches()
		if err != nil {
			return actionMsg{err: err}
		}
		for _, s := range searches {
			if s.Query == url {
				return actionMsg{note: "search already saved"}
			}
		}
		name := fmt.Sprintf("search-%d", len(searches)+1)
		searches = append(searches, storage.SavedSearch{
			Name:      name,
			Query:     url,
			LastTotal: total,
			CreatedAt: time.Now(),
		})
		if err := m.store.SaveSavedSearches(searches); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{note: fmt.Sprintf("saved as %q", name)}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case sessionClosedMsg:
		return m, tea.Quit

	case snapshotMsg:
		m.snap = browse.Snapshot(msg)
		if m.snap.Result != nil && m.cursor >= len(m.snap.Result.Items) {
			m.cursor = max(0, len(m.snap.Result.Items)-1)
		}
		return m, waitForUpdate(m.session.Updates())

	case portfolioMsg:
		m.items = msg.items
		m.metrics = msg.metrics
		m.pfErr = msg.err
		if msg.err == nil {
			m.cursor = min(m.cursor, max(0, len(m.items)-1))
		}
		return m, nil

	case contractMsg:
		if msg.err != nil {
			m.status = "detail: " + msg.err.Error()
			return m, nil
		}
		m.detail = msg.contract
		m.mode = modeDetail
		return m, nil

	case locationsMsg:
		m.locations = msg.locations
		return m, nil

	case loginMsg:
		if msg.err != nil {
			m.status = "login failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "logged in"
		m.mode = modeBrowse
		m.password.SetValue("")
		m.session.Refetch()
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		} else {
			m.status = msg.note
		}
		if m.mode == modePortfolio {
			return m, m.loadPortfolio()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	switch m.mode {
	case modeEdit:
		return m.handleEditKey(msg)
	case modeLogin:
		return m.handleLoginKey(msg)
	case modePortfolio:
		return m.handlePortfolioKey(msg)
	case modeDetail:
		switch msg.String() {
		case "esc", "q", "enter":
			m.detail = nil
			m.mode = modeBrowse
		}
		return m, nil
	}
	return m.handleBrowseKey(msg)
}

func (m *model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	key := msg.String()

	// energy type toggles on the number row
	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		i := int(key[0] - '1')
		if i < len(types.EnergyTypes) {
			m.session.ToggleEnergyType(types.EnergyTypes[i])
		}
		return m, nil
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.snap.Result != nil && m.cursor < len(m.snap.Result.Items)-1 {
			m.cursor++
		}
	case "left", "h":
		if m.snap.Filters.Page > 1 {
			m.session.SetPage(m.snap.Filters.Page - 1)
		}
	case "right", "l":
		if m.snap.Filters.Page < m.snap.PageCount {
			m.session.SetPage(m.snap.Filters.Page + 1)
		}
	case "enter":
		if c := m.selectedContract(); c != nil {
			return m, m.loadDetail(c.Id)
		}
	case "a":
		if c := m.selectedContract(); c != nil {
			return m, m.addToPortfolio(c.Id)
		}
	case "!":
		if c := m.selectedContract(); c != nil && c.Status == types.StatusAvailable {
			return m, m.markSold(c.Id)
		}
	case "[":
		m.slidePrice(-priceStep, 0)
	case "]":
		m.slidePrice(priceStep, 0)
	case "{":
		m.slidePrice(0, -priceStep)
	case "}":
		m.slidePrice(0, priceStep)
	case "s":
		m.cycleSort()
	case "d":
		dir := "asc"
		if m.snap.Filters.SortDir == "asc" {
			dir = "desc"
		}
		m.session.SetSort(m.snap.Filters.SortBy, dir)
	case "o":
		m.openEditor(fieldLocation)
	case "n":
		m.openEditor(fieldQtyMin)
	case "x":
		m.openEditor(fieldQtyMax)
	case "f":
		m.openEditor(fieldDateFrom)
	case "t":
		m.openEditor(fieldDateTo)
	case "c":
		m.cursor = 0
		m.session.ClearFilters()
	case "r":
		m.session.Refetch()
	case "w":
		return m, m.saveSearch()
	case "p":
		m.mode = modePortfolio
		m.cursor = 0
		return m, m.loadPortfolio()
	case "L":
		m.mode = modeLogin
		m.username.Focus()
		m.password.Blur()
	}
	return m, nil
}

const priceStep = 1.0

func (m *model) slidePrice(dMin, dMax float64) {
	if !m.snap.HaveBounds {
		return
	}
	min, max := m.snap.Bounds.Clamp(m.snap.PriceInputMin+dMin, m.snap.PriceInputMax+dMax)
	if min > max {
		return
	}
	m.session.SlidePrice(min, max)
}

func (m *model) cycleSort() {
	cur := 0
	for i, f := range sortFields {
		if f == m.snap.Filters.SortBy {
			cur = i
			break
		}
	}
	next := sortFields[(cur+1)%len(sortFields)]
	m.session.SetSort(next, m.snap.Filters.SortDir)
}

func (m *model) openEditor(field int) {
	m.mode = modeEdit
	m.field = field
	switch field {
	case fieldLocation:
		m.inputs[field].SetValue(strings.Join(m.snap.Filters.Locations, ", "))
	case fieldQtyMin:
		m.inputs[field].SetValue(m.snap.QtyMinInput)
	case fieldQtyMax:
		m.inputs[field].SetValue(m.snap.QtyMaxInput)
	case fieldDateFrom:
		if d := m.snap.Filters.DeliveryStart; d != nil {
			m.inputs[field].SetValue(d.String())
		} else {
			m.inputs[field].SetValue("")
		}
	case fieldDateTo:
		if d := m.snap.Filters.DeliveryEnd; d != nil {
			m.inputs[field].SetValue(d.String())
		} else {
			m.inputs[field].SetValue("")
		}
	}
	m.inputs[field].Focus()
}

func (m *model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.inputs[m.field].Blur()
		m.mode = modeBrowse
		return m, nil
	case tea.KeyEnter:
		m.commitEditor()
		m.inputs[m.field].Blur()
		m.mode = modeBrowse
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.field], cmd = m.inputs[m.field].Update(msg)
	// quantity fields commit as typed; the parse is lenient so partial
	// numbers never surface as errors
	switch m.field {
	case fieldQtyMin:
		m.session.SetQtyMinInput(m.inputs[m.field].Value())
	case fieldQtyMax:
		m.session.SetQtyMaxInput(m.inputs[m.field].Value())
	}
	return m, cmd
}

func (m *model) commitEditor() {
	value := strings.TrimSpace(m.inputs[m.field].Value())
	switch m.field {
	case fieldLocation:
		var locations []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				locations = append(locations, trimmed)
			}
		}
		m.session.SetLocations(locations)
	case fieldQtyMin:
		m.session.SetQtyMinInput(value)
	case fieldQtyMax:
		m.session.SetQtyMaxInput(value)
	case fieldDateFrom, fieldDateTo:
		var d *types.Date
		if value != "" {
			parsed, err := types.ParseDate(value)
			if err != nil {
				m.status = err.Error()
				return
			}
			d = &parsed
		}
		if m.field == fieldDateFrom {
			m.session.SetDeliveryStart(d)
		} else {
			m.session.SetDeliveryEnd(d)
		}
	}
}

func (m *model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.username.Blur()
		m.password.Blur()
		return m, nil
	case tea.KeyTab, tea.KeyShiftTab:
		if m.username.Focused() {
			m.username.Blur()
			m.password.Focus()
		} else {
			m.password.Blur()
			m.username.Focus()
		}
		return m, nil
	case tea.KeyEnter:
		if m.username.Focused() {
			m.username.Blur()
			m.password.Focus()
			return m, nil
		}
		m.status = "logging in..."
		return m, m.doLogin(m.username.Value(), m.password.Value())
	}
	var cmd tea.Cmd
	if m.username.Focused() {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *model) handlePortfolioKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "p", "q":
		m.mode = modeBrowse
		m.cursor = 0
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "x":
		if m.cursor < len(m.items) {
			return m, m.removeFromPortfolio(m.items[m.cursor].Contract.Id)
		}
	case "r":
		return m, m.loadPortfolio()
	}
	return m, nil
}

func (m *model) selectedContract() *types.Contract {
	if m.snap.Result == nil || m.cursor >= len(m.snap.Result.Items) {
		return nil
	}
	return &m.snap.Result.Items[m.cursor]
}
