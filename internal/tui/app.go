package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/sadopc/hydrate/internal/export"
	"github.com/sadopc/hydrate/internal/reminder"
	"github.com/sadopc/hydrate/internal/store"
)

// Connector attaches the bottle. It is nil when commands go to a simulator.
type Connector interface {
	Connect(ctx context.Context) error
}

// Options wires the app to the controller. Board must be the controller's
// status and alarm sink, and Clock its clock.
type Options struct {
	Store          *store.Store
	Controller     *reminder.Controller
	Clock          *reminder.ManualClock
	Board          *Board
	Connector      Connector
	ConnectTimeout time.Duration
	Bell           io.Writer     // receives the terminal bell; nil disables it
	ExportDir      string        // defaults to the home directory
	Link           func() string // optional detail shown under the connection line
	Logger         zerolog.Logger
}

// App is the root Bubble Tea model.
type App struct {
	store          *store.Store
	ctrl           *reminder.Controller
	clock          *reminder.ManualClock
	board          *Board
	connector      Connector
	connectTimeout time.Duration
	bell           io.Writer
	exportDir      string
	link           func() string
	logger         zerolog.Logger

	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	connecting    bool

	bottle   bottleModel
	history  historyModel
	settings settingsModel

	help    help.Model
	status  string
	isError bool
}

func NewApp(opts Options) App {
	h := help.New()
	h.ShowAll = false

	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 15 * time.Second
	}
	if opts.ExportDir == "" {
		opts.ExportDir, _ = os.UserHomeDir()
	}

	a := App{
		store:          opts.Store,
		ctrl:           opts.Controller,
		clock:          opts.Clock,
		board:          opts.Board,
		connector:      opts.Connector,
		connectTimeout: opts.ConnectTimeout,
		bell:           opts.Bell,
		exportDir:      opts.ExportDir,
		link:           opts.Link,
		logger:         opts.Logger.With().Str("component", "tui").Logger(),
		activeView:     viewBottle,
		bottle:         newBottleModel(opts.Store),
		history:        newHistoryModel(opts.Store),
		settings:       newSettingsModel(opts.Store, opts.Controller),
		help:           h,
	}
	a.syncBottle()
	return a
}

// syncBottle copies controller and link state into the bottle view.
func (a *App) syncBottle() {
	a.bottle.sync(a.ctrl.Snapshot(), a.board)
	if a.link != nil {
		a.bottle.link = a.link()
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.bottle.Init(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(reminder.TickPeriod, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.bottle.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		a.bottle.banner = false

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Start):
			return a, a.startCmd()
		case key.Matches(msg, keys.Stop):
			return a, a.stopCmd()
		case key.Matches(msg, keys.Connect):
			return a.connect()
		case key.Matches(msg, keys.Drink):
			return a, a.drinkCmd()
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewBottle
			return a, a.bottle.loadData()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewHistory
			return a, a.history.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		cmds = append(cmds, tickCmd())
		// The countdown advances only here, on the event loop.
		a.clock.Fire()
		if n := a.board.TakeAlarms(); n > 0 {
			a.bottle.banner = true
			cmds = append(cmds, a.bellCmd(), a.bottle.loadData())
		}
		a.syncBottle()
		return a, tea.Batch(cmds...)

	case commandDoneMsg:
		a.syncBottle()
		if msg.err != nil {
			a.setStatus(fmt.Sprintf("%s, bottle not updated: %v", msg.action, msg.err), true)
		} else {
			a.setStatus(msg.action, false)
		}
		if a.activeView == viewHistory {
			return a, a.history.refresh()
		}
		return a, nil

	case connectDoneMsg:
		a.connecting = false
		a.syncBottle()
		if msg.err != nil {
			a.logger.Warn().Err(msg.err).Msg("Connect failed")
			a.setStatus(fmt.Sprintf("Connect failed: %v", msg.err), true)
		} else {
			a.setStatus("Bottle connected", false)
		}
		return a, nil

	case drinkMsg:
		switch {
		case msg.err != nil:
			a.setStatus(fmt.Sprintf("Error: %v", msg.err), true)
		case msg.alarm == nil:
			a.setStatus("No reminder waiting", false)
		default:
			a.setStatus("Cheers! Drink logged", false)
		}
		var cmd tea.Cmd
		a.bottle, cmd = a.bottle.update(msg)
		return a, cmd

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		return a, nil

	case exportDoneMsg:
		a.setStatus("Exported to "+msg.path, false)
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.isError = isError
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewBottle:
		a.bottle, cmd = a.bottle.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	return a.activeView == viewSettings && a.settings.formActive
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewBottle:
		return a.bottle.loadData()
	case viewHistory:
		return a.history.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

// --- Commands ---

func (a App) startCmd() tea.Cmd {
	ctrl := a.ctrl
	interval := ctrl.Snapshot().Interval
	return func() tea.Msg {
		return commandDoneMsg{action: "Reminders started", err: ctrl.Start(context.Background(), interval)}
	}
}

func (a App) stopCmd() tea.Cmd {
	ctrl := a.ctrl
	return func() tea.Msg {
		return commandDoneMsg{action: "Reminders stopped", err: ctrl.Stop(context.Background())}
	}
}

func (a App) connect() (App, tea.Cmd) {
	if a.connector == nil {
		return a, func() tea.Msg {
			return statusMsg{text: "No bottle configured (simulation mode)"}
		}
	}
	if a.connecting {
		return a, nil
	}
	a.connecting = true
	a.setStatus("Scanning for bottle...", false)

	conn, timeout := a.connector, a.connectTimeout
	return a, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return connectDoneMsg{err: conn.Connect(ctx)}
	}
}

func (a App) drinkCmd() tea.Cmd {
	s := a.store
	return func() tea.Msg {
		alarm, err := s.AcknowledgeLatestAlarm()
		return drinkMsg{alarm: alarm, err: err}
	}
}

func (a App) bellCmd() tea.Cmd {
	if a.bell == nil {
		return nil
	}
	w := a.bell
	return func() tea.Msg {
		io.WriteString(w, "\a")
		return nil
	}
}

// --- View ---

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewBottle:
		content = a.bottle.view()
	case viewHistory:
		content = a.history.view()
	case viewSettings:
		content = a.settings.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	// Show export picker overlay
	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("hydrate")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.isError {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = mutedStyle.Render(" " + a.status)
		}
	}

	// Countdown indicator in footer
	countdown := ""
	if a.bottle.session.Running {
		countdown = successStyle.Render(" ● " + formatSeconds(a.bottle.session.Remaining))
	}

	left := footerStyle.Render(helpView)
	right := countdown + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Alarm History")
	formats := []string{"CSV", "JSON"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	s, dir := a.store, a.exportDir
	return func() tea.Msg {
		alarms, err := s.ListAlarms(store.AlarmFilter{})
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		dateStr := time.Now().Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(dir, fmt.Sprintf("hydrate-export-%s.csv", dateStr))
			if err := export.ToCSV(alarms, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(dir, fmt.Sprintf("hydrate-export-%s.json", dateStr))
			if err := export.ToJSON(alarms, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}
