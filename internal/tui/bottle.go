package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/hydrate/internal/reminder"
	"github.com/sadopc/hydrate/internal/store"
)

const (
	bottleRows  = 8
	bottleWidth = 9
)

type bottleModel struct {
	store  *store.Store
	width  int
	height int

	session        reminder.Session
	reminderLine   string
	connectionLine string
	link           string
	banner         bool

	today     store.DailyAlarms
	dailyGoal int
	recent    []store.Alarm
}

func newBottleModel(s *store.Store) bottleModel {
	return bottleModel{
		store:          s,
		reminderLine:   reminder.StoppedText,
		connectionLine: reminder.DisconnectedText,
	}
}

func (b bottleModel) Init() tea.Cmd {
	return b.loadData()
}

func (b *bottleModel) setSize(w, h int) {
	b.width = w
	b.height = h
}

// sync copies the controller state into the model.
func (b *bottleModel) sync(sess reminder.Session, board *Board) {
	b.session = sess
	b.reminderLine, b.connectionLine = board.Lines()
}

type bottleDataMsg struct {
	today     store.DailyAlarms
	dailyGoal int
	recent    []store.Alarm
}

func (b bottleModel) loadData() tea.Cmd {
	return func() tea.Msg {
		now := time.Now().UTC()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		days, _ := b.store.GetDailyAlarms(dayStart, dayStart.Add(24*time.Hour))

		var today store.DailyAlarms
		if len(days) > 0 {
			today = days[0]
		}

		goal := 0
		if v, err := b.store.GetSetting(store.SettingDailyGoal); err == nil {
			goal, _ = strconv.Atoi(v)
		}

		recent, _ := b.store.ListAlarms(store.AlarmFilter{Limit: 5})
		return bottleDataMsg{today: today, dailyGoal: goal, recent: recent}
	}
}

func (b bottleModel) update(msg tea.Msg) (bottleModel, tea.Cmd) {
	switch msg := msg.(type) {
	case bottleDataMsg:
		b.today = msg.today
		b.dailyGoal = msg.dailyGoal
		b.recent = msg.recent
		return b, nil

	case drinkMsg:
		b.banner = false
		return b, b.loadData()

	case tea.KeyMsg:
		// any key dismisses the alarm banner
		b.banner = false
	}
	return b, nil
}

func (b bottleModel) view() string {
	if b.width < 20 {
		return "Terminal too small"
	}

	contentWidth := b.width - 4

	var panels []string
	if b.banner {
		panels = append(panels, bannerStyle.Width(contentWidth).Align(lipgloss.Center).Render(alarmBanner))
	}
	panels = append(panels, b.renderCountdownPanel(contentWidth))
	panels = append(panels, b.renderTodayPanel(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, panels...)
}

func (b bottleModel) renderCountdownPanel(w int) string {
	bottle := renderBottle(b.session.Fraction(), b.session.Running)

	infoWidth := w - lipgloss.Width(bottle) - 8
	if infoWidth < 10 {
		infoWidth = 10
	}

	var timeDisplay, indicator string
	if b.session.Running {
		timeDisplay = countdownRunningStyle.Width(infoWidth).Render(formatSeconds(b.session.Remaining))
		indicator = successStyle.Render("●  RUNNING")
	} else {
		timeDisplay = countdownStyle.Width(infoWidth).Render(formatSeconds(0))
		indicator = mutedStyle.Render("■  STOPPED")
	}

	conn := mutedStyle.Render(b.connectionLine)
	switch b.connectionLine {
	case reminder.ConnectedText:
		conn = successStyle.Render(b.connectionLine)
	case reminder.DisconnectedText:
		conn = warningStyle.Render(b.connectionLine)
	default:
		if strings.HasPrefix(b.connectionLine, "Bluetooth: Error") {
			conn = errorStyle.Render(b.connectionLine)
		}
	}

	info := lipgloss.JoinVertical(lipgloss.Left,
		timeDisplay,
		"",
		indicator,
		highlightStyle.Render(b.reminderLine),
		mutedStyle.Render("Interval: "+reminder.FormatRemaining(b.session.Interval)),
		"",
		conn,
	)
	if b.link != "" {
		info = lipgloss.JoinVertical(lipgloss.Left, info, mutedStyle.Render(b.link))
	}
	if !b.session.Running {
		info = lipgloss.JoinVertical(lipgloss.Left, info, "", mutedStyle.Render("Press s to start reminders"))
	}

	content := lipgloss.JoinHorizontal(lipgloss.Top, bottle, "    ", info)
	if b.session.Running {
		return activePanelStyle.Width(w).Render(content)
	}
	return panelStyle.Width(w).Render(content)
}

func (b bottleModel) renderTodayPanel(w int) string {
	title := titleStyle.Render("Today")
	count := fmt.Sprintf("%d reminders, %d drinks", b.today.Count, b.today.Acknowledged)
	if b.dailyGoal > 0 {
		count += fmt.Sprintf("  (goal %d)", b.dailyGoal)
	}
	header := fmt.Sprintf("%s  %s", title, highlightStyle.Render(count))

	if len(b.recent) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			header,
			mutedStyle.Render("No reminders yet"),
		))
	}

	var rows []string
	rows = append(rows, header)
	for _, a := range b.recent {
		mark := warningStyle.Render("○")
		note := mutedStyle.Render("waiting")
		if a.AcknowledgedAt != nil {
			mark = successStyle.Render("✓")
			note = mutedStyle.Render("drank at " + a.AcknowledgedAt.Local().Format("15:04"))
		}
		rows = append(rows, fmt.Sprintf("  %s %s  %s", mark, a.FiredAt.Local().Format("Jan 02 15:04"), note))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

// fillRows is how many bottle rows hold water. A stopped bottle is empty.
func fillRows(fraction float64, running bool, rows int) int {
	if !running {
		return 0
	}
	n := int(math.Ceil(fraction * float64(rows)))
	if n < 0 {
		return 0
	}
	if n > rows {
		return rows
	}
	return n
}

func renderBottle(fraction float64, running bool) string {
	filled := fillRows(fraction, running, bottleRows)

	lines := []string{
		glassStyle.Render("   ┌───┐   "),
		glassStyle.Render("   │   │   "),
		glassStyle.Render("╭──┘   └──╮"),
	}
	for i := 0; i < bottleRows; i++ {
		inner := strings.Repeat(" ", bottleWidth)
		if bottleRows-i <= filled {
			inner = waterStyle.Render(strings.Repeat("█", bottleWidth))
		}
		lines = append(lines, glassStyle.Render("│")+inner+glassStyle.Render("│"))
	}
	lines = append(lines, glassStyle.Render("╰"+strings.Repeat("─", bottleWidth)+"╯"))
	return strings.Join(lines, "\n")
}
