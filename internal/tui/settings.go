package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/hydrate/internal/reminder"
	"github.com/sadopc/hydrate/internal/store"
)

type settingsModel struct {
	store  *store.Store
	ctrl   *reminder.Controller
	width  int
	height int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	interval  *string
	dailyGoal *string
}

func newSettingsModel(s *store.Store, ctrl *reminder.Controller) settingsModel {
	iv, dg := "", ""
	return settingsModel{
		store:     s,
		ctrl:      ctrl,
		interval:  &iv,
		dailyGoal: &dg,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, _ := s.store.GetAllSettings()
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Enter) {
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.interval = strconv.Itoa(s.ctrl.Snapshot().Interval)
	*s.dailyGoal = s.getVal(store.SettingDailyGoal, "8")

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Reminder interval (seconds)").
				Validate(validatePositive).
				Value(s.interval),
			huh.NewInput().Title("Daily goal (drinks)").
				Validate(validatePositive).
				Value(s.dailyGoal),
		).Title("Reminder"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s, tea.Batch(s.saveSettings(), s.refresh())
	}

	return s, cmd
}

// saveSettings persists the form and pushes the interval to the controller.
func (s settingsModel) saveSettings() tea.Cmd {
	secs, err := strconv.Atoi(*s.interval)
	if err != nil || secs <= 0 {
		return func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Invalid interval %q", *s.interval), isError: true}
		}
	}
	goal, err := strconv.Atoi(*s.dailyGoal)
	if err != nil || goal <= 0 {
		return func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Invalid daily goal %q", *s.dailyGoal), isError: true}
		}
	}
	if err := s.store.SetSetting(store.SettingDailyGoal, strconv.Itoa(goal)); err != nil {
		return func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Error saving daily goal: %v", err), isError: true}
		}
	}
	if err := s.store.SetInterval(secs); err != nil {
		return func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
	}

	ctrl := s.ctrl
	return func() tea.Msg {
		return commandDoneMsg{action: "Interval set", err: ctrl.SetInterval(context.Background(), secs)}
	}
}

func (s settingsModel) getVal(k, fallback string) string {
	v, err := s.store.GetSetting(k)
	if err != nil {
		return fallback
	}
	return v
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		formView := s.form.View()
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", formView),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(setting.Key)
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "")
	rows = append(rows, hint)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	switch k {
	case store.SettingInterval:
		if secs, err := strconv.Atoi(v); err == nil {
			return reminder.FormatRemaining(secs)
		}
	case store.SettingDailyGoal:
		if n, err := strconv.Atoi(v); err == nil {
			return fmt.Sprintf("%d drinks", n)
		}
	}
	return v
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("enter a whole number")
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}
