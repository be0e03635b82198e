package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/hydrate/internal/store"
)

const historyCommandLimit = 8

type historyModel struct {
	store  *store.Store
	width  int
	height int

	days     []store.DailyAlarms
	commands []store.CommandLog
	offset   int // 7-day blocks back from today (0 = current)

	chart barchart.Model
}

func newHistoryModel(s *store.Store) historyModel {
	return historyModel{
		store: s,
		chart: barchart.New(60, 12),
	}
}

func (h *historyModel) setSize(w, hgt int) {
	h.width = w
	h.height = hgt
}

type historyDataMsg struct {
	days     []store.DailyAlarms
	commands []store.CommandLog
}

func (h historyModel) refresh() tea.Cmd {
	return func() tea.Msg {
		from, to := h.dateRange()
		days, _ := h.store.GetDailyAlarms(from, to)
		commands, _ := h.store.ListCommands(historyCommandLimit)
		return historyDataMsg{days: days, commands: commands}
	}
}

// dateRange is the 7-day window ending today, shifted back by offset weeks.
func (h historyModel) dateRange() (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, 1-7*h.offset)
	return end.AddDate(0, 0, -7), end
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyDataMsg:
		h.days = msg.days
		h.commands = msg.commands
		h.buildChart()
		return h, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			h.offset++
			return h, h.refresh()
		case key.Matches(msg, keys.Right):
			if h.offset > 0 {
				h.offset--
			}
			return h, h.refresh()
		}
	}
	return h, nil
}

func (h *historyModel) buildChart() {
	chartWidth := h.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if h.height > 30 {
		chartHeight = 14
	}

	h.chart = barchart.New(chartWidth, chartHeight)

	byDate := make(map[string]store.DailyAlarms, len(h.days))
	for _, d := range h.days {
		byDate[d.Date] = d
	}

	from, to := h.dateRange()

	// One stacked bar per day: drinks on the bottom, ignored reminders on top.
	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		day := byDate[d.Format("2006-01-02")]
		values := []barchart.BarValue{
			{Name: "drank", Value: float64(day.Acknowledged), Style: lipgloss.NewStyle().Foreground(colorWater)},
			{Name: "missed", Value: float64(day.Count - day.Acknowledged), Style: lipgloss.NewStyle().Foreground(colorAccent)},
		}
		bars = append(bars, barchart.BarData{
			Label:  d.Format("Mon 02"),
			Values: values,
		})
	}

	h.chart.PushAll(bars)
	h.chart.Draw()
}

func (h historyModel) view() string {
	w := h.width - 4

	from, to := h.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s - %s", from.Format("Jan 02"), to.Add(-24*time.Hour).Format("Jan 02, 2006")))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, titleStyle.Render("History"), "  ", dateLabel)

	legend := fmt.Sprintf("  %s drank  %s missed",
		lipgloss.NewStyle().Foreground(colorWater).Render("●"),
		lipgloss.NewStyle().Foreground(colorAccent).Render("●"),
	)

	nav := mutedStyle.Render("  ←/→: navigate weeks")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", h.renderSummary(), "", h.chart.View(), "", legend, "",
			h.renderCommandLog(w), "", nav,
		),
	)
}

func (h historyModel) renderSummary() string {
	total, acked := 0, 0
	for _, d := range h.days {
		total += d.Count
		acked += d.Acknowledged
	}
	if total == 0 {
		return mutedStyle.Render("  No reminders in this period")
	}
	return fmt.Sprintf("  %s reminders, %s drinks (%d%%)",
		highlightStyle.Render(fmt.Sprintf("%d", total)),
		highlightStyle.Render(fmt.Sprintf("%d", acked)),
		acked*100/total,
	)
}

func (h historyModel) renderCommandLog(w int) string {
	title := titleStyle.Render("Recent Commands")
	if len(h.commands) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, mutedStyle.Render("  Nothing sent to the bottle yet"))
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-16s %-10s %s", "Sent", "Command", "Result")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 54))))

	for _, c := range h.commands {
		result := successStyle.Render("ok")
		if !c.OK {
			result = errorStyle.Render(c.Error)
		}
		rows = append(rows, fmt.Sprintf("  %-16s %-10s %s",
			c.SentAt.Local().Format("Jan 02 15:04:05"), c.Command, result,
		))
	}
	return strings.Join(rows, "\n")
}
