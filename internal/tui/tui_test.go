package tui

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/hydrate/internal/device"
	"github.com/sadopc/hydrate/internal/reminder"
	"github.com/sadopc/hydrate/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type testRig struct {
	app   App
	store *store.Store
	sim   *device.Simulator
	clock *reminder.ManualClock
	board *Board
	bell  *bytes.Buffer
}

func newTestRig(t *testing.T, interval int, conn Connector) *testRig {
	t.Helper()
	s := newTestStore(t)
	sim := device.NewSimulator()
	clk := &reminder.ManualClock{}
	board := NewBoard()
	ctrl := reminder.NewController(clk, sim,
		reminder.WithStatusSink(board),
		reminder.WithAlarmSink(board),
		reminder.WithInterval(interval),
	)
	t.Cleanup(ctrl.Close)

	bell := &bytes.Buffer{}
	app := NewApp(Options{
		Store:      s,
		Controller: ctrl,
		Clock:      clk,
		Board:      board,
		Connector:  conn,
		Bell:       bell,
		ExportDir:  t.TempDir(),
	})
	app.width = 120
	app.height = 40
	app.bottle.setSize(120, 36)
	app.history.setSize(120, 36)
	app.settings.setSize(120, 36)

	return &testRig{app: app, store: s, sim: sim, clock: clk, board: board, bell: bell}
}

// send feeds msg through Update and keeps the resulting model.
func (r *testRig) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	m, cmd := r.app.Update(msg)
	app, ok := m.(App)
	if !ok {
		t.Fatalf("Update returned %T", m)
	}
	r.app = app
	return cmd
}

// run executes cmd synchronously and feeds its message back in.
func (r *testRig) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	r.send(t, cmd())
}

func keyPress(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

type fakeConnector struct {
	calls int
	err   error
}

func (f *fakeConnector) Connect(ctx context.Context) error {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("connect without deadline")
	}
	return f.err
}

// ============================================================
// Board
// ============================================================

func TestBoardDefaults(t *testing.T) {
	b := NewBoard()
	rem, conn := b.Lines()
	if rem != reminder.StoppedText {
		t.Fatalf("reminder line = %q", rem)
	}
	if conn != reminder.DisconnectedText {
		t.Fatalf("connection line = %q", conn)
	}
	if b.TakeAlarms() != 0 {
		t.Fatal("new board should have no alarms")
	}
}

func TestBoardStatusAndAlarms(t *testing.T) {
	b := NewBoard()
	b.SetStatus(reminder.TopicReminder, "Next reminder: 5 seconds")
	b.SetStatus(reminder.TopicConnection, reminder.ConnectedText)
	b.Alarm()
	b.Alarm()

	rem, conn := b.Lines()
	if rem != "Next reminder: 5 seconds" || conn != reminder.ConnectedText {
		t.Fatalf("unexpected lines %q / %q", rem, conn)
	}
	if n := b.TakeAlarms(); n != 2 {
		t.Fatalf("TakeAlarms = %d, want 2", n)
	}
	if n := b.TakeAlarms(); n != 0 {
		t.Fatalf("TakeAlarms should reset, got %d", n)
	}
}

// ============================================================
// Bottle rendering
// ============================================================

func TestFillRows(t *testing.T) {
	tests := []struct {
		fraction float64
		running  bool
		want     int
	}{
		{1, true, 8},
		{0.5, true, 4},
		{0.51, true, 5},
		{0.01, true, 1},
		{0, true, 0},
		{1.5, true, 8},
		{-1, true, 0},
		{1, false, 0},
		{0.5, false, 0},
	}

	for _, tt := range tests {
		got := fillRows(tt.fraction, tt.running, bottleRows)
		if got != tt.want {
			t.Errorf("fillRows(%v, %v) = %d, want %d", tt.fraction, tt.running, got, tt.want)
		}
	}
}

func TestRenderBottle(t *testing.T) {
	full := renderBottle(1, true)
	lines := strings.Split(full, "\n")
	if len(lines) != bottleRows+4 {
		t.Fatalf("expected %d lines, got %d", bottleRows+4, len(lines))
	}
	if strings.Count(full, "█") != bottleRows*bottleWidth {
		t.Fatal("full bottle should be filled on every row")
	}

	empty := renderBottle(1, false)
	if strings.Contains(empty, "█") {
		t.Fatal("stopped bottle should be empty")
	}
}

// ============================================================
// App model: countdown
// ============================================================

func TestNewApp(t *testing.T) {
	r := newTestRig(t, 60, nil)

	if r.app.activeView != viewBottle {
		t.Fatal("default view should be bottle")
	}
	if r.app.showHelp {
		t.Fatal("help should be hidden by default")
	}
	if r.app.exportPicking {
		t.Fatal("export picker should be hidden by default")
	}
	if r.app.bottle.session.Interval != 60 {
		t.Fatalf("interval = %d, want 60", r.app.bottle.session.Interval)
	}
}

func TestAppStartKeyStartsCountdown(t *testing.T) {
	r := newTestRig(t, 60, nil)

	r.run(t, r.send(t, keyPress("s")))

	if !r.app.bottle.session.Running {
		t.Fatal("countdown should be running")
	}
	if r.app.bottle.session.Remaining != 60 {
		t.Fatalf("remaining = %d, want 60", r.app.bottle.session.Remaining)
	}
	if !r.sim.Running() {
		t.Fatal("bottle should have received START")
	}
	if r.app.bottle.reminderLine != "Next reminder: 1 minute" {
		t.Fatalf("reminder line = %q", r.app.bottle.reminderLine)
	}
	if r.app.isError {
		t.Fatalf("unexpected error status %q", r.app.status)
	}
}

func TestAppTickAdvancesCountdown(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.run(t, r.app.startCmd())

	r.send(t, tickMsg(time.Now()))
	r.send(t, tickMsg(time.Now()))

	if r.app.bottle.session.Remaining != 58 {
		t.Fatalf("remaining = %d, want 58", r.app.bottle.session.Remaining)
	}
	if r.app.bottle.reminderLine != "Next reminder: 58 seconds" {
		t.Fatalf("reminder line = %q", r.app.bottle.reminderLine)
	}
}

func TestAppTickWhenStopped(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.send(t, tickMsg(time.Now()))

	if r.app.bottle.session.Running || r.app.bottle.session.Remaining != 0 {
		t.Fatalf("idle controller should not count: %+v", r.app.bottle.session)
	}
}

func TestAppAlarmShowsBanner(t *testing.T) {
	r := newTestRig(t, 2, nil)
	r.run(t, r.app.startCmd())

	r.send(t, tickMsg(time.Now()))
	if r.app.bottle.banner {
		t.Fatal("banner should not show before zero")
	}
	r.send(t, tickMsg(time.Now()))

	if !r.app.bottle.banner {
		t.Fatal("banner should show after alarm")
	}
	if r.app.bottle.session.Remaining != 2 {
		t.Fatalf("countdown should reset to interval, got %d", r.app.bottle.session.Remaining)
	}
	if !strings.Contains(r.app.bottle.view(), alarmBanner) {
		t.Fatal("bottle view should contain the alarm banner")
	}

	// Any key dismisses it.
	r.send(t, keyPress("1"))
	if r.app.bottle.banner {
		t.Fatal("banner should be dismissed by a keypress")
	}
}

func TestAppBell(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.app.bellCmd()()
	if r.bell.String() != "\a" {
		t.Fatalf("bell wrote %q", r.bell.String())
	}

	r.app.bell = nil
	if r.app.bellCmd() != nil {
		t.Fatal("bell should be disabled without a writer")
	}
}

func TestAppStopEmptiesBottle(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.run(t, r.app.startCmd())
	r.send(t, tickMsg(time.Now()))

	r.run(t, r.send(t, keyPress("x")))

	if r.app.bottle.session.Running {
		t.Fatal("countdown should be stopped")
	}
	if r.sim.Running() {
		t.Fatal("bottle should have received STOP")
	}
	if r.app.bottle.reminderLine != reminder.StoppedText {
		t.Fatalf("reminder line = %q", r.app.bottle.reminderLine)
	}
	if fillRows(r.app.bottle.session.Fraction(), r.app.bottle.session.Running, bottleRows) != 0 {
		t.Fatal("stopped bottle should render empty")
	}
	if r.clock.Pending() != 0 {
		t.Fatalf("stop should cancel the tick, %d pending", r.clock.Pending())
	}
}

func TestAppStartWithoutBottle(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.sim.Attach(false)

	r.run(t, r.app.startCmd())

	if !r.app.bottle.session.Running {
		t.Fatal("countdown should run even when the bottle is unreachable")
	}
	if !r.app.isError {
		t.Fatal("status should report the failed command")
	}
	if r.app.bottle.connectionLine != reminder.DisconnectedText {
		t.Fatalf("connection line = %q", r.app.bottle.connectionLine)
	}
}

// ============================================================
// App model: connect and drink
// ============================================================

func TestAppConnectWithoutConnector(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.run(t, r.send(t, keyPress("c")))

	if !strings.Contains(r.app.status, "simulation") {
		t.Fatalf("status = %q", r.app.status)
	}
}

func TestAppConnect(t *testing.T) {
	conn := &fakeConnector{}
	r := newTestRig(t, 60, conn)

	cmd := r.send(t, keyPress("c"))
	if !r.app.connecting {
		t.Fatal("app should be connecting")
	}
	if again := r.send(t, keyPress("c")); again != nil {
		t.Fatal("second connect should be ignored while scanning")
	}

	r.run(t, cmd)
	if conn.calls != 1 {
		t.Fatalf("connector called %d times", conn.calls)
	}
	if r.app.connecting || r.app.isError {
		t.Fatalf("unexpected state after connect: %q", r.app.status)
	}
}

func TestAppConnectFailure(t *testing.T) {
	conn := &fakeConnector{err: errors.New("no adapter")}
	r := newTestRig(t, 60, conn)

	r.run(t, r.send(t, keyPress("c")))
	if !r.app.isError || !strings.Contains(r.app.status, "no adapter") {
		t.Fatalf("status = %q", r.app.status)
	}
}

func TestAppDrink(t *testing.T) {
	r := newTestRig(t, 60, nil)

	r.run(t, r.send(t, keyPress("d")))
	if r.app.status != "No reminder waiting" {
		t.Fatalf("status = %q", r.app.status)
	}

	if _, err := r.store.RecordAlarm(60); err != nil {
		t.Fatal(err)
	}
	r.run(t, r.send(t, keyPress("d")))
	if r.app.status != "Cheers! Drink logged" {
		t.Fatalf("status = %q", r.app.status)
	}

	alarms, _ := r.store.ListAlarms(store.AlarmFilter{})
	if alarms[0].AcknowledgedAt == nil {
		t.Fatal("alarm should be acknowledged")
	}
}

func TestBottleLoadData(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.store.RecordAlarm(60)
	r.store.RecordAlarm(60)
	r.store.AcknowledgeLatestAlarm()

	r.send(t, r.app.bottle.loadData()())

	if r.app.bottle.today.Count != 2 || r.app.bottle.today.Acknowledged != 1 {
		t.Fatalf("today = %+v", r.app.bottle.today)
	}
	if r.app.bottle.dailyGoal != 8 {
		t.Fatalf("daily goal = %d, want 8", r.app.bottle.dailyGoal)
	}
	if len(r.app.bottle.recent) != 2 {
		t.Fatalf("recent = %d, want 2", len(r.app.bottle.recent))
	}
	if !strings.Contains(r.app.bottle.view(), "2 reminders, 1 drinks") {
		t.Fatal("today panel should show counts")
	}
}

// ============================================================
// History
// ============================================================

func TestHistoryRefresh(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.store.RecordAlarm(60)
	r.store.RecordCommand("START", nil)
	r.store.RecordCommand("SET:90", errors.New("transport unavailable"))

	r.app.activeView = viewHistory
	r.send(t, r.app.history.refresh()())

	if len(r.app.history.days) != 1 || r.app.history.days[0].Count != 1 {
		t.Fatalf("days = %+v", r.app.history.days)
	}
	if len(r.app.history.commands) != 2 {
		t.Fatalf("commands = %d, want 2", len(r.app.history.commands))
	}

	view := r.app.history.view()
	for _, want := range []string{"Recent Commands", "SET:90", "transport unavailable", " reminders, "} {
		if !strings.Contains(view, want) {
			t.Fatalf("history view missing %q", want)
		}
	}
}

func TestHistoryEmpty(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.send(t, r.app.history.refresh()())

	view := r.app.history.view()
	if !strings.Contains(view, "No reminders in this period") {
		t.Fatal("empty history should say so")
	}
}

func TestHistoryNavigation(t *testing.T) {
	h := newHistoryModel(newTestStore(t))
	from0, _ := h.dateRange()

	h, _ = h.update(tea.KeyMsg{Type: tea.KeyLeft})
	if h.offset != 1 {
		t.Fatalf("offset = %d, want 1", h.offset)
	}
	from1, _ := h.dateRange()
	if !from1.Equal(from0.AddDate(0, 0, -7)) {
		t.Fatalf("window should move back a week: %v -> %v", from0, from1)
	}

	h, _ = h.update(tea.KeyMsg{Type: tea.KeyRight})
	h, _ = h.update(tea.KeyMsg{Type: tea.KeyRight})
	if h.offset != 0 {
		t.Fatalf("offset should not go below 0, got %d", h.offset)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsSave(t *testing.T) {
	r := newTestRig(t, 60, nil)
	*r.app.settings.interval = "120"
	*r.app.settings.dailyGoal = "10"

	r.run(t, r.app.settings.saveSettings())

	if got := r.app.settings.ctrl.Snapshot().Interval; got != 120 {
		t.Fatalf("controller interval = %d, want 120", got)
	}
	if got := r.store.GetInterval(0); got != 120 {
		t.Fatalf("stored interval = %d, want 120", got)
	}
	if got := r.sim.Interval(); got != 120 {
		t.Fatalf("bottle interval = %d, want 120", got)
	}
	if v, _ := r.store.GetSetting(store.SettingDailyGoal); v != "10" {
		t.Fatalf("daily goal = %q, want 10", v)
	}
}

func TestSettingsSaveRejectsInvalid(t *testing.T) {
	r := newTestRig(t, 60, nil)
	*r.app.settings.interval = "0"

	r.run(t, r.app.settings.saveSettings())

	if !r.app.isError {
		t.Fatal("invalid interval should report an error")
	}
	if _, err := r.store.GetSetting(store.SettingInterval); err == nil {
		t.Fatal("invalid interval should not be stored")
	}
}

func TestSettingsSaveRejectsInvalidGoal(t *testing.T) {
	r := newTestRig(t, 60, nil)
	*r.app.settings.interval = "120"
	*r.app.settings.dailyGoal = "lots"

	r.run(t, r.app.settings.saveSettings())

	if !r.app.isError || !strings.Contains(r.app.status, "daily goal") {
		t.Fatalf("expected a daily goal error, got %q", r.app.status)
	}
	if got := r.app.settings.ctrl.Snapshot().Interval; got != 60 {
		t.Fatalf("controller interval = %d, want 60 after a rejected save", got)
	}
}

func TestSettingsSaveReportsStoreError(t *testing.T) {
	r := newTestRig(t, 60, nil)
	*r.app.settings.interval = "120"
	*r.app.settings.dailyGoal = "10"
	r.store.Close()

	r.run(t, r.app.settings.saveSettings())

	if !r.app.isError || !strings.Contains(r.app.status, "daily goal") {
		t.Fatalf("expected the daily goal save error, got %q", r.app.status)
	}
	if got := r.app.settings.ctrl.Snapshot().Interval; got != 60 {
		t.Fatalf("controller interval = %d, want 60 after a failed save", got)
	}
}

func TestBottleShowsLinkDetail(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.app.link = func() string { return "Bottle AA:BB:CC · circuit open" }

	r.send(t, tickMsg(time.Now()))

	if r.app.bottle.link != "Bottle AA:BB:CC · circuit open" {
		t.Fatalf("link = %q", r.app.bottle.link)
	}
	if !strings.Contains(r.app.bottle.view(), "circuit open") {
		t.Fatal("bottle panel should show the link detail")
	}
}

func TestSettingsEnterOpensForm(t *testing.T) {
	r := newTestRig(t, 90, nil)
	r.app.activeView = viewSettings

	r.send(t, tea.KeyMsg{Type: tea.KeyEnter})
	if !r.app.isFormActive() {
		t.Fatal("enter should open the settings form")
	}
	if *r.app.settings.interval != "90" {
		t.Fatalf("form interval = %q, want 90", *r.app.settings.interval)
	}

	r.send(t, tea.KeyMsg{Type: tea.KeyEsc})
	if r.app.isFormActive() {
		t.Fatal("esc should close the form")
	}
}

func TestValidatePositive(t *testing.T) {
	for _, ok := range []string{"1", "60", "3600"} {
		if err := validatePositive(ok); err != nil {
			t.Errorf("validatePositive(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "0", "-5", "1.5", "abc"} {
		if err := validatePositive(bad); err == nil {
			t.Errorf("validatePositive(%q) should fail", bad)
		}
	}
}

func TestFormatSettingValue(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{store.SettingInterval, "3600", "60 minutes"},
		{store.SettingInterval, "125", "2 minutes 5 seconds"},
		{store.SettingDailyGoal, "8", "8 drinks"},
		{"other", "x", "x"},
		{store.SettingInterval, "garbage", "garbage"},
	}
	for _, tt := range tests {
		if got := formatSettingValue(tt.key, tt.value); got != tt.want {
			t.Errorf("formatSettingValue(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
		}
	}
}

// ============================================================
// Export
// ============================================================

func TestAppExport(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.store.RecordAlarm(60)

	r.send(t, keyPress("e"))
	if !r.app.exportPicking {
		t.Fatal("e should open the export picker")
	}
	r.send(t, tea.KeyMsg{Type: tea.KeyDown})
	if r.app.exportCursor != 1 {
		t.Fatalf("cursor = %d, want 1", r.app.exportCursor)
	}
	cmd := r.send(t, tea.KeyMsg{Type: tea.KeyEnter})
	r.run(t, cmd)

	if !strings.HasPrefix(r.app.status, "Exported to ") {
		t.Fatalf("status = %q", r.app.status)
	}
	path := strings.TrimPrefix(r.app.status, "Exported to ")
	if filepath.Ext(path) != ".json" {
		t.Fatalf("expected json export, got %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export file missing: %v", err)
	}
}

func TestAppExportBadDir(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.app.exportDir = "/nonexistent/dir"

	r.run(t, r.app.doExport(0))
	if !r.app.isError {
		t.Fatal("export to a missing directory should fail")
	}
}

// ============================================================
// App rendering
// ============================================================

func TestAppViewStates(t *testing.T) {
	r := newTestRig(t, 60, nil)

	for i := range viewNames {
		r.app.activeView = viewState(i)
		if r.app.View() == "" {
			t.Fatalf("view %d rendered empty", i)
		}
	}
}

func TestAppTabCycles(t *testing.T) {
	r := newTestRig(t, 60, nil)
	for i := 1; i <= len(viewNames); i++ {
		r.send(t, tea.KeyMsg{Type: tea.KeyTab})
		if want := viewState(i % len(viewNames)); r.app.activeView != want {
			t.Fatalf("after %d tabs view = %d, want %d", i, r.app.activeView, want)
		}
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	r := newTestRig(t, 60, nil)

	header := r.app.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppRenderFooterShowsCountdown(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.run(t, r.app.startCmd())

	footer := r.app.renderFooter()
	if !strings.Contains(footer, "00:01:00") {
		t.Fatal("footer should show the running countdown")
	}
}

func TestAppLoadingState(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.app.width = 0
	if out := r.app.View(); out != "Loading..." {
		t.Fatalf("expected 'Loading...', got %q", out)
	}
}

func TestAppStatusMessage(t *testing.T) {
	r := newTestRig(t, 60, nil)
	r.send(t, statusMsg{text: "test status"})

	if !strings.Contains(r.app.renderFooter(), "test status") {
		t.Fatal("footer should contain status message")
	}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
	}
	for _, tt := range tests {
		if got := formatSeconds(tt.secs); got != tt.want {
			t.Errorf("formatSeconds(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should have bindings")
	}
	for i, g := range keys.FullHelp() {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}
