package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Paxxs/moledao-spider/internal/config"
	"github.com/Paxxs/moledao-spider/internal/events"
	"github.com/Paxxs/moledao-spider/internal/model"
	"github.com/Paxxs/moledao-spider/internal/runstore"
	"github.com/Paxxs/moledao-spider/internal/settings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

const watchLogLines = 8

var (
	watchTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	watchMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	watchErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	watchOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	watchPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	watchTickStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1)
)

type watchEventMsg struct {
	event events.Event
}

type watchDoneMsg struct {
	err error
}

type watchModel struct {
	spinner  spinner.Model
	bar      progress.Model
	cancel   func()
	width    int
	status   model.RunStatus
	progress model.Progress
	ticker   []model.TickerItem
	logs     []model.LogEntry
	summary  *model.RunSummary
	done     bool
	quitting bool
	err      error
}

func newWatchModel(cancel func()) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return watchModel{
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		cancel:  cancel,
		status:  model.StatusIdle,
	}
}

// tuiSink forwards run events into the bubbletea program.
type tuiSink struct {
	program *tea.Program
}

func (s tuiSink) Emit(_ context.Context, ev events.Event) {
	s.program.Send(watchEventMsg{event: ev})
}

func runWithTUI(ctx context.Context, cfg *config.Config, logger *zap.Logger, snap snapshotOptions, t *transports, rs settings.RunSettings, noDelay bool) error {
	var p *tea.Program
	sinks := events.Multi{events.NewLogSink(logger)}
	sinks = append(sinks, t.sinks...)

	svcSink := events.SinkFunc(func(ctx context.Context, ev events.Event) {
		sinks.Emit(ctx, ev)
		tuiSink{program: p}.Emit(ctx, ev)
	})
	svc := newScrapeService(cfg, logger, snap, svcSink, t, noDelay)

	m := newWatchModel(svc.Cancel)
	p = tea.NewProgram(m, tea.WithAltScreen())

	errCh := make(chan error, 1)
	go func() {
		err := svc.Start(ctx, rs)
		errCh <- err
		p.Send(watchDoneMsg{err: err})
	}()

	_, viewErr := p.Run()
	svc.Cancel()
	runErr := <-errCh
	if viewErr != nil {
		return viewErr
	}

	if summary, ok := svc.LastSummary(); ok {
		if err := runstore.SaveSummary(cfg.StateDir, summary); err != nil {
			logger.Warn("failed to persist last summary", zap.Error(err))
		}
	}
	return runErr
}

func (m watchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = clampInt(msg.Width-8, 10, 80)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case watchEventMsg:
		m = m.apply(msg.event)
		return m, nil
	case watchDoneMsg:
		m.done = true
		m.err = msg.err
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	}
	return m, nil
}

func (m watchModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "c":
		if !m.done && m.cancel != nil {
			m.cancel()
		}
		return m, nil
	case "q", "ctrl+c", "esc":
		if m.done {
			return m, tea.Quit
		}
		m.quitting = true
		if m.cancel != nil {
			m.cancel()
		}
		return m, nil
	}
	return m, nil
}

func (m watchModel) apply(ev events.Event) watchModel {
	switch ev.Kind {
	case events.KindStatus:
		m.status = ev.Status
	case events.KindProgress:
		if ev.Progress != nil {
			m.progress = *ev.Progress
		}
	case events.KindJobBatch:
		m.ticker = append([]model.TickerItem(nil), ev.Batch...)
	case events.KindLog:
		if ev.Log != nil {
			m.logs = append(m.logs, *ev.Log)
			if len(m.logs) > watchLogLines {
				m.logs = m.logs[len(m.logs)-watchLogLines:]
			}
		}
	case events.KindSummary:
		if ev.Summary != nil {
			s := *ev.Summary
			m.summary = &s
		}
	}
	return m
}

func (m watchModel) percent() float64 {
	if m.progress.Total <= 0 {
		return 0
	}
	return float64(m.progress.Processed) / float64(m.progress.Total)
}

func (m watchModel) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	head := watchTitleStyle.Render("moledao-spider")
	switch {
	case m.status == model.StatusRunning && !m.done:
		head += " " + m.spinner.View() + " running"
	case m.status == model.StatusError:
		head += " " + watchErrorStyle.Render("error")
	case m.status == model.StatusCompleted:
		head += " " + watchOKStyle.Render("completed")
	default:
		head += " " + watchMutedStyle.Render(string(m.status))
	}

	counter := fmt.Sprintf("%d/%d", m.progress.Processed, m.progress.Total)
	bar := m.bar.ViewAs(m.percent()) + " " + counter

	var tick []string
	for _, item := range m.ticker {
		tick = append(tick, watchTickStyle.Render(wrapOrTrim(item.Company+" · "+item.Title, maxInt(width/3, 12))))
	}
	ticker := watchMutedStyle.Render("(waiting for jobs)")
	if len(tick) > 0 {
		ticker = lipgloss.JoinHorizontal(lipgloss.Top, tick...)
	}

	var logLines []string
	for _, entry := range m.logs {
		line := time.UnixMilli(entry.Timestamp).Format("15:04:05") + " " + entry.Message
		line = wrapOrTrim(line, width-6)
		if entry.Level == model.LevelError {
			line = watchErrorStyle.Render(line)
		}
		logLines = append(logLines, line)
	}
	logs := watchMutedStyle.Render("(no log lines yet)")
	if len(logLines) > 0 {
		logs = strings.Join(logLines, "\n")
	}

	parts := []string{head, bar, ticker, watchPanelStyle.Render(logs)}
	if m.summary != nil {
		var sb strings.Builder
		fmt.Fprintf(&sb, "output: %s", m.summary.OutputDirectory)
		for _, f := range m.summary.Files {
			sb.WriteString("\n  " + f)
		}
		parts = append(parts, watchPanelStyle.Render(sb.String()))
	}
	if m.err != nil {
		parts = append(parts, watchErrorStyle.Render("error: "+m.err.Error()))
	}

	hints := "c cancel · q quit"
	if m.quitting && !m.done {
		hints = "stopping…"
	} else if m.done {
		hints = "q quit"
	}
	parts = append(parts, watchMutedStyle.Render(hints))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
