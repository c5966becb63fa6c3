package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer drives the bubbletea progress program on interactive
// terminals. It renders inline rather than on the alternate screen,
// so the final summary stays in the scrollback.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *indexingModel
	tracker *ProgressTracker
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails when the output is
// not a terminal; NewRenderer falls back to plain mode then.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newIndexingModel(tracker, cfg.CorpusDir)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	ctx, r.cancel = context.WithCancel(ctx)

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()

	return nil
}

// UpdateProgress implements Renderer. The tracker holds the state;
// the message only wakes the program for a redraw.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage != r.tracker.Stats().Stage {
		r.tracker.SetStage(event.Stage, event.Total)
	}
	r.tracker.Update(event.Current, event.CurrentFile)

	if r.program != nil {
		r.program.Send(progressUpdateMsg(event))
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.AddError(event)

	if r.program != nil {
		r.program.Send(errorMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.SetStage(StageComplete, 0)

	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer. It asks the program to quit and waits
// briefly; a stuck terminal must not hang the whole command.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}

	if r.program != nil {
		r.program.Quit()

		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
		}
	}

	return nil
}

// Message types for bubbletea
type progressUpdateMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats
type tickMsg time.Time

// pipelineRows are the stages shown in the checklist, in run order.
var pipelineRows = []struct {
	stage Stage
	label string
}{
	{StageScanning, "Scan"},
	{StageParsing, "Parse"},
	{StageIndexing, "Index"},
	{StagePersisting, "Save"},
}

// indexingModel renders indexing progress as a stage checklist above
// a progress bar, with throughput and the in-flight document below.
type indexingModel struct {
	tracker     *ProgressTracker
	width       int
	quitting    bool
	complete    bool
	stats       CompletionStats
	spinner     spinner.Model
	progressBar progress.Model
	styles      Styles
	corpusDir   string
}

func newIndexingModel(tracker *ProgressTracker, corpusDir string) *indexingModel {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorViolet))

	bar := progress.New(
		progress.WithSolidFill(ColorViolet),
		progress.WithoutPercentage(),
	)

	return &indexingModel{
		tracker:     tracker,
		spinner:     sp,
		progressBar: bar,
		styles:      DefaultStyles(),
		width:       80,
		corpusDir:   corpusDir,
	}
}

// Init implements tea.Model.
func (m *indexingModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// tickCmd schedules the next redraw. The tracker advances between
// messages, so the view polls it four times a second.
func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *indexingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case progressUpdateMsg, errorMsg:
		// State lives in the tracker; redraw happens on its own.
		return m, nil

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *indexingModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.summaryView()
	}

	stats := m.tracker.Stats()
	inner := m.width - 6
	if inner < 40 {
		inner = 40
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n\n")
	b.WriteString(m.checklistView(stats))
	b.WriteString("\n\n")
	b.WriteString(m.progressView(stats, inner))

	if spark := m.tracker.RenderSparkline(inner - 12); strings.TrimSpace(spark) != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Sparkline.Render(spark))
		b.WriteString(m.styles.Dim.Render(" throughput"))
	}

	if stats.CurrentFile != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Dim.Render(truncateFilePath(stats.CurrentFile, inner)))
	}

	b.WriteString("\n")
	b.WriteString(m.footerView(stats))
	b.WriteString("\n")
	return b.String()
}

func (m *indexingModel) headerView() string {
	title := m.styles.Header.Render("Shaderdex Indexer")
	if m.corpusDir != "" {
		title += m.styles.Dim.Render("  " + m.corpusDir)
	}
	return title
}

// checklistView renders one row per pipeline stage: a filled marker
// for finished stages, the spinner and live counts for the active
// one, a hollow marker for the rest.
func (m *indexingModel) checklistView(stats ProgressStats) string {
	rows := make([]string, 0, len(pipelineRows))
	for _, row := range pipelineRows {
		switch {
		case row.stage < stats.Stage:
			rows = append(rows, "  "+m.styles.Success.Render("● "+row.label))
		case row.stage == stats.Stage:
			line := "  " + m.spinner.View() + " " + m.styles.Active.Render(row.label)
			if stats.Total > 0 {
				line += m.styles.Label.Render(fmt.Sprintf("  %d / %d documents", stats.Current, stats.Total))
			}
			rows = append(rows, line)
		default:
			rows = append(rows, "  "+m.styles.Dim.Render("○ "+row.label))
		}
	}
	return strings.Join(rows, "\n")
}

// progressView renders the bar with a right-aligned percentage and
// the speed and ETA line beneath it.
func (m *indexingModel) progressView(stats ProgressStats, width int) string {
	if stats.Total == 0 {
		return m.spinner.View() + " " + m.styles.Dim.Render(stats.Stage.String()+"...")
	}

	m.progressBar.Width = width - 8
	if m.progressBar.Width < 16 {
		m.progressBar.Width = 16
	}
	bar := m.progressBar.ViewAs(stats.Progress)
	pct := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", stats.Progress*100))

	meta := fmt.Sprintf("%.0f/s", stats.Speed.Current)
	if stats.Speed.Avg > 0 {
		meta += fmt.Sprintf("  avg %.0f  peak %.0f", stats.Speed.Avg, stats.Speed.Peak)
	}
	if stats.ETA > 0 {
		meta += "  eta " + formatDuration(stats.ETA)
	}

	return bar + " " + pct + "\n" + m.styles.Speed.Render(meta)
}

func (m *indexingModel) footerView(stats ProgressStats) string {
	parts := []string{m.styles.Dim.Render("q to quit")}
	if stats.WarnCount > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("%d warnings", stats.WarnCount)))
	}
	if stats.ErrorCount > 0 {
		parts = append(parts, m.styles.Error.Render(fmt.Sprintf("%d errors", stats.ErrorCount)))
	}
	return strings.Join(parts, "   ")
}

// summaryView renders the completion panel, including the per-stage
// timing breakdown when the stats carry one.
func (m *indexingModel) summaryView() string {
	width := m.width - 4
	if width < 40 {
		width = 40
	}

	rows := []string{
		m.styles.Success.Render("✓ Indexing Complete"),
		"",
		m.summaryRow("Shaders", fmt.Sprintf("%d", m.stats.Records)),
		m.summaryRow("Files", fmt.Sprintf("%d", m.stats.Files)),
		m.summaryRow("Duration", formatDuration(m.stats.Duration)),
	}
	if m.stats.FromCache {
		rows = append(rows, m.styles.Dim.Render("Loaded from cache"))
	}
	if speed := m.tracker.SpeedStats(); speed.Avg > 0 {
		rows = append(rows, m.summaryRow("Avg speed", fmt.Sprintf("%.0f docs/sec", speed.Avg)))
	}

	if timings := m.stageTimingRows(); len(timings) > 0 {
		rows = append(rows, "")
		rows = append(rows, timings...)
	}

	if m.stats.Errors > 0 || m.stats.Warnings > 0 {
		rows = append(rows, "")
		if m.stats.Errors > 0 {
			rows = append(rows, m.styles.Error.Render(fmt.Sprintf("✗ %d errors", m.stats.Errors)))
		}
		if m.stats.Warnings > 0 {
			rows = append(rows, m.styles.Warning.Render(fmt.Sprintf("⚠ %d warnings", m.stats.Warnings)))
		}
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorViolet)).
		Padding(1, 2).
		Width(width)

	return panel.Render(strings.Join(rows, "\n")) + "\n"
}

func (m *indexingModel) summaryRow(label, value string) string {
	padded := fmt.Sprintf("%-10s", label+":")
	return m.styles.Label.Render(padded) + " " + m.styles.Active.Render(value)
}

// stageTimingRows lists the stages that recorded a duration.
func (m *indexingModel) stageTimingRows() []string {
	entries := []struct {
		label string
		took  time.Duration
	}{
		{"Scan", m.stats.Stages.Scan},
		{"Parse", m.stats.Stages.Parse},
		{"Index", m.stats.Stages.Index},
		{"Save", m.stats.Stages.Persist},
	}

	var rows []string
	for _, e := range entries {
		if e.took > 0 {
			rows = append(rows, m.summaryRow(e.label, formatDuration(e.took)))
		}
	}
	return rows
}

// formatDuration renders a duration at a precision matching its size.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	case d < time.Hour:
		d = d.Round(time.Second)
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		d = d.Round(time.Minute)
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// truncateFilePath shortens path to maxLen bytes for display, keeping
// the tail so the filename stays visible.
func truncateFilePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return "..."
	}

	keep := maxLen - 3
	base := filepath.Base(path)
	if len(base) > keep {
		return "..." + base[len(base)-keep:]
	}
	return "..." + path[len(path)-keep:]
}

var (
	_ Renderer  = (*TUIRenderer)(nil)
	_ tea.Model = (*indexingModel)(nil)
)
