package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog"

	"gitgutter/internal/clipboard"
	"gitgutter/internal/config"
	"gitgutter/internal/diffbase"
	"gitgutter/internal/differ"
	"gitgutter/internal/diffview"
	gitint "gitgutter/internal/git"
	"gitgutter/internal/linediff"
	"gitgutter/internal/watch"
)

type focusPane int

const (
	focusFiles focusPane = iota
	focusGutter
)

const (
	filePaneWidthDefault = 40
	tickInterval         = 100 * time.Millisecond
)

type filesLoadedMsg struct {
	items []gitint.FileItem
	err   error
}

type sessionOpenedMsg struct {
	sess  *session
	state fileState
	err   error
}

type watchMsg struct {
	sess *session
	ev   watch.Event
	ok   bool
}

type documentReadMsg struct {
	sess        *session
	text        string
	highlighted []string
	err         error
}

type baseReadMsg struct {
	sess  *session
	state fileState
	err   error
}

type clipboardResultMsg struct {
	err error
}

type pinResultMsg struct {
	pinned bool
	err    error
}

type tickMsg struct{}

// Options configures a Model. Bases and Config are required; Store may be nil
// when pinned bases are disabled.
type Options struct {
	Config      config.AppConfig
	Bases       diffbase.Provider
	Store       *diffbase.Store
	Logger      zerolog.Logger
	InitialPath string
}

// Model is the Bubble Tea state container for the app.
type Model struct {
	keys      KeyMap
	focus     focusPane
	root      string
	gitDir    string
	statusSvc gitint.StatusService
	bases     diffbase.Provider
	store     *diffbase.Store
	algorithm linediff.Algorithm
	theme     string
	diffOpts  []differ.Option
	logger    zerolog.Logger

	width  int
	height int
	ready  bool

	fileItems  []gitint.FileItem
	selected   int
	selectedF  string
	fileScroll int
	filePaneW  int
	fileHidden bool
	pending    string

	sess        *session
	docText     string
	baseText    string
	hasBase     bool
	highlighted []string
	rows        []diffview.GutterRow
	stats       differ.Stats
	generation  uint64
	cursor      int
	view        viewport.Model
	dirty       bool

	helpOpen   bool
	alertMsg   string
	alertUntil time.Time

	loadingFiles bool
	loadingFile  bool
	err          error
}

func NewModel(opts Options) (Model, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Model{}, err
	}

	ctx := context.Background()
	root, err := gitint.DiscoverRepoRoot(ctx, cwd)
	if err != nil {
		return Model{}, err
	}
	gitDir, err := gitint.DiscoverGitDir(ctx, cwd)
	if err != nil {
		return Model{}, err
	}

	pending := ""
	if opts.InitialPath != "" {
		_, rel, err := gitint.RelPath(ctx, opts.InitialPath)
		if err != nil {
			return Model{}, fmt.Errorf("%s: %w", opts.InitialPath, err)
		}
		pending = rel
	}

	alg, err := linediff.ParseAlgorithm(opts.Config.Algorithm)
	if err != nil {
		return Model{}, err
	}

	logger := opts.Logger.With().Str("component", "app").Logger()
	m := Model{
		keys:      defaultKeyMap(),
		focus:     focusFiles,
		root:      root,
		gitDir:    gitDir,
		statusSvc: gitint.NewStatusService(),
		bases:     opts.Bases,
		store:     opts.Store,
		algorithm: alg,
		theme:     opts.Config.Theme,
		diffOpts:  opts.Config.DifferOptions(opts.Logger),
		logger:    logger,
		filePaneW: filePaneWidthDefault,
		pending:   pending,
	}
	if pending != "" {
		m.focus = focusGutter
	}
	m.view = viewport.New(1, 1)
	m.view.SetContent("Select a file to show its gutter.")
	return m, nil
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadFilesCmd(), tickCmd()}
	if m.pending != "" {
		cmds = append(cmds, m.openFileCmd(m.pending))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizePanes()
		m.refreshContent()
		return m, nil

	case filesLoadedMsg:
		m.loadingFiles = false
		m.err = msg.err
		m.fileItems = msg.items
		if idx := indexOfFilePath(m.fileItems, m.selectedF); idx >= 0 {
			m.selected = idx
		}
		if m.selected >= len(m.fileItems) {
			m.selected = max(0, len(m.fileItems)-1)
		}
		if m.pending != "" {
			if idx := indexOfFilePath(m.fileItems, m.pending); idx >= 0 {
				m.selected = idx
			}
		}
		m.fileScroll = pageWindow(m.fileScroll, m.selected, m.fileListPageSize(), len(m.fileItems))
		if m.sess == nil && m.pending == "" && !m.loadingFile {
			if item, ok := m.selectedItem(); ok && item.Viewable() {
				m.loadingFile = true
				return m, m.openFileCmd(item.Path)
			}
		}
		return m, nil

	case sessionOpenedMsg:
		m.loadingFile = false
		m.pending = ""
		if msg.err != nil {
			m.err = msg.err
			m.setAlert(fmt.Sprintf("open failed: %v", msg.err))
			return m, nil
		}
		m.err = nil
		m.sess.close()
		m.sess = msg.sess
		m.selectedF = msg.sess.rel
		m.docText = msg.state.text
		m.baseText = msg.state.base
		m.hasBase = msg.state.hasBase
		m.highlighted = msg.state.highlighted
		m.generation = 0
		m.cursor = 0
		m.view.GotoTop()
		m.rebuildRows()
		return m, waitWatchCmd(m.sess)

	case watchMsg:
		if msg.sess != m.sess || !msg.ok {
			return m, nil
		}
		switch msg.ev.Kind {
		case watch.DocumentChanged:
			return m, tea.Batch(readDocumentCmd(m.sess), waitWatchCmd(m.sess))
		case watch.BaseChanged:
			return m, tea.Batch(m.readBaseCmd(m.sess), m.loadFilesCmd(), waitWatchCmd(m.sess))
		}
		return m, waitWatchCmd(m.sess)

	case documentReadMsg:
		if msg.sess != m.sess {
			return m, nil
		}
		if msg.err != nil {
			// Usually a save in progress; the next event retries.
			m.logger.Debug().Err(msg.err).Msg("document read failed")
			return m, nil
		}
		m.docText = msg.text
		m.highlighted = msg.highlighted
		m.sess.applyDocument(msg.text)
		m.rebuildRows()
		return m, nil

	case baseReadMsg:
		if msg.sess != m.sess {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Debug().Err(msg.err).Msg("diff base refresh failed")
			return m, nil
		}
		m.baseText = msg.state.base
		m.hasBase = msg.state.hasBase
		m.sess.applyBase(msg.state)
		if m.sess.differ == nil {
			m.generation = 0
		}
		m.rebuildRows()
		return m, nil

	case clipboardResultMsg:
		if msg.err != nil {
			m.setAlert(fmt.Sprintf("copy failed: %v", msg.err))
			return m, nil
		}
		m.setAlert("Copied patch to clipboard.")
		return m, nil

	case pinResultMsg:
		if msg.err != nil {
			m.setAlert(fmt.Sprintf("pin failed: %v", msg.err))
			return m, nil
		}
		if msg.pinned {
			m.setAlert("Pinned current text as diff base.")
		} else {
			m.setAlert("Unpinned diff base.")
		}
		if m.sess == nil {
			return m, nil
		}
		return m, m.readBaseCmd(m.sess)

	case tickMsg:
		if m.alertMsg != "" && !m.alertUntil.IsZero() && time.Now().After(m.alertUntil) {
			m.alertMsg = ""
			m.alertUntil = time.Time{}
		}
		if snap := m.sess.snapshot(); snap != nil {
			gen := snap.Generation()
			snap.Release()
			if gen != m.generation {
				m.rebuildRows()
			}
		}
		return m, tickCmd()

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.sess.close()
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.ToggleFocus) {
			if m.focus == focusFiles {
				m.focus = focusGutter
			} else {
				m.focus = focusFiles
				m.fileHidden = false
			}
			return m, nil
		}
		if key.Matches(msg, m.keys.Help) {
			m.helpOpen = !m.helpOpen
			return m, nil
		}
		if key.Matches(msg, m.keys.Refresh) {
			m.loadingFiles = true
			cmds := []tea.Cmd{m.loadFilesCmd()}
			if m.sess != nil {
				cmds = append(cmds, readDocumentCmd(m.sess), m.readBaseCmd(m.sess))
			}
			return m, tea.Batch(cmds...)
		}
		if key.Matches(msg, m.keys.CopyPatch) {
			return m, m.copyPatchCmd()
		}
		if key.Matches(msg, m.keys.Pin) {
			return m, m.pinCmd(true)
		}
		if key.Matches(msg, m.keys.Unpin) {
			return m, m.pinCmd(false)
		}
		if m.focus == focusFiles {
			return m.updateFilesPane(msg)
		}
		return m.updateGutterPane(msg)
	}

	return m, nil
}

func (m Model) updateFilesPane(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.fileItems)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selected = max(0, len(m.fileItems)-1)
	case key.Matches(msg, m.keys.Open):
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		if !item.Viewable() {
			m.setAlert(fmt.Sprintf("%s was deleted.", item.Path))
			return m, nil
		}
		m.focus = focusGutter
		if item.Path == m.selectedF && m.sess != nil {
			return m, nil
		}
		m.loadingFile = true
		return m, m.openFileCmd(item.Path)
	}
	m.fileScroll = pageWindow(m.fileScroll, m.selected, m.fileListPageSize(), len(m.fileItems))
	return m, nil
}

func (m Model) updateGutterPane(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-max(1, m.view.Height-1))
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(max(1, m.view.Height-1))
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(-len(m.rows))
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(len(m.rows))
	case key.Matches(msg, m.keys.NextChange):
		m.jumpChange(1)
	case key.Matches(msg, m.keys.PrevChange):
		m.jumpChange(-1)
	case key.Matches(msg, m.keys.HideFiles):
		m.fileHidden = !m.fileHidden
		m.resizePanes()
	}
	m.refreshContent()
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	m.cursor = diffview.RowIndex(m.rows, m.cursor+delta)
	m.dirty = true
	m.ensureCursorVisible()
}

func (m *Model) jumpChange(direction int) {
	snap := m.sess.snapshot()
	if snap == nil {
		m.setAlert("No diff base for this file.")
		return
	}
	defer snap.Release()

	var (
		line int
		ok   bool
	)
	if direction > 0 {
		line, ok = snap.NextChange(m.cursor)
	} else {
		line, ok = snap.PrevChange(m.cursor)
	}
	if !ok {
		m.setAlert("No more changes.")
		return
	}
	m.cursor = diffview.RowIndex(m.rows, line)
	m.dirty = true
	m.ensureCursorVisible()
}

// rebuildRows pairs the current text with the latest published markers.
func (m *Model) rebuildRows() {
	snap := m.sess.snapshot()
	if snap != nil {
		m.rows = diffview.BuildRows(m.docText, snap)
		m.stats = snap.Stats()
		m.generation = snap.Generation()
		snap.Release()
	} else {
		m.rows = diffview.BuildRows(m.docText, nil)
		m.stats = differ.Stats{}
	}
	m.cursor = diffview.RowIndex(m.rows, m.cursor)
	m.dirty = true
	m.refreshContent()
}

func (m *Model) refreshContent() {
	if !m.dirty {
		return
	}
	m.dirty = false
	if m.sess == nil {
		return
	}
	if len(m.rows) == 0 {
		m.view.SetContent(fmt.Sprintf("%s is empty.", m.selectedF))
		return
	}
	lines := diffview.RenderGutter(m.rows, diffview.RenderOptions{
		Width:       max(1, m.view.Width),
		Cursor:      m.cursor,
		Highlighted: m.highlighted,
	})
	m.view.SetContent(strings.Join(lines, "\n"))
	m.ensureCursorVisible()
}

func (m *Model) ensureCursorVisible() {
	h := max(1, m.view.Height)
	off := m.view.YOffset
	if m.cursor < off {
		m.view.SetYOffset(m.cursor)
	} else if m.cursor >= off+h {
		m.view.SetYOffset(m.cursor - h + 1)
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	footerHelp := truncateLinesToWidth(m.helpText(), m.width)
	footer := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(footerHelp)
	footerHeight := lipgloss.Height(footer)

	dock := ""
	if m.alertMsg != "" {
		dock = m.renderAlertDock()
	}
	dockHeight := 0
	if dock != "" {
		dockHeight = lipgloss.Height(dock)
	}

	leftW, rightW := paneWidths(m.width, m.filePaneW, m.fileHidden)
	// lipgloss Height applies to content height; borders add 2 more rows.
	paneContentHeight := max(1, m.height-footerHeight-dockHeight-2)
	if m.view.Width != max(1, rightW) {
		m.view.Width = max(1, rightW)
		m.dirty = true
	}
	m.view.Height = max(1, paneContentHeight-2)
	m.refreshContent()

	content := m.renderGutterPane(rightW, paneContentHeight)
	if !m.fileHidden {
		content = lipgloss.JoinHorizontal(lipgloss.Top, m.renderFilesPane(leftW, paneContentHeight), content)
	}

	body := content
	if dock != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, dock)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, footer)
}

func (m Model) helpText() string {
	if !m.helpOpen {
		return "tab focus | j/k move | enter open | ]/[ next/prev change | p/P pin/unpin base | y copy patch | z hide files | r refresh | ? help | q quit"
	}
	return strings.Join([]string{
		"Global: q quit, tab switch focus, r refresh files and base, y copy patch, p pin current text as base, P unpin, ? toggle help",
		"Files pane: j/k move, g/G top/bottom, enter open file",
		"Gutter pane: j/k move, ctrl-f/ctrl-b page, g/G top/bottom, ]/n next change, [/N previous change, z hide/show file list",
		"Signs: green ▍ added, blue ▍ modified, red ▔ lines deleted above",
	}, "\n")
}

func (m Model) fileListPageSize() int {
	if m.height <= 0 {
		return 1
	}
	footerHeight := lineCount(truncateLinesToWidth(m.helpText(), m.width))
	paneContentHeight := max(1, m.height-footerHeight-2)
	return max(1, paneContentHeight-2)
}

func (m Model) renderAlertDock() string {
	style := lipgloss.NewStyle().
		Width(max(1, m.width-2)).
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("220"))
	return style.Render(truncateLinesToWidth(m.alertMsg, max(1, m.width-2)))
}

func (m Model) renderFilesPane(width, height int) string {
	borderColor := lipgloss.Color("245")
	if m.focus == focusFiles {
		borderColor = lipgloss.Color("39")
	}
	paneStyle := lipgloss.NewStyle().
		Width(max(1, width)).
		Height(max(1, height)).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor)

	title := fmt.Sprintf("Files (%d)", len(m.fileItems))
	if m.loadingFiles {
		title += " (loading...)"
	}
	bodyLines := []string{title, ""}

	if len(m.fileItems) == 0 {
		bodyLines = append(bodyLines, "No changed files")
	} else {
		end := min(len(m.fileItems), m.fileScroll+m.fileListPageSize())
		for i := m.fileScroll; i < end; i++ {
			item := m.fileItems[i]
			prefix := "  "
			if i == m.selected {
				prefix = "> "
			}
			open := " "
			if item.Path == m.selectedF && m.sess != nil {
				open = "*"
			}
			line := fmt.Sprintf("%s%s[%s] %s", prefix, open, item.Status, item.Path)
			lineStyle := lipgloss.NewStyle().Width(max(1, width)).MaxWidth(max(1, width))
			if !item.Viewable() {
				lineStyle = lineStyle.Foreground(lipgloss.Color("244"))
			}
			if i == m.selected {
				lineStyle = lineStyle.Foreground(lipgloss.Color("39")).Bold(true)
			}
			bodyLines = append(bodyLines, lineStyle.Render(line))
		}
	}

	if m.err != nil {
		bodyLines = append(bodyLines, "", fmt.Sprintf("error: %v", m.err))
	}
	return paneStyle.Render(strings.Join(bodyLines, "\n"))
}

func (m Model) renderGutterPane(width, height int) string {
	borderColor := lipgloss.Color("245")
	if m.focus == focusGutter {
		borderColor = lipgloss.Color("39")
	}
	paneStyle := lipgloss.NewStyle().
		Width(max(1, width)).
		Height(max(1, height)).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor)

	title := "Gutter"
	if m.selectedF != "" {
		title = m.selectedF
	}
	switch {
	case m.loadingFile:
		title += " (loading...)"
	case m.sess != nil && !m.hasBase:
		title += " [untracked]"
	case m.sess != nil:
		title += " " + diffview.StatsLine(m.stats)
	}

	innerW := max(1, width)
	header := lipgloss.NewStyle().Bold(true).Width(innerW).MaxWidth(innerW).Render(title)
	return paneStyle.Render(header + "\n\n" + m.view.View())
}

func (m *Model) resizePanes() {
	_, rightW := paneWidths(m.width, m.filePaneW, m.fileHidden)
	m.view.Width = max(1, rightW)
	m.view.Height = max(1, m.height-6)
	m.dirty = true
}

func (m Model) selectedItem() (gitint.FileItem, bool) {
	if m.selected < 0 || m.selected >= len(m.fileItems) {
		return gitint.FileItem{}, false
	}
	return m.fileItems[m.selected], true
}

func (m Model) loadFilesCmd() tea.Cmd {
	root := m.root
	service := m.statusSvc
	return func() tea.Msg {
		items, err := service.ListChangedFiles(context.Background(), root)
		return filesLoadedMsg{items: items, err: err}
	}
}

func (m Model) openFileCmd(rel string) tea.Cmd {
	root, gitDir, bases, theme, opts, logger := m.root, m.gitDir, m.bases, m.theme, m.diffOpts, m.logger
	return func() tea.Msg {
		sess, state, err := openSession(root, gitDir, rel, bases, theme, opts, logger)
		return sessionOpenedMsg{sess: sess, state: state, err: err}
	}
}

func waitWatchCmd(s *session) tea.Cmd {
	if s == nil || s.watcher == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-s.watcher.Events()
		return watchMsg{sess: s, ev: ev, ok: ok}
	}
}

func readDocumentCmd(s *session) tea.Cmd {
	return func() tea.Msg {
		text, err := s.readDocument()
		if err != nil {
			return documentReadMsg{sess: s, err: err}
		}
		return documentReadMsg{sess: s, text: text, highlighted: s.highlight.Lines(text)}
	}
}

func (m Model) readBaseCmd(s *session) tea.Cmd {
	bases := m.bases
	return func() tea.Msg {
		state, err := s.read(context.Background(), bases)
		return baseReadMsg{sess: s, state: state, err: err}
	}
}

func (m Model) copyPatchCmd() tea.Cmd {
	if m.sess == nil {
		return nil
	}
	rel, base, doc, alg := m.sess.rel, m.baseText, m.docText, m.algorithm
	return func() tea.Msg {
		patch, err := diffview.FormatPatch(rel, base, doc, alg)
		if err != nil {
			return clipboardResultMsg{err: err}
		}
		if patch == "" {
			return clipboardResultMsg{err: errors.New("no changes")}
		}
		return clipboardResultMsg{err: clipboard.CopyText(context.Background(), patch)}
	}
}

func (m Model) pinCmd(pin bool) tea.Cmd {
	if m.sess == nil {
		return nil
	}
	store := m.store
	abs, text := m.sess.abs, m.docText
	return func() tea.Msg {
		if store == nil {
			return pinResultMsg{pinned: pin, err: errors.New("pinned bases are disabled")}
		}
		if pin {
			return pinResultMsg{pinned: true, err: store.Pin(context.Background(), abs, []byte(text))}
		}
		return pinResultMsg{pinned: false, err: store.Unpin(context.Background(), abs)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *Model) setAlert(msg string) {
	m.alertMsg = msg
	m.alertUntil = time.Now().Add(3 * time.Second)
}

func indexOfFilePath(items []gitint.FileItem, path string) int {
	if path == "" {
		return -1
	}
	for i, item := range items {
		if item.Path == path {
			return i
		}
	}
	return -1
}

func truncateLinesToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, width, "")
	}
	return strings.Join(lines, "\n")
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}
