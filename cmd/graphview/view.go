package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-graphview/pkg/engine"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/interaction"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/metrics"
	"github.com/dd0wney/cluso-graphview/pkg/render"
)

var (
	viewCmd = &cobra.Command{
		Use:   "view",
		Short: "Open the interactive graph view",
		Long: `Opens the graph in the terminal. Drag nodes with the mouse, pan by
dragging the background, zoom with the wheel. Double-click a node to focus
on its neighbourhood. Press l for link mode, right-click an edge to edit it.`,
		Args: cobra.NoArgs,
		RunE: runView,
	}

	viewLogFile string
	viewWatch   bool
)

func init() {
	viewCmd.Flags().StringVar(&viewLogFile, "log-file", "", "Write JSON logs to this file (the terminal is the screen)")
	viewCmd.Flags().BoolVar(&viewWatch, "watch", false, "Reload when the --file snapshot changes")
}

func runView(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(cfg, viewLogFile, nil)
	if err != nil {
		return err
	}
	defer closer.Close()

	src, err := openSources(cfg, logger)
	if err != nil {
		return err
	}
	if viewWatch && src.file == nil {
		return fmt.Errorf("--watch needs --file")
	}
	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := metrics.NewRegistry()
	e, err := engine.New(src.graph, src.links, store, engineOptions(cfg, logger, reg)...)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	status := ""
	if err := bootstrap(ctx, e, src.graph, cfg.View.FetchLimit, logger); err != nil {
		logger.Warn("starting with an empty graph", logging.Error(err))
		status = err.Error()
	}

	g, gctx := errgroup.WithContext(ctx)
	m := newViewModel(e, reg, cfg.FrameInterval(), logger)
	m.status = status
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(gctx))

	if cfg.Metrics.Addr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.Addr, reg, logger) })
	}
	if viewWatch {
		g.Go(func() error {
			return src.file.Watch(gctx, func() { p.Send(reloadMsg{}) })
		})
	}
	g.Go(func() error {
		defer cancel()
		_, err := p.Run()
		return err
	})
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}

	e.FlushPreferences()
	return nil
}

// Styles
var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e5e7eb")).
			Background(lipgloss.Color("#1f2937")).
			Padding(0, 1)

	modeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#111827")).
			Background(lipgloss.Color("#facc15")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#60a5fa")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#facc15"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ef4444")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

type keyMap struct {
	Quit      key.Binding
	LinkMode  key.Binding
	Escape    key.Binding
	Refresh   key.Binding
	Fit       key.Binding
	Reset     key.Binding
	Search    key.Binding
	Unfocus   key.Binding
	NextParam key.Binding
	ParamUp   key.Binding
	ParamDown key.Binding
	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	Delete    key.Binding
	Help      key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	LinkMode: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "link mode"),
	),
	Escape: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Fit: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "fit"),
	),
	Reset: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "reset layout"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Unfocus: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "leave focus"),
	),
	NextParam: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "next param"),
	),
	ParamUp: key.NewBinding(
		key.WithKeys("]"),
		key.WithHelp("]", "param +"),
	),
	ParamDown: key.NewBinding(
		key.WithKeys("["),
		key.WithHelp("[", "param -"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm"),
	),
	Delete: key.NewBinding(
		key.WithKeys("x", "delete"),
		key.WithHelp("x", "delete"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.LinkMode, k.Search, k.Fit, k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.LinkMode, k.Escape, k.Search, k.Unfocus},
		{k.Fit, k.Reset, k.Refresh},
		{k.NextParam, k.ParamDown, k.ParamUp},
		{k.Up, k.Down, k.Enter, k.Delete},
		{k.Help, k.Quit},
	}
}

// paramSteps is how much [ and ] change each parameter.
var paramSteps = map[string]float64{
	graph.ParamLinkDistance:     10,
	graph.ParamChargeStrength:   50,
	graph.ParamCollisionRadius:  2,
	graph.ParamClusterTightness: 0.05,
}

type (
	frameMsg  time.Time
	reloadMsg struct{}
)

type viewModel struct {
	engine   *engine.Engine
	metrics  *metrics.Registry
	logger   logging.Logger
	canvas   *render.CellCanvas
	interval time.Duration
	started  time.Time
	lastSys  time.Time

	help   help.Model
	input  textinput.Model
	search bool

	cursor  int
	param   int
	width   int
	height  int
	frame   string
	status  string
	failure bool
}

func newViewModel(e *engine.Engine, reg *metrics.Registry, interval time.Duration, logger logging.Logger) *viewModel {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 40

	canvas := render.NewCellCanvas(80, 24)
	canvas.SetBackground(render.DefaultTheme().Background)

	return &viewModel{
		engine:   e,
		metrics:  reg,
		logger:   logger,
		canvas:   canvas,
		interval: interval,
		started:  time.Now(),
		help:     help.New(),
		input:    ti,
	}
}

func (m *viewModel) frameCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *viewModel) Init() tea.Cmd {
	return m.frameCmd(m.interval)
}

// canvasRows leaves one row for the status bar and one for help.
func (m *viewModel) canvasRows() int {
	return max(m.height-2, 1)
}

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.canvas.Resize(msg.Width, m.canvasRows())
		w, h := m.canvas.Size()
		m.engine.Resize(w, h)
		m.redraw()

	case frameMsg:
		return m, m.onFrame(time.Time(msg))

	case reloadMsg:
		m.logger.Debug("snapshot file changed")
		m.engine.Refresh()
		m.setStatus("snapshot file changed, reloading", false)

	case tea.MouseMsg:
		m.onMouse(msg)

	case tea.KeyMsg:
		return m.onKey(msg)
	}
	return m, nil
}

// onFrame drains finished I/O, ticks and redraws. The loop slows down while
// nothing moves.
func (m *viewModel) onFrame(now time.Time) tea.Cmd {
	if m.engine.Frame(m.canvas) {
		m.frame = m.canvas.Render()
	}
	if now.Sub(m.lastSys) >= time.Second {
		m.metrics.UpdateSystemMetrics(m.started)
		m.lastSys = now
	}
	next := m.interval
	if !m.engine.NeedsFrame() {
		next = max(next, 250*time.Millisecond)
	}
	return m.frameCmd(next)
}

func (m *viewModel) redraw() {
	m.engine.Draw(m.canvas)
	m.frame = m.canvas.Render()
}

// pointerAt converts a terminal cell (below the status bar) to the center of
// its virtual-pixel box.
func pointerAt(kind interaction.PointerKind, col, row int) interaction.PointerEvent {
	return interaction.PointerEvent{
		Kind: kind,
		X:    (float64(col) + 0.5) * render.CellWidth,
		Y:    (float64(row-1) + 0.5) * render.CellHeight,
	}
}

func (m *viewModel) onMouse(msg tea.MouseMsg) {
	if msg.Y < 1 || msg.Y > m.canvasRows() {
		return
	}
	prev := m.engine.Controller().State()
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		ev := pointerAt(interaction.PointerWheel, msg.X, msg.Y)
		ev.DeltaY = -120
		m.engine.HandlePointer(ev)
	case msg.Button == tea.MouseButtonWheelDown:
		ev := pointerAt(interaction.PointerWheel, msg.X, msg.Y)
		ev.DeltaY = 120
		m.engine.HandlePointer(ev)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonRight:
		m.engine.HandlePointer(pointerAt(interaction.PointerContextMenu, msg.X, msg.Y))
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.engine.HandlePointer(pointerAt(interaction.PointerDown, msg.X, msg.Y))
	case msg.Action == tea.MouseActionMotion:
		m.engine.HandlePointer(pointerAt(interaction.PointerMove, msg.X, msg.Y))
	case msg.Action == tea.MouseActionRelease:
		m.engine.HandlePointer(pointerAt(interaction.PointerUp, msg.X, msg.Y))
	}

	ctrl := m.engine.Controller()
	if ctrl.State() == prev {
		return
	}
	switch ctrl.State() {
	case interaction.LinkChoosingRelationship:
		m.cursor = 0
		m.openInput("description (optional)")
	case interaction.EdgeMenuMulti:
		m.cursor = 0
	case interaction.EdgeMenuSingle:
		m.cursor = relationshipIndex(ctrl.Menu().Edge.Relationship)
	default:
		m.closeInput()
	}
}

func (m *viewModel) openInput(placeholder string) {
	if m.input.Focused() {
		return
	}
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.Focus()
}

func (m *viewModel) closeInput() {
	m.input.Blur()
	m.input.Reset()
}

func (m *viewModel) setStatus(s string, failure bool) {
	m.status, m.failure = s, failure
}

func (m *viewModel) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	ctrl := m.engine.Controller()

	if m.search {
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Escape):
			m.search = false
			m.input.Blur()
			if key.Matches(msg, keys.Escape) {
				m.engine.SetSearch("")
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.engine.SetSearch(m.input.Value())
		return m, cmd
	}

	switch ctrl.State() {
	case interaction.LinkChoosingRelationship:
		return m.pickerKey(msg)
	case interaction.EdgeMenuSingle, interaction.EdgeMenuMulti:
		return m.menuKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.LinkMode):
		m.engine.HandleKey(interaction.KeyLinkMode)
	case key.Matches(msg, keys.Escape):
		m.engine.HandleKey(interaction.KeyEscape)
	case key.Matches(msg, keys.Refresh):
		m.engine.Refresh()
	case key.Matches(msg, keys.Fit):
		m.engine.FitView()
	case key.Matches(msg, keys.Reset):
		m.engine.ResetLayout()
		m.setStatus("layout reset", false)
	case key.Matches(msg, keys.Unfocus):
		m.engine.ClearFocus()
	case key.Matches(msg, keys.Search):
		m.search = true
		m.input.Reset()
		m.input.Placeholder = "search titles"
		query, _ := m.engine.Search()
		m.input.SetValue(query)
		return m, m.input.Focus()
	case key.Matches(msg, keys.NextParam):
		m.param = (m.param + 1) % len(graph.ParameterNames())
		m.showParam()
	case key.Matches(msg, keys.ParamUp), key.Matches(msg, keys.ParamDown):
		m.stepParam(key.Matches(msg, keys.ParamUp))
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *viewModel) showParam() {
	name := graph.ParameterNames()[m.param]
	v, _ := m.engine.Parameters().Get(name)
	m.setStatus(fmt.Sprintf("%s = %g", name, v), false)
}

func (m *viewModel) stepParam(up bool) {
	name := graph.ParameterNames()[m.param]
	v, _ := m.engine.Parameters().Get(name)
	step := paramSteps[name]
	if !up {
		step = -step
	}
	if err := m.engine.SetParameter(name, v+step); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.showParam()
}

// pickerKey drives the relationship picker: up/down choose a type, typing
// fills the description, enter creates the link.
func (m *viewModel) pickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.engine.Controller()
	switch {
	case key.Matches(msg, keys.Escape):
		m.closeInput()
		if err := ctrl.CancelPicker(); err != nil {
			m.setStatus(err.Error(), true)
		}
		return m, nil
	case msg.Type == tea.KeyUp:
		m.cursor = (m.cursor + len(graph.RelationshipTypes) - 1) % len(graph.RelationshipTypes)
		return m, nil
	case msg.Type == tea.KeyDown:
		m.cursor = (m.cursor + 1) % len(graph.RelationshipTypes)
		return m, nil
	case key.Matches(msg, keys.Enter):
		rel := graph.RelationshipTypes[m.cursor]
		if err := ctrl.ConfirmRelationship(rel, m.input.Value()); err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.closeInput()
		m.setStatus(fmt.Sprintf("creating %s link", rel), false)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// menuKey drives the edge menus. In the multi menu up/down pick an edge and
// enter opens it; in the single menu up/down pick a new relationship type and
// enter saves it.
func (m *viewModel) menuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.engine.Controller()
	menu := ctrl.Menu()
	var err error

	switch ctrl.State() {
	case interaction.EdgeMenuMulti:
		n := len(menu.Edges)
		switch {
		case key.Matches(msg, keys.Escape), key.Matches(msg, keys.Quit):
			err = ctrl.CancelEdgeMenu()
		case key.Matches(msg, keys.Up):
			m.cursor = (m.cursor + n - 1) % max(n, 1)
		case key.Matches(msg, keys.Down):
			m.cursor = (m.cursor + 1) % max(n, 1)
		case key.Matches(msg, keys.Enter) && m.cursor < n:
			err = ctrl.ChooseEdge(menu.Edges[m.cursor].ID)
			if err == nil {
				m.cursor = relationshipIndex(ctrl.Menu().Edge.Relationship)
			}
		case key.Matches(msg, keys.Delete):
			ids := make([]string, 0, n)
			for _, e := range menu.Edges {
				ids = append(ids, e.ID)
			}
			err = ctrl.DeleteEdges(ids...)
			if err == nil {
				m.setStatus(fmt.Sprintf("deleting %d links", n), false)
			}
		}

	case interaction.EdgeMenuSingle:
		n := len(graph.RelationshipTypes)
		switch {
		case key.Matches(msg, keys.Escape), key.Matches(msg, keys.Quit):
			err = ctrl.CancelEdgeMenu()
		case key.Matches(msg, keys.Up):
			m.cursor = (m.cursor + n - 1) % n
		case key.Matches(msg, keys.Down):
			m.cursor = (m.cursor + 1) % n
		case key.Matches(msg, keys.Enter):
			err = ctrl.SaveEdge(graph.RelationshipTypes[m.cursor], menu.Edge.Description)
		case key.Matches(msg, keys.Delete):
			err = ctrl.DeleteEdge()
			if err == nil {
				m.setStatus("deleting link", false)
			}
		}
	}
	if err != nil {
		m.setStatus(err.Error(), true)
	}
	return m, nil
}

func relationshipIndex(rel graph.RelationshipType) int {
	for i, r := range graph.RelationshipTypes {
		if r == rel {
			return i
		}
	}
	return 0
}

func (m *viewModel) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	panel := m.panel()
	lines := strings.Split(m.frame, "\n")
	keep := m.canvasRows()
	if panel != "" {
		keep -= lipgloss.Height(panel)
	}
	if len(lines) > keep {
		lines = lines[:max(keep, 0)]
	}

	var s strings.Builder
	s.WriteString(m.statusBar())
	s.WriteString("\n")
	s.WriteString(strings.Join(lines, "\n"))
	s.WriteString("\n")
	if panel != "" {
		s.WriteString(panel)
		s.WriteString("\n")
	}
	if m.search {
		s.WriteString("/ " + m.input.View())
	} else {
		s.WriteString(helpStyle.Render(m.help.View(keys)))
	}
	return s.String()
}

func (m *viewModel) statusBar() string {
	ctrl := m.engine.Controller()
	parts := []string{
		fmt.Sprintf("%d nodes", len(m.engine.Nodes())),
		fmt.Sprintf("%d edges", len(m.engine.Edges())),
		fmt.Sprintf("α %.3f", m.engine.Alpha()),
	}
	if f := m.engine.Focus(); f.Enabled {
		parts = append(parts, fmt.Sprintf("focus %s (%d hops)", f.CenterNodeID, f.HopDepth))
	}
	if q, n := m.engine.Search(); q != "" {
		parts = append(parts, fmt.Sprintf("search %q: %d", q, n))
	}
	if optimistic, hidden := m.engine.Overlay(); optimistic+hidden > 0 {
		parts = append(parts, fmt.Sprintf("pending %d/%d", optimistic, hidden))
	}

	bar := ""
	if st := ctrl.State(); st != interaction.Navigate {
		bar = modeStyle.Render(modeLabel(ctrl)) + " "
	}
	bar += statusStyle.Render(strings.Join(parts, " · "))
	if m.status != "" {
		if m.failure {
			bar += " " + errorStyle.Render(m.status)
		} else {
			bar += " " + helpStyle.Render(m.status)
		}
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(bar)
}

func modeLabel(ctrl *interaction.Controller) string {
	switch ctrl.State() {
	case interaction.LinkAwaitingSource:
		return "LINK: pick source"
	case interaction.LinkAwaitingTarget:
		return "LINK: pick target for " + ctrl.LinkSourceID()
	case interaction.LinkChoosingRelationship:
		return "LINK: choose relationship"
	case interaction.EdgeMenuSingle:
		return "EDIT LINK"
	case interaction.EdgeMenuMulti:
		return "LINKS"
	}
	return ctrl.State().String()
}

// panel renders the picker or edge menu for the current state.
func (m *viewModel) panel() string {
	ctrl := m.engine.Controller()
	var b strings.Builder

	switch ctrl.State() {
	case interaction.LinkChoosingRelationship:
		link := ctrl.Link()
		fmt.Fprintf(&b, "%s → %s\n", nodeLabel(link.Source), nodeLabel(link.Target))
		b.WriteString(relationshipList(m.cursor))
		b.WriteString("\n" + m.input.View())

	case interaction.EdgeMenuMulti:
		menu := ctrl.Menu()
		if menu.Reason == interaction.MenuIncident {
			fmt.Fprintf(&b, "links of %s\n", menu.NodeID)
		} else {
			b.WriteString("links here\n")
		}
		for i, e := range menu.Edges {
			line := fmt.Sprintf("%s -[%s]-> %s", nodeLabel(e.Source), e.Relationship, nodeLabel(e.Target))
			if i == m.cursor {
				line = cursorStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line + "\n")
		}
		b.WriteString(helpStyle.Render("enter edit · x delete all · esc close"))

	case interaction.EdgeMenuSingle:
		e := ctrl.Menu().Edge
		fmt.Fprintf(&b, "%s -[%s]-> %s\n", nodeLabel(e.Source), e.Relationship, nodeLabel(e.Target))
		if e.Description != "" {
			b.WriteString(e.Description + "\n")
		}
		b.WriteString(relationshipList(m.cursor))
		b.WriteString("\n" + helpStyle.Render("enter save · x delete · esc close"))

	default:
		return ""
	}
	return panelStyle.Render(b.String())
}

// relationshipList shows the types in one wrapped line with the cursor marked.
func relationshipList(cursor int) string {
	items := make([]string, len(graph.RelationshipTypes))
	for i, r := range graph.RelationshipTypes {
		if i == cursor {
			items[i] = cursorStyle.Render("[" + string(r) + "]")
		} else {
			items[i] = " " + string(r) + " "
		}
	}
	return strings.Join(items, " ")
}

func nodeLabel(n *graph.Node) string {
	if n == nil {
		return "?"
	}
	if n.Title != "" {
		return n.Title
	}
	return n.ID
}

var _ tea.Model = (*viewModel)(nil)
