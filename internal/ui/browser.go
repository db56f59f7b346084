package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/rivo/uniseg"

	"github.com/karbon0x/clientdb/internal/config"
	"github.com/karbon0x/clientdb/internal/entity"
	"github.com/karbon0x/clientdb/internal/log"
	"github.com/karbon0x/clientdb/internal/pubsub"
	"github.com/karbon0x/clientdb/internal/store"
)

const feedHeight = 6

// dbChangedMsg signals that the database file changed on disk.
type dbChangedMsg struct{}

// resyncDoneMsg reports the outcome of a triggered resync.
type resyncDoneMsg struct{ err error }

// Browser is the top-level Bubble Tea model: saved-query tabs and a filter
// input over a live list pane, a markdown detail pane, and the event feed.
type Browser struct {
	ctx   context.Context
	store *store.Store
	cfg   config.Config

	queries []config.QueryConfig
	active  int
	sort    entity.Sort

	view     *store.QueryView
	items    []*entity.Entity
	selected int

	filterInput   textinput.Model
	filterFocused bool

	viewport viewport.Model
	md       *markdownRenderer
	feed     *eventFeed
	listener *pubsub.ContinuousListener[store.ItemEvent]

	changes <-chan struct{}
	resync  func(context.Context) error

	width  int
	height int
	ready  bool
}

// Option configures the browser.
type Option func(*Browser)

// WithAutoRefresh wires a change channel (typically from the database
// watcher) and the resync callback it should trigger.
func WithAutoRefresh(changes <-chan struct{}, resync func(context.Context) error) Option {
	return func(b *Browser) {
		b.changes = changes
		b.resync = resync
	}
}

// New creates a browser over the store. The context scopes the event
// subscription; cancel it when the program exits.
func New(ctx context.Context, s *store.Store, cfg config.Config, opts ...Option) *Browser {
	input := textinput.New()
	input.Placeholder = "field=value or text to match titles"
	input.Prompt = "/ "
	input.CharLimit = 120

	b := &Browser{
		ctx:         ctx,
		store:       s,
		cfg:         cfg,
		queries:     cfg.GetQueries(),
		filterInput: input,
		feed:        newEventFeed(80),
		listener:    pubsub.NewContinuousListener(ctx, s.EventBroker()),
	}
	if cfg.DefaultSortField != "" {
		srt := entity.SortBy(cfg.DefaultSortField)
		if cfg.DefaultSortDesc {
			srt = srt.Desc()
		}
		b.sort = srt
	}
	for _, opt := range opts {
		opt(b)
	}

	b.applyQuery(queryFilter(b.queries[0]))
	return b
}

// Init starts the event listener and, when wired, the watcher wait.
func (b *Browser) Init() tea.Cmd {
	cmds := []tea.Cmd{b.listener.Listen()}
	if b.changes != nil {
		cmds = append(cmds, waitForChange(b.ctx, b.changes))
	}
	return tea.Batch(cmds...)
}

// waitForChange blocks until the watcher signals or the context ends.
func waitForChange(ctx context.Context, ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			return dbChangedMsg{}
		}
	}
}

func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
		return b, nil

	case tea.KeyMsg:
		return b.handleKey(msg)

	case tea.MouseMsg:
		return b.handleMouse(msg)

	case pubsub.Event[store.ItemEvent]:
		b.feed.Push(msg)
		b.refresh()
		return b, b.listener.Listen()

	case dbChangedMsg:
		cmds := []tea.Cmd{waitForChange(b.ctx, b.changes)}
		if b.resync != nil {
			resync := b.resync
			ctx := b.ctx
			cmds = append(cmds, func() tea.Msg {
				return resyncDoneMsg{err: resync(ctx)}
			})
		}
		return b, tea.Batch(cmds...)

	case resyncDoneMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatUI, "resync failed", msg.err)
		}
		return b, nil
	}

	return b, nil
}

func (b *Browser) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if b.filterFocused {
		switch msg.Type {
		case tea.KeyEnter:
			b.filterFocused = false
			b.filterInput.Blur()
			b.active = -1
			b.applyQuery(parseFilter(b.filterInput.Value()))
			return b, nil
		case tea.KeyEsc:
			b.filterFocused = false
			b.filterInput.Blur()
			b.filterInput.Reset()
			b.setActiveQuery(0)
			return b, nil
		}
		var cmd tea.Cmd
		b.filterInput, cmd = b.filterInput.Update(msg)
		return b, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return b, tea.Quit
	case "/":
		b.filterFocused = true
		return b, b.filterInput.Focus()
	case "tab":
		b.setActiveQuery((b.active + 1) % len(b.queries))
	case "shift+tab":
		b.setActiveQuery((b.active - 1 + len(b.queries)) % len(b.queries))
	case "j", "down":
		b.moveSelection(1)
	case "k", "up":
		b.moveSelection(-1)
	case "g", "home":
		b.selected = 0
		b.renderDetail()
	case "G", "end":
		b.selected = len(b.items) - 1
		if b.selected < 0 {
			b.selected = 0
		}
		b.renderDetail()
	case "pgdown":
		b.viewport.ScrollDown(b.viewport.Height)
	case "pgup":
		b.viewport.ScrollUp(b.viewport.Height)
	}
	return b, nil
}

func (b *Browser) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		b.viewport.ScrollUp(1)
		return b, nil
	case tea.MouseButtonWheelDown:
		b.viewport.ScrollDown(1)
		return b, nil
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return b, nil
		}
		for i, e := range b.items {
			if z := zone.Get(rowZoneID(e.Key())); z != nil && z.InBounds(msg) {
				b.selected = i
				b.renderDetail()
				break
			}
		}
	}
	return b, nil
}

// setActiveQuery switches to a saved query tab.
func (b *Browser) setActiveQuery(i int) {
	b.active = i
	b.applyQuery(queryFilter(b.queries[i]))
}

// applyQuery swaps the live view and refreshes the list.
func (b *Browser) applyQuery(f entity.Filter) {
	if b.sort != nil {
		b.view = b.store.Query(f, b.sort)
	} else {
		b.view = b.store.Query(f)
	}
	b.selected = 0
	b.refresh()
}

// refresh pulls the current view result and re-renders the detail pane.
func (b *Browser) refresh() {
	b.items = b.view.All()
	if b.selected >= len(b.items) {
		b.selected = len(b.items) - 1
	}
	if b.selected < 0 {
		b.selected = 0
	}
	b.renderDetail()
}

func (b *Browser) moveSelection(delta int) {
	if len(b.items) == 0 {
		return
	}
	b.selected += delta
	if b.selected < 0 {
		b.selected = 0
	}
	if b.selected >= len(b.items) {
		b.selected = len(b.items) - 1
	}
	b.renderDetail()
}

// renderDetail rebuilds the viewport content for the selected entity.
func (b *Browser) renderDetail() {
	if !b.ready || b.md == nil {
		return
	}
	if b.selected >= len(b.items) {
		b.viewport.SetContent(helpStyle.Render("nothing selected"))
		return
	}
	e := b.items[b.selected]
	rendered, err := b.md.Render(detailMarkdown(e))
	if err != nil {
		log.ErrorErr(log.CatUI, "markdown render failed", err, "key", e.Key())
		rendered = detailMarkdown(e)
	}
	b.viewport.SetContent(rendered)
	b.viewport.GotoTop()
}

// detailMarkdown assembles the markdown source for the detail pane.
func detailMarkdown(e *entity.Entity) string {
	var bld strings.Builder
	if title, ok := e.Get("title"); ok {
		fmt.Fprintf(&bld, "# %v\n\n", title)
	} else {
		fmt.Fprintf(&bld, "# %s\n\n", e.Key())
	}
	for _, field := range []string{"status", "priority", "assignee", "project", "created_at", "updated_at"} {
		if v, ok := e.Get(field); ok {
			fmt.Fprintf(&bld, "- **%s**: %v\n", field, v)
		}
	}
	if body, ok := e.Get("body"); ok {
		if s, isStr := body.(string); isStr && s != "" {
			fmt.Fprintf(&bld, "\n%s\n", s)
		}
	}
	return bld.String()
}

func (b *Browser) resize(width, height int) {
	b.width = width
	b.height = height

	listWidth := width * 2 / 5
	detailWidth := width - listWidth - 4
	if detailWidth < 10 {
		detailWidth = 10
	}
	bodyHeight := height - feedHeight - 6
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	if !b.ready {
		b.viewport = viewport.New(detailWidth, bodyHeight)
		b.ready = true
	} else {
		b.viewport.Width = detailWidth
		b.viewport.Height = bodyHeight
	}

	md, err := newMarkdownRenderer(detailWidth, resolveMarkdownStyle(b.cfg.UI.MarkdownStyle))
	if err == nil {
		b.md = md
	} else {
		log.ErrorErr(log.CatUI, "markdown renderer init failed", err)
	}
	b.feed.SetWidth(width - 2)
	b.renderDetail()
}

// View renders the full frame. zone.Scan must wrap the final output so the
// mouse zones line up with what is on screen.
func (b *Browser) View() string {
	if !b.ready {
		return "loading..."
	}

	listWidth := b.width * 2 / 5
	bodyHeight := b.viewport.Height

	header := b.renderHeader()
	listPane := paneStyle
	if !b.filterFocused {
		listPane = focusedPaneStyle
	}
	list := listPane.Width(listWidth).Height(bodyHeight).
		Render(renderList(b.items, b.selected, listWidth-2, bodyHeight))
	detail := paneStyle.Width(b.viewport.Width + 2).Height(bodyHeight).
		Render(b.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, list, detail)

	sections := []string{header, body}
	if b.cfg.UI.ShowEventFeed {
		sections = append(sections, paneStyle.Width(b.width-2).
			Render(b.feed.View(feedHeight-2)))
	}
	sections = append(sections, helpStyle.Render(
		"j/k move · tab switch query · / filter · q quit"))

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// renderHeader draws the saved-query tabs and the filter input with its
// grapheme counter.
func (b *Browser) renderHeader() string {
	var tabs []string
	for i, q := range b.queries {
		label := q.Name
		if b.cfg.UI.ShowCounts {
			label = fmt.Sprintf("%s %s", q.Name,
				countStyle.Render(strconv.Itoa(b.store.Query(queryFilter(q)).Count())))
		}
		style := tabStyle
		if i == b.active {
			style = activeTabStyle
			if q.Color != "" {
				style = style.Foreground(lipgloss.Color(q.Color))
			}
		}
		tabs = append(tabs, style.Render(label))
	}
	line := strings.Join(tabs, "  ")

	if b.filterFocused || b.filterInput.Value() != "" {
		counter := countStyle.Render(
			fmt.Sprintf(" %d", uniseg.GraphemeClusterCount(b.filterInput.Value())))
		line += "\n" + b.filterInput.View() + counter
	}
	return line
}

// queryFilter converts a saved query into an entity filter.
func queryFilter(q config.QueryConfig) entity.Filter {
	return entity.Eq(q.Field, coerceValue(q.Value))
}

// parseFilter interprets the filter input: empty matches everything,
// "field=value" is an equality condition, anything else matches titles by
// substring.
func parseFilter(input string) entity.Filter {
	input = strings.TrimSpace(input)
	if input == "" {
		return entity.All
	}
	if field, value, ok := strings.Cut(input, "="); ok {
		return entity.Eq(strings.TrimSpace(field), coerceValue(strings.TrimSpace(value)))
	}
	return entity.Where("title", entity.OpContains, input)
}

// coerceValue maps filter input text onto the types entity data uses.
func coerceValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	return s
}
