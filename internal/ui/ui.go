package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/desertthunder/ytsort/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	ItemListView
	SortView
	ConfirmView
	ProgressView
	ResultView
)

// Engine is the subset of [tasks.PlaylistEngine] the TUI drives.
type Engine interface {
	Playlists(ctx context.Context, channelID string, progress chan<- tasks.ProgressUpdate) ([]models.Playlist, error)
	Read(ctx context.Context, playlistID string, progress chan<- tasks.ProgressUpdate) ([]models.EnrichedItem, error)
	Run(ctx context.Context, req tasks.SortRequest, progress chan<- tasks.ProgressUpdate) (*tasks.SortResult, error)
	Resume(ctx context.Context, jobID string, progress chan<- tasks.ProgressUpdate) (*tasks.SortResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	engine    Engine
	channelID string
	width     int
	height    int

	playlistList list.Model
	itemList     list.Model
	sortList     list.Model
	resultList   list.Model

	selected *models.Playlist
	items    []models.EnrichedItem
	spec     models.SortSpec
	create   bool

	progressChan chan tasks.ProgressUpdate
	doneChan     chan runData
	progress     tasks.ProgressUpdate
	spinner      spinner.Model

	result *tasks.SortResult
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model. An empty channelID lists the authenticated user's playlists.
func NewModel(ctx context.Context, engine Engine, channelID string) *Model {
	options := make([]list.Item, len(sortOptions))
	for i, o := range sortOptions {
		options[i] = o
	}
	sortList := list.New(options, list.NewDefaultDelegate(), 0, 0)
	sortList.Title = "Sort by"
	sortList.SetFilteringEnabled(false)

	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		engine:       engine,
		channelID:    channelID,
		playlistList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		itemList:     list.New(nil, list.NewDefaultDelegate(), 0, 0),
		sortList:     sortList,
		resultList:   list.New(nil, list.NewDefaultDelegate(), 0, 0),
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.spinner)),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init initializes the TUI by fetching playlists.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Err returns the last error that ended or interrupted the session.
func (m *Model) Err() error { return m.err }

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ItemListView:
			return m.handleItemListKeys(msg)
		case SortView:
			return m.handleSortKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ProgressView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != ProgressView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsData)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		items := make([]list.Item, len(data.playlists))
		for i, pl := range data.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Playlists"
		m.resize()
		return m, nil

	case MsgItemsFetched:
		data := msg.data.(itemsData)
		m.view = ItemListView
		if data.err != nil {
			m.err = data.err
			m.view = PlaylistListView
			return m, nil
		}
		m.selected = &data.playlist
		m.items = data.items
		m.itemList = newVideoList(fmt.Sprintf("Videos in '%s'", data.playlist.Title), data.items)
		m.resize()
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgRunComplete:
		data := msg.data.(runData)
		m.result = data.result
		m.err = data.err
		m.progressChan = nil
		m.doneChan = nil
		m.view = ResultView
		if data.result != nil && data.result.Materialized == nil {
			m.resultList = newVideoList(fmt.Sprintf("Sorted by %s", m.spec), data.result.Items)
			m.resize()
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderList(m.playlistList, m.keys.enter, m.keys.quit)
	case ItemListView:
		sortKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "sort"))
		return m.renderList(m.itemList, sortKey, m.keys.back, m.keys.quit)
	case SortView:
		return m.renderList(m.sortList, m.keys.enter, m.keys.back, m.keys.quit)
	case ConfirmView:
		return m.renderConfirm()
	case ProgressView:
		return m.renderProgress()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				return m, m.fetchItems(pl.playlist)
			}
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleItemListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.itemList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.view = PlaylistListView
			return m, nil
		case key.Matches(msg, m.keys.enter):
			m.view = SortView
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.itemList, cmd = m.itemList.Update(msg)
	return m, cmd
}

func (m *Model) handleSortKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ItemListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if o, ok := m.sortList.SelectedItem().(sortOption); ok {
			m.spec = o.spec
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.sortList, cmd = m.sortList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = SortView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.create = true
		return m, m.startRun()
	case key.Matches(msg, m.keys.no):
		m.create = false
		return m, m.startRun()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.resume):
		if m.canResume() {
			return m, m.startResume(m.result.JobID)
		}
		return m, nil
	case key.Matches(msg, m.keys.restart):
		m.view = PlaylistListView
		m.selected = nil
		m.items = nil
		m.result = nil
		m.err = nil
		return m, nil
	}

	if m.result != nil && m.result.Materialized == nil {
		var cmd tea.Cmd
		m.resultList, cmd = m.resultList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// canResume reports whether the last run created a playlist, recorded a job and stopped early.
func (m *Model) canResume() bool {
	if m.err == nil || m.result == nil || m.result.JobID == "" {
		return false
	}
	res := m.result.Materialized
	return res != nil && res.PlaylistID != "" && res.State != models.StateCompleted
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case ItemListView:
		m.itemList, cmd = m.itemList.Update(msg)
	case SortView:
		m.sortList, cmd = m.sortList.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize() {
	w, h := m.width-4, m.height-8
	if w < 0 || h < 0 {
		return
	}
	m.playlistList.SetSize(w, h)
	m.itemList.SetSize(w, h)
	m.sortList.SetSize(w, h)
	m.resultList.SetSize(w, h)
}

func newVideoList(title string, items []models.EnrichedItem) list.Model {
	entries := make([]list.Item, len(items))
	for i, it := range items {
		entries[i] = videoItem{item: it}
	}
	l := list.New(entries, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	return l
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.engine.Playlists(m.ctx, m.channelID, nil)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) fetchItems(pl models.Playlist) tea.Cmd {
	return func() tea.Msg {
		items, err := m.engine.Read(m.ctx, pl.ID, nil)
		return itemsFetchedMsg(pl, items, err)
	}
}

func (m *Model) request() tasks.SortRequest {
	req := tasks.SortRequest{
		PlaylistID:     m.selected.ID,
		SortBy:         string(m.spec.Key),
		Order:          string(m.spec.Direction),
		CreatePlaylist: m.create,
	}
	if m.create {
		req.NewPlaylistName = fmt.Sprintf("%s (sorted by %s)", m.selected.Title, m.spec.Key)
	}
	return req
}

func (m *Model) startRun() tea.Cmd {
	req := m.request()
	return m.start(func(progress chan<- tasks.ProgressUpdate) (*tasks.SortResult, error) {
		return m.engine.Run(m.ctx, req, progress)
	})
}

func (m *Model) startResume(jobID string) tea.Cmd {
	m.err = nil
	return m.start(func(progress chan<- tasks.ProgressUpdate) (*tasks.SortResult, error) {
		return m.engine.Resume(m.ctx, jobID, progress)
	})
}

// start runs fn in the background. The progress channel is closed before the result is delivered.
func (m *Model) start(fn func(chan<- tasks.ProgressUpdate) (*tasks.SortResult, error)) tea.Cmd {
	m.view = ProgressView
	m.progress = tasks.ProgressUpdate{Message: "Starting..."}
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan runData, 1)

	progress, done := m.progressChan, m.doneChan
	go func() {
		result, err := fn(progress)
		close(progress)
		done <- runData{result: result, err: err}
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progress == nil {
			return runCompleteMsg(m.result, m.err)
		}
		update, ok := <-progress
		if !ok {
			res := <-done
			return runCompleteMsg(res.result, res.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderList(l list.Model, bindings ...key.Binding) string {
	return fmt.Sprintf("%s\n\n%s", l.View(), m.help.ShortHelpView(bindings))
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Sort '%s' by %s?", m.selected.Title, m.spec))
	info := fmt.Sprintf("\nPlaylist: %s\nVideos: %d\nNew playlist: %s (private)\n",
		m.selected.Title, len(m.items), fmt.Sprintf("%s (sorted by %s)", m.selected.Title, m.spec.Key))

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderProgress() string {
	title := styles.title.Render("Sorting Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchCount, tasks.FetchItems:
		phase = "Reading playlist..."
	case tasks.AggregateItems, tasks.Sorting:
		phase = "Sorting videos..."
	case tasks.CreatePlaylist:
		phase = "Creating playlist..."
	case tasks.InsertItems:
		phase = fmt.Sprintf("Inserting videos %s", bar(m.progress.Step, m.progress.Total, 30))
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s %s\n%s", title, m.spinner.View(), phase, styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	if m.err != nil {
		msg := fmt.Sprintf("Sort failed [%s]: %v", shared.KindOf(m.err), m.err)
		bindings := []key.Binding{m.keys.restart, m.keys.quit}
		if m.canResume() {
			res := m.result.Materialized
			held := fmt.Sprintf("Playlist %s holds %d of %d videos.", res.PlaylistID, res.LastSuccessful, res.Total)
			bindings = append([]key.Binding{m.keys.resume}, bindings...)
			return fmt.Sprintf("%s\n\n%s\n\n%s", styles.err.Render(msg), styles.warn.Render(held), m.help.ShortHelpView(bindings))
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), m.help.ShortHelpView(bindings))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress esc to start over, q to quit")
	}

	if m.result.Materialized == nil {
		return m.renderList(m.resultList, m.keys.restart, m.keys.quit)
	}

	res := m.result.Materialized
	title := styles.ok.Render("✓ Playlist created!")
	info := fmt.Sprintf("\nSource: %s\nNew playlist: %s\nVideos inserted: %d/%d",
		m.result.PlaylistID, res.PlaylistID, res.LastSuccessful, res.Total)

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func bar(step, total, width int) string {
	if total <= 0 {
		return ""
	}
	filled := min(width*step/total, width)
	return fmt.Sprintf("[%s%s] %d/%d", strings.Repeat("█", filled), strings.Repeat("░", width-filled), step, total)
}
