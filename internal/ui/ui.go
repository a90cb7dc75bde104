package ui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
)

const maxProgressLines = 12

// ViewState identifies which screen the model is rendering.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	ConfirmView
	ExportView
	ResultView
)

// Messages

type playlistsFetchedMsg struct {
	playlists []models.Playlist
	err       error
}

type tracksFetchedMsg struct {
	items []models.PlaylistItem
	err   error
}

type progressUpdateMsg struct {
	update tasks.ProgressUpdate
}

type exportCompleteMsg struct {
	artifact *models.Artifact
	err      error
}

type savedMsg struct {
	path string
	err  error
}

// Model drives the interactive export workflow: browse playlists, preview
// tracks, confirm, watch progress, then save the resulting CSV.
type Model struct {
	ctx      context.Context
	access   tasks.TokenProvider
	provider services.Provider
	engine   *tasks.ExportEngine
	userID   string
	logger   *log.Logger

	state     ViewState
	playlists list.Model
	tracks    list.Model
	selected  *models.Playlist
	exportAll bool
	loading   bool
	err       error

	progressChan  chan tasks.ProgressUpdate
	resultChan    chan exportCompleteMsg
	progressLines []string

	artifact  *models.Artifact
	savedPath string
	saveErr   error

	help   help.Model
	width  int
	height int
}

func NewModel(ctx context.Context, access tasks.TokenProvider, provider services.Provider, engine *tasks.ExportEngine, userID string, logger *log.Logger) *Model {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	delegate := list.NewDefaultDelegate()
	playlists := list.New([]list.Item{}, delegate, 0, 0)
	playlists.Title = "Your Playlists"
	playlists.SetShowHelp(false)

	tracks := list.New([]list.Item{}, delegate, 0, 0)
	tracks.SetShowHelp(false)

	return &Model{
		ctx:       ctx,
		access:    access,
		provider:  provider,
		engine:    engine,
		userID:    userID,
		logger:    logger,
		state:     PlaylistListView,
		playlists: playlists,
		tracks:    tracks,
		loading:   true,
		help:      help.New(),
	}
}

func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Commands

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		token, err := m.access.EnsureAccess(m.ctx, m.userID)
		if err != nil {
			return playlistsFetchedMsg{err: err}
		}
		playlists, err := m.provider.ListPlaylists(m.ctx, token)
		return playlistsFetchedMsg{playlists: playlists, err: err}
	}
}

func (m *Model) fetchTracks(playlistID string) tea.Cmd {
	return func() tea.Msg {
		token, err := m.access.EnsureAccess(m.ctx, m.userID)
		if err != nil {
			return tracksFetchedMsg{err: err}
		}
		items, err := m.provider.PlaylistTracks(m.ctx, token, playlistID)
		return tracksFetchedMsg{items: items, err: err}
	}
}

func (m *Model) startExport() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.resultChan = make(chan exportCompleteMsg, 1)
	m.progressLines = nil

	go func() {
		var artifact *models.Artifact
		var err error
		if m.exportAll {
			artifact, err = m.engine.ExportAll(m.ctx, m.userID, m.progressChan)
		} else {
			artifact, err = m.engine.ExportPlaylist(m.ctx, m.userID, m.selected.ID)
		}
		m.resultChan <- exportCompleteMsg{artifact: artifact, err: err}
	}()

	return m.waitForActivity()
}

// waitForActivity blocks on the next progress update or the final result,
// whichever arrives first.
func (m *Model) waitForActivity() tea.Cmd {
	progress := m.progressChan
	result := m.resultChan
	return func() tea.Msg {
		select {
		case u := <-progress:
			return progressUpdateMsg{update: u}
		case r := <-result:
			return r
		}
	}
}

func (m *Model) saveArtifact() tea.Cmd {
	artifact := m.artifact
	return func() tea.Msg {
		if artifact == nil {
			return savedMsg{err: fmt.Errorf("nothing to save")}
		}
		if err := os.WriteFile(artifact.Filename, []byte(artifact.CSV), 0o644); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{path: artifact.Filename}
	}
}

// Update

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlists.SetSize(msg.Width-4, msg.Height-6)
		m.tracks.SetSize(msg.Width-4, msg.Height-6)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case playlistsFetchedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.playlists))
		for _, p := range msg.playlists {
			items = append(items, playlistItem{playlist: p})
		}
		m.playlists.SetItems(items)
		return m, nil
	case tracksFetchedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.items))
		for _, it := range msg.items {
			items = append(items, trackItem{item: it})
		}
		m.tracks.SetItems(items)
		m.state = TrackListView
		return m, nil
	case progressUpdateMsg:
		m.progressLines = append(m.progressLines, msg.update.Message)
		if len(m.progressLines) > maxProgressLines {
			m.progressLines = m.progressLines[len(m.progressLines)-maxProgressLines:]
		}
		return m, m.waitForActivity()
	case exportCompleteMsg:
		m.artifact = msg.artifact
		m.err = msg.err
		m.state = ResultView
		return m, nil
	case savedMsg:
		m.savedPath = msg.path
		m.saveErr = msg.err
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	}

	switch m.state {
	case PlaylistListView:
		return m.handlePlaylistKeys(msg)
	case TrackListView:
		return m.handleTrackKeys(msg)
	case ConfirmView:
		return m.handleConfirmKeys(msg)
	case ResultView:
		return m.handleResultKeys(msg)
	}
	return m, nil
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Enter):
		if item, ok := m.playlists.SelectedItem().(playlistItem); ok {
			p := item.playlist
			m.selected = &p
			m.loading = true
			return m, m.fetchTracks(p.ID)
		}
		return m, nil
	case key.Matches(msg, keys.ExportAll):
		m.selected = nil
		m.exportAll = true
		m.state = ConfirmView
		return m, nil
	}
	var cmd tea.Cmd
	m.playlists, cmd = m.playlists.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Enter):
		m.exportAll = false
		m.state = ConfirmView
		return m, nil
	case key.Matches(msg, keys.Back):
		m.state = PlaylistListView
		return m, nil
	}
	var cmd tea.Cmd
	m.tracks, cmd = m.tracks.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Yes):
		m.state = ExportView
		return m, m.startExport()
	case key.Matches(msg, keys.No), key.Matches(msg, keys.Back):
		if m.exportAll {
			m.state = PlaylistListView
		} else {
			m.state = TrackListView
		}
		m.exportAll = false
		return m, nil
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Save):
		if m.artifact != nil && m.savedPath == "" {
			return m, m.saveArtifact()
		}
		return m, nil
	case key.Matches(msg, keys.Restart):
		m.state = PlaylistListView
		m.selected = nil
		m.exportAll = false
		m.artifact = nil
		m.savedPath = ""
		m.saveErr = nil
		m.err = nil
		m.progressLines = nil
		m.loading = true
		return m, m.fetchPlaylists()
	}
	return m, nil
}

// View

func (m *Model) View() string {
	switch m.state {
	case PlaylistListView:
		return m.renderPlaylists()
	case TrackListView:
		return m.renderTracks()
	case ConfirmView:
		return m.renderConfirm()
	case ExportView:
		return m.renderExport()
	case ResultView:
		return m.renderResult()
	}
	return ""
}

func (m *Model) renderPlaylists() string {
	if m.err != nil {
		return m.renderError()
	}
	if m.loading {
		return styles.title.Render("Loading...")
	}
	var b strings.Builder
	b.WriteString(m.playlists.View())
	b.WriteString("\n")
	b.WriteString(styles.help.Render("enter: preview tracks · a: export all · q: quit"))
	return b.String()
}

func (m *Model) renderTracks() string {
	if m.err != nil {
		return m.renderError()
	}
	if m.loading {
		return styles.title.Render("Loading tracks...")
	}
	var b strings.Builder
	if m.selected != nil {
		b.WriteString(styles.title.Render(m.selected.Name))
		b.WriteString("\n")
	}
	b.WriteString(m.tracks.View())
	b.WriteString("\n")
	b.WriteString(styles.help.Render("enter: export this playlist · esc: back · q: quit"))
	return b.String()
}

func (m *Model) renderConfirm() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Confirm Export"))
	b.WriteString("\n")
	if m.exportAll {
		b.WriteString(fmt.Sprintf("Export all %d playlists to a single CSV file?\n", len(m.playlists.Items())))
	} else if m.selected != nil {
		b.WriteString(fmt.Sprintf("Export %q (%d tracks) to CSV?\n", m.selected.Name, m.selected.TrackCount))
	}
	b.WriteString("\n")
	b.WriteString(styles.help.Render("y: confirm · n: cancel"))
	return b.String()
}

func (m *Model) renderExport() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Exporting"))
	b.WriteString("\n")
	if len(m.progressLines) == 0 {
		b.WriteString("Working...\n")
	}
	for _, line := range m.progressLines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderResult() string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(styles.err.Render("Export failed"))
		b.WriteString("\n")
		b.WriteString(m.err.Error())
		b.WriteString("\n\n")
		b.WriteString(styles.help.Render("r: start over · q: quit"))
		return b.String()
	}
	b.WriteString(styles.ok.Render("Export complete"))
	b.WriteString("\n")
	if m.artifact != nil {
		b.WriteString(fmt.Sprintf("Artifact: %s (%d bytes)\n", m.artifact.Filename, len(m.artifact.CSV)))
	}
	if m.savedPath != "" {
		b.WriteString(styles.ok.Render(fmt.Sprintf("Saved to %s", m.savedPath)))
		b.WriteString("\n")
	} else if m.saveErr != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Save failed: %v", m.saveErr)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.help.Render("s: save file · r: start over · q: quit"))
	return b.String()
}

func (m *Model) renderError() string {
	var b strings.Builder
	b.WriteString(styles.err.Render("Error"))
	b.WriteString("\n")
	b.WriteString(m.err.Error())
	b.WriteString("\n\n")
	b.WriteString(styles.help.Render("q: quit"))
	return b.String()
}
