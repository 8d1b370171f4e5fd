package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
	"github.com/desertthunder/watchx/internal/watchlist"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ListView ViewState = iota
	ConfirmClearView
)

// Store is the subset of [watchlist.Store] the TUI drives.
type Store interface {
	Items() []models.MediaReference
	RemoveItem(id int, mediaType models.MediaType) bool
	ClearWatchlist()
	SyncWithCloud(ctx context.Context) watchlist.SyncResult
	IsLoading() bool
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusErr
)

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	store   Store
	updates <-chan watchlist.SyncUpdate
	list    list.Model
	syncing bool
	status  string
	kind    statusKind
	width   int
	height  int
	help    help.Model
	keys    keyMap
}

// NewModel creates a TUI over store. updates may be nil; when set it should be
// the channel passed to [watchlist.Options].
func NewModel(ctx context.Context, store Store, updates <-chan watchlist.SyncUpdate) *Model {
	l := list.New(toListItems(store.Items()), list.NewDefaultDelegate(), 80, 20)
	l.Title = "Watchlist"
	l.Filter = fuzzyFilter
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	return &Model{
		ctx:     ctx,
		view:    ListView,
		store:   store,
		updates: updates,
		list:    l,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts listening for sync transitions.
func (m *Model) Init() tea.Cmd {
	return m.waitForUpdate()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ListView:
			return m.handleListKeys(msg)
		case ConfirmClearView:
			return m.handleConfirmKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSyncUpdate:
		update := msg.data.(watchlist.SyncUpdate)
		if update.Err != nil && update.State != watchlist.Failed {
			m.setStatus(statusErr, fmt.Sprintf("Sync failed: %v", update.Err))
			return m, m.waitForUpdate()
		}
		switch update.State {
		case watchlist.Loading:
			m.setStatus(statusInfo, update.Message)
		case watchlist.Failed:
			m.setStatus(statusErr, update.Message)
		case watchlist.Idle:
			m.refresh()
		default:
			if update.Message != "" {
				m.setStatus(statusOK, update.Message)
			}
		}
		return m, m.waitForUpdate()

	case MsgSyncComplete:
		m.syncing = false
		m.refresh()
		m.describeResult(msg.data.(watchlist.SyncResult))
		return m, nil

	case MsgUpdatesClosed:
		m.updates = nil
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmClearView:
		return m.renderConfirm()
	default:
		return m.renderList()
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.remove):
		item, ok := m.list.SelectedItem().(mediaItem)
		if !ok {
			return m, nil
		}
		if m.store.RemoveItem(item.ref.ID, item.ref.MediaType) {
			m.setStatus(statusOK, fmt.Sprintf("Removed %s", item.ref.DisplayTitle()))
		}
		return m, m.refresh()

	case key.Matches(msg, m.keys.sync):
		if m.syncing {
			return m, nil
		}
		m.syncing = true
		m.setStatus(statusInfo, "Syncing...")
		return m, m.runSync()

	case key.Matches(msg, m.keys.clear):
		if len(m.list.Items()) == 0 {
			m.setStatus(statusWarn, "Watchlist is already empty")
			return m, nil
		}
		m.view = ConfirmClearView
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.store.ClearWatchlist()
		m.view = ListView
		m.setStatus(statusOK, "Cleared local watchlist")
		return m, m.refresh()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = ListView
		return m, nil
	}
	return m, nil
}

// refresh reloads list items from the store.
func (m *Model) refresh() tea.Cmd {
	return m.list.SetItems(toListItems(m.store.Items()))
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.kind = kind
	m.status = text
}

func (m *Model) describeResult(res watchlist.SyncResult) {
	switch {
	case res.Coalesced:
		m.setStatus(statusInfo, "Sync already running; queued another pass")
	case errors.Is(res.Err, shared.ErrNotAuthenticated):
		m.setStatus(statusWarn, "Sign in with `watchx auth login` to sync")
	case res.Err != nil:
		m.setStatus(statusErr, fmt.Sprintf("Sync failed: %v", res.Err))
	case res.Outcome == watchlist.PushedInitial:
		m.setStatus(statusOK, fmt.Sprintf("Uploaded %d items", res.Items))
	case res.Outcome == watchlist.Merged:
		m.setStatus(statusOK, fmt.Sprintf("Synced %d items", res.Items))
	default:
		m.setStatus(statusInfo, "Nothing to sync")
	}
}

func (m *Model) runSync() tea.Cmd {
	return func() tea.Msg {
		return syncCompleteMsg(m.store.SyncWithCloud(m.ctx))
	}
}

func (m *Model) waitForUpdate() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return updatesClosedMsg()
		}
		return syncUpdateMsg(update)
	}
}

func (m *Model) renderStatus() string {
	text := m.status
	if m.store.IsLoading() && text == "" {
		text = "Syncing..."
	}
	switch m.kind {
	case statusOK:
		return styles.ok.Render(text)
	case statusWarn:
		return styles.warn.Render(text)
	case statusErr:
		return styles.err.Render(text)
	default:
		return styles.help.Render(text)
	}
}

func (m *Model) renderList() string {
	body := m.list.View()
	if len(m.list.Items()) == 0 {
		body = styles.title.Render("Watchlist") + "\n" + styles.help.Render("Nothing saved yet. Add titles with `watchx watchlist add`.")
	}
	return fmt.Sprintf("%s\n%s\n\n%s", body, m.renderStatus(), m.help.View(m.keys))
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Clear your local watchlist?")
	info := fmt.Sprintf("%d items will be removed from this device. Your cloud watchlist is not changed.\n", len(m.list.Items()))

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n%s", title, styles.warn.Render(info), m.help.ShortHelpView(helpKeys))
}
