package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/notify"
)

const (
	fetchTimeout = 10 * time.Second
	toastTTL     = 3 * time.Second
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	columnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	disabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)
)

// toast keeps the latest notification so the view can show it briefly.
type toast struct {
	mu      sync.Mutex
	level   notify.Level
	message string
	at      time.Time
	forward notify.Notifier
}

func (t *toast) Notify(level notify.Level, message string) {
	t.mu.Lock()
	t.level, t.message, t.at = level, message, time.Now()
	t.mu.Unlock()
	if t.forward != nil {
		t.forward.Notify(level, message)
	}
}

func (t *toast) current(now time.Time) (notify.Level, string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.message == "" || now.Sub(t.at) > toastTTL {
		return 0, "", false
	}
	return t.level, t.message, true
}

// Model is the bubbletea program of the listing dashboard.
type Model struct {
	fetcher    Fetcher
	table      *Table
	toast      *toast
	interval   time.Duration
	lastUpdate time.Time
	quitting   bool
}

type Option func(*Model)

// WithNotifier forwards every notification to n as well as the toast line.
func WithNotifier(n notify.Notifier) Option {
	return func(m *Model) { m.toast.forward = n }
}

func NewModel(fetcher Fetcher, interval time.Duration, pageSize int, opts ...Option) Model {
	t := &toast{}
	m := Model{
		fetcher:  fetcher,
		toast:    t,
		table:    NewTable(fetcher, t, pageSize),
		interval: interval,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Table() *Table { return m.table }

// Message types
type tickMsg time.Time
type listingMsg struct{ listing *models.Listing }
type fetchErrMsg struct{ err error }

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(m.interval), fetch(m.fetcher))
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetch(f Fetcher) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		listing, err := f.List(ctx)
		if err != nil {
			return fetchErrMsg{err: err}
		}
		return listingMsg{listing: listing}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetch(m.fetcher)
		case "left", "h":
			m.table.Prev()
		case "right", "l":
			m.table.Next()
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(tick(m.interval), fetch(m.fetcher))

	case listingMsg:
		m.table.Apply(msg.listing)
		m.lastUpdate = time.Now()
		return m, nil

	case fetchErrMsg:
		m.table.Fail(msg.err)
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(" Submissions ") + "  ")
	if m.lastUpdate.IsZero() {
		b.WriteString(dimStyle.Render("loading…"))
	} else {
		b.WriteString(dimStyle.Render("updated " + m.lastUpdate.Format("15:04:05")))
	}
	b.WriteString("\n\n")

	if err := m.table.Err(); err != nil && !m.table.Loaded() {
		b.WriteString(notify.Render(notify.Error, "Cannot reach server: "+err.Error()) + "\n")
	} else {
		b.WriteString(RenderRows(m.table.Rows()))
		from, to := m.table.Range()
		b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("Showing %d-%d of %d · page %d/%d",
			from, to, m.table.Total(), m.table.Page(), m.table.Pages())) + "\n")
	}

	if level, message, ok := m.toast.current(time.Now()); ok {
		b.WriteString("\n" + notify.Render(level, message) + "\n")
	}

	b.WriteString("\n" + m.footer())
	return containerStyle.Render(b.String())
}

func (m Model) footer() string {
	prev := keyStyle.Render("[←]") + dimStyle.Render(" prev  ")
	if !m.table.HasPrev() {
		prev = disabledStyle.Render("[←] prev  ")
	}
	next := keyStyle.Render("[→]") + dimStyle.Render(" next  ")
	if !m.table.HasNext() {
		next = disabledStyle.Render("[→] next  ")
	}
	return prev + next +
		keyStyle.Render("[r]") + dimStyle.Render(" refresh  ") +
		keyStyle.Render("[q]") + dimStyle.Render(" quit  ") +
		dimStyle.Render(fmt.Sprintf("Auto: %v", m.interval))
}

// RenderRows lays out submissions as an aligned table.
func RenderRows(rows []models.Submission) string {
	if len(rows) == 0 {
		return dimStyle.Render("No submissions yet.") + "\n"
	}

	idW, nameW, handleW := len("ID"), len("NAME"), len("HANDLE")
	for _, r := range rows {
		idW = max(idW, len(r.ID))
		nameW = max(nameW, len(r.Name))
		handleW = max(handleW, len(r.SocialHandle))
	}

	var b strings.Builder
	header := fmt.Sprintf("%-*s  %-*s  %-*s  %s", idW, "ID", nameW, "NAME", handleW, "HANDLE", "IMAGES")
	b.WriteString(columnStyle.Render(header) + "\n")
	for _, r := range rows {
		images := dimStyle.Render("-")
		if len(r.Images) > 0 {
			images = fmt.Sprintf("%d  %s", len(r.Images), dimStyle.Render(r.Images[0]))
		}
		fmt.Fprintf(&b, "%-*s  %-*s  %-*s  %s\n", idW, r.ID, nameW, r.Name, handleW, r.SocialHandle, images)
	}
	return b.String()
}
