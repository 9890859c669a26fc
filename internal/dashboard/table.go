// Package dashboard is the admin listing view: the fetched submissions,
// client-side pagination over them and the terminal program that polls the
// server.
package dashboard

import (
	"context"
	"sync"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/notify"
)

const DefaultPageSize = 5

const (
	MsgNewData     = "New data received!"
	MsgFetchFailed = "Failed to fetch users"
)

type Fetcher interface {
	List(ctx context.Context) (*models.Listing, error)
}

// Table holds the last fetched record set and the current page. Fetches
// are not coordinated: overlapping refreshes each apply their own result.
type Table struct {
	fetcher  Fetcher
	notifier notify.Notifier
	pageSize int

	mu      sync.Mutex
	users   []models.Submission
	total   int
	page    int
	loaded  bool
	lastErr error
}

func NewTable(fetcher Fetcher, notifier notify.Notifier, pageSize int) *Table {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if notifier == nil {
		notifier = notify.NotifierFunc(func(notify.Level, string) {})
	}
	return &Table{fetcher: fetcher, notifier: notifier, pageSize: pageSize, page: 1}
}

// Refresh fetches the listing and applies it.
func (t *Table) Refresh(ctx context.Context) error {
	listing, err := t.fetcher.List(ctx)
	if err != nil {
		t.Fail(err)
		return err
	}
	t.Apply(listing)
	return nil
}

// Apply adopts listing when its total differs from the one last seen, or on
// the first load, and resets to page 1. It reports whether anything changed.
func (t *Table) Apply(listing *models.Listing) bool {
	t.mu.Lock()
	first := !t.loaded
	changed := first || listing.Total != t.total
	if changed {
		t.users = append([]models.Submission(nil), listing.Users...)
		t.total = listing.Total
		t.page = 1
	}
	t.loaded = true
	t.lastErr = nil
	t.mu.Unlock()

	if changed && !first {
		t.notifier.Notify(notify.Success, MsgNewData)
	}
	return changed
}

// Fail records a failed fetch. Only failures after the first load notify.
func (t *Table) Fail(err error) {
	t.mu.Lock()
	t.lastErr = err
	loaded := t.loaded
	t.mu.Unlock()

	if loaded {
		t.notifier.Notify(notify.Error, MsgFetchFailed)
	}
}

// Paginate returns page k (1-based) of users with page size p: the records
// [(k-1)p, kp) clipped to len(users).
func Paginate(users []models.Submission, k, p int) []models.Submission {
	if k < 1 || p < 1 {
		return nil
	}
	start := (k - 1) * p
	if start >= len(users) {
		return nil
	}
	end := start + p
	if end > len(users) {
		end = len(users)
	}
	return users[start:end]
}

// PageCount is the number of pages needed for n records, at least 1.
func PageCount(n, p int) int {
	if n <= 0 || p < 1 {
		return 1
	}
	return (n + p - 1) / p
}

func (t *Table) Page() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page
}

func (t *Table) Pages() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return PageCount(len(t.users), t.pageSize)
}

func (t *Table) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

func (t *Table) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

func (t *Table) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Rows returns the records on the current page.
func (t *Table) Rows() []models.Submission {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Submission(nil), Paginate(t.users, t.page, t.pageSize)...)
}

// Range is the 1-based index of the first and last record on the current
// page, or 0, 0 when there are none.
func (t *Table) Range() (from, to int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows := Paginate(t.users, t.page, t.pageSize)
	if len(rows) == 0 {
		return 0, 0
	}
	from = (t.page-1)*t.pageSize + 1
	return from, from + len(rows) - 1
}

func (t *Table) HasPrev() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page > 1
}

func (t *Table) HasNext() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page < PageCount(len(t.users), t.pageSize)
}

// Next moves one page forward; it is a no-op on the last page.
func (t *Table) Next() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.page >= PageCount(len(t.users), t.pageSize) {
		return false
	}
	t.page++
	return true
}

// Prev moves one page back; it is a no-op on page 1.
func (t *Table) Prev() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.page <= 1 {
		return false
	}
	t.page--
	return true
}

// GoTo jumps to page k when it exists.
func (t *Table) GoTo(k int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if k < 1 || k > PageCount(len(t.users), t.pageSize) {
		return false
	}
	t.page = k
	return true
}
