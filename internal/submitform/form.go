// Package submitform is the client-side submission form: it holds the
// entered values, validates them before any network call and walks the
// Editing → Submitting → Succeeded|Failed → Editing cycle.
package submitform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/client"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/notify"
)

type State int

const (
	Editing State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	MsgIncomplete = "All fields are required!"
	MsgSubmitted  = "Form submitted successfully!"
	MsgFailed     = "Server error. Please try again."
)

var (
	ErrIncomplete = errors.New("submitform: all fields are required")
	ErrBusy       = errors.New("submitform: submission in progress")
)

type Submitter interface {
	Submit(ctx context.Context, in client.SubmitRequest) (*models.Submission, error)
}

// Preview describes a selected image before upload.
type Preview struct {
	Filename    string
	ContentType string
	Size        int
}

type transition struct{ from, to State }

type Form struct {
	submitter Submitter
	notifier  notify.Notifier
	hook      func(from, to State)

	mu       sync.Mutex
	state    State
	name     string
	handle   string
	images   []models.ImageUpload
	previews []Preview
	pending  []transition
}

type Option func(*Form)

// WithTransitionHook observes every state change. The hook runs outside
// the form's lock.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(f *Form) { f.hook = fn }
}

func New(submitter Submitter, notifier notify.Notifier, opts ...Option) *Form {
	if notifier == nil {
		notifier = notify.NotifierFunc(func(notify.Level, string) {})
	}
	f := &Form{submitter: submitter, notifier: notifier, state: Editing}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) SetName(name string) error {
	return f.edit(func() { f.name = name })
}

func (f *Form) SetSocialHandle(handle string) error {
	return f.edit(func() { f.handle = handle })
}

// SetImages replaces the selected images and recomputes their previews.
func (f *Form) SetImages(images []models.ImageUpload) error {
	return f.edit(func() {
		f.images = append([]models.ImageUpload(nil), images...)
		f.previews = make([]Preview, 0, len(images))
		for _, img := range images {
			f.previews = append(f.previews, Preview{
				Filename:    img.Filename,
				ContentType: img.DetectedContentType(),
				Size:        img.Size(),
			})
		}
	})
}

func (f *Form) edit(apply func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Submitting {
		return ErrBusy
	}
	apply()
	return nil
}

// Values returns the entered name, handle and selected image count.
func (f *Form) Values() (name, handle string, images int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name, f.handle, len(f.images)
}

func (f *Form) Previews() []Preview {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Preview(nil), f.previews...)
}

// Submit checks the form locally and, when complete, posts it. Values are
// cleared only after the server accepts them.
func (f *Form) Submit(ctx context.Context) (*models.Submission, error) {
	f.mu.Lock()
	if f.state == Submitting {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	if strings.TrimSpace(f.name) == "" || strings.TrimSpace(f.handle) == "" || len(f.images) == 0 {
		f.mu.Unlock()
		f.notifier.Notify(notify.Error, MsgIncomplete)
		return nil, ErrIncomplete
	}
	req := client.SubmitRequest{
		Name:         f.name,
		SocialHandle: f.handle,
		Images:       append([]models.ImageUpload(nil), f.images...),
	}
	f.moveTo(Submitting)
	f.unlockAndFlush()

	sub, err := f.submitter.Submit(ctx, req)

	f.mu.Lock()
	if err != nil {
		f.moveTo(Failed)
		f.moveTo(Editing)
		f.unlockAndFlush()
		f.notifier.Notify(notify.Error, MsgFailed)
		return nil, err
	}
	f.moveTo(Succeeded)
	f.name, f.handle = "", ""
	f.images, f.previews = nil, nil
	f.moveTo(Editing)
	f.unlockAndFlush()
	f.notifier.Notify(notify.Success, MsgSubmitted)
	return sub, nil
}

// moveTo must be called with mu held.
func (f *Form) moveTo(to State) {
	f.pending = append(f.pending, transition{from: f.state, to: to})
	f.state = to
}

func (f *Form) unlockAndFlush() {
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	if f.hook == nil {
		return
	}
	for _, t := range pending {
		f.hook(t.from, t.to)
	}
}

// ReadImages loads image files from disk for SetImages.
func ReadImages(paths ...string) ([]models.ImageUpload, error) {
	images := make([]models.ImageUpload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		images = append(images, models.ImageUpload{Filename: filepath.Base(p), Data: data})
	}
	return images, nil
}
