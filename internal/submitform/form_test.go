package submitform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/client"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/notify"
)

// MockSubmitter is a testify mock for Submitter.
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, in client.SubmitRequest) (*models.Submission, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Submission), args.Error(1)
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func filledForm(t *testing.T, s Submitter, n notify.Notifier, opts ...Option) *Form {
	t.Helper()
	f := New(s, n, opts...)
	require.NoError(t, f.SetName("Ada"))
	require.NoError(t, f.SetSocialHandle("@ada"))
	require.NoError(t, f.SetImages([]models.ImageUpload{{Filename: "a.png", Data: pngBytes}}))
	return f
}

func TestSubmit_Incomplete(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *Form)
	}{
		{"empty", func(f *Form) {}},
		{"no images", func(f *Form) {
			_ = f.SetName("Ada")
			_ = f.SetSocialHandle("@ada")
		}},
		{"blank handle", func(f *Form) {
			_ = f.SetName("Ada")
			_ = f.SetSocialHandle("  ")
			_ = f.SetImages([]models.ImageUpload{{Filename: "a.png"}})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := new(MockSubmitter)
			rec := &notify.Recorder{}
			f := New(sub, rec)
			tt.setup(f)

			_, err := f.Submit(context.Background())

			assert.ErrorIs(t, err, ErrIncomplete)
			assert.Equal(t, Editing, f.State())
			last, ok := rec.Last()
			require.True(t, ok)
			assert.Equal(t, notify.Notification{Level: notify.Error, Message: MsgIncomplete}, last)
			sub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmit_Success(t *testing.T) {
	sub := new(MockSubmitter)
	rec := &notify.Recorder{}
	var transitions []string
	f := filledForm(t, sub, rec, WithTransitionHook(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}))

	sub.On("Submit", mock.Anything, mock.MatchedBy(func(in client.SubmitRequest) bool {
		return in.Name == "Ada" && in.SocialHandle == "@ada" && len(in.Images) == 1
	})).Return(&models.Submission{ID: "1", Name: "Ada"}, nil)

	got, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)

	assert.Equal(t, []string{"editing->submitting", "submitting->succeeded", "succeeded->editing"}, transitions)
	assert.Equal(t, Editing, f.State())

	name, handle, images := f.Values()
	assert.Empty(t, name)
	assert.Empty(t, handle)
	assert.Zero(t, images)
	assert.Empty(t, f.Previews())

	last, _ := rec.Last()
	assert.Equal(t, notify.Notification{Level: notify.Success, Message: MsgSubmitted}, last)
}

func TestSubmit_Failure(t *testing.T) {
	sub := new(MockSubmitter)
	rec := &notify.Recorder{}
	var transitions []State
	f := filledForm(t, sub, rec, WithTransitionHook(func(_, to State) {
		transitions = append(transitions, to)
	}))

	sub.On("Submit", mock.Anything, mock.Anything).Return(nil, errors.New("server returned 500"))

	_, err := f.Submit(context.Background())
	require.Error(t, err)

	assert.Equal(t, []State{Submitting, Failed, Editing}, transitions)
	name, handle, images := f.Values()
	assert.Equal(t, "Ada", name)
	assert.Equal(t, "@ada", handle)
	assert.Equal(t, 1, images)
	assert.Len(t, f.Previews(), 1)

	last, _ := rec.Last()
	assert.Equal(t, notify.Notification{Level: notify.Error, Message: MsgFailed}, last)
}

func TestSubmit_BusyWhileSubmitting(t *testing.T) {
	sub := new(MockSubmitter)
	started := make(chan struct{})
	release := make(chan struct{})
	sub.On("Submit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&models.Submission{ID: "1"}, nil).Once()

	f := filledForm(t, sub, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = f.Submit(context.Background())
	}()
	<-started

	assert.Equal(t, Submitting, f.State())
	assert.ErrorIs(t, f.SetName("Bob"), ErrBusy)
	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	wg.Wait()
	assert.Equal(t, Editing, f.State())
	sub.AssertNumberOfCalls(t, "Submit", 1)
}

func TestSetImages_Previews(t *testing.T) {
	f := New(new(MockSubmitter), nil)
	require.NoError(t, f.SetImages([]models.ImageUpload{
		{Filename: "a.png", Data: pngBytes},
		{Filename: "b.jpg"},
	}))

	assert.Equal(t, []Preview{
		{Filename: "a.png", ContentType: "image/png", Size: len(pngBytes)},
		{Filename: "b.jpg", ContentType: "image/jpeg", Size: 0},
	}, f.Previews())
}

func TestReadImages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cat.png")
	require.NoError(t, os.WriteFile(path, pngBytes, 0o600))

	images, err := ReadImages(path)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "cat.png", images[0].Filename)
	assert.Equal(t, pngBytes, images[0].Data)

	_, err = ReadImages(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
