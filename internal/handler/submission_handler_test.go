package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/errdefs"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/service"
)

// MockSubmissionService is a testify mock for SubmissionService.
type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) Create(ctx context.Context, in service.CreateSubmissionInput) (*models.Submission, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Submission), args.Error(1)
}

func (m *MockSubmissionService) List(ctx context.Context) (*models.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

type part struct {
	filename, contentType string
	data                  []byte
}

func multipartBody(t *testing.T, fields map[string]string, images ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, img := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, img.filename))
		h.Set("Content-Type", img.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(img.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAdd_Success(t *testing.T) {
	svc := new(MockSubmissionService)
	h := NewSubmissionHandler(svc, 1<<20, zap.NewNop())

	svc.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreateSubmissionInput) bool {
		return in.Name == "Ada" && in.SocialHandle == "@ada" &&
			len(in.Images) == 2 &&
			in.Images[0].Filename == "a.png" && in.Images[0].ContentType == "image/png" &&
			string(in.Images[0].Data) == "AAA" &&
			in.Images[1].Filename == "b.jpg"
	})).Return(&models.Submission{
		ID:           "1",
		Name:         "Ada",
		SocialHandle: "@ada",
		Images:       []string{"uploads/a.png", "uploads/b.jpg"},
	}, nil)

	body, ct := multipartBody(t, map[string]string{"name": "Ada", "socialHandle": "@ada"},
		part{"a.png", "image/png", []byte("AAA")},
		part{"b.jpg", "image/jpeg", []byte("BBB")},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/users/add", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.Equal(t, "User added successfully", resp["message"])
	user := resp["user"].(map[string]any)
	assert.Equal(t, "1", user["id"])
	assert.Equal(t, []any{"uploads/a.png", "uploads/b.jpg"}, user["images"])
	svc.AssertExpectations(t)
}

func TestAdd_ValidationError(t *testing.T) {
	svc := new(MockSubmissionService)
	h := NewSubmissionHandler(svc, 1<<20, zap.NewNop())
	svc.On("Create", mock.Anything, mock.Anything).
		Return(nil, &errdefs.ValidationError{Missing: []string{"socialHandle", "images"}})

	body, ct := multipartBody(t, map[string]string{"name": "Ada"})
	req := httptest.NewRequest(http.MethodPost, "/api/users/add", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "All fields are required", resp["message"])
	assert.Equal(t, []any{"socialHandle", "images"}, resp["missing"])
}

func TestAdd_NotMultipart(t *testing.T) {
	svc := new(MockSubmissionService)
	h := NewSubmissionHandler(svc, 1<<20, zap.NewNop())
	svc.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreateSubmissionInput) bool {
		return in.Name == "" && len(in.Images) == 0
	})).Return(nil, &errdefs.ValidationError{Missing: []string{"name", "socialHandle", "images"}})

	req := httptest.NewRequest(http.MethodPost, "/api/users/add", strings.NewReader(`{"name":"Ada"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdd_ServerErrors(t *testing.T) {
	for _, sentinel := range []error{errdefs.ErrStorage, errdefs.ErrPersistence} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			svc := new(MockSubmissionService)
			h := NewSubmissionHandler(svc, 1<<20, zap.NewNop())
			svc.On("Create", mock.Anything, mock.Anything).
				Return(nil, fmt.Errorf("%w: connection refused", sentinel))

			body, ct := multipartBody(t, map[string]string{"name": "Ada", "socialHandle": "@ada"},
				part{"a.png", "image/png", []byte("A")})
			req := httptest.NewRequest(http.MethodPost, "/api/users/add", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			h.Add(rec, req)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			resp := decode(t, rec)
			assert.Equal(t, "Server error", resp["message"])
			assert.Contains(t, resp["error"], "connection refused")
		})
	}
}

func TestAdd_TooLarge(t *testing.T) {
	svc := new(MockSubmissionService)
	h := NewSubmissionHandler(svc, 1024, zap.NewNop())

	body, ct := multipartBody(t, map[string]string{"name": "Ada", "socialHandle": "@ada"},
		part{"big.png", "image/png", bytes.Repeat([]byte("x"), 4096)})
	req := httptest.NewRequest(http.MethodPost, "/api/users/add", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, rec.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestList_Success(t *testing.T) {
	svc := new(MockSubmissionService)
	h := NewSubmissionHandler(svc, 1<<20, zap.NewNop())
	svc.On("List", mock.Anything).Return(&models.Listing{
		Users: []models.Submission{{ID: "1", Name: "Ada", SocialHandle: "@ada", Images: []string{"x"}}},
		Total: 1,
	}, nil)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/users/users", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "Users fetched successfully", resp["message"])
	assert.Equal(t, float64(1), resp["totalUsers"])
	assert.Len(t, resp["users"], 1)
}

func TestList_Empty(t *testing.T) {
	svc := new(MockSubmissionService)
	h := NewSubmissionHandler(svc, 1<<20, zap.NewNop())
	svc.On("List", mock.Anything).Return(&models.Listing{Users: []models.Submission{}}, nil)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/users/users", nil))

	assert.JSONEq(t, `{"message":"Users fetched successfully","users":[],"totalUsers":0}`, rec.Body.String())
}

func TestList_Failure(t *testing.T) {
	svc := new(MockSubmissionService)
	h := NewSubmissionHandler(svc, 1<<20, zap.NewNop())
	svc.On("List", mock.Anything).Return(nil, fmt.Errorf("%w: timeout", errdefs.ErrPersistence))

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/users/users", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", decode(t, rec)["message"])
}

type fakeBlobs struct {
	data        []byte
	contentType string
	err         error
}

func (f fakeBlobs) Get(context.Context, string) ([]byte, string, error) {
	return f.data, f.contentType, f.err
}

func serveBlob(h *BlobHandler, key string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/blobs/{key}", h.Download)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blobs/"+key, nil))
	return rec
}

func TestBlobDownload(t *testing.T) {
	rec := serveBlob(NewBlobHandler(fakeBlobs{data: []byte("png"), contentType: "image/png"}), "k")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png", rec.Body.String())

	rec = serveBlob(NewBlobHandler(fakeBlobs{err: fmt.Errorf("blob: %w", errdefs.ErrNotFound)}), "k")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serveBlob(NewBlobHandler(fakeBlobs{err: errors.New("conn reset")}), "k")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(func(context.Context) error { return nil }).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewHealthHandler(func(context.Context) error { return errors.New("down") }).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
