package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/logging"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
	"github.com/parisxmas/OxiDB/OxiSubmit/internal/service"
)

// multipart parts above this size spill to temporary files
const maxMemory = 8 << 20

type SubmissionService interface {
	Create(ctx context.Context, in service.CreateSubmissionInput) (*models.Submission, error)
	List(ctx context.Context) (*models.Listing, error)
}

type SubmissionHandler struct {
	svc       SubmissionService
	maxUpload int64
	logger    *zap.Logger
}

func NewSubmissionHandler(svc SubmissionService, maxUpload int64, logger *zap.Logger) *SubmissionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionHandler{svc: svc, maxUpload: maxUpload, logger: logger}
}

// Add handles POST /api/users/add: a multipart body with name,
// socialHandle and one or more images parts.
func (h *SubmissionHandler) Add(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context(), h.logger)
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"message": "Upload too large",
				"error":   fmt.Sprintf("request body exceeds %d bytes", h.maxUpload),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"message": "Invalid form data",
			"error":   err.Error(),
		})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	images, err := readImages(r.MultipartForm)
	if err != nil {
		logger.Error("read uploaded images", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": "Server error",
			"error":   err.Error(),
		})
		return
	}

	sub, err := h.svc.Create(r.Context(), service.CreateSubmissionInput{
		Name:         r.FormValue("name"),
		SocialHandle: r.FormValue("socialHandle"),
		Images:       images,
	})
	if err != nil {
		if statusFor(err) >= http.StatusInternalServerError {
			logger.Error("create submission", zap.Error(err))
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User added successfully",
		"user":    sub,
	})
}

// List handles GET /api/users/users.
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	listing, err := h.svc.List(r.Context())
	if err != nil {
		logging.FromContext(r.Context(), h.logger).Error("list submissions", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Users fetched successfully",
		"users":      listing.Users,
		"totalUsers": listing.Total,
	})
}

func readImages(form *multipart.Form) ([]models.ImageUpload, error) {
	if form == nil {
		return nil, nil
	}
	headers := form.File["images"]
	images := make([]models.ImageUpload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", fh.Filename, err)
		}
		images = append(images, models.ImageUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return images, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
