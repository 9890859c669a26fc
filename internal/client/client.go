// Package client talks to the submission server's REST API. Both the
// submission form and the listing dashboard go through it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/parisxmas/OxiDB/OxiSubmit/internal/models"
)

const defaultTimeout = 30 * time.Second

// quoteEscaper escapes a filename for a quoted Content-Disposition param,
// as mime/multipart does for its own file parts.
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// APIError is a non-200 response from the server.
type APIError struct {
	Status  int
	Message string
	Detail  string
	Missing []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if len(e.Missing) > 0 {
		msg += " (missing " + strings.Join(e.Missing, ", ") + ")"
	}
	return msg
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type SubmitRequest struct {
	Name         string
	SocialHandle string
	Images       []models.ImageUpload
}

type submitResponse struct {
	Message string            `json:"message"`
	User    models.Submission `json:"user"`
}

type listResponse struct {
	Message    string              `json:"message"`
	Users      []models.Submission `json:"users"`
	TotalUsers int                 `json:"totalUsers"`
}

type errorResponse struct {
	Message string   `json:"message"`
	Error   string   `json:"error"`
	Missing []string `json:"missing"`
}

// Submit posts the form as multipart/form-data to /api/users/add.
func (c *Client) Submit(ctx context.Context, in SubmitRequest) (*models.Submission, error) {
	body, contentType, err := encodeSubmission(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/users/add", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var out submitResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// List fetches every submission from /api/users/users.
func (c *Client) List(ctx context.Context) (*models.Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/users/users", nil)
	if err != nil {
		return nil, err
	}

	var out listResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.Users == nil {
		out.Users = []models.Submission{}
	}
	return &models.Listing{Users: out.Users, Total: out.TotalUsers}, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var er errorResponse
		if json.Unmarshal(data, &er) == nil {
			if er.Message != "" {
				apiErr.Message = er.Message
			}
			apiErr.Detail = er.Error
			apiErr.Missing = er.Missing
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func encodeSubmission(in SubmitRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("name", in.Name); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("socialHandle", in.SocialHandle); err != nil {
		return nil, "", err
	}
	for _, img := range in.Images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, quoteEscaper.Replace(img.Filename)))
		h.Set("Content-Type", img.DetectedContentType())
		w, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := w.Write(img.Data); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
