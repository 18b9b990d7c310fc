// Package api implements the HTTP client for the TamteKlipy backend. It owns
// the wire contract (multipart uploads, chunk and finalize requests) and maps
// transport and backend failures onto the stable error-kind taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/tamteklipy/tkcli/internal/client/auth"
	"github.com/tamteklipy/tkcli/internal/client/models"
	"github.com/tamteklipy/tkcli/internal/common"
	"github.com/tamteklipy/tkcli/internal/logging"
)

// ProgressFunc receives transfer progress as (sent, total) bytes of one
// request body.
type ProgressFunc func(sent, total int64)

// Client is the backend surface consumed by the upload pipeline and the CLI.
type Client interface {
	Login(ctx context.Context, username, password string) (string, error)
	UploadFile(ctx context.Context, p models.Payload, fn ProgressFunc) (int64, error)
	UploadChunk(ctx context.Context, c models.Chunk, fn ProgressFunc) error
	CompleteUpload(ctx context.Context, uploadID, fileHash string) (int64, error)
	AbortUpload(ctx context.Context, uploadID string) error
	ThumbnailReady(ctx context.Context, clipID int64) (bool, error)
	ListClips(ctx context.Context, page, limit int) (models.ClipPage, error)
}

// HTTPClient talks to the TamteKlipy API over HTTP. The bearer token is read
// from the token store on every request; the client never inspects it.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  *auth.TokenStore
	log     logging.Logger
}

func NewHTTPClient(baseURL string, tokens *auth.TokenStore, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tokens:  tokens,
		log:     log,
	}
}

// Login exchanges credentials for an access token. The caller decides
// whether to persist it.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", common.NewUploadError(common.KindUnknown, "login response carried no token")
	}
	return out.AccessToken, nil
}

// UploadFile sends the whole payload in one multipart POST and returns the
// backend-assigned clip id.
func (c *HTTPClient) UploadFile(ctx context.Context, p models.Payload, fn ProgressFunc) (int64, error) {
	body, contentType, err := multipartBody(nil, "file", p.Filename, p.MediaType, p.Reader())
	if err != nil {
		return 0, err
	}

	var out struct {
		ClipID int64 `json:"clip_id"`
	}
	if err := c.upload(ctx, "/files/upload", body, contentType, fn, &out); err != nil {
		return 0, err
	}
	return out.ClipID, nil
}

// UploadChunk sends one chunk of a chunked upload. The chunk carries its
// index, the total count and the shared upload id; the content hash rides
// only on the final-indexed chunk.
func (c *HTTPClient) UploadChunk(ctx context.Context, ch models.Chunk, fn ProgressFunc) error {
	fields := map[string]string{
		"upload_id":    ch.UploadID,
		"chunk_number": strconv.Itoa(ch.Index),
		"total_chunks": strconv.Itoa(ch.Total),
		"filename":     ch.Filename,
	}
	if ch.FileHash != "" {
		fields["file_hash"] = ch.FileHash
	}

	body, contentType, err := multipartBody(fields, "chunk", ch.Filename, "application/octet-stream", ch.Data)
	if err != nil {
		return err
	}
	return c.upload(ctx, "/files/upload-chunk", body, contentType, fn, nil)
}

// CompleteUpload asks the backend to reassemble and verify a chunked upload.
func (c *HTTPClient) CompleteUpload(ctx context.Context, uploadID, fileHash string) (int64, error) {
	payload, err := json.Marshal(map[string]string{
		"upload_id": uploadID,
		"file_hash": fileHash,
	})
	if err != nil {
		return 0, fmt.Errorf("encoding finalize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/complete-upload",
		bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("building finalize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		ClipID int64 `json:"clip_id"`
	}
	if err := c.do(req, &out); err != nil {
		return 0, err
	}
	return out.ClipID, nil
}

// AbortUpload tells the backend to discard the partial chunked upload.
func (c *HTTPClient) AbortUpload(ctx context.Context, uploadID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/files/upload-chunk/"+url.PathEscape(uploadID), nil)
	if err != nil {
		return fmt.Errorf("building abort request: %w", err)
	}
	return c.do(req, nil)
}

// ThumbnailReady reports whether the backend has generated a thumbnail for
// the clip yet.
func (c *HTTPClient) ThumbnailReady(ctx context.Context, clipID int64) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/files/clip/%d/status", c.baseURL, clipID), nil)
	if err != nil {
		return false, fmt.Errorf("building status request: %w", err)
	}

	var out struct {
		ClipID       int64 `json:"clip_id"`
		HasThumbnail bool  `json:"has_thumbnail"`
	}
	if err := c.do(req, &out); err != nil {
		return false, err
	}
	return out.HasThumbnail, nil
}

// ListClips fetches one page of the clip listing.
func (c *HTTPClient) ListClips(ctx context.Context, page, limit int) (models.ClipPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/clips?"+q.Encode(), nil)
	if err != nil {
		return models.ClipPage{}, fmt.Errorf("building clips request: %w", err)
	}

	var out models.ClipPage
	if err := c.do(req, &out); err != nil {
		return models.ClipPage{}, err
	}
	return out, nil
}

// upload issues a request whose body is tracked by a progress reader.
func (c *HTTPClient) upload(ctx context.Context, path string, body []byte, contentType string, fn ProgressFunc, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		newProgressReader(bytes.NewReader(body), int64(len(body)), fn))
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(body))

	return c.do(req, out)
}

// do executes the request with the bearer token attached, maps failures to
// upload error kinds and decodes a JSON response into out when given.
func (c *HTTPClient) do(req *http.Request, out any) error {
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportError(req.Context(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return mapTransportError(req.Context(), err)
	}

	if resp.StatusCode >= 400 {
		return mapStatusError(resp.StatusCode, raw)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return common.NewUploadError(common.KindUnknown,
				fmt.Sprintf("undecodable response: %v", err))
		}
	}
	return nil
}

// multipartBody assembles a multipart form with the given plain fields and a
// single file part. Field order follows the backend contract: metadata first,
// file part last.
func multipartBody(fields map[string]string, fileField, filename, mediaType string, data io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, k := range []string{"upload_id", "chunk_number", "total_chunks", "filename", "file_hash"} {
		if v, ok := fields[k]; ok {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", fmt.Errorf("writing field %s: %w", k, err)
			}
		}
	}

	part, err := createFilePart(w, fileField, filename, mediaType)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, "", fmt.Errorf("copying payload: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func createFilePart(w *multipart.Writer, field, filename, mediaType string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", mediaType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	return part, nil
}
