package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/stepform/stepform/pkg/logging"
)

// MediaRef is the backend's description of a stored file. Path is the
// durable storage identifier and is what gets persisted as the field's value;
// URL is a transient access link and must never be stored.
type MediaRef struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Download is a streamed media payload. The caller owns Body and must close
// it.
type Download struct {
	Body        io.ReadCloser
	ContentType string
	Disposition string
}

// UploadMedia streams one file to the backend's media store for the given
// field key and returns its storage reference.
func (c *Client) UploadMedia(ctx context.Context, sess Session, fieldKey, filename, contentType string, r io.Reader) (*MediaRef, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("backend: build multipart: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("backend: read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("backend: finish multipart: %w", err)
	}

	endpoint := c.baseURL + "/api/media/upload?fieldKey=" + url.QueryEscape(fieldKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req, sess)

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: upload %s: %w", fieldKey, err)
	}
	c.logger.Debug("media upload",
		logging.String("fieldKey", fieldKey),
		logging.Int("status", res.StatusCode),
		logging.Duration("elapsed", time.Since(start)))

	switch res.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var ref MediaRef
		if err := decodeJSON(res, &ref); err != nil {
			return nil, err
		}
		return &ref, nil
	case http.StatusUnauthorized:
		res.Body.Close()
		return nil, ErrUnauthorized
	default:
		return nil, &StatusError{Status: res.StatusCode, Body: drainText(res)}
	}
}

// DeleteMedia removes the stored file of a field. The caller clears the
// field's value afterwards.
func (c *Client) DeleteMedia(ctx context.Context, sess Session, fieldKey string) error {
	res, err := c.do(ctx, sess, http.MethodDelete, "/api/media?fieldKey="+url.QueryEscape(fieldKey), nil)
	if err != nil {
		return err
	}
	switch res.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		res.Body.Close()
		return nil
	case http.StatusUnauthorized:
		res.Body.Close()
		return ErrUnauthorized
	default:
		return &StatusError{Status: res.StatusCode, Body: drainText(res)}
	}
}

// DownloadMedia streams the stored file of a field, forwarding the backend's
// content headers.
func (c *Client) DownloadMedia(ctx context.Context, sess Session, fieldKey string) (*Download, error) {
	res, err := c.do(ctx, sess, http.MethodGet, "/api/media/download?fieldKey="+url.QueryEscape(fieldKey), nil)
	if err != nil {
		return nil, err
	}
	switch res.StatusCode {
	case http.StatusOK:
		return &Download{
			Body:        res.Body,
			ContentType: res.Header.Get("Content-Type"),
			Disposition: res.Header.Get("Content-Disposition"),
		}, nil
	case http.StatusUnauthorized:
		res.Body.Close()
		return nil, ErrUnauthorized
	default:
		return nil, &StatusError{Status: res.StatusCode, Body: drainText(res)}
	}
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
