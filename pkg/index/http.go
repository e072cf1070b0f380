package index

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "flickrbackup/pkg/errors"
	"flickrbackup/pkg/logger"
)

// HTTPSink PUTs documents to a search server at <base>/<index>/_doc/<id>
type HTTPSink struct {
	baseURL    string
	index      string
	httpClient *http.Client
	logger     logger.Logger
}

// NewHTTPSink creates a sink for the search server at baseURL
func NewHTTPSink(baseURL, index string, hc *http.Client, log logger.Logger) *HTTPSink {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if index == "" {
		index = "flickr"
	}
	return &HTTPSink{
		baseURL:    strings.TrimRight(baseURL, "/"),
		index:      index,
		httpClient: hc,
		logger:     log.WithField("component", "index"),
	}
}

// Upsert stores body under photoID
func (s *HTTPSink) Upsert(ctx context.Context, photoID string, body []byte) error {
	endpoint := fmt.Sprintf("%s/%s/_doc/%s", s.baseURL, url.PathEscape(s.index), url.PathEscape(photoID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &errs.Error{Type: errs.ErrorTypeRemoteTransport, Op: "index", Message: "network error", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	s.logger.DebugWithFields("Document indexed", map[string]interface{}{
		"photo_id": photoID,
		"status":   resp.StatusCode,
	})
	if resp.StatusCode >= 300 {
		return &errs.Error{
			Type:    errs.TypeForStatus(resp.StatusCode),
			Op:      "index",
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
	return nil
}

func (s *HTTPSink) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
