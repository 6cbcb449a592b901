// Package fetch downloads candidate documents, validating that the
// payload really is a PDF before committing it to the download
// directory.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/zongseung/energyrag/config"
	"github.com/zongseung/energyrag/log"
	"github.com/zongseung/energyrag/scraper"
)

// ErrNotPDF marks a payload that is not a PDF (typically an HTML error
// page). Callers treat it as a non-fatal skip, distinct from network
// failures; the payload is archived under the debug directory.
var ErrNotPDF = scraper.ErrNotPDF

const (
	sniffSize    = 64 * 1024
	retryBackoff = 1200 * time.Millisecond
)

var contentDispositionRe = regexp.MustCompile(`(?i)filename\*?=(?:UTF-8'')?"?([^";]+)"?`)

// Fetcher downloads candidates over a shared HTTP client.
type Fetcher struct {
	client  *resty.Client
	dir     string
	retries int
	logger  log.Logger

	debugSeq int
}

// New creates a Fetcher writing artifacts under downloadDir.
func New(cfg config.HTTPConfig, downloadDir string, logger log.Logger) *Fetcher {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/pdf,application/octet-stream,text/html;q=0.9,*/*;q=0.8")

	return &Fetcher{
		client:  client,
		dir:     downloadDir,
		retries: cfg.Retries,
		logger:  logger,
	}
}

// LocalPath returns where a candidate's artifact will be stored when the
// listing carries enough naming information. Candidates without a title
// are named from the response instead (see Fetch).
func (f *Fetcher) LocalPath(c scraper.Candidate) string {
	if strings.TrimSpace(c.Title) == "" {
		return ""
	}
	return filepath.Join(f.dir, scraper.BuildFilename(c.Title, c.Date, c.Company))
}

// Fetch downloads one candidate and returns the local path. Transient
// failures are retried with a fixed backoff; after exhausting retries a
// single non-streaming fallback request is attempted. Non-PDF payloads
// return ErrNotPDF.
func (f *Fetcher) Fetch(ctx context.Context, c scraper.Candidate) (string, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		path, err := f.fetchStreaming(ctx, c)
		if err == nil || errors.Is(err, ErrNotPDF) {
			return path, err
		}
		lastErr = err
		f.logger.Warn("[DL] attempt %d/%d failed for %s: %v", attempt+1, f.retries+1, c.PDFURL, err)
		if attempt < f.retries {
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	// Last resort: buffer the whole body in one plain request.
	path, err := f.fetchBuffered(ctx, c)
	if err == nil || errors.Is(err, ErrNotPDF) {
		if err == nil {
			f.logger.Info("[DL] fallback fetch succeeded: %s", path)
		}
		return path, err
	}
	return "", fmt.Errorf("download failed after %d attempts: %w (last stream error: %v)", f.retries+2, err, lastErr)
}

func (f *Fetcher) request(c scraper.Candidate) *resty.Request {
	req := f.client.R()
	if c.Referer != "" {
		req.SetHeader("Referer", c.Referer)
	}
	if len(c.Form) > 0 {
		req.SetFormData(c.Form)
	}
	return req
}

// execute issues GET for plain links and POST for form-backed downloads.
func (f *Fetcher) execute(req *resty.Request, c scraper.Candidate) (*resty.Response, error) {
	if len(c.Form) > 0 {
		return req.Post(c.PDFURL)
	}
	return req.Get(c.PDFURL)
}

func (f *Fetcher) fetchStreaming(ctx context.Context, c scraper.Candidate) (string, error) {
	resp, err := f.execute(f.request(c).
		SetContext(ctx).
		SetDoNotParseResponse(true), c)
	if err != nil {
		return "", err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	first := make([]byte, sniffSize)
	n, err := io.ReadFull(body, first)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	first = first[:n]
	if n == 0 {
		return "", errors.New("empty response body")
	}

	ctype := strings.ToLower(resp.Header().Get("Content-Type"))
	if !isPDF(first, ctype) {
		return "", f.archiveDebug(first, body)
	}

	path := f.resolvePath(c, resp.Header().Get("Content-Disposition"), finalURL(resp))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := out.Write(first); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(path)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	f.logger.Info("[DL] saved %s", path)
	return path, nil
}

func (f *Fetcher) fetchBuffered(ctx context.Context, c scraper.Candidate) (string, error) {
	resp, err := f.execute(f.request(c).SetContext(ctx), c)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() >= 400 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return "", errors.New("empty response body")
	}

	ctype := strings.ToLower(resp.Header().Get("Content-Type"))
	if !isPDF(body, ctype) {
		return "", f.archiveDebug(body, nil)
	}

	path := f.resolvePath(c, resp.Header().Get("Content-Disposition"), finalURL(resp))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func isPDF(first []byte, contentType string) bool {
	return bytes.Contains(first, []byte("%PDF")) || strings.Contains(contentType, "pdf")
}

// archiveDebug preserves a non-PDF payload for triage and returns ErrNotPDF.
func (f *Fetcher) archiveDebug(first []byte, rest io.Reader) error {
	debugDir := filepath.Join(f.dir, "debug")
	if err := os.MkdirAll(debugDir, 0o755); err != nil {
		f.logger.Warn("[DL] cannot create debug dir: %v", err)
		return ErrNotPDF
	}
	f.debugSeq++
	path := filepath.Join(debugDir, fmt.Sprintf("notpdf_%d.html", f.debugSeq))

	out, err := os.Create(path)
	if err != nil {
		f.logger.Warn("[DL] cannot archive payload: %v", err)
		return ErrNotPDF
	}
	defer out.Close()
	out.Write(first)
	if rest != nil {
		io.Copy(out, rest)
	}
	f.logger.Warn("[DL] non-pdf payload archived: %s", path)
	return ErrNotPDF
}

// resolvePath picks the artifact filename: the candidate's composed name
// when the listing had a title, else the response metadata, else a
// generated fallback.
func (f *Fetcher) resolvePath(c scraper.Candidate, disposition, respURL string) string {
	if strings.TrimSpace(c.Title) != "" {
		return f.LocalPath(c)
	}
	if name := filenameFromDisposition(disposition); name != "" {
		return filepath.Join(f.dir, scraper.SanitizeFilename(name))
	}
	if name := filenameFromURL(respURL); name != "" {
		return filepath.Join(f.dir, scraper.SanitizeFilename(name))
	}
	f.debugSeq++
	return filepath.Join(f.dir, fmt.Sprintf("file_%d.pdf", f.debugSeq))
}

func filenameFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		if name := params["filename"]; name != "" {
			return name
		}
	}
	if m := contentDispositionRe.FindStringSubmatch(disposition); m != nil {
		if unescaped, err := url.QueryUnescape(m[1]); err == nil {
			return strings.TrimSpace(unescaped)
		}
		return strings.TrimSpace(m[1])
	}
	return ""
}

func filenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if name := u.Query().Get("filename"); name != "" {
		if unescaped, err := url.QueryUnescape(name); err == nil {
			return unescaped
		}
		return name
	}
	return ""
}

func finalURL(resp *resty.Response) string {
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		return resp.RawResponse.Request.URL.String()
	}
	return resp.Request.URL
}
