// Package nas mirrors completed artifacts to NAS storage over FTP.
package nas

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jlaffaye/ftp"

	"github.com/zongseung/energyrag/config"
	"github.com/zongseung/energyrag/log"
)

// Conn is the slice of the FTP session the uploader needs. *ftp.ServerConn
// satisfies it; tests substitute a fake.
type Conn interface {
	ChangeDir(path string) error
	MakeDir(path string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

// Dialer opens a logged-in FTP session.
type Dialer func(ctx context.Context) (Conn, error)

// Uploader pushes local artifacts to the NAS over FTP, retrying the
// whole connect-login-navigate-store sequence on any failure.
type Uploader struct {
	dial    Dialer
	retries int
	folder  string
	logger  log.Logger
}

// New creates an Uploader from NAS config. Fails fast when credentials
// are missing.
func New(cfg config.NASConfig, logger log.Logger) (*Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dial := func(ctx context.Context) (Conn, error) {
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(cfg.Timeout))
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", addr, err)
		}
		if err := conn.Login(cfg.Username, cfg.Password); err != nil {
			conn.Quit()
			return nil, fmt.Errorf("login: %w", err)
		}
		return conn, nil
	}
	return &Uploader{dial: dial, retries: cfg.Retries, folder: cfg.Folder, logger: logger}, nil
}

// NewWithDialer creates an Uploader with a custom session dialer.
func NewWithDialer(dial Dialer, retries int, folder string, logger log.Logger) *Uploader {
	return &Uploader{dial: dial, retries: retries, folder: folder, logger: logger}
}

// Upload transmits a local file to destDir (default folder when empty)
// and returns the canonical remote path.
func (u *Uploader) Upload(ctx context.Context, localPath, destDir string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("local file missing: %w", err)
	}
	defer f.Close()

	return u.store(ctx, filepath.Base(localPath), destDir, func() (io.Reader, error) {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return f, nil
	})
}

// UploadBytes transmits an in-memory payload under the given filename.
func (u *Uploader) UploadBytes(ctx context.Context, data []byte, filename, destDir string) (string, error) {
	return u.store(ctx, filename, destDir, func() (io.Reader, error) {
		return bytes.NewReader(data), nil
	})
}

// store runs the full session sequence once per attempt; each retry gets
// a fresh connection and re-reads the payload from the start.
func (u *Uploader) store(ctx context.Context, filename, destDir string, open func() (io.Reader, error)) (string, error) {
	dir := destDir
	if dir == "" {
		dir = u.folder
	}
	remotePath := strings.TrimRight(dir, "/") + "/" + filename
	if !strings.HasPrefix(remotePath, "/") {
		remotePath = "/" + remotePath
	}

	var lastErr error
	for attempt := 0; attempt <= u.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		err := u.attempt(ctx, filename, dir, open)
		if err == nil {
			u.logger.Info("[NAS] uploaded %s", remotePath)
			return remotePath, nil
		}
		lastErr = err
		u.logger.Warn("[NAS] attempt %d/%d failed: %v", attempt+1, u.retries+1, err)
	}
	return "", fmt.Errorf("nas upload failed: %s -> %s: %w", filename, dir, lastErr)
}

func (u *Uploader) attempt(ctx context.Context, filename, dir string, open func() (io.Reader, error)) error {
	conn, err := u.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit()

	if err := makeDirs(conn, dir); err != nil {
		return err
	}
	r, err := open()
	if err != nil {
		return err
	}
	if err := conn.Stor(filename, r); err != nil {
		return fmt.Errorf("stor %s: %w", filename, err)
	}
	return nil
}

// makeDirs walks the destination path segment by segment, creating
// missing directories and tolerating ones that already exist.
func makeDirs(conn Conn, dir string) error {
	if path.IsAbs(dir) {
		if err := conn.ChangeDir("/"); err != nil {
			return err
		}
	}
	for _, part := range strings.Split(dir, "/") {
		if part == "" {
			continue
		}
		if err := conn.ChangeDir(part); err != nil {
			if err := conn.MakeDir(part); err != nil {
				return fmt.Errorf("mkdir %s: %w", part, err)
			}
			if err := conn.ChangeDir(part); err != nil {
				return fmt.Errorf("chdir %s: %w", part, err)
			}
		}
	}
	return nil
}
