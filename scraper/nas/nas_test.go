package nas

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zongseung/energyrag/log"
)

type fakeConn struct {
	dirs    map[string]bool
	cwd     []string
	stored  map[string][]byte
	failure error
	quit    bool
}

func newFakeConn(existing ...string) *fakeConn {
	dirs := map[string]bool{"/": true}
	for _, d := range existing {
		dirs[d] = true
	}
	return &fakeConn{dirs: dirs, stored: make(map[string][]byte)}
}

func (c *fakeConn) path(extra ...string) string {
	parts := append(append([]string{}, c.cwd...), extra...)
	return "/" + joinSlash(parts)
}

func joinSlash(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += p
	}
	return out
}

func (c *fakeConn) ChangeDir(path string) error {
	if path == "/" {
		c.cwd = nil
		return nil
	}
	if !c.dirs[c.path(path)] {
		return errors.New("550 no such directory")
	}
	c.cwd = append(c.cwd, path)
	return nil
}

func (c *fakeConn) MakeDir(path string) error {
	c.dirs[c.path(path)] = true
	return nil
}

func (c *fakeConn) Stor(path string, r io.Reader) error {
	if c.failure != nil {
		return c.failure
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.stored[c.path(path)] = data
	return nil
}

func (c *fakeConn) Quit() error {
	c.quit = true
	return nil
}

func writeLocal(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUploadCreatesDirectoryTree(t *testing.T) {
	conn := newFakeConn()
	u := NewWithDialer(func(ctx context.Context) (Conn, error) {
		return conn, nil
	}, 2, "/db/petro", &log.NoOpLogger{})

	remote, err := u.Upload(context.Background(), writeLocal(t, "%PDF data"), "")
	require.NoError(t, err)
	assert.Equal(t, "/db/petro/report.pdf", remote)
	assert.Equal(t, []byte("%PDF data"), conn.stored["/db/petro/report.pdf"])
	assert.True(t, conn.dirs["/db"])
	assert.True(t, conn.dirs["/db/petro"])
	assert.True(t, conn.quit)
}

func TestUploadRetriesWholeSequence(t *testing.T) {
	var conns []*fakeConn
	u := NewWithDialer(func(ctx context.Context) (Conn, error) {
		conn := newFakeConn()
		if len(conns) < 2 {
			conn.failure = errors.New("426 transfer aborted")
		}
		conns = append(conns, conn)
		return conn, nil
	}, 2, "/naverResearch", &log.NoOpLogger{})

	remote, err := u.Upload(context.Background(), writeLocal(t, "pdf bytes"), "")
	require.NoError(t, err)
	assert.Equal(t, "/naverResearch/report.pdf", remote)

	// Two failed sessions, one successful transfer; every session closed.
	require.Len(t, conns, 3)
	assert.Empty(t, conns[0].stored)
	assert.Empty(t, conns[1].stored)
	assert.Len(t, conns[2].stored, 1)
	for _, c := range conns {
		assert.True(t, c.quit)
	}
}

func TestUploadExhaustsRetryBudget(t *testing.T) {
	var dials int
	u := NewWithDialer(func(ctx context.Context) (Conn, error) {
		dials++
		return nil, errors.New("connection refused")
	}, 2, "/db", &log.NoOpLogger{})

	_, err := u.Upload(context.Background(), writeLocal(t, "x"), "")
	assert.ErrorContains(t, err, "nas upload failed")
	assert.Equal(t, 3, dials)
}

func TestUploadBytes(t *testing.T) {
	conn := newFakeConn("/stats")
	u := NewWithDialer(func(ctx context.Context) (Conn, error) {
		return conn, nil
	}, 0, "/stats", &log.NoOpLogger{})

	remote, err := u.UploadBytes(context.Background(), []byte("payload"), "stat.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, "/stats/stat.pdf", remote)
	assert.Equal(t, []byte("payload"), conn.stored["/stats/stat.pdf"])
}

func TestUploadMissingLocalFile(t *testing.T) {
	u := NewWithDialer(func(ctx context.Context) (Conn, error) {
		t.Fatal("dial should not be reached")
		return nil, nil
	}, 2, "/db", &log.NoOpLogger{})

	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), "")
	assert.ErrorContains(t, err, "local file missing")
}
