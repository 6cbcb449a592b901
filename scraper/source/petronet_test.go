package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zongseung/energyrag/config"
	"github.com/zongseung/energyrag/log"
)

const petronetPage = `
<html><body>
<table>
<tr><td><a href="/servlet/dvboard.FileDownloadV4?num=101&amp;fog=1">202501 석유수급통계.pdf</a></td></tr>
<tr><td><a href="#" onclick="javascript:fnDown('/servlet/dvboard.FileDownloadV4?num=102&fog=1');">202412 석유수급통계.pdf</a></td></tr>
<tr><td><a href="/servlet/dvboard.FileDownloadV4?num=101&amp;fog=1">중복 링크</a></td></tr>
</table>
<ul class="pagination">
  <li><a onclick="goPage('1','list')">1</a></li>
  <li><a onclick="goPage('2','list')">2</a></li>
  <li><a class="last" onclick="goPage('37','list')">끝</a></li>
</ul>
</body></html>`

func TestPetronetFetchParsesBoard(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		fmt.Fprint(w, petronetPage)
	}))
	defer srv.Close()

	p := NewPetronet(config.HTTPConfig{}, &log.NoOpLogger{})
	p.baseURL = srv.URL

	batch, hasNext, err := p.Fetch(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, hasNext)

	// Paging fields: 1-based page, 0-based block, absolute offsets.
	assert.Equal(t, "3", form.Get("thisPage"))
	assert.Equal(t, "0", form.Get("thisBlock"))
	assert.Equal(t, "20", form.Get("SELVOLUMNM"))
	assert.Equal(t, "30", form.Get("PAGE_TOTAL"))
	assert.Equal(t, "REPORTAND", form.Get("fmuId"))

	// href link, onclick link, duplicate collapsed.
	require.Len(t, batch, 2)
	assert.Equal(t, "https://www.petronet.co.kr/servlet/dvboard.FileDownloadV4?num=101&fog=1", batch[0].PDFURL)
	assert.Equal(t, "https://www.petronet.co.kr/servlet/dvboard.FileDownloadV4?num=102&fog=1", batch[1].PDFURL)
	assert.Empty(t, batch[0].Title, "board rows carry no usable title")
	assert.Equal(t, batch[0].PDFURL, batch[0].ID)
}

func TestPetronetFetchLastPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, petronetPage)
	}))
	defer srv.Close()

	p := NewPetronet(config.HTTPConfig{}, &log.NoOpLogger{})
	p.baseURL = srv.URL

	_, hasNext, err := p.Fetch(context.Background(), 37)
	require.NoError(t, err)
	assert.False(t, hasNext)
}

func TestPetronetTotalPagesFallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No goPage handlers; only numeric labels.
		fmt.Fprint(w, `<html><body>
			<a href="/servlet/dvboard.FileDownloadV4?num=1">f</a>
			<ul class="pagination"><li><a>1</a></li><li><a>5</a></li></ul>
			</body></html>`)
	}))
	defer srv.Close()

	p := NewPetronet(config.HTTPConfig{}, &log.NoOpLogger{})
	p.baseURL = srv.URL

	_, hasNext, err := p.Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, hasNext)
	assert.Equal(t, 5, p.totalPages)
}
