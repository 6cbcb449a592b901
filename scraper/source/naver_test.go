package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zongseung/energyrag/config"
	"github.com/zongseung/energyrag/log"
)

const naverPageOne = `
<html><body>
<table class="type_1">
<tr><th>종목</th><th>제목</th><th>증권사</th><th>첨부</th><th>작성일</th></tr>
<tr><td colspan="5">공지</td></tr>
<tr>
  <td>에너지</td>
  <td><a href="/research/industry_read.naver?nid=12345">정유 업황 점검</a></td>
  <td>X증권</td>
  <td><a href="https://stock.pstatic.net/stock-research/industry/64/20250102_industry_1.pdf">pdf</a></td>
  <td>25.01.02</td>
</tr>
<tr>
  <td>에너지</td>
  <td><a href="/research/industry_read.naver?nid=12346">전력 수요 전망</a></td>
  <td>Y증권</td>
  <td><a href="/research/files/20250103_industry_2.pdf">pdf</a></td>
  <td>25.01.03</td>
</tr>
</table>
<table class="Nnavi"><tr>%s</tr></table>
</body></html>`

func TestNaverFetchParsesListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upjong", r.URL.Query().Get("searchType"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		fmt.Fprintf(w, naverPageOne, `<td class="pgR"><a href="?page=2">다음</a></td>`)
	}))
	defer srv.Close()

	n := NewNaver(config.HTTPConfig{}, "", &log.NoOpLogger{})
	n.baseURL = srv.URL

	batch, hasNext, err := n.Fetch(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, hasNext)
	require.Len(t, batch, 2)

	first := batch[0]
	assert.Equal(t, "naver_research", first.Source)
	assert.Equal(t, "12345", first.ID)
	assert.Equal(t, "정유 업황 점검", first.Title)
	assert.Equal(t, "X증권", first.Company)
	assert.Equal(t, "25.01.02", first.Date)
	assert.Equal(t, "https://stock.pstatic.net/stock-research/industry/64/20250102_industry_1.pdf", first.PDFURL)
	assert.Equal(t, "https://finance.naver.com", first.Referer)

	// Relative pdf hrefs resolve against the site origin.
	assert.Equal(t, "https://finance.naver.com/research/files/20250103_industry_2.pdf", batch[1].PDFURL)
}

func TestNaverFetchLastPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, naverPageOne, `<td class="on">3</td>`)
	}))
	defer srv.Close()

	n := NewNaver(config.HTTPConfig{}, "", &log.NoOpLogger{})
	n.baseURL = srv.URL

	_, hasNext, err := n.Fetch(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, hasNext)
}

func TestNaverFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewNaver(config.HTTPConfig{}, "", &log.NoOpLogger{})
	n.baseURL = srv.URL

	_, _, err := n.Fetch(context.Background(), 1)
	assert.ErrorContains(t, err, "status 403")
}
