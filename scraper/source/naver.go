package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/zongseung/energyrag/config"
	"github.com/zongseung/energyrag/log"
	"github.com/zongseung/energyrag/scraper"
)

const (
	naverName   = "naver_research"
	naverOrigin = "https://finance.naver.com"
	naverList   = naverOrigin + "/research/industry_list.naver"
	// Percent-encoded EUC-KR for the energy industry group.
	DefaultUpjong = "%BF%A1%B3%CA%C1%F6"
)

// Naver lists industry research reports on finance.naver.com.
type Naver struct {
	client *resty.Client
	logger log.Logger
	upjong string
	// baseURL overrides the live endpoint in tests.
	baseURL string
}

var _ scraper.Source = (*Naver)(nil)

// NewNaver creates the adapter; upjong selects the industry group and
// defaults to energy.
func NewNaver(cfg config.HTTPConfig, upjong string, logger log.Logger) *Naver {
	if upjong == "" {
		upjong = DefaultUpjong
	}
	return &Naver{client: newClient(cfg), logger: logger, upjong: upjong, baseURL: naverList}
}

func (n *Naver) Name() string { return naverName }

// listURL keeps upjong verbatim: it is already percent-encoded and must
// not be escaped again.
func (n *Naver) listURL(page int) string {
	return fmt.Sprintf("%s?searchType=upjong&upjong=%s&page=%d", n.baseURL, n.upjong, page)
}

// Fetch parses one listing page. The next-page probe is the td.pgR
// anchor in the pagination bar of the same document.
func (n *Naver) Fetch(ctx context.Context, page int) ([]scraper.Candidate, bool, error) {
	pageURL := n.listURL(page)
	resp, err := n.client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, false, fmt.Errorf("naver list page %d: %w", page, err)
	}
	if resp.StatusCode() != 200 {
		return nil, false, fmt.Errorf("naver list page %d: status %d", page, resp.StatusCode())
	}
	n.logger.Info("[NAVER] fetched %s", pageURL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, false, fmt.Errorf("naver list page %d: %w", page, err)
	}

	var batch []scraper.Candidate
	doc.Find("table.type_1 tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header row
		}
		cols := row.Find("td")
		if cols.Length() < 5 {
			return // spacer or notice row
		}

		titleCell := cols.Eq(1)
		viewHref, _ := titleCell.Find("a").Attr("href")
		pdfHref, ok := cols.Eq(3).Find("a").Attr("href")
		if viewHref == "" || !ok || pdfHref == "" {
			return
		}

		batch = append(batch, scraper.Candidate{
			Source:  naverName,
			ID:      nidFromURL(resolveURL(naverOrigin, viewHref)),
			Title:   strings.TrimSpace(titleCell.Text()),
			Company: strings.TrimSpace(cols.Eq(2).Text()),
			Date:    strings.TrimSpace(cols.Eq(4).Text()),
			PDFURL:  resolveURL(naverOrigin, pdfHref),
			Referer: naverOrigin,
		})
	})

	hasNext := doc.Find("td.pgR a").Length() > 0
	return batch, hasNext, nil
}

// nidFromURL extracts the report id from a detail link; the full URL is
// the fallback identifier.
func nidFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if nid := u.Query().Get("nid"); nid != "" {
		return nid
	}
	return raw
}

func resolveURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
