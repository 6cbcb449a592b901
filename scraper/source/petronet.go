package source

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/zongseung/energyrag/config"
	"github.com/zongseung/energyrag/log"
	"github.com/zongseung/energyrag/scraper"
)

const (
	petronetName   = "petronet"
	petronetOrigin = "https://www.petronet.co.kr"
	petronetList   = petronetOrigin + "/v4/sub.jsp"

	downloadHrefPrefix = "/servlet/dvboard.FileDownloadV4"
	petronetPageUnit   = 10
)

var (
	goPageRe          = regexp.MustCompile(`goPage\('(\d+)'`)
	onclickDownloadRe = regexp.MustCompile(`['"](/servlet/dvboard\.FileDownloadV4[^'"]+)`)
)

// petronetBaseForm identifies the monthly report board.
var petronetBaseForm = map[string]string{
	"pageType": "list",
	"tbName":   "",
	"bbsSeq":   "",
	"fmuId":    "REPORTAND",
	"smuId":    "REPORT",
	"tmuId":    "PSBODB..TBREPORTFOG",
	"fmuOrd":   "02",
	"smuOrd":   "02_01",
	"tmuOrd":   "02_01_02",
}

// Petronet lists report attachments on the petronet.co.kr board, which
// pages through POST form submissions.
type Petronet struct {
	client *resty.Client
	logger log.Logger
	// baseURL overrides the live endpoint in tests.
	baseURL string

	totalPages int
}

var _ scraper.Source = (*Petronet)(nil)

// NewPetronet creates the adapter.
func NewPetronet(cfg config.HTTPConfig, logger log.Logger) *Petronet {
	client := newClient(cfg)
	client.SetHeaders(map[string]string{
		"Origin":  petronetOrigin,
		"Referer": petronetList,
		"Accept":  "application/pdf,application/octet-stream,text/html;q=0.9,*/*;q=0.8",
	})
	return &Petronet{client: client, logger: logger, baseURL: petronetList}
}

func (p *Petronet) Name() string { return petronetName }

// formFor renders the paging fields the board expects: a 0-based block
// index and absolute record offsets.
func formFor(page int) map[string]string {
	form := make(map[string]string, len(petronetBaseForm)+7)
	for k, v := range petronetBaseForm {
		form[k] = v
	}
	offset := (page - 1) * petronetPageUnit
	form["thisPage"] = strconv.Itoa(page)
	form["thisBlock"] = strconv.Itoa((page - 1) / petronetPageUnit)
	form["SELVOLUMNM"] = strconv.Itoa(offset)
	form["PAGE_TOTAL"] = strconv.Itoa(page * petronetPageUnit)
	form["DELETE_TOTAL"] = strconv.Itoa(offset)
	form["pageUnit"] = strconv.Itoa(petronetPageUnit)
	form["recordCountPerPage"] = strconv.Itoa(petronetPageUnit)
	return form
}

// Fetch posts one page of the board and extracts the attachment links.
// The candidates carry no title; the artifact is named from the download
// response.
func (p *Petronet) Fetch(ctx context.Context, page int) ([]scraper.Candidate, bool, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(formFor(page)).
		Post(p.baseURL)
	if err != nil {
		return nil, false, fmt.Errorf("petronet page %d: %w", page, err)
	}
	if resp.StatusCode() != 200 {
		return nil, false, fmt.Errorf("petronet page %d: status %d", page, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, false, fmt.Errorf("petronet page %d: %w", page, err)
	}

	if p.totalPages == 0 {
		p.totalPages = totalPagesOf(doc)
		p.logger.Info("[PETRONET] detected total pages: %d", p.totalPages)
	}

	links := downloadLinks(doc)
	p.logger.Info("[PETRONET] page %d: %d links", page, len(links))

	batch := make([]scraper.Candidate, 0, len(links))
	for _, link := range links {
		batch = append(batch, scraper.Candidate{
			Source:  petronetName,
			ID:      link,
			PDFURL:  link,
			Referer: p.baseURL,
		})
	}
	return batch, page < p.totalPages, nil
}

// totalPagesOf reads the page count from the pagination bar: the "last"
// anchor's goPage onclick first, then the largest goPage target, then
// the largest numeric label.
func totalPagesOf(doc *goquery.Document) int {
	if onclick, ok := doc.Find("ul.pagination a.last").Attr("onclick"); ok {
		if m := goPageRe.FindStringSubmatch(onclick); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}

	max := 1
	doc.Find("ul.pagination a[onclick]").Each(func(_ int, a *goquery.Selection) {
		onclick, _ := a.Attr("onclick")
		if m := goPageRe.FindStringSubmatch(onclick); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
	})
	if max > 1 {
		return max
	}

	doc.Find("ul.pagination a").Each(func(_ int, a *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(a.Text())); err == nil && n > max {
			max = n
		}
	})
	return max
}

// downloadLinks collects FileDownloadV4 targets from hrefs and onclick
// handlers, preserving order and dropping duplicates.
func downloadLinks(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var links []string
	add := func(href string) {
		full := resolveURL(petronetOrigin, href)
		if !seen[full] {
			seen[full] = true
			links = append(links, full)
		}
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if href, _ := a.Attr("href"); strings.HasPrefix(href, downloadHrefPrefix) {
			add(href)
		}
	})
	doc.Find("a[onclick]").Each(func(_ int, a *goquery.Selection) {
		onclick, _ := a.Attr("onclick")
		if m := onclickDownloadRe.FindStringSubmatch(onclick); m != nil {
			add(m[1])
		}
	})
	return links
}
