package source

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/zongseung/energyrag/config"
	"github.com/zongseung/energyrag/log"
	"github.com/zongseung/energyrag/scraper"
)

const (
	knrecName   = "knrec"
	knrecOrigin = "https://www.knrec.or.kr"
	knrecList   = knrecOrigin + "/biz/korea/briefing/list.do"
)

var (
	// file_down('1290','1','briefing'), whitespace tolerated.
	fileDownRe = regexp.MustCompile(`file_down\(\s*['"](\d+)['"]\s*,\s*['"](\d+)['"]\s*,\s*['"]([^'"]+)['"]\s*\)`)
	// fn_move(5) in the pagination bar.
	fnMoveRe = regexp.MustCompile(`fn_move\((\d+)\)`)
	// hidden inputs of the list form, replayed on page changes.
	hiddenInputRe = regexp.MustCompile(`<input[^>]*type=["']hidden["'][^>]*name=["']([^"']+)["'][^>]*value=["']([^"']*)["']`)
)

// Knrec lists briefing attachments on knrec.or.kr. Page one is a GET;
// later pages replay the form's hidden fields with a pageIndex.
type Knrec struct {
	client *resty.Client
	logger log.Logger
	// baseURL overrides the live endpoint in tests.
	baseURL string

	formParams map[string]string
	maxPage    int
}

var _ scraper.Source = (*Knrec)(nil)

// NewKnrec creates the adapter.
func NewKnrec(cfg config.HTTPConfig, logger log.Logger) *Knrec {
	client := newClient(cfg)
	client.SetHeader("Referer", knrecList)
	return &Knrec{client: client, logger: logger, baseURL: knrecList}
}

func (k *Knrec) Name() string { return knrecName }

// Fetch scans one listing page for file_down handlers.
func (k *Knrec) Fetch(ctx context.Context, page int) ([]scraper.Candidate, bool, error) {
	html, err := k.fetchListPage(ctx, page)
	if err != nil {
		return nil, false, err
	}

	if page == 1 || k.maxPage == 0 {
		k.formParams = hiddenParams(html)
		k.maxPage = maxPageOf(html)
		k.logger.Info("[KNREC] detected max page: %d", k.maxPage)
	}

	var batch []scraper.Candidate
	seen := make(map[string]bool)
	for _, m := range fileDownRe.FindAllStringSubmatch(html, -1) {
		no, gubun, kinds := m[1], m[2], m[3]
		id := no + "_" + gubun + "_" + kinds
		if seen[id] {
			continue
		}
		seen[id] = true
		batch = append(batch, scraper.Candidate{
			Source:  knrecName,
			ID:      id,
			PDFURL:  fmt.Sprintf("%s/biz/file/File_down.do?no=%s&gubun=%s&kinds=%s", knrecOrigin, no, gubun, kinds),
			Referer: k.baseURL,
		})
	}
	k.logger.Info("[KNREC] page %d: %d attachments", page, len(batch))

	return batch, page < k.maxPage, nil
}

// fetchListPage gets page one plainly and posts the replayed hidden
// fields for later pages, falling back to a GET query when the server
// ignores the form.
func (k *Knrec) fetchListPage(ctx context.Context, page int) (string, error) {
	if page == 1 || len(k.formParams) == 0 {
		resp, err := k.client.R().SetContext(ctx).Get(k.baseURL)
		if err != nil {
			return "", fmt.Errorf("knrec page %d: %w", page, err)
		}
		if resp.StatusCode() != 200 {
			return "", fmt.Errorf("knrec page %d: status %d", page, resp.StatusCode())
		}
		return resp.String(), nil
	}

	form := make(map[string]string, len(k.formParams)+1)
	for key, value := range k.formParams {
		form[key] = value
	}
	form["pageIndex"] = strconv.Itoa(page)

	resp, err := k.client.R().SetContext(ctx).SetFormData(form).Post(k.baseURL)
	if err != nil {
		return "", fmt.Errorf("knrec page %d: %w", page, err)
	}
	if resp.StatusCode() == 404 {
		resp, err = k.client.R().SetContext(ctx).Get(fmt.Sprintf("%s?pageIndex=%d", k.baseURL, page))
		if err != nil {
			return "", fmt.Errorf("knrec page %d: %w", page, err)
		}
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("knrec page %d: status %d", page, resp.StatusCode())
	}
	return resp.String(), nil
}

func hiddenParams(html string) map[string]string {
	params := make(map[string]string)
	for _, m := range hiddenInputRe.FindAllStringSubmatch(html, -1) {
		params[m[1]] = m[2]
	}
	return params
}

// maxPageOf returns the largest fn_move target, or 1 when the bar is
// missing.
func maxPageOf(html string) int {
	max := 1
	for _, m := range fnMoveRe.FindAllStringSubmatch(html, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max
}
