package source

import (
	"context"
	"fmt"

	"github.com/zongseung/energyrag/log"
	"github.com/zongseung/energyrag/scraper"
)

const (
	energyStatName    = "energystat"
	energyStatOrigin  = "https://www.energy.or.kr"
	energyStatURL     = energyStatOrigin + "/commonFile/fileDownload.do"
	energyStatReferer = energyStatOrigin + "/front/board/View9.do"
)

// EnergyStatFile addresses one attachment on the energy.or.kr statistics
// board.
type EnergyStatFile struct {
	FileNo     string
	FileSeq    string
	BoardMngNo string
}

// defaultEnergyStatFiles is the statistics yearbook series; the board
// has no crawlable listing, so the set is maintained by hand.
var defaultEnergyStatFiles = []EnergyStatFile{
	{"24158", "1", "9"},
	{"24156", "2", "9"},
	{"24155", "3", "9"},
	{"24154", "19304", "9"},
	{"23670", "18616", "9"},
	{"23399", "18682", "9"},
	{"23064", "18047", "9"},
	{"22808", "17882", "9"},
	{"22774", "17865", "9"},
	{"22299", "17521", "9"},
	{"22078", "17165", "9"},
	{"22051", "17133", "9"},
	{"21772", "16578", "9"},
	{"21760", "19301", "9"},
	{"21380", "15998", "9"},
	{"21311", "15920", "9"},
	{"21184", "15666", "9"},
	{"20847", "15536", "9"},
	{"20741", "15572", "9"},
	{"20645", "15239", "9"},
	{"20220", "14424", "9"},
	{"20063", "14311", "9"},
	{"19415", "13275", "9"},
	{"18908", "12545", "9"},
}

// EnergyStat serves the fixed attachment set as a single-page listing.
// Downloads are POST form submissions against the board's file endpoint.
type EnergyStat struct {
	logger log.Logger
	files  []EnergyStatFile
	// endpoint overrides the live URL in tests.
	endpoint string
}

var _ scraper.Source = (*EnergyStat)(nil)

// NewEnergyStat creates the adapter; a nil file list means the built-in
// yearbook set.
func NewEnergyStat(files []EnergyStatFile, logger log.Logger) *EnergyStat {
	if files == nil {
		files = defaultEnergyStatFiles
	}
	return &EnergyStat{logger: logger, files: files, endpoint: energyStatURL}
}

func (e *EnergyStat) Name() string { return energyStatName }

// Fetch emits every known attachment on page one; there is no page two.
func (e *EnergyStat) Fetch(ctx context.Context, page int) ([]scraper.Candidate, bool, error) {
	if page > 1 {
		return nil, false, nil
	}

	batch := make([]scraper.Candidate, 0, len(e.files))
	for _, f := range e.files {
		batch = append(batch, scraper.Candidate{
			Source:  energyStatName,
			ID:      fmt.Sprintf("%s_%s_%s", f.FileNo, f.FileSeq, f.BoardMngNo),
			PDFURL:  e.endpoint,
			Referer: energyStatReferer,
			Form: map[string]string{
				"fileNo":     f.FileNo,
				"fileSeq":    f.FileSeq,
				"boardMngNo": f.BoardMngNo,
			},
		})
	}
	e.logger.Info("[ENERGYSTAT] %d known attachments", len(batch))
	return batch, false, nil
}
