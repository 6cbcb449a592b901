package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zongseung/energyrag/log"
	"github.com/zongseung/energyrag/scraper/state"
)

// ErrNotPDF marks a downloaded payload that turned out not to be a PDF.
// The fetch engine returns it; the orchestrator treats it as a
// per-candidate failure with its own log tag.
var ErrNotPDF = errors.New("response is not a pdf")

// Source lists candidates page by page. The bool result reports whether
// a further page exists.
type Source interface {
	Name() string
	Fetch(ctx context.Context, page int) ([]Candidate, bool, error)
}

// Fetcher downloads one candidate to local storage. LocalPath reports
// the destination when it is derivable from the listing alone; board
// sources that only learn the filename from the response return "".
type Fetcher interface {
	LocalPath(c Candidate) string
	Fetch(ctx context.Context, c Candidate) (string, error)
}

// Uploader mirrors a local artifact to remote storage.
type Uploader interface {
	Upload(ctx context.Context, localPath, destDir string) (string, error)
}

// Catalog records artifact metadata, idempotent on the PDF URL.
type Catalog interface {
	Insert(ctx context.Context, meta Metadata) error
}

// Notifier delivers short text notifications.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Counters aggregates one run's outcomes.
type Counters struct {
	New            int
	Skipped        int
	DownloadFailed int
	UploadFailed   int
}

// RunOptions selects the page range and dedup behavior for one run.
type RunOptions struct {
	Full    bool // crawl until the listing is exhausted
	Pages   int  // N most recent pages when not Full and no Start
	Start   int  // explicit first page (1-based)
	End     int  // explicit last page, 0 = open-ended
	UseHash bool // additionally dedup on content hashes
}

// Deps wires the pipeline's collaborators.
type Deps struct {
	Store    state.Store
	Fetcher  Fetcher
	Uploader Uploader
	Catalog  Catalog
	Notifier Notifier
	Logger   log.Logger
	DestDir  string // remote destination directory
	SleepMin time.Duration
	SleepMax time.Duration
}

// Pipeline drives one source through crawl, dedup, download, upload,
// catalog insert and state update.
type Pipeline struct {
	source Source
	deps   Deps
}

// NewPipeline creates a pipeline for one source.
func NewPipeline(source Source, deps Deps) *Pipeline {
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = &log.NoOpLogger{}
	}
	return &Pipeline{source: source, deps: deps}
}

type nopNotifier struct{}

func (nopNotifier) Send(ctx context.Context, text string) error { return nil }

// Run executes one crawl. Per-candidate failures never abort the run;
// they are counted, logged and optionally notified. The summary
// notification is sent even when the run ends early.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Counters, error) {
	logger := p.deps.Logger
	runID := uuid.NewString()[:8]
	name := p.source.Name()
	logger.Info("[%s] run %s starting (full=%v pages=%d start=%d end=%d hash=%v)",
		name, runID, opts.Full, opts.Pages, opts.Start, opts.End, opts.UseHash)

	var counters Counters
	defer p.summarize(ctx, name, runID, &counters)

	ids, err := p.deps.Store.LoadIDs(name)
	if err != nil {
		return counters, fmt.Errorf("load id state: %w", err)
	}
	hashes := state.NewSet()
	if opts.UseHash {
		if hashes, err = p.deps.Store.LoadHashes(name); err != nil {
			return counters, fmt.Errorf("load hash state: %w", err)
		}
	}
	logger.Info("[%s] state loaded: %d ids, %d hashes", name, len(ids), len(hashes))

	page := 1
	if opts.Start > 0 {
		page = opts.Start
	}
	prevFirstKey := ""

	for {
		batch, hasNext, err := p.source.Fetch(ctx, page)
		if err != nil {
			logger.Error("[%s] page %d fetch failed, stopping pagination: %v", name, page, err)
			break
		}
		if len(batch) == 0 {
			logger.Info("[%s] page %d empty, stopping", name, page)
			break
		}

		// Sites that clamp out-of-range pages to the last page repeat
		// their first item; treat the repeat as end-of-listing.
		firstKey := DedupKey(batch[0])
		if firstKey == prevFirstKey {
			logger.Info("[%s] page %d repeats the previous first item, stopping", name, page)
			break
		}
		prevFirstKey = firstKey

		batch = DedupeBatch(batch)
		logger.Info("[%s] page %d: %d candidates after batch dedupe", name, page, len(batch))

		for _, c := range batch {
			if err := ctx.Err(); err != nil {
				return counters, err
			}
			p.process(ctx, c, ids, hashes, opts.UseHash, &counters)
		}

		if opts.Start > 0 {
			if opts.End > 0 && page >= opts.End {
				break
			}
		} else if !opts.Full {
			limit := opts.Pages
			if limit < 1 {
				limit = 1
			}
			if page >= limit {
				break
			}
		}
		if !hasNext {
			break
		}
		page++
	}

	return counters, nil
}

// process runs skip-check, download, upload, catalog insert and state
// update for one candidate.
func (p *Pipeline) process(ctx context.Context, c Candidate, ids, hashes state.Set, useHash bool, counters *Counters) {
	logger := p.deps.Logger
	name := p.source.Name()
	key := DedupKey(c)
	localPath := p.deps.Fetcher.LocalPath(c)

	if localPath == "" {
		// Destination unknown until the response arrives; the recorded
		// id is all we have to go on.
		if ids[key] {
			counters.Skipped++
			logger.Info("[%s] skip (id_seen): %s", name, key)
			return
		}
	} else {
		decision := state.Decide(key, localPath, ids, hashes, useHash)
		if decision.Skip {
			counters.Skipped++
			logger.Info("[%s] skip (%s): %s", name, decision.Reason, c.Title)
			return
		}
		if decision.Reason == state.ReasonMissingFileButSeen {
			logger.Warn("[%s] recorded id without local file, repair download: %s", name, c.Title)
		}
	}

	savedPath, err := p.deps.Fetcher.Fetch(ctx, c)
	p.politeness(ctx)
	if err != nil {
		counters.DownloadFailed++
		if errors.Is(err, ErrNotPDF) {
			logger.Warn("[%s] non-pdf payload: %s", name, c.PDFURL)
			return
		}
		logger.Error("[%s] download failed: %s: %v", name, c.Title, err)
		p.notify(ctx, fmt.Sprintf("[download failed] %s\n%v", title(c), err))
		return
	}

	if useHash {
		if h, err := state.HashFile(savedPath); err == nil && hashes.Add(h) {
			if err := p.deps.Store.SaveHashes(name, hashes); err != nil {
				logger.Warn("[%s] hash state write failed: %v", name, err)
			}
		}
	}

	remotePath, err := p.deps.Uploader.Upload(ctx, savedPath, p.deps.DestDir)
	if err != nil {
		counters.UploadFailed++
		logger.Error("[%s] nas upload failed: %s: %v", name, c.Title, err)
		p.notify(ctx, fmt.Sprintf("[nas upload failed] %s\n%v", title(c), err))
		return
	}
	logger.Info("[%s] uploaded: %s", name, remotePath)

	meta := Metadata{
		Source:    c.Source,
		Title:     titleFromPath(c, savedPath),
		Date:      ParseDate(c.Date),
		Company:   c.Company,
		PDFURL:    c.PDFURL,
		LocalPath: savedPath,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.deps.Catalog.Insert(ctx, meta); err != nil {
		// The upload already happened and the insert is idempotent; a
		// later rerun repairs the catalog.
		logger.Error("[%s] catalog insert failed: %s: %v", name, c.Title, err)
	}

	if ids.Add(key) {
		if err := p.deps.Store.SaveIDs(name, ids); err != nil {
			logger.Warn("[%s] id state write failed: %v", name, err)
		}
	}
	counters.New++
}

func (p *Pipeline) summarize(ctx context.Context, name, runID string, counters *Counters) {
	msg := fmt.Sprintf("[%s summary] new %d / skipped %d / dl-fail %d / nas-fail %d",
		strings.ToUpper(name), counters.New, counters.Skipped, counters.DownloadFailed, counters.UploadFailed)
	p.deps.Logger.Info("%s (run %s)", msg, runID)
	if err := p.deps.Notifier.Send(ctx, msg); err != nil {
		p.deps.Logger.Warn("[%s] summary notification failed: %v", name, err)
	}
}

func (p *Pipeline) notify(ctx context.Context, text string) {
	if err := p.deps.Notifier.Send(ctx, text); err != nil {
		p.deps.Logger.Warn("notification failed: %v", err)
	}
}

// politeness sleeps a random interval between successive downloads to
// the same origin.
func (p *Pipeline) politeness(ctx context.Context) {
	min, max := p.deps.SleepMin, p.deps.SleepMax
	if max <= 0 || max < min {
		return
	}
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func title(c Candidate) string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	return c.PDFURL
}

// titleFromPath prefers the listing title; board sources without one
// fall back to the saved filename.
func titleFromPath(c Candidate, savedPath string) string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	base := savedPath
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".pdf")
}
