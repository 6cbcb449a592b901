package cmd

import (
	"context"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/zongseung/energyrag/config"
	"github.com/zongseung/energyrag/log"
	"github.com/zongseung/energyrag/scraper"
	"github.com/zongseung/energyrag/scraper/catalog"
	"github.com/zongseung/energyrag/scraper/fetch"
	"github.com/zongseung/energyrag/scraper/nas"
	"github.com/zongseung/energyrag/scraper/notify"
	"github.com/zongseung/energyrag/scraper/source"
	"github.com/zongseung/energyrag/scraper/state"
)

var (
	flagSource  string
	flagFull    bool
	flagPages   int
	flagStart   int
	flagEnd     int
	flagUseHash bool
	flagUpjong  string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl report sites, download new PDFs and mirror them to NAS",
	Long: `crawl walks a source site's listing pages, downloads attachments it
has not seen before, uploads them to the NAS and records their metadata.
Per-candidate failures are counted and notified, never fatal: the
command always exits zero so schedulers keep their cadence.`,
	Run: func(cmd *cobra.Command, args []string) {
		runCrawl(cmd.Context())
	},
}

func init() {
	crawlCmd.Flags().StringVar(&flagSource, "source", "naver", "site to crawl (naver|petronet|knrec|energystat|all)")
	crawlCmd.Flags().BoolVar(&flagFull, "full", false, "crawl every listing page")
	crawlCmd.Flags().IntVar(&flagPages, "pages", 1, "crawl the N most recent pages")
	crawlCmd.Flags().IntVar(&flagStart, "start", 0, "explicit first page (1-based)")
	crawlCmd.Flags().IntVar(&flagEnd, "end", 0, "explicit last page (0 = open-ended)")
	crawlCmd.Flags().BoolVar(&flagUseHash, "use-hash", false, "additionally dedup on content hashes")
	crawlCmd.Flags().StringVar(&flagUpjong, "upjong", "", "naver industry code, percent-encoded (default: energy)")
	rootCmd.AddCommand(crawlCmd)
}

// runCrawl never reports failure through the exit code; problems show up
// in logs, counters and notifications instead.
func runCrawl(ctx context.Context) {
	cfg, err := loadConfig()
	if err != nil {
		fallback := log.NewGologLogger(log.ParseLevel(flagLogLevel))
		fallback.Error("configuration failed: %v", err)
		return
	}
	logger := newLogger(cfg)
	defer logger.Close()

	var sources []scraper.Source
	for _, s := range selectSources(cfg, logger) {
		if flagSource == "all" || flagSource == s.Name() || aliasOf(s.Name()) == flagSource {
			sources = append(sources, s)
		}
	}
	if len(sources) == 0 {
		logger.Error("unknown source %q", flagSource)
		return
	}

	store := newStateStore(ctx, cfg, logger)
	notifier := newNotifier(cfg, logger)
	uploader := newUploader(cfg, logger)
	cat := newCatalog(ctx, cfg, logger)

	for _, src := range sources {
		pipeline := scraper.NewPipeline(src, scraper.Deps{
			Store:    store,
			Fetcher:  fetch.New(cfg.HTTP, filepath.Join(cfg.Storage.DownloadDir, src.Name()), logger),
			Uploader: uploader,
			Catalog:  cat,
			Notifier: notifier,
			Logger:   logger,
			DestDir:  cfg.NAS.Folder,
			SleepMin: cfg.HTTP.SleepMin,
			SleepMax: cfg.HTTP.SleepMax,
		})
		counters, err := pipeline.Run(ctx, scraper.RunOptions{
			Full:    flagFull,
			Pages:   flagPages,
			Start:   flagStart,
			End:     flagEnd,
			UseHash: flagUseHash,
		})
		if err != nil {
			logger.Error("[%s] run aborted: %v", src.Name(), err)
			continue
		}
		logger.Info("[%s] done: new %d / skipped %d / dl-fail %d / nas-fail %d",
			src.Name(), counters.New, counters.Skipped, counters.DownloadFailed, counters.UploadFailed)
	}
}

func selectSources(cfg *config.Config, logger log.Logger) []scraper.Source {
	return []scraper.Source{
		source.NewNaver(cfg.HTTP, flagUpjong, logger),
		source.NewPetronet(cfg.HTTP, logger),
		source.NewKnrec(cfg.HTTP, logger),
		source.NewEnergyStat(nil, logger),
	}
}

// aliasOf accepts the short site names used day to day.
func aliasOf(name string) string {
	if name == "naver_research" {
		return "naver"
	}
	return name
}

// newStateStore prefers redis when configured and falls back to JSON
// files under the state root.
func newStateStore(ctx context.Context, cfg *config.Config, logger log.Logger) state.Store {
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err == nil {
			logger.Info("state store: redis at %s", cfg.Redis.Addr)
			return state.NewRedisStore(ctx, client)
		}
		logger.Warn("redis unreachable at %s, using file state", cfg.Redis.Addr)
	}
	return state.NewFileStore(cfg.Storage.StateRoot)
}

func newNotifier(cfg *config.Config, logger log.Logger) scraper.Notifier {
	if cfg.Slack.WebhookURL == "" {
		logger.Info("slack webhook not configured, notifications go to the log")
		return notify.LogOnly{Logger: logger}
	}
	return notify.NewSlack(cfg.Slack)
}

// newUploader returns a disabled uploader when NAS credentials are
// missing; downloads still happen, uploads count as failures.
func newUploader(cfg *config.Config, logger log.Logger) scraper.Uploader {
	if err := cfg.NAS.Validate(); err != nil {
		logger.Warn("nas upload disabled: %v", err)
		return disabledUploader{err: err}
	}
	uploader, err := nas.New(cfg.NAS, logger)
	if err != nil {
		logger.Warn("nas upload disabled: %v", err)
		return disabledUploader{err: err}
	}
	return uploader
}

type disabledUploader struct{ err error }

func (d disabledUploader) Upload(ctx context.Context, localPath, destDir string) (string, error) {
	return "", d.err
}

func newCatalog(ctx context.Context, cfg *config.Config, logger log.Logger) scraper.Catalog {
	if cfg.Mongo.URI == "" {
		logger.Info("mongo not configured, metadata kept in memory for this run")
		return catalog.NewMemory()
	}
	cat, err := catalog.NewMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Warn("mongo catalog unavailable, metadata kept in memory: %v", err)
		return catalog.NewMemory()
	}
	return cat
}
