package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zongseung/energyrag/ingest"
	"github.com/zongseung/energyrag/rag/docstore"
	"github.com/zongseung/energyrag/rag/llm"
)

var (
	flagIngestDir      string
	flagIngestCategory string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load downloaded PDFs into the document store",
	Long: `ingest extracts text from each PDF in the directory, splits it into
chunks, embeds them and writes the result to the pgvector-backed
document store. Files already present are skipped, so reruns are cheap.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		defer logger.Close()

		client, err := llm.New(cfg.LLM)
		if err != nil {
			return err
		}
		store, err := docstore.New(cmd.Context(), cfg.Postgres, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.InitSchema(cmd.Context(), cfg.LLM.EmbedDim); err != nil {
			return err
		}

		dir := flagIngestDir
		if dir == "" {
			dir = cfg.Storage.DownloadDir
		}

		ingestor := ingest.New(client, store, logger)
		ingested, failed, err := ingestor.IngestDir(cmd.Context(), dir, flagIngestCategory)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ingested %d files, %d failed\n", ingested, failed)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&flagIngestDir, "dir", "", "directory of PDFs (default: the download dir)")
	ingestCmd.Flags().StringVar(&flagIngestCategory, "category", "NAVER", "document category for retrieval")
	rootCmd.AddCommand(ingestCmd)
}
