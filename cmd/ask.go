package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zongseung/energyrag/rag"
	"github.com/zongseung/energyrag/rag/docstore"
	"github.com/zongseung/energyrag/rag/llm"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the ingested research corpus",
	Args:  cobra.MinimumNArgs(1),
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

		engine := rag.NewEngine(client, store, logger)
		answer, err := engine.Answer(cmd.Context(), strings.Join(args, " "), nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
