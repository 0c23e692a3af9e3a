package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"smart-quiz-service/internal/app"
	"smart-quiz-service/internal/config"
	pgstore "smart-quiz-service/internal/infra/postgres"
	"smart-quiz-service/internal/tabular"
)

// NewImportCmd bulk-imports questions from a CSV file into a category.
func NewImportCmd(configPath *string) *cobra.Command {
	var categoryID int64
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Bulk-import questions from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openStore(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := tabular.Decode(f)
			if err != nil {
				return err
			}
			outcome, err := app.NewImporter(store, 0).Import(cmd.Context(), categoryID, rows)
			if err != nil {
				return err
			}
			log.Printf("imported %d/%d rows (%d failed)", outcome.SuccessfulImports, outcome.TotalRows, outcome.FailedImports)
			for _, rowErr := range outcome.Errors {
				log.Printf("  row %d: %s", rowErr.Row, rowErr.Message)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&categoryID, "category", 0, "target category id")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

// NewExportCmd writes a category's questions as CSV, round-trip compatible
// with the import command.
func NewExportCmd(configPath *string) *cobra.Command {
	var categoryID int64
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a category's questions as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openStore(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			questions, err := store.ListQuestions(cmd.Context(), categoryID, 0)
			if err != nil {
				return err
			}
			out := os.Stdout
			if outPath != "" {
				out, err = os.Create(outPath)
				if err != nil {
					return err
				}
				defer out.Close()
			}
			return tabular.Encode(out, questions)
		},
	}
	cmd.Flags().Int64Var(&categoryID, "category", 0, "category id to export")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func openStore(ctx context.Context, configPath string) (app.Store, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Postgres.URL == "" {
		return nil, nil, fmt.Errorf("postgres url not configured")
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, nil, err
	}
	return pgstore.NewStore(pool), pool.Close, nil
}
