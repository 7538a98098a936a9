package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrav/go-tripcheck/infrastructure/knowledge"
)

func kbCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the city knowledge base",
	}
	cmd.AddCommand(kbImportCmd(a))
	return cmd
}

func kbImportCmd(a *app) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import <dataset>",
		Short: "Import a YAML or JSON dataset into a SQLite knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := knowledge.LoadDataset(args[0])
			if err != nil {
				return a.fail("failed to read dataset", err)
			}

			db, err := knowledge.OpenSQLite(dbPath)
			if err != nil {
				return a.fail("failed to open database", err)
			}
			defer db.Close()

			if err := db.Import(cmd.Context(), ds); err != nil {
				return a.fail("import failed", err)
			}
			a.logger.Info("knowledge base imported",
				zap.String("db", dbPath),
				zap.Int("attractions", len(ds.Attractions)),
				zap.Int("hotels", len(ds.Hotels)),
				zap.Int("restaurants", len(ds.Restaurants)),
				zap.Int("stations", len(ds.Stations)),
				zap.Int("intercity", len(ds.Intercity)),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "tripcheck.db", "SQLite database file")
	return cmd
}
