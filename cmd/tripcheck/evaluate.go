package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrav/go-tripcheck/infrastructure/knowledge"
	"github.com/ahrav/go-tripcheck/infrastructure/middleware"
	"github.com/ahrav/go-tripcheck/infrastructure/translation"
	"github.com/ahrav/go-tripcheck/internal/application"
	"github.com/ahrav/go-tripcheck/internal/commonsense"
	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

type evaluateFlags struct {
	config       string
	queries      string
	plans        string
	ids          []string
	oracle       bool
	output       string
	kbPath       string
	kbDriver     string
	concurrency  int
	translations string
	metricsFile  string
	indent       bool
}

func evaluateCmd(a *app) *cobra.Command {
	var f evaluateFlags

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a batch of plans and print the report as JSON",
		Example: `  tripcheck evaluate --queries queries.jsonl --plans results/ --kb cities.yaml
  tripcheck evaluate --config tripcheck.yaml --queries queries/ --plans results/ --ids q1,q2 --output report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.loadConfig(cmd)
			if err != nil {
				return a.fail("failed to load config", err)
			}
			return a.evaluate(cmd, cfg, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "YAML configuration file")
	fl.StringVarP(&f.queries, "queries", "q", "", "Query directory, JSON array file or JSON lines file")
	fl.StringVarP(&f.plans, "plans", "p", "", "Directory holding <uid>.json plan files")
	fl.StringSliceVar(&f.ids, "ids", nil, "Only evaluate these query ids, in this order")
	fl.BoolVar(&f.oracle, "oracle", false, "Use the queries' pre-translated hard constraints")
	fl.StringVarP(&f.output, "output", "o", "-", "Report file, - for stdout")
	fl.StringVar(&f.kbPath, "kb", "", "Knowledge base dataset or SQLite file")
	fl.StringVar(&f.kbDriver, "kb-driver", "", "Knowledge base driver (memory or sqlite)")
	fl.IntVar(&f.concurrency, "concurrency", 0, "Queries evaluated in parallel")
	fl.StringVar(&f.translations, "translations", "", "Directory holding <uid>.json translated hard constraints")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	fl.BoolVar(&f.indent, "indent", true, "Indent the JSON report")
	_ = cmd.MarkFlagRequired("queries")
	_ = cmd.MarkFlagRequired("plans")

	return cmd
}

// loadConfig reads the config file, if any, and applies explicitly set
// flags on top of it.
func (f evaluateFlags) loadConfig(cmd *cobra.Command) (application.Config, error) {
	cfg := application.DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = application.LoadConfig(f.config); err != nil {
			return application.Config{}, err
		}
	}

	fl := cmd.Flags()
	if fl.Changed("oracle") {
		cfg.Engine.Oracle = f.oracle
	}
	if fl.Changed("kb") {
		cfg.KnowledgeBase.Path = f.kbPath
	}
	if fl.Changed("kb-driver") {
		cfg.KnowledgeBase.Driver = f.kbDriver
	}
	if fl.Changed("concurrency") {
		cfg.Engine.Concurrency = f.concurrency
	}
	if fl.Changed("translations") {
		cfg.Engine.TranslationDir = f.translations
	}
	return cfg, cfg.Validate()
}

func (a *app) evaluate(cmd *cobra.Command, cfg application.Config, f evaluateFlags) error {
	ctx := cmd.Context()

	kb, closeKB, err := openKnowledgeBase(cfg.KnowledgeBase)
	if err != nil {
		return a.fail("failed to open knowledge base", err)
	}
	defer closeKB()

	reg := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(reg)

	checks, err := commonsense.New(kb, cfg.Commonsense)
	if err != nil {
		return a.fail("failed to build checks", err)
	}
	opts := []application.Option{
		application.WithLogger(a.logger),
		application.WithMetrics(metrics),
		application.WithChecks(middleware.InstrumentChecks(checks, metrics, nil)),
	}
	if !cfg.Engine.Oracle && cfg.Engine.TranslationDir != "" {
		tr, err := translation.NewFileTranslator(cfg.Engine.TranslationDir)
		if err != nil {
			return a.fail("failed to open translations", err)
		}
		opts = append(opts, application.WithTranslator(tr))
	}

	engine, err := application.NewEngine(cfg, kb, opts...)
	if err != nil {
		return a.fail("failed to build engine", err)
	}

	batch, err := application.LoadBatch(f.queries, f.plans, f.ids)
	if err != nil {
		return a.fail("failed to load batch", err)
	}
	a.logger.Info("batch loaded",
		zap.Int("queries", len(batch.Items)),
		zap.Bool("oracle", cfg.Engine.Oracle),
		zap.String("kb_driver", cfg.KnowledgeBase.Driver),
	)

	rep, err := engine.Evaluate(ctx, batch)
	if err != nil {
		return a.fail("evaluation failed", err)
	}

	if err := writeReport(a.stdout, f.output, rep, f.indent); err != nil {
		return a.fail("failed to write report", err)
	}
	if f.metricsFile != "" {
		if err := prometheus.WriteToTextfile(f.metricsFile, reg); err != nil {
			return a.fail("failed to write metrics", err)
		}
	}

	fields := make([]zap.Field, 0, 9)
	fields = append(fields, zap.String("run_id", rep.RunID))
	for k, v := range rep.Scores.Map() {
		fields = append(fields, zap.Float64(k, v))
	}
	a.logger.Info("scores", fields...)
	return nil
}

// openKnowledgeBase opens the configured backend. The returned close
// function is never nil.
func openKnowledgeBase(cfg application.KnowledgeBaseConfig) (ports.KnowledgeBase, func(), error) {
	if cfg.Path == "" {
		return nil, nil, fmt.Errorf("%w: no knowledge base path; set knowledge_base.path or --kb", domain.ErrInvalidConfiguration)
	}
	switch cfg.Driver {
	case "sqlite":
		db, err := knowledge.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	default:
		mem, err := knowledge.LoadMemory(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return mem, func() {}, nil
	}
}

func writeReport(stdout io.Writer, path string, rep *application.Report, indent bool) error {
	if path == "" || path == "-" {
		return encodeReport(stdout, rep, indent)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeReport(file, rep, indent); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func encodeReport(w io.Writer, rep *application.Report, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(rep)
}
