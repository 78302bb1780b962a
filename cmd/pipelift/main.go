package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codewithboateng/pipelift/internal/aggregate"
	"github.com/codewithboateng/pipelift/internal/api"
	"github.com/codewithboateng/pipelift/internal/catalog"
	"github.com/codewithboateng/pipelift/internal/engine"
	"github.com/codewithboateng/pipelift/internal/ir"
	"github.com/codewithboateng/pipelift/internal/loader"
	"github.com/codewithboateng/pipelift/internal/reporting"
	"github.com/codewithboateng/pipelift/internal/rules"
	"github.com/codewithboateng/pipelift/internal/security"
	"github.com/codewithboateng/pipelift/internal/shared"
	"github.com/codewithboateng/pipelift/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "scan":
		os.Exit(scanCmd(os.Args[2:]))
	case "report":
		reportCmd(os.Args[2:])
	case "diff":
		diffCmd(os.Args[2:])
	case "rules":
		rulesCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	case "version":
		fmt.Println("pipelift", "report:", ir.Version, "catalog:", catalog.Version)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `pipelift - CI/CD pipeline compliance scanner

Usage:
  pipelift scan   --path <repo-dir> [--out ./reports] [--db ./pipelift.db] [--format text|json]
                  [--fail-on HIGH] [--timeout 30s] [--workers N] [--include g] [--exclude g]
                  [--config ./configs/pipelift.yaml]
  pipelift report --run <run-id>     --out <reports-dir> [--db ./pipelift.db]
  pipelift diff   --base <run-id> --head <run-id> --out <reports-dir> [--db ./pipelift.db]
  pipelift rules  [--format text|json]
  pipelift serve  [--addr :8787] [--db ./pipelift.db] [--config ./configs/pipelift.yaml]
  pipelift version

Exit codes: 0 clean, 1 findings at or above --fail-on, 2 unusable input or bad catalog.
`)
}

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error {
	if v != "" {
		*m = append(*m, v)
	}
	return nil
}

// scanCmd returns the process exit code: 0 clean, 1 findings at or
// above the fail-on threshold, 2 fatal (bad usage, bad catalog,
// unusable root, storage or reporting failure).
func scanCmd(args []string) int {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	inPath := fs.String("path", "", "Path to repository root (or a single pipeline file)")
	outDir := fs.String("out", "", "Output directory for reports")
	dbPath := fs.String("db", "", "SQLite database path")
	format := fs.String("format", "text", "Stdout format: text|json")
	failOn := fs.String("fail-on", "", "Exit 1 when a finding at or above this severity remains")
	timeout := fs.Duration("timeout", 0, "Evaluation deadline; a partial report is emitted on expiry")
	workers := fs.Int("workers", 0, "Evaluation workers (0 = GOMAXPROCS)")
	var include, exclude multiFlag
	fs.Var(&include, "include", "Glob allowlist, repeatable")
	fs.Var(&exclude, "exclude", "Glob denylist, repeatable")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	logger := shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	// precedence: flags > config > defaults
	if *inPath == "" && fs.NArg() > 0 {
		*inPath = fs.Arg(0)
	}
	if *inPath == "" && len(cfg.Scan.Sources) > 0 {
		*inPath = cfg.Scan.Sources[0]
	}
	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *failOn == "" {
		*failOn = cfg.Aggregation.FailOn
	}
	if *workers == 0 {
		*workers = cfg.Scan.Workers
	}
	if len(include) == 0 {
		include = cfg.Scan.Include
	}
	if len(exclude) == 0 {
		exclude = cfg.Scan.Exclude
	}

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "scan: --path (or scan.sources in config) is required")
		return 2
	}
	failSev, ok := ir.ParseSeverity(*failOn)
	if !ok {
		fmt.Fprintln(os.Stderr, "scan: bad --fail-on severity:", *failOn)
		return 2
	}
	pol := aggregate.DefaultPolicy()
	if s, ok := ir.ParseSeverity(cfg.Aggregation.NonCompliantAt); ok {
		pol.NonCompliantAt = s
	}

	cat, err := catalog.Load()
	if err != nil {
		slog.Error("rule catalog rejected", "err", err)
		return 2
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	res, err := loader.Load(ctx, *inPath, loader.Options{
		Include: include, Exclude: exclude,
	})
	if err != nil {
		slog.Error("scan root unusable", "path", *inPath, "err", err)
		return 2
	}

	ev := engine.Evaluate(ctx, res.Documents, cat, engine.Options{Workers: *workers})
	findings := append(res.Failures, ev.Findings...)

	run := ir.Run{
		ID:             fmt.Sprintf("run-%d", time.Now().Unix()),
		StartedAt:      time.Now().UTC(),
		Root:           filepath.Clean(*inPath),
		EngineVersion:  ir.Version,
		CatalogVersion: cat.Version,
	}
	for _, d := range res.Documents {
		run.Documents = append(run.Documents, ir.DocumentInfo{Path: d.Path, Format: d.Format})
	}

	// Persist & report. Storage failures are infrastructure, not
	// findings, so they exit 2 like any other fatal error.
	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		return 2
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		return 2
	}

	waivers, err := db.ListWaivers(true)
	if err != nil {
		slog.Warn("waiver lookup failed, applying none", "err", err)
	}
	findings, run.Waived = rules.ApplyWaivers(findings, waivers)

	scanned := len(res.Documents) + len(res.Failures)
	run.Report = aggregate.Build(scanned, ev.Incomplete || res.Incomplete, findings, pol)

	if err := db.SaveRun(&run); err != nil {
		slog.Error("db save run error", "err", err)
		return 2
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		slog.Error("cannot create out dir", "err", err)
		return 2
	}
	jsonPath, _ := reporting.WriteJSON(run.ID, *outDir, &run)
	htmlPath, _ := reporting.WriteHTML(run.ID, *outDir, &run)
	sarifPath, _ := reporting.WriteSARIF(run.ID, *outDir, &run)
	logger.Info("scan complete",
		"run", run.ID,
		"documents", scanned,
		"findings", len(run.Report.Findings),
		"waived", run.Waived,
		"incomplete", run.Report.Incomplete,
		"json", jsonPath,
		"html", htmlPath,
		"sarif", sarifPath,
		"db", filepath.Clean(*dbPath),
	)

	switch strings.ToLower(*format) {
	case "json":
		b, err := reporting.RenderJSON(run.Report)
		if err != nil {
			slog.Error("render error", "err", err)
			return 2
		}
		fmt.Println(string(b))
	default:
		_ = reporting.RenderText(os.Stdout, &run)
	}

	return exitCode(run.Report.Findings, failSev)
}

func exitCode(findings []ir.Finding, failAt ir.Severity) int {
	for _, f := range findings {
		if ir.SeverityRank(f.Severity) >= ir.SeverityRank(failAt) {
			return 1
		}
	}
	return 0
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	runID := fs.String("run", "", "Run ID (empty = latest)")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	var run ir.Run
	if *runID == "" {
		run, err = db.LoadLatestRun()
	} else {
		run, err = db.LoadRun(*runID)
	}
	if err != nil {
		slog.Error("load run error", "err", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		slog.Error("cannot create out dir", "err", err)
		os.Exit(1)
	}
	jsonPath, _ := reporting.WriteJSON(run.ID, *outDir, &run)
	htmlPath, _ := reporting.WriteHTML(run.ID, *outDir, &run)
	sarifPath, _ := reporting.WriteSARIF(run.ID, *outDir, &run)
	fmt.Printf("Report OK\n  Run: %s\n  JSON: %s\n  HTML: %s\n  SARIF: %s\n", run.ID, jsonPath, htmlPath, sarifPath)
}

func diffCmd(args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	base := fs.String("base", "", "Base run ID")
	head := fs.String("head", "", "Head run ID")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *base == "" || *head == "" {
		fmt.Fprintln(os.Stderr, "diff: --base and --head are required")
		os.Exit(2)
	}
	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	br, err := db.LoadRun(*base)
	if err != nil {
		slog.Error("load base run error", "err", err)
		os.Exit(1)
	}
	hr, err := db.LoadRun(*head)
	if err != nil {
		slog.Error("load head run error", "err", err)
		os.Exit(1)
	}
	path, err := reporting.WriteDiffJSON(*base, *head, *outDir, &br, &hr)
	if err != nil {
		slog.Error("diff write error", "err", err)
		os.Exit(1)
	}
	fmt.Printf("Diff OK\n  %s\n", path)
}

func rulesCmd(args []string) {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	format := fs.String("format", "text", "Output format: text|json")
	_ = fs.Parse(args)

	cat, err := catalog.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "rules:", err)
		os.Exit(2)
	}
	if strings.ToLower(*format) == "json" {
		b, err := reporting.RenderRulesJSON(cat)
		if err != nil {
			fmt.Fprintln(os.Stderr, "rules:", err)
			os.Exit(1)
		}
		fmt.Println(string(b))
		return
	}
	fmt.Printf("catalog %s (%d rules)\n", cat.Version, len(cat.Rules()))
	for _, r := range cat.Rules() {
		fmt.Printf("  %-28s CICD-SEC-%-2d %-8s %s\n", r.ID, r.Category, r.Severity, r.Summary)
	}
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	addr := fs.String("addr", "", "Listen address")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	logger := shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *addr == "" {
		*addr = cfg.API.Addr
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}

	cat, err := catalog.Load()
	if err != nil {
		slog.Error("rule catalog rejected", "err", err)
		os.Exit(2)
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}
	if err := bootstrapAdmin(db, logger); err != nil {
		slog.Error("admin bootstrap error", "err", err)
		os.Exit(1)
	}

	srv := &api.Server{
		DB:              db,
		UserStore:       db,
		Catalog:         cat,
		Logger:          logger,
		AllowedOrigins:  cfg.API.AllowedOrigins,
		SessionDuration: time.Duration(cfg.API.SessionHours) * time.Hour,
	}
	logger.Info("api listening", "addr", *addr, "catalog", cat.Version)
	if err := http.ListenAndServe(*addr, srv.Routes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

// bootstrapAdmin creates the initial admin user on an empty database.
// The password comes from PIPELIFT_ADMIN_PASSWORD; with no users and no
// password set, the API stays read-only until one is provided.
func bootstrapAdmin(db *storage.DB, logger *slog.Logger) error {
	n, err := db.CountUsers()
	if err != nil || n > 0 {
		return err
	}
	pw := os.Getenv("PIPELIFT_ADMIN_PASSWORD")
	if pw == "" {
		logger.Warn("no users and PIPELIFT_ADMIN_PASSWORD unset; authenticated endpoints unavailable")
		return nil
	}
	hash, err := security.HashPassword(pw)
	if err != nil {
		return err
	}
	if _, err := db.CreateUser("admin", hash, "admin"); err != nil {
		return err
	}
	logger.Info("created initial admin user", "username", "admin")
	return nil
}
