package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gas-valuation/internal/analysis"
	"gas-valuation/internal/config"
	"gas-valuation/internal/data"
	"gas-valuation/internal/model"
	"gas-valuation/internal/solver"
	"gas-valuation/internal/valuation"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "value":
		cmdValue(os.Args[2:])
	case "check":
		cmdCheck(os.Args[2:])
	case "potential":
		cmdPotential(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli value --config examples/networks/strip.yaml --out results/ledger.csv")
	fmt.Println("  cli check --config examples/networks/strip.yaml")
	fmt.Println("  cli potential --curves examples/curves")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - value outputs CSV with one row per entity and period (action=INJECTING/RELEASING/BUYING/SELLING/...)")
	fmt.Println("  - potential ranks forward curves by the intrinsic value of a canonical storage")
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

func cmdValue(args []string) {
	fs := flag.NewFlagSet("value", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML network config")
	outPath := fs.String("out", "results/ledger.csv", "Output CSV path")
	timeLimit := fs.Duration("time-limit", 0, "Optional: solver time limit, overrides the config")
	controls := fs.String("controls", "", "Optional: solver control string, overrides the config")
	level := fs.String("log-level", "info", "Log level")
	_ = fs.Parse(args)

	log := newLogger(*level)
	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	net, g, err := cfg.Build()
	if err != nil {
		log.WithError(err).Fatal("failed to build network")
	}
	params := cfg.SolverParams()
	if *timeLimit > 0 {
		params.TimeLimit = *timeLimit
	}
	if *controls != "" {
		params.Controls = *controls
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine := valuation.New(solver.NewLocal(log), log)
	res, err := engine.Run(ctx, net, g, params)
	if err != nil {
		log.WithError(err).Fatal("valuation failed")
	}
	if len(res.Ledger) == 0 {
		log.WithField("status", res.Status.String()).Fatal("no feasible assignment found")
	}

	// ensure output dir exists
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.WithError(err).Fatal("failed to create output dir")
	}
	if err := valuation.WriteLedgerCSV(*outPath, res.Ledger); err != nil {
		log.WithError(err).Fatal("failed to write ledger")
	}

	fmt.Printf("Wrote %d rows to %s\n", len(res.Ledger), *outPath)
	fmt.Printf("Status=%s Value=%s Gap=%.4f Nodes=%d Elapsed=%s\n",
		res.Status, res.Value.StringFixed(valuation.CashPlaces), res.Gap, res.Nodes, res.Elapsed.Round(time.Millisecond))
	for _, e := range res.Entities {
		fmt.Printf("  %-20s %-16s %14s\n", e.Entity, e.Kind, e.Value.StringFixed(valuation.CashPlaces))
	}
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s = %.3f is close to big-M %.0f of %s\n", w.Variable, w.Value, w.BigM, w.Entity)
	}
	if len(res.Violations) > 0 {
		fmt.Printf("  %d constraints violated: %s\n", len(res.Violations), strings.Join(res.Violations, ", "))
	}
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML network config")
	_ = fs.Parse(args)

	log := newLogger("warn")
	if *cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.WithError(err).Fatal("config invalid")
	}
	net, g, err := cfg.Build()
	if err != nil {
		log.WithError(err).Fatal("config invalid")
	}
	p, err := net.Build()
	if err != nil {
		log.WithError(err).Fatal("network invalid")
	}

	fmt.Printf("network %q: %d entities, %d periods (%.0fh)\n", net.Name, len(net.Nodes()), g.N(), g.Start(g.N()))
	fmt.Printf("problem %q: %d variables (%d integer), %d constraints, %d objective terms\n",
		p.Name, len(p.Vars), p.NumIntegers(), len(p.Constraints), len(p.Objective.Terms))
}

func cmdPotential(args []string) {
	fs := flag.NewFlagSet("potential", flag.ExitOnError)
	curvePaths := fs.String("curves", "examples/curves", "Comma-separated curve JSON paths or a directory")
	_ = fs.Parse(args)

	log := newLogger("info")
	byHub := map[string]model.ForwardCurve{}
	for _, p := range splitPaths(*curvePaths) {
		files, err := curveFiles(p)
		if err != nil {
			log.WithError(err).Fatal("failed to list curves")
		}
		for _, f := range files {
			c, err := data.LoadForwardCurveJSON(f)
			if err != nil {
				log.WithError(err).WithField("file", f).Fatal("failed to load curve")
			}
			key := c.Hub
			if key == "" {
				key = strings.TrimSuffix(filepath.Base(f), ".json")
			}
			byHub[key] = *c
		}
	}

	ranked := analysis.RankByIntrinsicValue(byHub)
	fmt.Printf("%-4s %-10s %-6s %-8s %-10s %-13s %-12s\n", "rank", "hub", "ccy", "count", "p95-p05", "min/max", "intrinsic")
	for _, r := range ranked {
		fmt.Printf(
			"%-4d %-10s %-6s %-8d %-10.2f %-6.2f/%-6.2f %-12.4f\n",
			r.Rank,
			r.Hub,
			r.Currency,
			r.Count,
			r.SpreadP95P05,
			r.MinMid,
			r.MaxMid,
			r.IntrinsicValue,
		)
	}
}

func curveFiles(p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{p}, nil
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, filepath.Join(p, e.Name()))
	}
	return out, nil
}

func splitPaths(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
