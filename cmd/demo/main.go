package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"gas-valuation/internal/lp"
	"gas-valuation/internal/model"
	"gas-valuation/internal/solver"
	"gas-valuation/internal/valuation"
)

// Demo:
// - Build a synthetic daily forward curve (mid = 25 + cos(2πt/n))
// - Assemble the six reference networks, from a lone storage up to a storage
//   trading a strip of daily products through tranches
// - Solve each one and print the value and a few sanity checks
func main() {
	days := flag.Int("days", 12, "Number of daily periods")
	only := flag.Int("scenario", 0, "Run a single scenario (1-6); 0 runs all")
	outDir := flag.String("out", "", "Optional directory to write one ledger CSV per scenario")
	level := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(*level); err == nil {
		log.SetLevel(lvl)
	}

	c := cosineCurve(*days)
	engine := valuation.New(solver.NewLocal(log), log)

	for i, sc := range scenarios {
		if *only != 0 && *only != i+1 {
			continue
		}
		net, err := sc.build(c)
		if err != nil {
			log.WithError(err).WithField("scenario", i+1).Fatal("failed to build network")
		}
		res, err := engine.Run(context.Background(), net, c.grid(), solver.Params{})
		if err != nil {
			log.WithError(err).WithField("scenario", i+1).Fatal("valuation failed")
		}

		fmt.Printf("%d. %-40s status=%-9s value=%12s nodes=%d\n", i+1, sc.name, res.Status, res.Value.StringFixed(2), res.Nodes)
		if len(res.Violations) > 0 {
			fmt.Printf("   violated: %v\n", res.Violations)
		}
		if sc.check != nil {
			for _, line := range sc.check(net, res) {
				fmt.Printf("   %s\n", line)
			}
		}

		if *outDir != "" {
			if err := os.MkdirAll(*outDir, 0o755); err != nil {
				log.WithError(err).Fatal("failed to create output dir")
			}
			path := filepath.Join(*outDir, fmt.Sprintf("scenario_%d.csv", i+1))
			if err := valuation.WriteLedgerCSV(path, res.Ledger); err != nil {
				log.WithError(err).Fatal("failed to write ledger")
			}
		}
	}
}

type curve struct {
	df, bid, ask []float64
}

func cosineCurve(n int) curve {
	c := curve{df: make([]float64, n), bid: make([]float64, n), ask: make([]float64, n)}
	for t := 0; t < n; t++ {
		mid := 25 + math.Cos(2*math.Pi*float64(t)/float64(n))
		c.df[t] = math.Exp(-0.03 * float64(t) / 365)
		c.bid[t] = mid * 0.99
		c.ask[t] = mid * 1.01
	}
	return c
}

func (c curve) n() int { return len(c.df) }

func (c curve) grid() model.Grid { return model.UniformGrid(c.n(), 24) }

func (c curve) prices() (df, bid, ask model.Coeff) {
	return model.Series(c.df...), model.Series(c.bid...), model.Series(c.ask...)
}

type scenario struct {
	name  string
	build func(c curve) (*model.Network, error)
	check func(net *model.Network, res *valuation.Result) []string
}

var scenarios = []scenario{
	{
		name:  "standalone storage",
		build: func(c curve) (*model.Network, error) { return storageNetwork("standalone", c) },
		check: checkStorage,
	},
	{
		name: "storage with buy and sell markets",
		build: func(c curve) (*model.Network, error) {
			net, err := storageNetwork("two_markets", c)
			if err != nil {
				return nil, err
			}
			if err := addMarkets(net, c, "buy", "sell"); err != nil {
				return nil, err
			}
			return net, linkAll(net, [][2]string{{"buy", "stor"}, {"stor", "sell"}})
		},
		check: checkStorage,
	},
	{
		name:  "storage, hub and a daily product strip",
		build: func(c curve) (*model.Network, error) { return productNetwork("strip", c, 0) },
		check: checkStorage,
	},
	{
		name:  "storage, products and daily tranches",
		build: func(c curve) (*model.Network, error) { return trancheNetwork("tranches", c, nil) },
		check: checkTranches,
	},
	{
		name:  "daily products in 50 MW clips",
		build: func(c curve) (*model.Network, error) { return productNetwork("clipped", c, 50) },
		check: checkClips(50),
	},
	{
		name: "tranches limited to 20-100 MW",
		build: func(c curve) (*model.Network, error) {
			lo, hi := 20.0, 100.0
			return trancheNetwork("limited", c, []*float64{&lo, &hi})
		},
		check: checkCapacity(20, 100),
	},
}

func storageNetwork(name string, c curve) (*model.Network, error) {
	df, bid, ask := c.prices()
	st, err := model.NewStorage("stor", model.StorageParams{
		WGV:     86400,
		CI:      400,
		CR:      300,
		CostInj: model.Scalar(0.20),
		CostRel: model.Scalar(0.05),
		DF:      df,
		Bid:     bid,
		Ask:     ask,
	})
	if err != nil {
		return nil, err
	}
	net := model.NewNetwork(name, "")
	return net, net.Add(st)
}

func addMarkets(net *model.Network, c curve, names ...string) error {
	df, bid, ask := c.prices()
	for _, name := range names {
		mk, err := model.NewMarket(name, model.MarketParams{DF: df, Bid: bid, Ask: ask})
		if err != nil {
			return err
		}
		if err := net.Add(mk); err != nil {
			return err
		}
	}
	return nil
}

func linkAll(net *model.Network, links [][2]string) error {
	for _, l := range links {
		if err := net.Link(l[0], l[1]); err != nil {
			return err
		}
	}
	return nil
}

func dailyProduct(c curve, d int, clip float64) (*model.StandardProduct, error) {
	df, bid, ask := c.prices()
	return model.NewStandardProduct(fmt.Sprintf("day_%02d", d), model.ProductParams{
		Delivery: model.Period{Start: d, End: d},
		Clip:     clip,
		DF:       df,
		Bid:      bid,
		Ask:      ask,
	})
}

func productNetwork(name string, c curve, clip float64) (*model.Network, error) {
	net, err := storageNetwork(name, c)
	if err != nil {
		return nil, err
	}
	if err := addMarkets(net, c, "hub"); err != nil {
		return nil, err
	}
	if err := linkAll(net, [][2]string{{"stor", "hub"}, {"hub", "stor"}}); err != nil {
		return nil, err
	}
	for d := 0; d < c.n(); d++ {
		sp, err := dailyProduct(c, d, clip)
		if err != nil {
			return nil, err
		}
		if err := net.Add(sp); err != nil {
			return nil, err
		}
		if err := linkAll(net, [][2]string{{sp.Name(), "hub"}, {"hub", sp.Name()}}); err != nil {
			return nil, err
		}
	}
	return net, nil
}

func trancheNetwork(name string, c curve, caps []*float64) (*model.Network, error) {
	net, err := storageNetwork(name, c)
	if err != nil {
		return nil, err
	}
	if err := addMarkets(net, c, "buy", "sell"); err != nil {
		return nil, err
	}
	if err := linkAll(net, [][2]string{{"buy", "stor"}, {"stor", "sell"}}); err != nil {
		return nil, err
	}
	df, _, _ := c.prices()
	for d := 0; d < c.n(); d++ {
		sp, err := dailyProduct(c, d, 0)
		if err != nil {
			return nil, err
		}
		tr, err := model.NewTradeTranche(fmt.Sprintf("tr_%02d", d), model.TrancheParams{
			Price:          []float64{c.bid[d], c.ask[d]},
			Delivery:       model.Period{Start: d, End: d},
			CapacityLimits: caps,
			DF:             df,
		})
		if err != nil {
			return nil, err
		}
		if err := net.Add(sp, tr); err != nil {
			return nil, err
		}
		err = linkAll(net, [][2]string{
			{tr.Name(), sp.Name()},
			{sp.Name(), tr.Name()},
			{sp.Name(), "buy"},
			{"sell", sp.Name()},
		})
		if err != nil {
			return nil, err
		}
	}
	return net, nil
}

func checkStorage(_ *model.Network, res *valuation.Result) []string {
	rows := res.Rows("stor")
	if len(rows) == 0 {
		return nil
	}
	peak, inj, rel := 0.0, 0.0, 0.0
	for _, r := range rows {
		peak = math.Max(peak, r.LevelEnd)
		inj += r.Injection
		rel += r.Release
	}
	return []string{fmt.Sprintf("peak level %.3f, injected %.3f, released %.3f, final level %.3f",
		peak, inj, rel, rows[len(rows)-1].LevelEnd)}
}

func checkTranches(net *model.Network, res *valuation.Result) []string {
	out := checkStorage(net, res)
	bought, injected := 0.0, 0.0
	for _, r := range res.Ledger {
		switch r.Kind {
		case model.KindTradeTranche:
			bought += r.OutFlowMWh
		case model.KindStorage:
			injected += r.InFlowMWh
		}
	}
	return append(out, fmt.Sprintf("tranche purchases %.1f MWh, storage injections %.1f MWh", bought, injected))
}

func proxyPositions(net *model.Network, kind model.Kind) []*lp.Var {
	var out []*lp.Var
	for _, sc := range net.SemiContinuous() {
		if sc.Base().Kind() == kind {
			out = append(out, sc.ProxyPositions()...)
		}
	}
	return out
}

func checkClips(clip float64) func(*model.Network, *valuation.Result) []string {
	return func(net *model.Network, res *valuation.Result) []string {
		bad := 0
		for _, v := range proxyPositions(net, model.KindStandardProduct) {
			x := res.Values[v.Name]
			if math.Abs(x/clip-math.Round(x/clip)) > 1e-6 {
				bad++
			}
		}
		return []string{fmt.Sprintf("positions off the %.0f MW clip grid: %d", clip, bad)}
	}
}

func checkCapacity(lo, hi float64) func(*model.Network, *valuation.Result) []string {
	return func(net *model.Network, res *valuation.Result) []string {
		bad := 0
		for _, v := range proxyPositions(net, model.KindTradeTranche) {
			x := res.Values[v.Name]
			if x > 1e-6 && (x < lo-1e-6 || x > hi+1e-6) {
				bad++
			}
		}
		return []string{fmt.Sprintf("positions outside {0} ∪ [%.0f, %.0f]: %d", lo, hi, bad)}
	}
}
