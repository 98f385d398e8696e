package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gas-valuation/internal/data"
)

// update-curves downloads the forward curve of every known hub and stores it
// as examples/curves/<hub>.json, refreshing the hub list timestamp.
func main() {
	var (
		hubsPath = flag.String("hubs", "", "Hub list file (default: $HUBS_FILE or ./examples/hubs.json)")
		outDir   = flag.String("out", "examples/curves", "Directory for the curve files")
		baseURL  = flag.String("base-url", os.Getenv("CURVE_BASE_URL"), "Curve service base URL")
		only     = flag.String("hub-ids", "", "Optional: comma-separated hubs to refresh")
		days     = flag.Int("days", 365, "Number of delivery days from tomorrow")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	apiKey := os.Getenv("CURVE_API_KEY")
	if apiKey == "" {
		log.Fatal("CURVE_API_KEY environment variable is required")
	}
	if *hubsPath == "" {
		*hubsPath = data.DefaultHubsPath()
	}

	list, err := data.LoadHubs(*hubsPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load hubs")
	}
	wanted := map[string]bool{}
	for _, id := range strings.Split(*only, ",") {
		if id = strings.TrimSpace(id); id != "" {
			wanted[id] = true
		}
	}

	start := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	end := start.AddDate(0, 0, *days)
	client := data.NewCurveClient(apiKey, *baseURL, log)

	fmt.Printf("Updating curves from %s to %s\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	updated := 0
	for _, hub := range list.Hubs {
		if len(wanted) > 0 && !wanted[hub.ID] {
			continue
		}
		curve, err := client.FetchCurve(context.Background(), data.CurveQuery{Hub: hub.ID, Start: start, End: end})
		if err != nil {
			// keep the previous file
			log.WithError(err).WithField("hub", hub.ID).Warn("failed to fetch curve")
			continue
		}
		if curve.Currency == "" {
			curve.Currency = hub.Currency
		}
		path := filepath.Join(*outDir, strings.ToLower(hub.ID)+".json")
		if err := data.SaveForwardCurveJSON(curve, path); err != nil {
			log.WithError(err).WithField("hub", hub.ID).Fatal("failed to save curve")
		}
		updated++
		fmt.Printf("  updated %s: %d points -> %s\n", hub.ID, len(curve.Points), path)
	}

	list.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := data.SaveHubs(list, *hubsPath); err != nil {
		log.WithError(err).Fatal("failed to save hubs")
	}
	fmt.Printf("Updated %d/%d hubs\n", updated, len(list.Hubs))
}
