package valuation

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
)

var ledgerHeader = []string{
	"index",
	"start_hours",
	"duration_hours",
	"entity",
	"kind",
	"action",
	"in_flow_mwh",
	"out_flow_mwh",
	"level_start",
	"level_end",
	"injection",
	"release",
	"long_mw",
	"short_mw",
	"sales_mw",
	"purchase_mw",
	"value",
	"cum_value",
}

func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteLedger(f, ledger)
}

// WriteLedger writes the ledger as CSV with a header row.
func WriteLedger(out io.Writer, ledger []LedgerRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(ledgerHeader); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Index),
			fmtFloat(r.StartHours),
			fmtFloat(r.DurationHours),
			r.Entity,
			r.Kind.String(),
			string(r.Action),
			fmtFloat(r.InFlowMWh),
			fmtFloat(r.OutFlowMWh),
			fmtFloat(r.LevelStart),
			fmtFloat(r.LevelEnd),
			fmtFloat(r.Injection),
			fmtFloat(r.Release),
			fmtFloat(r.LongMW),
			fmtFloat(r.ShortMW),
			fmtFloat(r.SalesMW),
			fmtFloat(r.PurchaseMW),
			r.Value.StringFixed(CashPlaces),
			r.CumValue.StringFixed(CashPlaces),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
