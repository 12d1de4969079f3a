// Package report writes per-scenario outputs: the accepted solution, the
// convergence trail, and a batch-wide summary. Persisted files are a side
// channel for inspection; correctness never depends on re-reading them.
package report

import (
	"encoding/csv"
	"math"
	"os"
	"sort"
	"strconv"

	"gasplan/internal/controller"
	"gasplan/internal/demand"
	"gasplan/internal/model"
)

// WriteSolution writes the final per-(zone, sector, timepoint) prices and
// quantities next to their calibration anchors and marginal costs.
func WriteSolution(path string, top *model.Topology, res *controller.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"zone",
		"period",
		"timeseries",
		"timepoint",
		"sector",
		"final_price",
		"final_quantity",
		"marginal_cost",
		"base_price",
		"base_quantity",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, k := range res.Bids.Keys() {
		b := res.Bids[k]
		tp, _ := top.TimepointByName(k.Timepoint)
		period, _ := top.PeriodOfTimepoint(k.Timepoint)

		dual := math.NaN()
		qty := b.Quantity
		if res.Solution != nil {
			if d, ok := res.Solution.Duals[k]; ok {
				dual = d
			}
			if q, ok := res.Solution.Quantities[k]; ok {
				qty = q
			}
		}

		row := []string{
			k.Zone,
			period,
			tp.Timeseries,
			k.Timepoint,
			string(k.Sector),
			fmtFloat(b.Price),
			fmtFloat(qty),
			fmtFloat(dual),
			fmtFloat(b.RefPrice),
			fmtFloat(b.RefQuantity),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// WriteBids logs every bid curve offered to the engine, one row per
// (iteration, zone, sector, timepoint), so a run's demand trajectory can be
// replayed offline.
func WriteBids(path string, top *model.Topology, trail []controller.BidIteration) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"iteration", "zone", "timeseries", "sector", "price", "quantity", "wtp"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, it := range trail {
		for _, k := range sortedBidKeys(it.Bids) {
			b := it.Bids[k]
			tp, _ := top.TimepointByName(k.Timepoint)
			row := []string{
				strconv.Itoa(it.Iteration),
				k.Zone,
				tp.Timeseries,
				string(k.Sector),
				fmtFloat(b.Price),
				fmtFloat(b.Quantity),
				fmtFloat(b.WTP),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return w.Error()
}

func sortedBidKeys(bids map[model.BidKey]demand.Bid) []model.BidKey {
	keys := make([]model.BidKey, 0, len(bids))
	for k := range bids {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Zone != b.Zone {
			return a.Zone < b.Zone
		}
		if a.Timepoint != b.Timepoint {
			return a.Timepoint < b.Timepoint
		}
		return a.Sector < b.Sector
	})
	return keys
}

// WriteConvergence writes one row per outer iteration.
func WriteConvergence(path string, history []controller.IterationRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"iteration", "objective", "max_relative_change"}); err != nil {
		return err
	}
	for _, rec := range history {
		row := []string{
			strconv.Itoa(rec.Iteration),
			fmtFloat(rec.Objective),
			fmtFloat(rec.Metric),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// SectorPeriodStat aggregates one sector's annual payments and volumes over
// one period at the run's final prices.
type SectorPeriodStat struct {
	Sector  model.Sector
	Period  string
	Payment float64
	Volume  float64
}

// SectorPeriodStats sums payment (price * quantity) and volume per sector and
// period over all zones, weighted to annual totals. Order is sector-major,
// periods in input order, so the summary columns stay stable across rows.
func SectorPeriodStats(top *model.Topology, bids model.BidSet) []SectorPeriodStat {
	var stats []SectorPeriodStat
	for _, sector := range model.Sectors {
		for _, p := range top.Periods {
			stat := SectorPeriodStat{Sector: sector, Period: p.Name}
			for _, tp := range top.TimepointsInPeriod(p.Name) {
				for _, z := range top.Zones {
					b, ok := bids[model.BidKey{Zone: z.Name, Sector: sector, Timepoint: tp.Name}]
					if !ok {
						continue
					}
					stat.Payment += b.Price * b.Quantity * tp.WeightInYear
					stat.Volume += b.Quantity * tp.WeightInYear
				}
			}
			stats = append(stats, stat)
		}
	}
	return stats
}

// SummaryRow is one scenario outcome in the batch summary.
type SummaryRow struct {
	RunID       string
	Scenario    string
	State       string // CONVERGED or the failure kind
	Iterations  int
	FinalMetric float64
	Objective   float64

	// Stats carries per-(sector, period) payments and volumes; failed runs
	// with no final bid set leave it empty.
	Stats []SectorPeriodStat
}

// AppendSummary appends one outcome row, creating the file with a header on
// first use. The file is retained across scenarios so a batch accumulates
// into one table; rows of one batch share the same stat columns because they
// share a topology.
func AppendSummary(path string, row SummaryRow) error {
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if fresh {
		header := []string{"run_id", "scenario", "state", "iterations", "final_metric", "objective"}
		for _, s := range row.Stats {
			header = append(header, "payment_"+string(s.Sector)+"_"+s.Period)
		}
		for _, s := range row.Stats {
			header = append(header, "volume_"+string(s.Sector)+"_"+s.Period)
		}
		if err := w.Write(header); err != nil {
			return err
		}
	}
	rec := []string{
		row.RunID,
		row.Scenario,
		row.State,
		strconv.Itoa(row.Iterations),
		fmtFloat(row.FinalMetric),
		fmtFloat(row.Objective),
	}
	for _, s := range row.Stats {
		rec = append(rec, fmtFloat(s.Payment))
	}
	for _, s := range row.Stats {
		rec = append(rec, fmtFloat(s.Volume))
	}
	if err := w.Write(rec); err != nil {
		return err
	}
	return w.Error()
}

func fmtFloat(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return strconv.FormatFloat(x, 'f', 6, 64)
}
