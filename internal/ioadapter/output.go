package ioadapter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gitrdm/linebalancer/internal/engine"
)

// WriteOutputs renders every output table of a solved Result (spec.md
// §6.2) as CSV files under dir, creating dir if needed. Callers gate on
// Result.Status before calling this (spec.md §7): an INFEASIBLE/UNKNOWN
// result carries empty tables, which this writes as header-only files,
// except global_metrics.csv, which always gets one (then all-zero) row.
func WriteOutputs(dir string, result *engine.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ioadapter: create output dir %s: %w", dir, err)
	}

	writers := []struct {
		name string
		fn   func(string, *engine.Result) error
	}{
		{"scheduled_tasks.csv", writeScheduledTasks},
		{"timeline.csv", writeTimeline},
		{"stations.csv", writeStations},
		{"order_summary.csv", writeOrderSummaries},
		{"global_metrics.csv", writeGlobalMetrics},
	}
	for _, w := range writers {
		if err := w.fn(filepath.Join(dir, w.name), result); err != nil {
			return err
		}
	}
	return nil
}

func createCSV(path string) (*csv.Writer, *os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("ioadapter: create %s: %w", path, err)
	}
	return csv.NewWriter(f), f, nil
}

func writeScheduledTasks(path string, result *engine.Result) error {
	w, f, err := createCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()

	w.Write([]string{
		"order_ref", "local_index", "comp_start", "comp_end", "operators", "duration_min",
		"station_id", "real_start_dt", "real_end_dt", "required_due_dt", "estimated_due_dt",
		"delta_working_days", "lead_time_working_days",
	})
	for _, row := range result.ScheduledTasks {
		w.Write([]string{
			row.OrderRef,
			strconv.Itoa(row.LocalIndex),
			strconv.Itoa(row.CompStart),
			strconv.Itoa(row.CompEnd),
			strconv.Itoa(row.Operators),
			strconv.Itoa(row.DurationMin),
			strconv.Itoa(row.StationID),
			row.RealStartDT.Format(dateTimeLayout),
			row.RealEndDT.Format(dateTimeLayout),
			row.RequiredDueDT.Format(dateTimeLayout),
			row.EstimatedDueDT.Format(dateTimeLayout),
			strconv.FormatFloat(row.DeltaWorkingDays, 'f', 4, 64),
			strconv.FormatFloat(row.LeadTimeWorkingDays, 'f', 4, 64),
		})
	}
	return w.Error()
}

func writeTimeline(path string, result *engine.Result) error {
	w, f, err := createCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()

	w.Write([]string{"comp_start", "comp_end", "occupancy", "shift_capacity", "percent", "real_start_dt", "real_end_dt"})
	for _, seg := range result.Timeline {
		w.Write([]string{
			strconv.Itoa(seg.CompStart),
			strconv.Itoa(seg.CompEnd),
			strconv.Itoa(seg.Occupancy),
			strconv.Itoa(seg.ShiftCapacity),
			strconv.FormatFloat(seg.Percent, 'f', 1, 64),
			seg.RealStartDT.Format(dateTimeLayout),
			seg.RealEndDT.Format(dateTimeLayout),
		})
	}
	return w.Error()
}

func writeStations(path string, result *engine.Result) error {
	w, f, err := createCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()

	w.Write([]string{"station_id", "station_name", "capacity"})
	for _, st := range result.Stations {
		w.Write([]string{strconv.Itoa(st.ID), st.Name, strconv.Itoa(st.Capacity)})
	}
	return w.Error()
}

func writeOrderSummaries(path string, result *engine.Result) error {
	w, f, err := createCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()

	w.Write([]string{"reference", "required_dt", "material_dt", "final_dt", "delta_working_days", "lead_time_working_days"})
	for _, sum := range result.OrderSummaries {
		w.Write([]string{
			sum.Reference,
			sum.RequiredDT.Format(dateTimeLayout),
			sum.MaterialDT.Format(dateTimeLayout),
			sum.FinalDT.Format(dateTimeLayout),
			strconv.FormatFloat(sum.DeltaWorkingDays, 'f', 4, 64),
			strconv.FormatFloat(sum.LeadTimeWorkingDays, 'f', 4, 64),
		})
	}
	return w.Error()
}

func writeGlobalMetrics(path string, result *engine.Result) error {
	w, f, err := createCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()

	w.Write([]string{"mean_lateness_days", "mean_lead_time_days", "mean_inter_delivery_gap_days", "working_hours_per_day"})
	w.Write([]string{
		strconv.FormatFloat(result.Metrics.MeanLatenessDays, 'f', 4, 64),
		strconv.FormatFloat(result.Metrics.MeanLeadTimeDays, 'f', 4, 64),
		strconv.FormatFloat(result.Metrics.MeanInterDeliveryGapDays, 'f', 4, 64),
		strconv.FormatFloat(result.Metrics.WorkingHoursPerDay, 'f', 4, 64),
	})
	return w.Error()
}
