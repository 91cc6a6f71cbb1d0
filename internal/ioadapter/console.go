package ioadapter

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/gitrdm/linebalancer/internal/engine"
)

// PrintResult renders a solved Result as three console tables — task
// detail, occupancy timeline, and order summary — followed by one line of
// global metrics. The first two follow the two plain-text blocks
// imprimir_resultados_consola once printed, reimplemented over go-pretty
// instead of hand-formatted f-strings.
func PrintResult(w io.Writer, result *engine.Result) {
	if len(result.ScheduledTasks) == 0 {
		fmt.Fprintf(w, "No feasible schedule (status=%s).\n", result.Status)
		return
	}

	makespan := 0
	for _, row := range result.ScheduledTasks {
		if row.CompEnd > makespan {
			makespan = row.CompEnd
		}
	}
	fmt.Fprintf(w, "\nSolution status=%s, makespan=%d, objective=%d\n", result.Status, makespan, result.Objective)

	taskTable := table.NewWriter()
	taskTable.SetOutputMirror(w)
	taskTable.SetTitle("Scheduled tasks")
	taskTable.AppendHeader(table.Row{"order", "idx", "station", "start", "end", "dur", "ops", "real start", "real end"})
	for _, row := range result.ScheduledTasks {
		taskTable.AppendRow(table.Row{
			row.OrderRef, row.LocalIndex, row.StationID, row.CompStart, row.CompEnd, row.DurationMin, row.Operators,
			row.RealStartDT.Format(dateTimeLayout), row.RealEndDT.Format(dateTimeLayout),
		})
	}
	taskTable.Render()

	fmt.Fprintln(w, "\nOccupancy timeline:")
	timelineTable := table.NewWriter()
	timelineTable.SetOutputMirror(w)
	timelineTable.AppendHeader(table.Row{"start", "end", "occupancy", "capacity", "%occ", "real start", "real end"})
	for _, seg := range result.Timeline {
		timelineTable.AppendRow(table.Row{
			seg.CompStart, seg.CompEnd, seg.Occupancy, seg.ShiftCapacity,
			fmt.Sprintf("%.1f%%", seg.Percent),
			seg.RealStartDT.Format(dateTimeLayout), seg.RealEndDT.Format(dateTimeLayout),
		})
	}
	timelineTable.Render()

	fmt.Fprintln(w, "\nOrder summary:")
	orderTable := table.NewWriter()
	orderTable.SetOutputMirror(w)
	orderTable.AppendHeader(table.Row{"order", "required", "final", "delta (wd)", "lead time (wd)"})
	for _, sum := range result.OrderSummaries {
		orderTable.AppendRow(table.Row{
			sum.Reference,
			sum.RequiredDT.Format(dateTimeLayout),
			sum.FinalDT.Format(dateTimeLayout),
			fmt.Sprintf("%.2f", sum.DeltaWorkingDays),
			fmt.Sprintf("%.2f", sum.LeadTimeWorkingDays),
		})
	}
	orderTable.Render()

	fmt.Fprintf(w, "\nMean lateness=%.2f wd, mean lead time=%.2f wd, mean inter-delivery gap=%.2f wd, working hours/day=%.2f\n",
		result.Metrics.MeanLatenessDays, result.Metrics.MeanLeadTimeDays,
		result.Metrics.MeanInterDeliveryGapDays, result.Metrics.WorkingHoursPerDay)
}
