package ioadapter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gitrdm/linebalancer/internal/engine"
	"github.com/gitrdm/linebalancer/internal/plannererr"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestReadOrdersBasic(t *testing.T) {
	path := writeTempCSV(t, "ORDERS.csv", "reference,due_date,material_ready_date\n"+
		"A,2025-03-04 16:00,2025-03-03 08:00\n")

	orders, err := ReadOrders(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if orders[0].Reference != "A" {
		t.Fatalf("expected reference A, got %q", orders[0].Reference)
	}
	wantDue, _ := time.Parse(dateTimeLayout, "2025-03-04 16:00")
	if !orders[0].DueDate.Equal(wantDue) {
		t.Fatalf("expected due_date %v, got %v", wantDue, orders[0].DueDate)
	}
}

func TestReadOrdersMissingColumn(t *testing.T) {
	path := writeTempCSV(t, "ORDERS.csv", "reference,due_date\nA,2025-03-04 16:00\n")

	_, err := ReadOrders(path)
	if !plannererr.Is(err, plannererr.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestReadCalendarBasic(t *testing.T) {
	path := writeTempCSV(t, "CALENDAR.csv", "day,start_time,end_time,operator_count\n"+
		"2025-03-03,08:00,16:00,2\n")

	shifts, err := ReadCalendar(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shifts) != 1 {
		t.Fatalf("expected 1 shift, got %d", len(shifts))
	}
	if shifts[0].OperatorCapacity != 2 {
		t.Fatalf("expected capacity 2, got %d", shifts[0].OperatorCapacity)
	}
	if shifts[0].StartTimeOfDay != 8*time.Hour {
		t.Fatalf("expected start 8h, got %v", shifts[0].StartTimeOfDay)
	}
	if shifts[0].EndTimeOfDay != 16*time.Hour {
		t.Fatalf("expected end 16h, got %v", shifts[0].EndTimeOfDay)
	}
}

func TestReadTasksFillsEmptyNumericFieldsWithZero(t *testing.T) {
	path := writeTempCSV(t, "TASKS.csv",
		"parent_material,internal_id,predecessors,station_id,station_name,kind,description,hours_operator,hours_verification,operators_max\n"+
			"A,1,,1,Weld,OPERATIVE,weld panel,2,,2\n"+
			"A,2,1,1,Weld,VERIFICATION,check weld,,0.5,\n")

	tasks, err := ReadTasks(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].HoursOperator != 2 || tasks[0].HoursVerification != 0 {
		t.Fatalf("unexpected task 0 hours: %+v", tasks[0])
	}
	if tasks[1].HoursOperator != 0 || tasks[1].HoursVerification != 0.5 || tasks[1].OperatorsMax != 0 {
		t.Fatalf("unexpected task 1 fields: %+v", tasks[1])
	}
}

func TestReadTasksRejectsUnknownKind(t *testing.T) {
	path := writeTempCSV(t, "TASKS.csv",
		"parent_material,internal_id,predecessors,station_id,station_name,kind,description,hours_operator,hours_verification,operators_max\n"+
			"A,1,,1,Weld,BOGUS,weld panel,2,,2\n")

	_, err := ReadTasks(path)
	if !plannererr.Is(err, plannererr.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestReadStationsBasic(t *testing.T) {
	path := writeTempCSV(t, "STATIONS.csv", "station_id,station_name,capacity\n1,Weld,2\n")

	stations, err := ReadStations(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stations) != 1 || stations[0].Name != "Weld" || stations[0].Capacity != 2 {
		t.Fatalf("unexpected stations: %+v", stations)
	}
}

func TestWriteOutputsCreatesAllTables(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)

	result := &engine.Result{
		Status:    engine.StatusOptimal,
		Objective: 120,
		ScheduledTasks: []engine.ScheduledTask{
			{OrderRef: "A", LocalIndex: 0, CompStart: 0, CompEnd: 60, Operators: 2, DurationMin: 60,
				StationID: 1, RealStartDT: now, RealEndDT: now.Add(time.Hour),
				RequiredDueDT: now, EstimatedDueDT: now},
		},
		Timeline: []engine.TimelineSegment{
			{CompStart: 0, CompEnd: 60, Occupancy: 2, ShiftCapacity: 2, Percent: 100, RealStartDT: now, RealEndDT: now.Add(time.Hour)},
		},
		Stations: []engine.Station{{ID: 1, Name: "Weld", Capacity: 1}},
		OrderSummaries: []engine.OrderSummary{
			{Reference: "A", RequiredDT: now, MaterialDT: now, FinalDT: now},
		},
		Metrics: engine.GlobalMetrics{WorkingHoursPerDay: 8},
	}

	if err := WriteOutputs(dir, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{
		"scheduled_tasks.csv", "timeline.csv", "stations.csv", "order_summary.csv", "global_metrics.csv",
	} {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", name)
		}
	}
}
