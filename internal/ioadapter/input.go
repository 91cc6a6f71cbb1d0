// Package ioadapter is the thin, out-of-core adapter around the scheduling
// engine: CSV table readers/writers, a console summary printer, and a
// sqlite store for raw solve artifacts. None of it participates in the
// model; it only shuttles data across the engine's boundary (spec.md §6).
package ioadapter

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gitrdm/linebalancer/internal/calendar"
	"github.com/gitrdm/linebalancer/internal/engine"
	"github.com/gitrdm/linebalancer/internal/plannererr"
	"github.com/gitrdm/linebalancer/internal/taskgraph"
)

const (
	dateTimeLayout  = "2006-01-02 15:04"
	dateLayout      = "2006-01-02"
	timeOfDayLayout = "15:04"
)

// openCSV opens path and returns a reader positioned after its header row,
// plus the header itself for column-name lookups.
func openCSV(path string) (*csv.Reader, []string, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: open %s", path)
	}
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, nil, nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: read header of %s", path)
	}
	return r, header, f, nil
}

// columnIndex builds a name->index lookup over a CSV header, failing if any
// required column is absent.
func columnIndex(path string, header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, plannererr.New(plannererr.InvalidInput, "ioadapter: %s missing required column %q", path, name)
		}
	}
	return idx, nil
}

// ReadOrders parses the ORDERS table (spec.md §6.1).
func ReadOrders(path string) ([]taskgraph.RawOrder, error) {
	r, header, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := columnIndex(path, header, "reference", "due_date", "material_ready_date")
	if err != nil {
		return nil, err
	}

	var orders []taskgraph.RawOrder
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: malformed row", path)
		}

		due, err := time.Parse(dateTimeLayout, strings.TrimSpace(row[idx["due_date"]]))
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: due_date", path)
		}
		mat, err := time.Parse(dateTimeLayout, strings.TrimSpace(row[idx["material_ready_date"]]))
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: material_ready_date", path)
		}

		orders = append(orders, taskgraph.RawOrder{
			Reference:         strings.TrimSpace(row[idx["reference"]]),
			DueDate:           due,
			MaterialReadyDate: mat,
		})
	}
	return orders, nil
}

// ReadCalendar parses the CALENDAR table into calendar.Shift rows. shift_id
// is accepted for input traceability but carries no meaning downstream —
// shifts are identified purely by (day, start_time, end_time) once loaded.
func ReadCalendar(path string) ([]calendar.Shift, error) {
	r, header, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := columnIndex(path, header, "day", "start_time", "end_time", "operator_count")
	if err != nil {
		return nil, err
	}

	var shifts []calendar.Shift
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: malformed row", path)
		}

		day, err := time.Parse(dateLayout, strings.TrimSpace(row[idx["day"]]))
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: day", path)
		}
		start, err := parseTimeOfDay(row[idx["start_time"]])
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: start_time", path)
		}
		end, err := parseTimeOfDay(row[idx["end_time"]])
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: end_time", path)
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(row[idx["operator_count"]]))
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: operator_count", path)
		}

		shifts = append(shifts, calendar.Shift{
			Day:              day,
			StartTimeOfDay:   start,
			EndTimeOfDay:     end,
			OperatorCapacity: capacity,
		})
	}
	return shifts, nil
}

func parseTimeOfDay(field string) (time.Duration, error) {
	t, err := time.Parse(timeOfDayLayout, strings.TrimSpace(field))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// ReadTasks parses the TASKS table.
func ReadTasks(path string) ([]taskgraph.RawTask, error) {
	r, header, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := columnIndex(path, header,
		"parent_material", "internal_id", "predecessors", "station_id", "station_name",
		"kind", "description", "hours_operator", "hours_verification", "operators_max")
	if err != nil {
		return nil, err
	}

	var tasks []taskgraph.RawTask
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: malformed row", path)
		}

		internalID, err := strconv.Atoi(strings.TrimSpace(row[idx["internal_id"]]))
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: internal_id", path)
		}
		stationID, err := strconv.Atoi(strings.TrimSpace(row[idx["station_id"]]))
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: station_id", path)
		}
		kind, err := parseKind(row[idx["kind"]])
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: kind", path)
		}
		hoursOp, err := parseFloatOrZero(row[idx["hours_operator"]])
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: hours_operator", path)
		}
		hoursVer, err := parseFloatOrZero(row[idx["hours_verification"]])
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: hours_verification", path)
		}
		opsMax, err := parseIntOrZero(row[idx["operators_max"]])
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: operators_max", path)
		}

		tasks = append(tasks, taskgraph.RawTask{
			ParentMaterial:    strings.TrimSpace(row[idx["parent_material"]]),
			InternalID:        internalID,
			Predecessors:      strings.TrimSpace(row[idx["predecessors"]]),
			StationID:         stationID,
			StationName:       strings.TrimSpace(row[idx["station_name"]]),
			Kind:              kind,
			Description:       strings.TrimSpace(row[idx["description"]]),
			HoursOperator:     hoursOp,
			HoursVerification: hoursVer,
			OperatorsMax:      opsMax,
		})
	}
	return tasks, nil
}

func parseKind(field string) (taskgraph.Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(field)) {
	case "OPERATIVE":
		return taskgraph.Operative, nil
	case "VERIFICATION":
		return taskgraph.Verification, nil
	default:
		return 0, fmt.Errorf("unrecognised kind %q", field)
	}
}

func parseFloatOrZero(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("invalid float %q", field)
	}
	return v, nil
}

func parseIntOrZero(field string) (int, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, nil
	}
	return strconv.Atoi(field)
}

// ReadStations parses the STATIONS table.
func ReadStations(path string) ([]engine.Station, error) {
	r, header, f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := columnIndex(path, header, "station_id", "station_name", "capacity")
	if err != nil {
		return nil, err
	}

	var stations []engine.Station
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: malformed row", path)
		}

		id, err := strconv.Atoi(strings.TrimSpace(row[idx["station_id"]]))
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: station_id", path)
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(row[idx["capacity"]]))
		if err != nil {
			return nil, plannererr.Wrap(plannererr.InvalidInput, err, "ioadapter: %s: capacity", path)
		}

		stations = append(stations, engine.Station{
			ID:       id,
			Name:     strings.TrimSpace(row[idx["station_name"]]),
			Capacity: capacity,
		})
	}
	return stations, nil
}
