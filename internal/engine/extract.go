package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/gitrdm/linebalancer/internal/calendar"
)

// extractedTask is one task's resolved assignment, decompressed to wall
// clock, carried between extract's passes.
type extractedTask struct {
	tv          *taskVars
	compStart   int
	compEnd     int
	durationMin int
	operators   int
	realStart   time.Time
	realEnd     time.Time
}

// extract is the Solution Extractor (spec.md §4.7): it lifts a raw CP
// assignment back into wall-clock timestamps, builds the operator
// occupancy timeline, and computes per-order delivery metrics and their
// global aggregates.
func (s *Session) extract(assignment []int, objectiveReal int, status Status) (*Result, error) {
	finalDTByOrder := map[string]time.Time{}
	var rows []extractedTask

	for _, key := range s.order {
		tv := s.tasks[key]
		compStart := assignment[tv.start.ID()] - 1
		compEnd := assignment[tv.end.ID()] - 1
		durationMin := assignment[tv.duration.ID()] - 1
		operators := 0
		if tv.operators != nil {
			operators = assignment[tv.operators.ID()]
		}

		realStart, err := s.cal.Decompress(compStart, calendar.ModeStart)
		if err != nil {
			return nil, fmt.Errorf("engine: extract %s/%d start: %w", key.orderRef, key.localIndex, err)
		}
		realEnd, err := s.cal.Decompress(compEnd, calendar.ModeEnd)
		if err != nil {
			return nil, fmt.Errorf("engine: extract %s/%d end: %w", key.orderRef, key.localIndex, err)
		}

		rows = append(rows, extractedTask{
			tv:          tv,
			compStart:   compStart,
			compEnd:     compEnd,
			durationMin: durationMin,
			operators:   operators,
			realStart:   realStart,
			realEnd:     realEnd,
		})

		if cur, ok := finalDTByOrder[key.orderRef]; !ok || realEnd.After(cur) {
			finalDTByOrder[key.orderRef] = realEnd
		}
	}

	orderSummaries := make([]OrderSummary, 0, len(s.graph.Orders))
	summaryByRef := map[string]OrderSummary{}
	for _, order := range s.graph.Orders {
		finalDT := finalDTByOrder[order.Reference]

		delta := 0.0
		if finalDT.After(order.DueDate) {
			delta = s.cal.WorkingDays(order.DueDate, finalDT)
		} else if finalDT.Before(order.DueDate) {
			delta = -s.cal.WorkingDays(finalDT, order.DueDate)
		}
		leadTime := s.cal.WorkingDays(order.MaterialReadyDate, finalDT)

		summary := OrderSummary{
			Reference:           order.Reference,
			RequiredDT:          order.DueDate,
			MaterialDT:          order.MaterialReadyDate,
			FinalDT:             finalDT,
			DeltaWorkingDays:    delta,
			LeadTimeWorkingDays: leadTime,
		}
		orderSummaries = append(orderSummaries, summary)
		summaryByRef[order.Reference] = summary
	}

	scheduled := make([]ScheduledTask, 0, len(rows))
	for _, r := range rows {
		t := r.tv.task
		summary := summaryByRef[t.OrderRef]
		scheduled = append(scheduled, ScheduledTask{
			OrderRef:            t.OrderRef,
			LocalIndex:          t.LocalIndex,
			CompStart:           r.compStart,
			CompEnd:             r.compEnd,
			Operators:           r.operators,
			DurationMin:         r.durationMin,
			StationID:           t.StationID,
			Description:         t.Description,
			RealStartDT:         r.realStart,
			RealEndDT:           r.realEnd,
			RequiredDueDT:       summary.RequiredDT,
			EstimatedDueDT:      summary.FinalDT,
			DeltaWorkingDays:    summary.DeltaWorkingDays,
			LeadTimeWorkingDays: summary.LeadTimeWorkingDays,
		})
	}

	sort.SliceStable(scheduled, func(i, j int) bool {
		if scheduled[i].CompStart != scheduled[j].CompStart {
			return scheduled[i].CompStart < scheduled[j].CompStart
		}
		if scheduled[i].OrderRef != scheduled[j].OrderRef {
			return scheduled[i].OrderRef < scheduled[j].OrderRef
		}
		return scheduled[i].LocalIndex < scheduled[j].LocalIndex
	})

	timeline, err := s.buildTimeline(rows)
	if err != nil {
		return nil, err
	}

	metrics := s.globalMetrics(orderSummaries)

	return &Result{
		Status:         status,
		Objective:      objectiveReal,
		ScheduledTasks: scheduled,
		Timeline:       timeline,
		Stations:       s.stations,
		OrderSummaries: orderSummaries,
		Metrics:        metrics,
	}, nil
}

// timelineEvent is one occupancy-delta point in the sweep.
type timelineEvent struct {
	t     int
	delta int
}

// buildTimeline constructs the operator-occupancy sweep (spec.md §4.7):
// a sorted event stream of (+operators) at task start, (-operators) at
// task end, plus zero-delta sentinels at every shift boundary so no
// segment ever straddles two CompressedIntervals with different
// capacities.
func (s *Session) buildTimeline(rows []extractedTask) ([]TimelineSegment, error) {
	var events []timelineEvent
	for _, r := range rows {
		if r.operators <= 0 {
			continue
		}
		events = append(events, timelineEvent{t: r.compStart, delta: r.operators})
		events = append(events, timelineEvent{t: r.compEnd, delta: -r.operators})
	}
	intervals := s.cal.Intervals()
	for _, iv := range intervals {
		events = append(events, timelineEvent{t: iv.CompStart, delta: 0})
		events = append(events, timelineEvent{t: iv.CompEnd, delta: 0})
	}
	if len(events) == 0 {
		return nil, nil
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].t != events[j].t {
			return events[i].t < events[j].t
		}
		return events[i].delta > events[j].delta
	})

	capacityAt := func(t int) int {
		for _, iv := range intervals {
			if t >= iv.CompStart && t < iv.CompEnd {
				return iv.Capacity
			}
		}
		return 0
	}

	var segments []TimelineSegment
	occupancy := 0
	idx := 0
	for idx < len(events) {
		t := events[idx].t
		for idx < len(events) && events[idx].t == t {
			occupancy += events[idx].delta
			idx++
		}
		if idx >= len(events) {
			break
		}
		next := events[idx].t
		if next == t {
			continue
		}

		capacity := capacityAt(t)
		realStart, err := s.cal.Decompress(t, calendar.ModeStart)
		if err != nil {
			return nil, fmt.Errorf("engine: timeline segment start %d: %w", t, err)
		}
		realEnd, err := s.cal.Decompress(next, calendar.ModeEnd)
		if err != nil {
			return nil, fmt.Errorf("engine: timeline segment end %d: %w", next, err)
		}

		denom := capacity
		if denom < 1 {
			denom = 1
		}
		percent := 100 * float64(occupancy) / float64(denom)

		segments = append(segments, TimelineSegment{
			CompStart:     t,
			CompEnd:       next,
			Occupancy:     occupancy,
			ShiftCapacity: capacity,
			Percent:       percent,
			RealStartDT:   realStart,
			RealEndDT:     realEnd,
		})
	}

	return segments, nil
}

// globalMetrics aggregates delivery performance across every order
// (spec.md §4.7): mean lateness over strictly positive deltas only, mean
// lead time over all orders, the mean working-day gap between
// consecutive sorted completion dates, and the calendar's average
// working hours per day.
func (s *Session) globalMetrics(summaries []OrderSummary) GlobalMetrics {
	var latenessSum float64
	var latenessCount int
	var leadSum float64
	finals := make([]time.Time, 0, len(summaries))

	for _, sum := range summaries {
		if sum.DeltaWorkingDays > 0 {
			latenessSum += sum.DeltaWorkingDays
			latenessCount++
		}
		leadSum += sum.LeadTimeWorkingDays
		finals = append(finals, sum.FinalDT)
	}

	sort.Slice(finals, func(i, j int) bool { return finals[i].Before(finals[j]) })

	var gapSum float64
	var gapCount int
	for i := 1; i < len(finals); i++ {
		gapSum += s.cal.WorkingDays(finals[i-1], finals[i])
		gapCount++
	}

	meanLateness := 0.0
	if latenessCount > 0 {
		meanLateness = latenessSum / float64(latenessCount)
	}
	meanLead := 0.0
	if len(summaries) > 0 {
		meanLead = leadSum / float64(len(summaries))
	}
	meanGap := 0.0
	if gapCount > 0 {
		meanGap = gapSum / float64(gapCount)
	}

	return GlobalMetrics{
		MeanLatenessDays:         meanLateness,
		MeanLeadTimeDays:         meanLead,
		MeanInterDeliveryGapDays: meanGap,
		WorkingHoursPerDay:       s.cal.AverageWorkingSecondsPerDay() / 3600,
	}
}
