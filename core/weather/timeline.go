package weather

import "time"

// FuseTimeline merges the already-elapsed hours of today, the latest
// observation and the hourly forecast into one sequence covering the span
// from the first history record to the end of the forecast horizon.
//
// Hours reported by neither history nor forecast are filled with clones of
// the current observation, the latest known conditions being the best
// estimate available. Where history or forecast overlap the current
// observation's hour, the current observation wins. The result contains
// exactly one record per hour.
func FuseTimeline(history []Record, current Record, forecast []Record) []Record {
	fused := make([]Record, len(history))
	copy(fused, history)

	lastHistoryHour := 0
	lastHistoryMoment := current.Time
	if len(history) > 0 {
		last := history[len(history)-1]
		lastHistoryHour = last.Time.Hour()
		lastHistoryMoment = last.Time
	}
	firstForecastHour := 0
	if len(forecast) > 0 {
		firstForecastHour = forecast[0].Time.Hour()
	}

	gapHours := firstForecastHour - lastHistoryHour
	if gapHours < 0 {
		gapHours += 24
	}
	for i := 1; i < gapHours; i++ {
		filler := current.Clone()
		filler.Time = lastHistoryMoment.Add(time.Duration(i) * time.Hour)
		fused = append(fused, filler)
	}

	if len(fused) > 0 && fused[len(fused)-1].SameHour(current) {
		fused[len(fused)-1] = current
	}
	if len(forecast) > 0 && forecast[0].SameHour(current) {
		forecast = append([]Record{current}, forecast[1:]...)
	}

	fused = append(fused, forecast...)
	return dedupeHours(fused)
}

// dedupeHours removes later records sharing an hour with an earlier one.
func dedupeHours(records []Record) []Record {
	out := records[:0]
	seen := make(map[time.Time]bool, len(records))
	for _, r := range records {
		hour := r.Time.Truncate(time.Hour)
		if seen[hour] {
			continue
		}
		seen[hour] = true
		out = append(out, r)
	}
	return out
}

// Between returns the records whose timestamps fall in [start, end).
func Between(records []Record, start, end time.Time) []Record {
	var out []Record
	for _, r := range records {
		if !r.Time.Before(start) && r.Time.Before(end) {
			out = append(out, r)
		}
	}
	return out
}
