package calendar

// =============================================================================
// BUSINESS-DAY CALCULATOR
// =============================================================================

// Metrics summarises a date range for a jurisdiction.
type Metrics struct {
	CalendarDays  int `json:"calendar_days"`
	BusinessDays  int `json:"business_days"`
	HolidaysCount int `json:"holidays_count"`
}

// IsZero reports whether this is the zero-metric fallback.
func (m Metrics) IsZero() bool {
	return m == Metrics{}
}

// ComputeMetrics counts calendar days, business days and holidays in
// [start, end]. A missing date or end before start yields the zero Metrics;
// the calculator never fails.
//
// HolidaysCount counts each distinct qualifying date once, including dates
// that fall on a weekend. BusinessDays excludes weekends and holiday dates,
// so a weekend holiday is not subtracted twice.
func ComputeMetrics(start, end Date, j Jurisdiction, registry []Holiday) Metrics {
	r := Range{Start: start, End: end}
	if !r.Valid() {
		return Metrics{}
	}

	holidayDates := make(map[string]struct{})
	for _, h := range ApplicableHolidays(start, end, j, registry) {
		holidayDates[h.Date.String()] = struct{}{}
	}

	m := Metrics{
		CalendarDays:  start.DaysUntil(end) + 1,
		HolidaysCount: len(holidayDates),
	}
	for d := start; !d.After(end); d = d.AddDays(1) {
		if d.IsWeekend() {
			continue
		}
		if _, ok := holidayDates[d.String()]; ok {
			continue
		}
		m.BusinessDays++
	}
	return m
}

// PreviewMetrics is ComputeMetrics over raw YYYY-MM-DD strings, used for live
// form previews. Unparseable input degrades to the zero Metrics.
func PreviewMetrics(start, end string, j Jurisdiction, registry []Holiday) Metrics {
	s, err := ParseDate(start)
	if err != nil {
		return Metrics{}
	}
	e, err := ParseDate(end)
	if err != nil {
		return Metrics{}
	}
	return ComputeMetrics(s, e, j, registry)
}
