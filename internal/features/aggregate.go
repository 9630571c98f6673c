package features

import (
	"sort"
)

// AggregatedEvent is the minimal view the session aggregator needs
// from a persisted domain.BehavioralEvent — kept dependency-free of
// internal/domain to avoid an import cycle (domain does not depend on
// features).
type AggregatedEvent struct {
	Kind      string // "keystroke" or "pointer"
	Features  map[string]float64
	Timestamp float64 // unix seconds
}

// AggregateSession implements spec §4.4: partitions a session's
// events by kind, aggregates per-feature statistics, derives
// consistency metrics, temporal and cross-modal features. The
// returned map may contain names outside Vocabulary (diagnostic
// extras); only Vector() is fed to the model.
func AggregateSession(events []AggregatedEvent) map[string]float64 {
	out := map[string]float64{}
	if len(events) == 0 {
		return out
	}

	sorted := append([]AggregatedEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	var ks, ms []AggregatedEvent
	for _, e := range sorted {
		switch e.Kind {
		case "keystroke":
			ks = append(ks, e)
		case "pointer":
			ms = append(ms, e)
		}
	}

	if len(ks) > 0 {
		aggregatePrefixed(out, ks, "ks", true)
		aggregateKeystrokePatterns(out, ks)
	}
	if len(ms) > 0 {
		aggregatePrefixed(out, ms, "ms", false)
		aggregatePointerPatterns(out, ms)
	}

	aggregateTemporal(out, sorted)

	if len(ks) > 0 && len(ms) > 0 {
		aggregateCrossModal(out, ks, ms)
	}

	for k, v := range out {
		out[k] = Sanitize(v)
	}
	return out
}

// aggregatePrefixed emits <prefix>_<name>_mean/_std/_median and either
// _iqr (keystroke) or _min/_max (pointer) for every feature name seen
// in at least one event's map.
func aggregatePrefixed(out map[string]float64, events []AggregatedEvent, prefix string, withIQR bool) {
	names := map[string]struct{}{}
	for _, e := range events {
		for name := range e.Features {
			names[name] = struct{}{}
		}
	}
	for name := range names {
		var values []float64
		for _, e := range events {
			if v, ok := e.Features[name]; ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		out[prefix+"_"+name+"_mean"] = mean(values)
		out[prefix+"_"+name+"_std"] = stddev(values)
		out[prefix+"_"+name+"_median"] = median(values)
		if withIQR {
			out[prefix+"_"+name+"_iqr"] = iqr(values)
		} else {
			out[prefix+"_"+name+"_max"] = maxOf(values)
			out[prefix+"_"+name+"_min"] = minOf(values)
		}
	}
}

func perEventValues(events []AggregatedEvent, name string) []float64 {
	values := make([]float64, 0, len(events))
	for _, e := range events {
		values = append(values, e.Features[name])
	}
	return values
}

func aggregateKeystrokePatterns(out map[string]float64, ks []AggregatedEvent) {
	if len(ks) > 1 {
		dwellMeans := perEventValues(ks, "avg_dwell_time")
		flightMeans := perEventValues(ks, "avg_flight_time")
		out["ks_dwell_consistency"] = 1.0 / (1.0 + stddev(dwellMeans))
		out["ks_flight_consistency"] = 1.0 / (1.0 + stddev(flightMeans))
	}
	rhythmVars := perEventValues(ks, "typing_rhythm_variance")
	out["ks_rhythm_stability"] = 1.0 / (1.0 + mean(rhythmVars))

	errorRates := perEventValues(ks, "error_correction_rate")
	out["ks_error_consistency"] = 1.0 - stddev(errorRates)
}

func aggregatePointerPatterns(out map[string]float64, ms []AggregatedEvent) {
	if len(ms) > 1 {
		velocityMeans := perEventValues(ms, "velocity_mean")
		smoothnessVals := perEventValues(ms, "movement_smoothness")
		out["ms_velocity_consistency"] = 1.0 / (1.0 + stddev(velocityMeans))
		out["ms_smoothness_consistency"] = 1.0 / (1.0 + stddev(smoothnessVals))
	}
	clickPrecisions := perEventValues(ms, "click_precision")
	out["ms_click_stability"] = 1.0 - stddev(clickPrecisions)

	pathEffs := perEventValues(ms, "path_efficiency")
	out["ms_efficiency_trend"] = mean(pathEffs)
}

func aggregateTemporal(out map[string]float64, sorted []AggregatedEvent) {
	if len(sorted) < 2 {
		return
	}
	var gaps []float64
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, sorted[i].Timestamp-sorted[i-1].Timestamp)
	}
	out["temporal_avg_interval"] = mean(gaps)
	out["temporal_std_interval"] = stddev(gaps)
	out["temporal_max_gap"] = maxOf(gaps)

	bursts := 0
	for _, g := range gaps {
		if g < 0.5 {
			bursts++
		}
	}
	out["temporal_activity_bursts"] = float64(bursts)

	duration := sorted[len(sorted)-1].Timestamp - sorted[0].Timestamp
	out["temporal_session_duration"] = duration
	if duration > 0 {
		out["temporal_event_rate"] = float64(len(sorted)) / duration
	}

	aggregateActivityDistribution(out, sorted, duration)
}

// aggregateActivityDistribution divides the session into <=10 bins of
// 30s and computes uniformity/peak-ratio, per spec §4.4. Requires
// >=10 events and a positive duration split into more than one bin.
func aggregateActivityDistribution(out map[string]float64, sorted []AggregatedEvent, duration float64) {
	if len(sorted) < 10 || duration <= 0 {
		return
	}
	numBins := int(duration / 30)
	if numBins > 10 {
		numBins = 10
	}
	if numBins <= 1 {
		return
	}
	binSize := duration / float64(numBins)
	start := sorted[0].Timestamp
	counts := make([]float64, numBins)
	for _, e := range sorted {
		idx := int((e.Timestamp - start) / binSize)
		if idx >= numBins {
			idx = numBins - 1
		}
		counts[idx]++
	}
	m := mean(counts)
	if m > 0 {
		out["activity_uniformity"] = 1.0 - stddev(counts)/m
		out["activity_peak_ratio"] = maxOf(counts) / m
	}
}

func aggregateCrossModal(out map[string]float64, ks, ms []AggregatedEvent) {
	if len(ms) > 0 {
		out["cross_ks_ms_ratio"] = float64(len(ks)) / float64(len(ms))
	}
	out["cross_temporal_correlation"] = temporalCorrelation(ks, ms)

	aggregateMultitasking(out, ks, ms)
}

// temporalCorrelation builds 1Hz binary presence series for both
// modalities and Pearson-correlates them, per spec §4.4. Needs >=5
// events of each kind and >=10s of combined duration.
func temporalCorrelation(ks, ms []AggregatedEvent) float64 {
	if len(ks) < 5 || len(ms) < 5 {
		return 0
	}
	all := append(append([]AggregatedEvent(nil), ks...), ms...)
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp < all[j].Timestamp })
	start := all[0].Timestamp
	end := all[len(all)-1].Timestamp
	duration := end - start
	if duration < 10 {
		return 0
	}
	bins := int(duration)
	ksSeries := make([]float64, bins)
	msSeries := make([]float64, bins)
	mark := func(events []AggregatedEvent, series []float64) {
		for _, e := range events {
			idx := int(e.Timestamp - start)
			if idx >= bins {
				idx = bins - 1
			}
			if idx < 0 {
				idx = 0
			}
			series[idx] = 1
		}
	}
	mark(ks, ksSeries)
	mark(ms, msSeries)
	return pearson(ksSeries, msSeries)
}

type timedKind struct {
	ts   float64
	kind string
}

// aggregateMultitasking implements the switch-rate/persistence
// metrics, requiring >=10 combined events per spec's original.
func aggregateMultitasking(out map[string]float64, ks, ms []AggregatedEvent) {
	var all []timedKind
	for _, e := range ks {
		all = append(all, timedKind{e.Timestamp, "ks"})
	}
	for _, e := range ms {
		all = append(all, timedKind{e.Timestamp, "ms"})
	}
	if len(all) < 10 {
		return
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ts < all[j].ts })

	switches := 0
	currentMode := all[0].kind
	for _, e := range all[1:] {
		if e.kind != currentMode {
			switches++
			currentMode = e.kind
		}
	}
	out["multitask_switch_rate"] = float64(switches) / float64(len(all))

	var durations []float64
	currentStart := all[0].ts
	currentMode = all[0].kind
	for _, e := range all[1:] {
		if e.kind != currentMode {
			durations = append(durations, e.ts-currentStart)
			currentStart = e.ts
			currentMode = e.kind
		}
	}
	if len(durations) > 0 {
		out["multitask_avg_persistence"] = mean(durations)
		out["multitask_persistence_variance"] = variance(durations)
	}
}
