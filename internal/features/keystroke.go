package features

import "strconv"

// KeyRecord is one raw key event belonging to a logical interaction
// burst, per spec §4.2.
type KeyRecord struct {
	KeyCode   string
	DownTsMs  float64
	UpTsMs    float64
	IsSpecial bool
}

// minKeyRecords is the spec §4.2 requirement: batches under 5 records
// produce no features.
const minKeyRecords = 5

// ExtractKeystroke computes the per-batch keystroke feature map. It is
// pure: identical input yields a bit-identical output map (modulo
// float rounding), which is the determinism property tested in §8.
func ExtractKeystroke(records []KeyRecord) map[string]float64 {
	if len(records) < minKeyRecords {
		return map[string]float64{}
	}

	dwell := make([]float64, len(records))
	for i, r := range records {
		dwell[i] = Clamp(r.UpTsMs-r.DownTsMs, 0, 1e12)
	}

	var flight []float64
	for i := 1; i < len(records); i++ {
		f := records[i].DownTsMs - records[i-1].UpTsMs
		if f < 0 {
			f = 0
		}
		flight = append(flight, f)
	}

	// Per-event feature names here (the "_time" suffix on dwell/flight
	// in particular) must line up with the session-aggregator's
	// ks_<name>_mean/_std/... naming and ultimately the closed
	// vocabulary in vocabulary.go — see SPEC_FULL.md §0.2.
	out := map[string]float64{}
	out["avg_dwell_time"] = mean(dwell)
	out["std_dwell_time"] = stddev(dwell)
	out["min_dwell_time"] = minOf(dwell)
	out["max_dwell_time"] = maxOf(dwell)

	if len(flight) > 0 {
		out["avg_flight_time"] = mean(flight)
		out["std_flight_time"] = stddev(flight)
		out["min_flight_time"] = minOf(flight)
		out["max_flight_time"] = maxOf(flight)
		out["typing_rhythm_variance"] = variance(flight)
	}

	if m := mean(dwell); m > 0 {
		out["pressure_consistency"] = 1 / (1 + coefVariation(dwell))
	}

	firstDown := records[0].DownTsMs
	lastDown := records[len(records)-1].DownTsMs
	if durS := (lastDown - firstDown) / 1000.0; durS > 0 {
		out["typing_cadence"] = float64(len(records)) / durS
	}

	specialCount := 0
	backspaceCount := 0
	for _, r := range records {
		if r.IsSpecial {
			specialCount++
		}
		if r.KeyCode == "Backspace" {
			backspaceCount++
		}
	}
	out["special_key_ratio"] = float64(specialCount) / float64(len(records))
	out["error_correction_rate"] = float64(backspaceCount) / float64(len(records))

	for k, v := range out {
		out[k] = Sanitize(v)
	}
	return out
}

// Signature is the deterministic coarse behavioral signature: a fixed
// five-feature prefix, each clamped to [0,1000] and bucketed into
// tens, joined with "_". Same input -> same signature.
func Signature(feats map[string]float64) string {
	prefix := []string{"avg_dwell_time", "avg_flight_time", "typing_cadence", "pressure_consistency", "typing_rhythm_variance"}
	out := ""
	for i, name := range prefix {
		v := feats[name]
		bucket := int(Clamp(v, 0, 1000) / 10)
		if i > 0 {
			out += "_"
		}
		out += strconv.Itoa(bucket)
	}
	return out
}
