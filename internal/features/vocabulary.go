// Package features implements the deterministic transforms from raw
// keystroke/pointer event batches into fixed-shape feature vectors:
// per-event basic features (keystroke.go, pointer.go), and the
// per-session aggregate and cross-modal features (aggregate.go).
package features

// Vocabulary is the closed, canonically ordered set of names the
// session aggregator emits and the model consumes. It is restored
// from the original implementation's _get_expected_feature_names()
// (original_source/backend/behavior/features.py) — spec.md §9 points
// at "the glossary" for this list but the glossary in spec.md only
// defines terms, not names, so this is the resolved source of truth.
// The vocabulary is part of the model bundle: after training it must
// not change without retraining.
var Vocabulary = []string{
	"ks_avg_dwell_time_mean",
	"ks_avg_dwell_time_std",
	"ks_avg_flight_time_mean",
	"ks_typing_rhythm_variance_mean",
	"ks_pressure_consistency_mean",
	"ks_dwell_consistency",
	"ks_flight_consistency",
	"ks_rhythm_stability",
	"ms_velocity_mean_mean",
	"ms_velocity_mean_std",
	"ms_path_efficiency_mean",
	"ms_movement_smoothness_mean",
	"ms_click_precision_mean",
	"ms_velocity_consistency",
	"ms_smoothness_consistency",
	"temporal_avg_interval",
	"temporal_std_interval",
	"temporal_event_rate",
	"activity_uniformity",
	"activity_peak_ratio",
	"cross_ks_ms_ratio",
	"cross_temporal_correlation",
	"multitask_switch_rate",
}

// VocabularyIndex maps a feature name to its fixed position in Vector.
var VocabularyIndex = func() map[string]int {
	m := make(map[string]int, len(Vocabulary))
	for i, name := range Vocabulary {
		m[name] = i
	}
	return m
}()

// Vector builds the fixed-length array the model consumes from a
// sparse named feature map. Missing features default to 0.0;
// NaN/±Inf values are sanitized to 0.0 here via Sanitize.
func Vector(named map[string]float64) []float64 {
	v := make([]float64, len(Vocabulary))
	for name, idx := range VocabularyIndex {
		if val, ok := named[name]; ok {
			v[idx] = Sanitize(val)
		}
	}
	return v
}
