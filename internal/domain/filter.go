package domain

// PassesQuality reports whether an observation carries no quality problem
// flag. Only such observations contribute to aggregates.
func PassesQuality(obs WeatherObservation) bool {
	return obs.QualityFlag == ""
}
