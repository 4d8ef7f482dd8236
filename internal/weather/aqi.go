package weather

// aqiLabels is the fixed label scale for the 1..5 air-quality index.
var aqiLabels = map[int]string{
	1: "Good",
	2: "Fair",
	3: "Moderate",
	4: "Poor",
	5: "Very Poor",
}

// AQILabel maps an air-quality index to its label. The mapping is total:
// any index outside 1..5 yields nil, never an error.
func AQILabel(index int) *string {
	if label, ok := aqiLabels[index]; ok {
		return &label
	}
	return nil
}
