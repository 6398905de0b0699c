package telemetry

import (
	"math"
	"strconv"
	"strings"

	"github.com/ericogr/enviro-to-mqtt/pkg/sensor"
)

type field struct {
	code string
	name string
	unit string
	sep  string
}

// status layout: temperature and humidity on the first line, light and
// pressure on the second
var layout = []field{
	{"T", sensor.Temperature, " C", ","},
	{"H", sensor.Humidity, " %", "\n"},
	{"L", sensor.AmbientLight, " lux", ","},
	{"P", sensor.Pressure, " kPa", "\n"},
}

// Format renders r as the two-line display status text. Absent values are
// printed as nan; Format never fails.
func Format(r sensor.Reading) string {
	var sb strings.Builder
	for _, f := range layout {
		v, ok := r.Value(f.name)
		if !ok {
			v = math.NaN()
		}
		sb.WriteString(f.code)
		sb.WriteByte(':')
		sb.WriteString(formatValue(v))
		sb.WriteString(f.unit)
		sb.WriteString(f.sep)
	}
	return sb.String()
}

func formatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
