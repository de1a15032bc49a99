package survey

import "floodrisk/ml"

// RiskLevels lists the classes from least to most severe, the order used
// by the confidence chart.
var RiskLevels = ml.RiskLevels

var riskStyles = map[string]struct {
	marker string
	bar    string
	banner string
}{
	"Low":    {"green", "#16a34a", "result-low"},
	"Medium": {"orange", "#f59e0b", "result-medium"},
	"High":   {"red", "#dc2626", "result-high"},
}

// MarkerColor is red for High, orange for Medium and green otherwise.
func MarkerColor(risk string) string {
	if style, ok := riskStyles[risk]; ok {
		return style.marker
	}
	return "green"
}

// BarColor returns the chart color for a risk level.
func BarColor(risk string) string {
	if style, ok := riskStyles[risk]; ok {
		return style.bar
	}
	return "#6b7280"
}

// BannerClass returns the CSS class of the result banner.
func BannerClass(risk string) string {
	if style, ok := riskStyles[risk]; ok {
		return style.banner
	}
	return "result-low"
}

// Severity orders risk levels; unknown levels sort last.
func Severity(risk string) int {
	for i, level := range RiskLevels {
		if level == risk {
			return i
		}
	}
	return len(RiskLevels)
}
