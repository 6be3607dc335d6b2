package weather

import "github.com/i474232898/clima/internal/common"

// Classify maps a provider's ordered condition list to a single Category.
//
// A storm anywhere in the list wins, then rain or drizzle anywhere. Otherwise
// only the first entry decides. An empty list yields OVERCAST. Descriptions
// may be English or Spanish, matching the provider's lang parameter.
func Classify(conditions []ConditionEntry) Category {
	for _, c := range conditions {
		if isStorm(c.Code) {
			return CategoryStorm
		}
	}
	for _, c := range conditions {
		if isRain(c.Code) {
			return CategoryRain
		}
	}
	if len(conditions) == 0 {
		return CategoryOvercast
	}

	first := conditions[0]
	switch {
	case common.HasAny(first.Code, "cloud"):
		if common.HasAny(first.Description, partlyCloudyWords...) {
			return CategoryPartlyCloudy
		}
		return CategoryOvercast
	case common.HasAny(first.Code, "clear", "sunny"):
		return CategoryClear
	default:
		return CategoryOvercast
	}
}

// few/scattered clouds in English and Spanish ("algo de nubes", "nubes dispersas").
var partlyCloudyWords = []string{"few", "scattered", "algo de", "dispersas"}

func isStorm(code string) bool {
	return common.HasAny(code, "thunder", "storm")
}

func isRain(code string) bool {
	return common.HasAny(code, "rain", "drizzle")
}
