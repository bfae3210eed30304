package measure

// DegreeUnit is the unit reported by angle tools (U+00B0).
const DegreeUnit = "°"

// DefaultLengthUnit is used when an annotation carries no unit of its own.
const DefaultLengthUnit = "mm"

// modalityUnits maps an acquisition modality to the unit of its pixel values.
var modalityUnits = map[string]string{
	"CT": "HU",
	"PT": "SUV",
}

// UnitForModality resolves the statistic unit for area/intensity tools from
// the acquisition modality. Modalities without a calibrated pixel unit yield
// an empty string.
func UnitForModality(modality string) string {
	return modalityUnits[modality]
}
