package parser

import "github.com/dwellsense/dwellsense/domain/capability"

// exposeCategories is the single structural mapping from descriptor expose
// types to capability categories. It carries no vendor knowledge: any vendor
// whose descriptor follows the same structural convention parses unchanged.
// Types missing here land in CategoryUnknown and are retained, so new expose
// types survive until the mapping learns them.
var exposeCategories = map[string]capability.Category{
	"light":   capability.CategoryLighting,
	"switch":  capability.CategoryPower,
	"climate": capability.CategoryClimate,
	"fan":     capability.CategoryClimate,
	"lock":    capability.CategorySecurity,
	"alarm":   capability.CategorySecurity,
	"siren":   capability.CategorySecurity,
	"cover":   capability.CategoryConvenience,
	"binary":  capability.CategoryMonitoring,
	"numeric": capability.CategoryMonitoring,
	"enum":    capability.CategoryMonitoring,
	"text":    capability.CategoryMonitoring,
}

// propertyCategories refines generic sensor exposes (binary, numeric, enum)
// by the property they report. Structural, not vendor-specific: the property
// names follow the shared descriptor convention.
var propertyCategories = map[string]capability.Category{
	"energy":         capability.CategoryEnergy,
	"power":          capability.CategoryEnergy,
	"current":        capability.CategoryEnergy,
	"voltage":        capability.CategoryEnergy,
	"occupancy":      capability.CategorySecurity,
	"contact":        capability.CategorySecurity,
	"tamper":         capability.CategorySecurity,
	"vibration":      capability.CategorySecurity,
	"smoke":          capability.CategorySecurity,
	"water_leak":     capability.CategorySecurity,
	"carbon_monoxide": capability.CategorySecurity,
	"temperature":    capability.CategoryClimate,
	"humidity":       capability.CategoryClimate,
}

// categoryFor resolves the category for an expose type and property.
func categoryFor(exposeType, property string) capability.Category {
	if cat, ok := propertyCategories[property]; ok {
		switch exposeType {
		case "binary", "numeric", "enum", "text", "":
			return cat
		}
	}
	if cat, ok := exposeCategories[exposeType]; ok {
		return cat
	}
	return capability.CategoryUnknown
}
