package services

import "sync"

// Customization keys understood by the core.
const (
	// CustomizationLabelOnMeasure controls whether a label prompt is
	// interposed before tracking prompts. Values: "" (off), "prompt",
	// "labelOnly".
	CustomizationLabelOnMeasure = "measurement.labelOnMeasure"

	// CustomizationCodingValues supplies the coding-values table used when
	// converting finding codes during hydration.
	CustomizationCodingValues = "measurement.codingValues"

	// CustomizationDisableEditing locks hydrated annotations.
	CustomizationDisableEditing = "measurement.disableEditing"
)

// CustomizationService is a pure key-value lookup for behavior flags, report
// column definitions and prompt templates.
type CustomizationService interface {
	GetCustomization(key string) any
}

// Customizations is a map-backed CustomizationService.
type Customizations struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewCustomizations builds a customization service from an initial table.
func NewCustomizations(values map[string]any) *Customizations {
	if values == nil {
		values = make(map[string]any)
	}
	return &Customizations{values: values}
}

// Set overrides one customization value.
func (c *Customizations) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

func (c *Customizations) GetCustomization(key string) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// BoolCustomization reads a customization as a bool, defaulting to false.
func BoolCustomization(c CustomizationService, key string) bool {
	if c == nil {
		return false
	}
	b, _ := c.GetCustomization(key).(bool)
	return b
}

// StringCustomization reads a customization as a string, defaulting to "".
func StringCustomization(c CustomizationService, key string) string {
	if c == nil {
		return ""
	}
	s, _ := c.GetCustomization(key).(string)
	return s
}
