package domain

// FieldType is the widget hint for one settings field.
type FieldType string

const (
	// FieldText is a plain text input.
	FieldText FieldType = "text"
	// FieldSecret is a masked input for keys and passwords.
	FieldSecret FieldType = "secret"
	// FieldToggle is a boolean switch.
	FieldToggle FieldType = "toggle"
	// FieldNumber is a numeric input.
	FieldNumber FieldType = "number"
)

// SettingsField describes one provider configuration knob for the external
// settings UI. The schema is declarative only; the service never renders it.
type SettingsField struct {
	// Key is the configuration key (environment variable name).
	Key string `json:"key"`
	// Label is the human-readable field name.
	Label string `json:"label"`
	// Type is the widget hint.
	Type FieldType `json:"type"`
	// Required marks fields the provider cannot operate without.
	Required bool `json:"required"`
	// Help is an optional operator-facing hint.
	Help string `json:"help,omitempty"`
}

// ConfigSchema is the full settings description for one provider.
type ConfigSchema struct {
	// ProviderID is the courier the schema belongs to.
	ProviderID string `json:"provider_id"`
	// Fields lists the provider's configuration knobs in display order.
	Fields []SettingsField `json:"fields"`
}
