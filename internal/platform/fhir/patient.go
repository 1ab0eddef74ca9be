package fhir

// Identifier is a business identifier assigned by a source system.
type Identifier struct {
	Use    string `json:"use,omitempty"`
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

// HumanName is a name of a person per FHIR R4.
type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

// Address is a postal address. Source formats in this gateway only carry a
// free-text address, so Text is the primary field.
type Address struct {
	Use        string   `json:"use,omitempty"`
	Text       string   `json:"text,omitempty"`
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
}

// ContactPoint is a technology-mediated contact detail.
type ContactPoint struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value"`
	Use    string `json:"use,omitempty"`
}

// Patient is the canonical FHIR R4 Patient resource produced by every
// translation tool. Gender is always set (defaulting to "unknown");
// birthDate, address and telecom are emitted only when the source data
// carries them, except that the CustomV1 tool always emits telecom.
type Patient struct {
	ResourceType string         `json:"resourceType"`
	Identifier   []Identifier   `json:"identifier"`
	Name         []HumanName    `json:"name"`
	Gender       string         `json:"gender"`
	BirthDate    string         `json:"birthDate,omitempty"`
	Address      []Address      `json:"address,omitempty"`
	Telecom      []ContactPoint `json:"telecom,omitempty"`
}
