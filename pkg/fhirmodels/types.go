package fhirmodels

// Common FHIR value set constants used across the application.

// ResourceTypePatient is the canonical resource type every translation
// converges to.
const ResourceTypePatient = "Patient"

// AdministrativeGender codes per FHIR R4.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderOther   = "other"
	GenderUnknown = "unknown"
)

// AdministrativeGenders is the closed set of valid gender codes.
var AdministrativeGenders = map[string]bool{
	GenderMale:    true,
	GenderFemale:  true,
	GenderOther:   true,
	GenderUnknown: true,
}

// Identifier systems assigned by the supported source formats.
const (
	SystemClinicPatientID = "urn:clinic:patient-id"
	SystemCustomClinicID  = "urn:custom:clinic-id"
)

// ContactPoint system codes.
const (
	TelecomSystemPhone = "phone"
	TelecomSystemEmail = "email"
)

// BirthDateLayout is the FHIR date layout for Patient.birthDate.
const BirthDateLayout = "2006-01-02"
