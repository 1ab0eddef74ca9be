package toolbox

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wah4pc/interop/internal/platform/fhir"
	"github.com/wah4pc/interop/pkg/fhirmodels"
)

// customBirthdatePattern is the only birthdate layout the CustomV1 format
// is trusted to carry; anything else is dropped rather than guessed at.
var customBirthdatePattern = regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`)

// sexSynonyms widens the CustomV1 gender vocabulary beyond the canonical
// value set.
var sexSynonyms = map[string]string{
	"m":     fhirmodels.GenderMale,
	"man":   fhirmodels.GenderMale,
	"f":     fhirmodels.GenderFemale,
	"woman": fhirmodels.GenderFemale,
}

// CustomV1Tool translates the proprietary Custom Clinic V1 format to a FHIR
// R4 Patient resource.
var CustomV1Tool = Tool{
	Descriptor: Descriptor{
		Type: "function",
		Function: FunctionDescriptor{
			Name:        "translate_custom_clinic_format_v1_to_fhir_r4",
			Description: "Translates a proprietary Custom Clinic V1 format to a FHIR R4 Patient resource.",
			Parameters: ParameterSchema{
				Type: "object",
				Properties: map[string]PropertySchema{
					"custom_data": {Type: "object", Description: "The Custom Clinic V1 data."},
				},
				Required: []string{"custom_data"},
			},
		},
	},
	ParamName: "custom_data",
	Translate: TranslateCustomV1,
}

// TranslateCustomV1 maps a Custom Clinic V1 payload to the canonical
// Patient shape.
//
// clinicId and fullName are required; fullName splits on the first space
// into given/family, leaving family empty when there is no space; sex goes
// through a direct match and then the synonym table, falling back to
// "unknown"; telecom is always emitted even when contactNumber is absent
// (CustomV1 senders rely on the entry being present); birthdate is
// reformatted only when it matches YYYY/MM/DD exactly.
func TranslateCustomV1(source map[string]any) (*fhir.Patient, error) {
	clinicID, ok := getString(source, "clinicId")
	if !ok || clinicID == "" {
		return nil, fmt.Errorf("%w: custom_data.clinicId must be a non-empty string", ErrMalformedSource)
	}
	fullName, ok := getString(source, "fullName")
	if !ok || fullName == "" {
		return nil, fmt.Errorf("%w: custom_data.fullName must be a non-empty string", ErrMalformedSource)
	}

	given, family := splitFullName(fullName)

	patient := &fhir.Patient{
		ResourceType: fhirmodels.ResourceTypePatient,
		Identifier: []fhir.Identifier{{
			System: fhirmodels.SystemCustomClinicID,
			Value:  clinicID,
		}},
		Name: []fhir.HumanName{{
			Family: family,
			Given:  []string{given},
		}},
		Gender: normalizeSex(optionalString(source, "sex")),
		Telecom: []fhir.ContactPoint{{
			System: fhirmodels.TelecomSystemPhone,
			Value:  optionalString(source, "contactNumber"),
		}},
	}

	if dob := optionalString(source, "birthdate"); customBirthdatePattern.MatchString(dob) {
		patient.BirthDate = strings.ReplaceAll(dob, "/", "-")
	}

	return patient, nil
}

// splitFullName splits on the first space: "Maria Santos" becomes given
// "Maria", family "Santos". A single token leaves the family empty.
func splitFullName(fullName string) (given, family string) {
	parts := strings.SplitN(fullName, " ", 2)
	given = parts[0]
	if len(parts) > 1 {
		family = parts[1]
	}
	return given, family
}

// normalizeSex maps the CustomV1 sex vocabulary into the administrative
// gender set: a direct match wins, then the synonym table, then "unknown".
// Like normalizeGender it is total and idempotent.
func normalizeSex(raw string) string {
	sex := strings.ToLower(raw)
	if fhirmodels.AdministrativeGenders[sex] {
		return sex
	}
	if mapped, ok := sexSynonyms[sex]; ok {
		return mapped
	}
	return fhirmodels.GenderUnknown
}
