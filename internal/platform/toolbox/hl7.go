package toolbox

import (
	"fmt"
	"strings"

	"github.com/wah4pc/interop/internal/platform/fhir"
	"github.com/wah4pc/interop/pkg/fhirmodels"
)

// HL7Tool translates a simplified HL7-like JSON payload to a FHIR R4
// Patient resource.
var HL7Tool = Tool{
	Descriptor: Descriptor{
		Type: "function",
		Function: FunctionDescriptor{
			Name:        "translate_hl7_v2_json_to_fhir_r4",
			Description: "Translates a simplified HL7-like JSON dictionary to a FHIR R4 Patient resource.",
			Parameters: ParameterSchema{
				Type: "object",
				Properties: map[string]PropertySchema{
					"hl7_data": {Type: "object", Description: "The HL7-like JSON data."},
				},
				Required: []string{"hl7_data"},
			},
		},
	},
	ParamName: "hl7_data",
	Translate: TranslateHL7,
}

// TranslateHL7 maps an HL7-like payload to the canonical Patient shape.
//
// patientId, lastName and firstName are required; gender is normalized into
// the administrative-gender value set with "unknown" as the fallback;
// dateOfBirth is reformatted from YYYYMMDD only when it is exactly 8
// characters, otherwise the field is omitted; address and telecom appear in
// the output only when the source carries them.
func TranslateHL7(source map[string]any) (*fhir.Patient, error) {
	patientID, ok := getString(source, "patientId")
	if !ok || patientID == "" {
		return nil, fmt.Errorf("%w: hl7_data.patientId must be a non-empty string", ErrMalformedSource)
	}
	lastName, ok := getString(source, "lastName")
	if !ok || lastName == "" {
		return nil, fmt.Errorf("%w: hl7_data.lastName must be a non-empty string", ErrMalformedSource)
	}
	firstName, ok := getString(source, "firstName")
	if !ok {
		return nil, fmt.Errorf("%w: hl7_data.firstName must be a string", ErrMalformedSource)
	}

	patient := &fhir.Patient{
		ResourceType: fhirmodels.ResourceTypePatient,
		Identifier: []fhir.Identifier{{
			System: fhirmodels.SystemClinicPatientID,
			Value:  patientID,
		}},
		Name: []fhir.HumanName{{
			Family: lastName,
			Given:  []string{firstName},
		}},
		Gender: normalizeGender(optionalString(source, "gender")),
	}

	if dob := optionalString(source, "dateOfBirth"); len(dob) == 8 {
		patient.BirthDate = dob[0:4] + "-" + dob[4:6] + "-" + dob[6:8]
	}

	if addr := optionalString(source, "address"); addr != "" {
		patient.Address = []fhir.Address{{Text: addr}}
	}
	if phone := optionalString(source, "phoneNumber"); phone != "" {
		patient.Telecom = []fhir.ContactPoint{{
			System: fhirmodels.TelecomSystemPhone,
			Value:  phone,
		}}
	}

	return patient, nil
}

// normalizeGender lower-cases the input and maps it into the closed
// administrative-gender set; anything unrecognized becomes "unknown". The
// mapping is total and idempotent.
func normalizeGender(raw string) string {
	gender := strings.ToLower(raw)
	if fhirmodels.AdministrativeGenders[gender] {
		return gender
	}
	return fhirmodels.GenderUnknown
}
