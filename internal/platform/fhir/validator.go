package fhir

import (
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/wah4pc/interop/pkg/fhirmodels"
)

// birthDatePattern matches FHIR date values at day precision.
var birthDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// telecomSystems lists ContactPoint.system codes accepted by the schema
// check. An empty system is tolerated because the CustomV1 format emits a
// telecom entry even when the source carried no contact number.
var telecomSystems = map[string]bool{
	fhirmodels.TelecomSystemPhone: true,
	fhirmodels.TelecomSystemEmail: true,
	"fax":                         true,
	"sms":                         true,
	"url":                         true,
}

// ValidationResult holds the results of a Patient resource validation.
type ValidationResult struct {
	Valid  bool
	Issues []OperationOutcomeIssue
}

// ToOperationOutcome converts a ValidationResult into an OperationOutcome.
func (vr *ValidationResult) ToOperationOutcome() *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue:        vr.Issues,
	}
}

// Validator provides two-phase conformance checking of canonical Patient
// resources: a cheap structural pass that short-circuits on the first
// problem, followed by a schema-level rule check. Callers get a boolean;
// individual issues are logged for operators only.
type Validator struct {
	logger zerolog.Logger
}

// NewValidator creates a Validator that logs diagnostics to the given logger.
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{logger: logger}
}

// Validate runs both phases in order. The structural phase must pass before
// any schema-level work happens; a resource missing its identifier is
// rejected even if the schema checker would accept it.
func (v *Validator) Validate(p *Patient) bool {
	structural := v.ValidateStructure(p)
	if !structural.Valid {
		v.logIssues("structural", structural.Issues)
		return false
	}

	schema := v.ValidateSchema(p)
	if !schema.Valid {
		v.logIssues("schema", schema.Issues)
		return false
	}

	return true
}

// ValidateStructure is the phase-one check: resourceType tag, at least one
// identifier, and at least one name entry with a non-empty family. It stops
// at the first failure.
func (v *Validator) ValidateStructure(p *Patient) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if p == nil {
		return structuralFailure(IssueTypeStructure, "resource is nil", "")
	}
	if p.ResourceType != fhirmodels.ResourceTypePatient {
		return structuralFailure(IssueTypeValue,
			fmt.Sprintf("resourceType must be %q, got %q", fhirmodels.ResourceTypePatient, p.ResourceType),
			"resourceType")
	}
	if len(p.Identifier) == 0 {
		return structuralFailure(IssueTypeRequired, "identifier is required and must be non-empty", "identifier")
	}
	if len(p.Name) == 0 {
		return structuralFailure(IssueTypeRequired, "name is required and must be non-empty", "name")
	}

	hasFamily := false
	for _, n := range p.Name {
		if n.Family != "" {
			hasFamily = true
			break
		}
	}
	if !hasFamily {
		return structuralFailure(IssueTypeRequired, "at least one name entry must carry a family name", "name.family")
	}

	return result
}

// ValidateSchema is the phase-two check. Unlike the structural phase it
// collects every violation so operators see the full picture in the log.
func (v *Validator) ValidateSchema(p *Patient) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if !fhirmodels.AdministrativeGenders[p.Gender] {
		addIssue(result, IssueTypeCodeInvalid,
			fmt.Sprintf("gender must be one of male, female, other, unknown; got %q", p.Gender),
			"gender")
	}

	if p.BirthDate != "" {
		if !birthDatePattern.MatchString(p.BirthDate) {
			addIssue(result, IssueTypeValue,
				fmt.Sprintf("birthDate must match YYYY-MM-DD, got %q", p.BirthDate),
				"birthDate")
		} else if _, err := time.Parse(fhirmodels.BirthDateLayout, p.BirthDate); err != nil {
			addIssue(result, IssueTypeValue,
				fmt.Sprintf("birthDate %q is not a real calendar date", p.BirthDate),
				"birthDate")
		}
	}

	for i, id := range p.Identifier {
		if id.Value == "" {
			addIssue(result, IssueTypeRequired,
				"identifier.value must be non-empty",
				fmt.Sprintf("identifier[%d].value", i))
		}
		if id.System == "" {
			addIssue(result, IssueTypeRequired,
				"identifier.system must be non-empty",
				fmt.Sprintf("identifier[%d].system", i))
		}
	}

	for i, n := range p.Name {
		if n.Family == "" && len(n.Given) == 0 {
			addIssue(result, IssueTypeStructure,
				"name entry must carry a family or given name",
				fmt.Sprintf("name[%d]", i))
		}
	}

	for i, t := range p.Telecom {
		if t.System != "" && !telecomSystems[t.System] {
			addIssue(result, IssueTypeCodeInvalid,
				fmt.Sprintf("unknown telecom system %q", t.System),
				fmt.Sprintf("telecom[%d].system", i))
		}
	}

	return result
}

func (v *Validator) logIssues(phase string, issues []OperationOutcomeIssue) {
	for _, issue := range issues {
		evt := v.logger.Warn().
			Str("phase", phase).
			Str("code", issue.Code)
		if len(issue.Expression) > 0 {
			evt = evt.Str("expression", issue.Expression[0])
		}
		evt.Msg(issue.Diagnostics)
	}
}

func structuralFailure(code, diagnostics, expression string) *ValidationResult {
	result := &ValidationResult{}
	addIssue(result, code, diagnostics, expression)
	return result
}

func addIssue(result *ValidationResult, code, diagnostics, expression string) {
	result.Valid = false
	issue := OperationOutcomeIssue{
		Severity:    IssueSeverityError,
		Code:        code,
		Diagnostics: diagnostics,
	}
	if expression != "" {
		issue.Expression = []string{expression}
	}
	result.Issues = append(result.Issues, issue)
}
