// Package translate implements the gateway's core operation: accept a
// source record envelope, ask the reasoning service which tool applies,
// run the tool locally, validate the result, and deliver it to the target
// facility.
package translate

import (
	"fmt"

	"github.com/wah4pc/interop/internal/platform/fhir"
)

// Metadata identifies the record's origin, destination, and the declared
// source and target formats.
type Metadata struct {
	SourceFacilityID string `json:"source_facility_id"`
	TargetFacilityID string `json:"target_facility_id"`
	SourceFormat     string `json:"source_format"`
	TargetFormat     string `json:"target_format"`
}

// Envelope is the request body of POST /api/translate. Data is opaque to
// the gateway until a translation tool interprets it.
type Envelope struct {
	Metadata Metadata       `json:"metadata"`
	Data     map[string]any `json:"data"`
}

// Validate checks the envelope carries everything the pipeline needs
// before any external call is made.
func (e *Envelope) Validate() error {
	switch {
	case e.Metadata.SourceFacilityID == "":
		return fmt.Errorf("metadata.source_facility_id is required")
	case e.Metadata.TargetFacilityID == "":
		return fmt.Errorf("metadata.target_facility_id is required")
	case e.Metadata.SourceFormat == "":
		return fmt.Errorf("metadata.source_format is required")
	case e.Metadata.TargetFormat == "":
		return fmt.Errorf("metadata.target_format is required")
	case len(e.Data) == 0:
		return fmt.Errorf("data is required")
	}
	return nil
}

// Response is the body of every translation reply. TranslatedData is only
// present on success; ErrorMessage only on failure. A failed request never
// carries partial translated data.
type Response struct {
	Status         string        `json:"status"`
	TranslatedData *fhir.Patient `json:"translated_data,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
}
