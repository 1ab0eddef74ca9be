// Package registry provides the process-wide, read-only lookup of
// destination facilities. The registry is loaded once at startup from a
// JSON file and shared by reference across all request handlers; a missing
// or unparsable file degrades to an empty registry so the gateway keeps
// translating even when routing is unavailable.
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// FacilityRecord describes a registered source or destination system.
// APIEndpoint may be empty: a facility without a delivery endpoint is a
// valid, expected state, not an error.
type FacilityRecord struct {
	FacilityID       string   `json:"facility_id"`
	FacilityName     string   `json:"facility_name"`
	Type             string   `json:"type"`
	SupportedFormats []string `json:"supported_formats"`
	APIEndpoint      string   `json:"api_endpoint,omitempty"`
	PreferredFormat  string   `json:"preferred_format,omitempty"`
}

// Registry is an immutable snapshot of facility records keyed by id. It is
// safe for concurrent reads without synchronization.
type Registry struct {
	byID  map[string]FacilityRecord
	order []string
}

// Load reads the registry file and builds a snapshot. A missing file or a
// parse failure is logged and yields an empty registry; startup continues
// and all routing becomes a no-op.
func Load(path string, logger zerolog.Logger) *Registry {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).
			Msg("facility registry file unavailable; routing disabled")
		return New(nil)
	}

	records, err := Parse(data)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).
			Msg("facility registry file unparsable; routing disabled")
		return New(nil)
	}

	logger.Info().Int("facilities", len(records)).Str("path", path).
		Msg("facility registry loaded")
	return New(records)
}

// Parse decodes a registry file. Records without a facility_id and
// duplicate ids are rejected so a bad file never half-loads.
func Parse(data []byte) ([]FacilityRecord, error) {
	var records []FacilityRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding facility registry: %w", err)
	}

	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		if rec.FacilityID == "" {
			return nil, fmt.Errorf("record %d: facility_id is required", i)
		}
		if seen[rec.FacilityID] {
			return nil, fmt.Errorf("duplicate facility_id %q", rec.FacilityID)
		}
		seen[rec.FacilityID] = true
	}
	return records, nil
}

// New builds a snapshot from already-validated records.
func New(records []FacilityRecord) *Registry {
	r := &Registry{byID: make(map[string]FacilityRecord, len(records))}
	for _, rec := range records {
		if _, dup := r.byID[rec.FacilityID]; dup {
			continue
		}
		r.byID[rec.FacilityID] = rec
		r.order = append(r.order, rec.FacilityID)
	}
	return r
}

// Lookup returns the record for a facility id.
func (r *Registry) Lookup(id string) (FacilityRecord, bool) {
	rec, ok := r.byID[id]
	return rec, ok
}

// Records returns all records in file order.
func (r *Registry) Records() []FacilityRecord {
	out := make([]FacilityRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the number of registered facilities.
func (r *Registry) Len() int {
	return len(r.byID)
}

// Check validates a registry file for the operational CLI: it surfaces the
// parse error verbatim and reports which facilities lack an endpoint.
func Check(path string) ([]FacilityRecord, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	records, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	for _, rec := range records {
		if rec.APIEndpoint == "" {
			warnings = append(warnings, fmt.Sprintf("facility %q has no api_endpoint; deliveries to it will be skipped", rec.FacilityID))
		}
		if len(rec.SupportedFormats) == 0 {
			warnings = append(warnings, fmt.Sprintf("facility %q lists no supported_formats", rec.FacilityID))
		}
	}
	return records, warnings, nil
}
