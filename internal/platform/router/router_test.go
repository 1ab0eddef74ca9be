package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wah4pc/interop/internal/platform/fhir"
	"github.com/wah4pc/interop/internal/platform/registry"
)

func testPatient() *fhir.Patient {
	return &fhir.Patient{
		ResourceType: "Patient",
		Identifier:   []fhir.Identifier{{System: "urn:clinic:patient-id", Value: "C456"}},
		Name:         []fhir.HumanName{{Family: "Santos", Given: []string{"Maria"}}},
		Gender:       "female",
	}
}

func registryWith(records ...registry.FacilityRecord) *registry.Registry {
	return registry.New(records)
}

func TestForward_Delivers(t *testing.T) {
	var gotPath, gotContentType, gotRequestID string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	reg := registryWith(registry.FacilityRecord{
		FacilityID:  "HOSP-001",
		APIEndpoint: srv.URL + "/api/receive",
	})
	rt := New(reg, 2*time.Second, zerolog.Nop())

	err := rt.Forward(context.Background(), "req-abc", "HOSP-001", testPatient())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/api/receive" {
		t.Errorf("path = %q", gotPath)
	}
	if gotContentType != "application/fhir+json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotRequestID != "req-abc" {
		t.Errorf("X-Request-ID = %q", gotRequestID)
	}
	if gotBody["resourceType"] != "Patient" || gotBody["gender"] != "female" {
		t.Errorf("delivered body = %#v", gotBody)
	}
}

func TestForward_UnregisteredFacilitySkips(t *testing.T) {
	rt := New(registryWith(), 2*time.Second, zerolog.Nop())
	if err := rt.Forward(context.Background(), "req-1", "GHOST-999", testPatient()); err != nil {
		t.Fatalf("expected soft skip, got %v", err)
	}
}

func TestForward_FacilityWithoutEndpointSkips(t *testing.T) {
	reg := registryWith(registry.FacilityRecord{FacilityID: "CLINIC-001"})
	rt := New(reg, 2*time.Second, zerolog.Nop())
	if err := rt.Forward(context.Background(), "req-1", "CLINIC-001", testPatient()); err != nil {
		t.Fatalf("expected soft skip, got %v", err)
	}
}

func TestForward_ConnectionRefused(t *testing.T) {
	// Grab a port that is certainly closed.
	srv := httptest.NewServer(http.NotFoundHandler())
	dead := srv.URL
	srv.Close()

	reg := registryWith(registry.FacilityRecord{FacilityID: "HOSP-001", APIEndpoint: dead})
	rt := New(reg, time.Second, zerolog.Nop())

	err := rt.Forward(context.Background(), "req-1", "HOSP-001", testPatient())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestForward_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "downstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := registryWith(registry.FacilityRecord{FacilityID: "HOSP-001", APIEndpoint: srv.URL})
	rt := New(reg, 2*time.Second, zerolog.Nop())

	err := rt.Forward(context.Background(), "req-1", "HOSP-001", testPatient())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestForward_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	reg := registryWith(registry.FacilityRecord{FacilityID: "HOSP-001", APIEndpoint: srv.URL})
	rt := New(reg, 100*time.Millisecond, zerolog.Nop())

	err := rt.Forward(context.Background(), "req-1", "HOSP-001", testPatient())
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport on timeout, got %v", err)
	}
}
