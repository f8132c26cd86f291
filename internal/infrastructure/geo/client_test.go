package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeocodeFound(t *testing.T) {
	t.Parallel()

	var gotAuth, gotCity, gotCountry string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCity = r.URL.Query().Get("city")
		gotCountry = r.URL.Query().Get("country")
		fmt.Fprint(w, `{"latitude": 48.8566, "longitude": 2.3522, "found": true}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	lat, lon, found, err := client.Geocode(context.Background(), "Paris", "FR")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if lat != 48.8566 || lon != 2.3522 {
		t.Errorf("coords = %v, %v", lat, lon)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotCity != "Paris" || gotCountry != "FR" {
		t.Errorf("query = %q, %q", gotCity, gotCountry)
	}
}

func TestGeocodeNotFoundStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, found, err := NewClient(srv.URL, "").Geocode(context.Background(), "Atlantis", "XX")
	if err != nil {
		t.Fatalf("a 404 is a miss, not an error: %v", err)
	}
	if found {
		t.Error("expected found=false")
	}
}

func TestGeocodeNotFoundPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"found": false}`)
	}))
	defer srv.Close()

	_, _, found, err := NewClient(srv.URL, "").Geocode(context.Background(), "Atlantis", "XX")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if found {
		t.Error("expected found=false")
	}
}

func TestGeocodeServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, _, _, err := NewClient(srv.URL, "").Geocode(context.Background(), "Paris", "FR")
	if err == nil {
		t.Fatal("expected error on HTTP 502")
	}
}

func TestGeocodeMisconfigured(t *testing.T) {
	t.Parallel()

	_, _, _, err := NewClient("", "").Geocode(context.Background(), "Paris", "FR")
	if err == nil {
		t.Fatal("expected error when endpoint is empty")
	}
}
