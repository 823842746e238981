package seo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vahanpoghosian/link-qualification-system/config"
)

func TestGetDomainMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/domain-rating":
			fmt.Fprint(w, `{"domain_rating": 72.4}`)
		case "/organic-traffic":
			fmt.Fprint(w, `{"traffic": 15000}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewAhrefsClient(config.AhrefsConfig{APIKey: "test-key", BaseURL: srv.URL})
	metrics := client.GetDomainMetrics(context.Background(), "example.com")

	if metrics.DR == nil || *metrics.DR != 72 {
		t.Errorf("expected dr 72, got %v", metrics.DR)
	}
	if metrics.Traffic == nil || *metrics.Traffic != 15000 {
		t.Errorf("expected traffic 15000, got %v", metrics.Traffic)
	}
}

func TestGetDomainMetricsNoKey(t *testing.T) {
	client := NewAhrefsClient(config.AhrefsConfig{BaseURL: "http://unused"})
	metrics := client.GetDomainMetrics(context.Background(), "example.com")

	if metrics.DR != nil || metrics.Traffic != nil {
		t.Errorf("expected nil metrics without key, got %+v", metrics)
	}
}

func TestGetDomainMetricsPartialFailure(t *testing.T) {
	// A non-200 on one endpoint leaves that metric nil but keeps the other.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/domain-rating":
			w.WriteHeader(http.StatusForbidden)
		case "/organic-traffic":
			fmt.Fprint(w, `{"traffic": 500}`)
		}
	}))
	defer srv.Close()

	client := NewAhrefsClient(config.AhrefsConfig{APIKey: "k", BaseURL: srv.URL})
	metrics := client.GetDomainMetrics(context.Background(), "example.com")

	if metrics.DR != nil {
		t.Errorf("expected nil dr on 403, got %v", metrics.DR)
	}
	if metrics.Traffic == nil || *metrics.Traffic != 500 {
		t.Errorf("expected traffic 500, got %v", metrics.Traffic)
	}
}

func TestGetDomainMetricsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	client := NewAhrefsClient(config.AhrefsConfig{APIKey: "k", BaseURL: srv.URL})
	metrics := client.GetDomainMetrics(context.Background(), "example.com")

	if metrics.DR != nil || metrics.Traffic != nil {
		t.Errorf("expected nil metrics on transport failure, got %+v", metrics)
	}
}
