package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	offerservice "beacon/contexts/campaign-core/offer-service"
	offerhttp "beacon/contexts/campaign-core/offer-service/transport/http"
	linkingservice "beacon/contexts/social-integration/linking-service"
	linkinghttp "beacon/contexts/social-integration/linking-service/transport/http"
)

func newTestServer() *Server {
	linking := linkingservice.NewInMemoryModule(nil)
	offers := offerservice.NewInMemoryModule(nil)
	return New(linking.Module, offers.Module, nil, ":0")
}

func TestHealthzRoute(t *testing.T) {
	server := newTestServer()

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStartLinkingAndReadStatus(t *testing.T) {
	server := newTestServer()

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/social/links/user-1", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", rec.Code, rec.Body.String())
	}
	var started linkinghttp.StartWorkflowResponse
	if err := json.NewDecoder(rec.Body).Decode(&started); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if started.UserID != "user-1" || started.EventID == "" {
		t.Fatalf("unexpected response %+v", started)
	}

	// The workflow has not been driven by the worker yet, so there is no
	// instance to read.
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/social/links/user-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before the saga starts, got %d", rec.Code)
	}
}

func TestOfferLifecycleRoutes(t *testing.T) {
	server := newTestServer()

	body := strings.NewReader(`{"campaign_id":"campaign-1","blogger_id":"blogger-1","price":120}`)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/offers", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var created offerhttp.OfferResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if created.Status != "pending" {
		t.Fatalf("expected pending offer, got %s", created.Status)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/offers/"+created.OfferID+"/accept", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/offers/"+created.OfferID+"/decline", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 declining an accepted offer, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/offers/"+created.OfferID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var fetched offerhttp.OfferResponse
	if err := json.NewDecoder(rec.Body).Decode(&fetched); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if fetched.Status != "accepted" {
		t.Fatalf("expected accepted offer, got %s", fetched.Status)
	}
}

func TestOfferBadRequests(t *testing.T) {
	server := newTestServer()

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/offers", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"campaign_id":"","blogger_id":"b","price":10}`)
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/offers", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid offer input, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/offers/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown offer, got %d", rec.Code)
	}
}
