package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mayoengin/mpc-mongodb-server/internal/config"
	"github.com/Mayoengin/mpc-mongodb-server/internal/logger"
	"github.com/Mayoengin/mpc-mongodb-server/internal/mongodb"
)

type fakeReporter struct {
	status mongodb.Status
}

func (f *fakeReporter) Status() mongodb.Status {
	return f.status
}

func testServer(t *testing.T, reporter StatusReporter) *Server {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "json"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	cfg := &config.Config{
		Health: config.HealthConfig{Host: "localhost", Port: 3000},
		Logger: config.LoggerConfig{Service: "test-service", Version: "1.0.0"},
	}
	return New(cfg, reporter, log)
}

func getJSON(t *testing.T, handler http.Handler, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("response to %s is not valid JSON: %v\nbody: %s", path, err, rec.Body.String())
	}
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(t, &fakeReporter{})

	var response HealthResponse
	rec := getJSON(t, s.Handler(), "/health", &response)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, expected 200", rec.Code)
	}
	if response.Status != "healthy" {
		t.Errorf("health status = %q, expected healthy", response.Status)
	}
	if response.Service != "test-service" || response.Version != "1.0.0" {
		t.Errorf("health response missing service metadata: %+v", response)
	}
}

func TestReadyEndpoint(t *testing.T) {
	s := testServer(t, &fakeReporter{})

	var response HealthResponse
	rec := getJSON(t, s.Handler(), "/ready", &response)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /ready status = %d, expected 200", rec.Code)
	}
	if response.Status != "ready" {
		t.Errorf("ready status = %q, expected ready", response.Status)
	}
}

func TestStatusEndpoint_Connected(t *testing.T) {
	reporter := &fakeReporter{status: mongodb.Status{
		Connected:     true,
		TunnelHealthy: true,
		LocalPort:     45231,
		BreakerState:  "closed",
	}}
	s := testServer(t, reporter)

	var response StatusResponse
	rec := getJSON(t, s.Handler(), "/status", &response)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /status status = %d, expected 200", rec.Code)
	}
	if response.Status != "connected" {
		t.Errorf("status = %q, expected connected", response.Status)
	}
	if !response.Connection.Connected || response.Connection.LocalPort != 45231 {
		t.Errorf("connection detail not carried through: %+v", response.Connection)
	}
}

func TestStatusEndpoint_Disconnected(t *testing.T) {
	reporter := &fakeReporter{status: mongodb.Status{
		Connected:     false,
		TunnelHealthy: false,
		BreakerState:  "open",
	}}
	s := testServer(t, reporter)

	var response StatusResponse
	getJSON(t, s.Handler(), "/status", &response)

	if response.Status != "disconnected" {
		t.Errorf("status = %q, expected disconnected", response.Status)
	}
	if response.Connection.BreakerState != "open" {
		t.Errorf("breaker state not carried through: %+v", response.Connection)
	}
}

func TestStatusEndpoint_SessionWithoutTunnelIsDisconnected(t *testing.T) {
	// A session whose tunnel died must not be reported as usable.
	reporter := &fakeReporter{status: mongodb.Status{
		Connected:     true,
		TunnelHealthy: false,
		BreakerState:  "closed",
	}}
	s := testServer(t, reporter)

	var response StatusResponse
	getJSON(t, s.Handler(), "/status", &response)

	if response.Status != "disconnected" {
		t.Errorf("status = %q, expected disconnected when tunnel is down", response.Status)
	}
}
