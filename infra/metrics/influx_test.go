package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	coremetrics "github.com/virtualzone/landroid-bridge/core/metrics"
)

func TestInfluxFallbackOnUnreachableHost(t *testing.T) {
	sink := NewInfluxSinkWithFallback(Config{InfluxURL: "http://127.0.0.1:1", InfluxToken: "t"})
	assert.IsType(t, coremetrics.NopSink{}, sink)
}

func TestInfluxFallbackOnFailingHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"fail","name":"influxdb"}`))
	}))
	t.Cleanup(srv.Close)

	sink := NewInfluxSinkWithFallback(Config{InfluxURL: srv.URL, InfluxToken: "t"})
	assert.IsType(t, coremetrics.NopSink{}, sink)
}

func TestInfluxHealthyKeepsSink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"pass","name":"influxdb"}`))
	}))
	t.Cleanup(srv.Close)

	sink := NewInfluxSinkWithFallback(Config{InfluxURL: srv.URL, InfluxToken: "t"})
	if is, ok := sink.(*InfluxSink); ok {
		is.Close()
	} else {
		t.Fatalf("expected InfluxSink, got %T", sink)
	}
}
