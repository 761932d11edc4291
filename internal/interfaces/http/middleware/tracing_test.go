package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func newTracedRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), TracingWithConfig(TracingConfig{ServiceName: "crm-test", Enabled: true}), SpanErrorMarker())
	router.GET("/api/orders", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	router.GET("/api/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	return router
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_RecordsRequestID(t *testing.T) {
	sr := setupTestTracer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set(RequestIDHeader, "trace-req-1")

	newTracedRouter().ServeHTTP(httptest.NewRecorder(), req)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	v, ok := spanAttr(spans[0], "request_id")
	require.True(t, ok)
	assert.Equal(t, "trace-req-1", v.AsString())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_MarksServerErrors(t *testing.T) {
	sr := setupTestTracer(t)

	newTracedRouter().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/fail", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTracing_ClientErrorsKeepStatus(t *testing.T) {
	sr := setupTestTracer(t)

	newTracedRouter().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/missing", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	v, ok := spanAttr(spans[0], "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusNotFound), v.AsInt64())
}

func TestTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}), SpanErrorMarker())
	router.GET("/api/orders", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}
