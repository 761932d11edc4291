package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) ObserveUpstream(method, path, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, method+" "+path+" "+outcome)
}

func TestClient_Forward(t *testing.T) {
	var got struct {
		method, path, rawQuery, body string
		header                       http.Header
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.method = r.Method
		got.path = r.URL.Path
		got.rawQuery = r.URL.RawQuery
		got.body = string(body)
		got.header = r.Header.Clone()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":7}}`))
	}))
	defer server.Close()

	rec := &outcomeRecorder{}
	client, err := NewClient(server.URL, time.Second, zap.NewNop(), WithObserver(rec))
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("Authorization", "Bearer abc")
	header.Set("Accept-Language", "ru")
	header.Set("X-Request-ID", "req-1")
	header.Set("Cookie", "session=secret")

	resp, err := client.Forward(context.Background(), Request{
		Method:   http.MethodPost,
		Path:     "/api/orders",
		RawQuery: "page=2&filter=a%2Cb&filter=c",
		Header:   header,
		Body:     []byte(`{"customer_name":"Ivan",  "items":[]}`),
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/orders", got.path)
	assert.Equal(t, "page=2&filter=a%2Cb&filter=c", got.rawQuery)
	assert.Equal(t, `{"customer_name":"Ivan",  "items":[]}`, got.body)
	assert.Equal(t, "Bearer abc", got.header.Get("Authorization"))
	assert.Equal(t, "ru", got.header.Get("Accept-Language"))
	assert.Equal(t, "req-1", got.header.Get("X-Request-ID"))
	assert.Empty(t, got.header.Get("Cookie"))

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"success":true,"data":{"id":7}}`, string(resp.Body))
	assert.Equal(t, "application/json", resp.ContentType())
	assert.Equal(t, []string{"POST /api/orders 2xx"}, rec.outcomes)
}

func TestClient_RelaysErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("bad stock"))
	}))
	defer server.Close()

	rec := &outcomeRecorder{}
	client, err := NewClient(server.URL, time.Second, nil, WithObserver(rec))
	require.NoError(t, err)

	resp, err := client.Forward(context.Background(), Request{
		Method: http.MethodPatch,
		Path:   "/api/products/42/stock",
		Route:  "/api/products/:id/stock",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "bad stock", string(resp.Body))
	assert.Equal(t, "text/plain", resp.ContentType())
	assert.Equal(t, []string{"PATCH /api/products/:id/stock 4xx"}, rec.outcomes)
}

func TestClient_DoesNotFollowRedirects(t *testing.T) {
	var followed int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Location", "/elsewhere")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/elsewhere", func(w http.ResponseWriter, _ *http.Request) {
		followed++
		_, _ = w.Write([]byte(`{"redirected":true}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	rec := &outcomeRecorder{}
	client, err := NewClient(server.URL, time.Second, nil, WithObserver(rec))
	require.NoError(t, err)

	resp, err := client.Forward(context.Background(), Request{Method: http.MethodPost, Path: "/api/orders", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/elsewhere", resp.Header.Get("Location"))
	assert.Zero(t, followed)
	assert.Equal(t, []string{"POST /api/orders 3xx"}, rec.outcomes)
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	origin := server.URL
	server.Close()

	rec := &outcomeRecorder{}
	client, err := NewClient(origin, time.Second, nil, WithObserver(rec))
	require.NoError(t, err)

	_, err = client.Forward(context.Background(), Request{Method: http.MethodGet, Path: "/api/orders"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.Equal(t, []string{"GET /api/orders error"}, rec.outcomes)
}

func TestClient_URL(t *testing.T) {
	client, err := NewClient("http://localhost:3011/", time.Second, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3011", client.Origin())
	assert.Equal(t, "http://localhost:3011/api/currency/rates?base=USD", client.URL("/api/currency/rates", "base=USD"))
	assert.Equal(t, "http://localhost:3011/api/orders", client.URL("/api/orders", ""))
}

func TestNewClient_InvalidOrigin(t *testing.T) {
	_, err := NewClient("localhost", time.Second, nil)
	assert.Error(t, err)

	_, err = NewClient("://bad", time.Second, nil)
	assert.Error(t, err)
}

func TestResponse_ContentTypeDefault(t *testing.T) {
	r := &Response{Header: http.Header{}}
	assert.Equal(t, "application/json; charset=utf-8", r.ContentType())
}
