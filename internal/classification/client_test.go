package classification

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_InferSendsRawImage(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, image, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"label":"lakeside, lakeshore","score":0.61},{"label":"dam, dike","score":0.12}]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-key", time.Second)
	predictions, err := client.Infer(context.Background(), image, "image/jpeg")
	require.NoError(t, err)
	require.Len(t, predictions, 2)
	assert.Equal(t, Prediction{Label: "lakeside, lakeshore", Score: 0.61}, predictions[0])
	assert.Equal(t, Prediction{Label: "dam, dike", Score: 0.12}, predictions[1])
}

func TestClient_InferDefaultsContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	predictions, err := NewClient(server.URL, "k", time.Second).Infer(context.Background(), []byte("x"), "")
	require.NoError(t, err)
	assert.Empty(t, predictions)
}

func TestClient_InferNonArrayBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"object", `{"error":"Model is loading","estimated_time":20}`},
		{"null", `null`},
		{"empty", ``},
		{"not json", `<html>oops</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			predictions, err := NewClient(server.URL, "k", time.Second).Infer(context.Background(), []byte("x"), "image/png")
			require.NoError(t, err)
			assert.Empty(t, predictions)
		})
	}
}

func TestClient_InferMalformedElementsKeepPosition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"score":0.9},42,{"label":"pothole","score":"high"},{"label":"road","score":0.4}]`))
	}))
	defer server.Close()

	predictions, err := NewClient(server.URL, "k", time.Second).Infer(context.Background(), []byte("x"), "image/png")
	require.NoError(t, err)
	require.Len(t, predictions, 4)
	assert.Equal(t, Prediction{Label: "", Score: 0.9}, predictions[0])
	assert.Equal(t, Prediction{}, predictions[1])
	assert.Equal(t, Prediction{Label: "pothole", Score: 0}, predictions[2])
	assert.Equal(t, Prediction{Label: "road", Score: 0.4}, predictions[3])
}

func TestClient_InferHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid credentials in Authorization header"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "bad", time.Second).Infer(context.Background(), []byte("x"), "image/png")
	require.Error(t, err)

	var ie *InferenceError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, http.StatusUnauthorized, ie.Status)
	assert.JSONEq(t, `{"error":"Invalid credentials in Authorization header"}`, string(ie.Payload))
}

func TestClient_InferHTTPErrorPlainTextPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "k", time.Second).Infer(context.Background(), []byte("x"), "image/png")

	var ie *InferenceError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, http.StatusBadGateway, ie.Status)
	assert.JSONEq(t, `"upstream down"`, string(ie.Payload))
}

func TestClient_InferTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewClient(server.URL, "k", 50*time.Millisecond).Infer(context.Background(), []byte("x"), "image/png")
	require.Error(t, err)

	var ie *InferenceError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 0, ie.Status)
	assert.Nil(t, ie.Payload)
}

func TestClient_InferCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(server.URL, "k", time.Second).Infer(ctx, []byte("x"), "image/png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	c := NewClient("http://example.invalid", "k", 0)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}
