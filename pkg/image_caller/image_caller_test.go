package image_caller_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gen-gallery/pkg/image_caller"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestGenerate_WaitsSynchronously(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models/black-forest-labs/flux-schnell/predictions":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			assert.Equal(t, "wait", r.Header.Get("Prefer"))

			var body struct {
				Input map[string]interface{} `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a red fox", body.Input["prompt"])
			assert.EqualValues(t, 42, body.Input["seed"])
			assert.EqualValues(t, 1024, body.Input["width"])

			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     "p1",
				"status": "succeeded",
				"output": []string{srv.URL + "/out.png"},
			})
		case "/out.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	caller := image_caller.NewImageCaller(srv.URL+"/v1", "tok", 5*time.Second, 10*time.Millisecond)
	img, err := caller.Generate(context.Background(), "black-forest-labs/flux-schnell", &image_caller.GenerateOptions{
		Prompt: "a red fox",
		Seed:   42,
		Width:  1024,
		Height: 1024,
	})
	require.NoError(t, err)
	assert.Equal(t, pngBytes, img.Data)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, "p1", img.PredictionID)
}

func TestGenerate_PollsUntilSucceeded(t *testing.T) {
	var polls int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models/m/predictions":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     "p2",
				"status": "processing",
				"urls":   map[string]string{"get": srv.URL + "/predictions/p2"},
			})
		case "/predictions/p2":
			status := "processing"
			var output interface{}
			if atomic.AddInt32(&polls, 1) >= 2 {
				status = "succeeded"
				output = srv.URL + "/img"
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     "p2",
				"status": status,
				"output": output,
				"urls":   map[string]string{"get": srv.URL + "/predictions/p2"},
			})
		case "/img":
			_, _ = w.Write(pngBytes)
		}
	}))
	defer srv.Close()

	caller := image_caller.NewImageCaller(srv.URL, "", 5*time.Second, 5*time.Millisecond)
	img, err := caller.Generate(context.Background(), "m", &image_caller.GenerateOptions{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, pngBytes, img.Data)
	assert.EqualValues(t, 2, atomic.LoadInt32(&polls))
}

func TestGenerate_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"invalid input"}`))
	}))
	defer srv.Close()

	caller := image_caller.NewImageCaller(srv.URL, "", time.Second, 10*time.Millisecond)
	_, err := caller.Generate(context.Background(), "m", &image_caller.GenerateOptions{Prompt: "p"})
	require.Error(t, err)

	var apiErr *image_caller.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestGenerate_FailedPrediction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "p3",
			"status": "failed",
			"error":  "NSFW content detected",
		})
	}))
	defer srv.Close()

	caller := image_caller.NewImageCaller(srv.URL, "", time.Second, 10*time.Millisecond)
	_, err := caller.Generate(context.Background(), "m", &image_caller.GenerateOptions{Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NSFW")
}

func TestGenerate_DataURLOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "p4",
			"status": "succeeded",
			"output": "data:image/png;base64,aGVsbG8=",
		})
	}))
	defer srv.Close()

	caller := image_caller.NewImageCaller(srv.URL, "", time.Second, 10*time.Millisecond)
	img, err := caller.Generate(context.Background(), "m", &image_caller.GenerateOptions{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), img.Data)
	assert.Equal(t, "image/png", img.ContentType)
}

func TestParseSize(t *testing.T) {
	w, h, err := image_caller.ParseSize("1024x768")
	require.NoError(t, err)
	assert.Equal(t, 1024, w)
	assert.Equal(t, 768, h)

	for _, bad := range []string{"", "1024", "axb", "0x10", "10x-1"} {
		_, _, err := image_caller.ParseSize(bad)
		assert.Error(t, err, bad)
	}
}
