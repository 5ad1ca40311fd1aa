package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SurEtBon/backend/internal/resilience"
)

func TestGetBucket_Success(t *testing.T) {
	t.Parallel()

	want := Bucket{
		ID:               "data_lake",
		Name:             "data_lake",
		Public:           false,
		AllowedMimeTypes: []string{"text/csv", "application/vnd.apache.parquet"},
		FileSizeLimit:    52428800,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "/storage/v1/bucket/data_lake", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "service-key")
	got, err := client.GetBucket(context.Background(), "data_lake")

	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.False(t, got.Public)
	assert.Equal(t, want.AllowedMimeTypes, got.AllowedMimeTypes)
	assert.Equal(t, int64(52428800), got.FileSizeLimit)
}

func TestGetBucket_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Bucket not found"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "service-key")
	_, err := client.GetBucket(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrBucketNotFound))
}

func TestEnsureBucket_CreatesWhenMissing(t *testing.T) {
	t.Parallel()

	var created atomic.Bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/storage/v1/bucket":
			var spec BucketSpec
			require.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
			assert.Equal(t, "data_lake", spec.ID)
			assert.False(t, spec.Public)
			assert.Equal(t, int64(52428800), spec.FileSizeLimit)
			created.Store(true)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "service-key")
	err := client.EnsureBucket(context.Background(), BucketSpec{
		ID:               "data_lake",
		Public:           false,
		AllowedMimeTypes: []string{"text/csv", "application/vnd.apache.parquet"},
		FileSizeLimit:    52428800,
	})

	require.NoError(t, err)
	assert.True(t, created.Load())
}

func TestEnsureBucket_UpdatesWhenPresent(t *testing.T) {
	t.Parallel()

	var updated atomic.Bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(Bucket{ID: "data_lake", Name: "data_lake"})
		case http.MethodPut:
			assert.Equal(t, "/storage/v1/bucket/data_lake", r.URL.Path)
			updated.Store(true)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "service-key")
	err := client.EnsureBucket(context.Background(), BucketSpec{ID: "data_lake"})

	require.NoError(t, err)
	assert.True(t, updated.Load())
}

func TestEnsureBucket_RequiresID(t *testing.T) {
	t.Parallel()

	client := NewClient("http://unused", "service-key")
	err := client.EnsureBucket(context.Background(), BucketSpec{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket id")
}

func TestUpload_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/v1/object/data_lake/osm/2026-08-24.csv", r.URL.Path)
		assert.Equal(t, "text/csv", r.Header.Get("Content-Type"))
		assert.Equal(t, "true", r.Header.Get("x-upsert"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "name,lat,lng\n", string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "service-key")
	err := client.Upload(context.Background(), "data_lake", "osm/2026-08-24.csv", "text/csv", []byte("name,lat,lng\n"))

	require.NoError(t, err)
}

func TestUpload_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		// Body must be re-sent on every attempt.
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(body))
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "service-key")
	err := client.Upload(context.Background(), "data_lake", "x.csv", "text/csv", []byte("payload"))

	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestUpload_RejectedMimeType(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnsupportedMediaType)
		w.Write([]byte(`{"error":"mime type not supported"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "service-key")
	err := client.Upload(context.Background(), "data_lake", "x.bin", "application/octet-stream", []byte{0x00})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "415")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestList_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/v1/object/list/data_lake", r.URL.Path)

		var payload struct {
			Prefix string `json:"prefix"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "osm/", payload.Prefix)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Object{
			{Name: "osm/2026-08-17.csv"},
			{Name: "osm/2026-08-24.csv"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "service-key")
	objects, err := client.List(context.Background(), "data_lake", "osm/")

	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "osm/2026-08-17.csv", objects[0].Name)
}

func TestRemove_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/storage/v1/object/data_lake", r.URL.Path)

		var payload struct {
			Prefixes []string `json:"prefixes"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []string{"osm/2026-08-17.csv"}, payload.Prefixes)

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "service-key")
	err := client.Remove(context.Background(), "data_lake", []string{"osm/2026-08-17.csv"})

	require.NoError(t, err)
}

func TestRemove_NoPathsIsNoop(t *testing.T) {
	t.Parallel()

	client := NewClient("http://unused", "service-key")
	require.NoError(t, client.Remove(context.Background(), "data_lake", nil))
}

func TestUpload_ExhaustedRetriesAreTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "service-key", WithMaxAttempts(1))
	err := client.Upload(context.Background(), "data_lake", "x.csv", "text/csv", []byte("payload"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	// An outer retry layer must be able to classify the failure.
	assert.True(t, resilience.IsTransient(err))
}

func TestUpload_PermanentFailureIsNotTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnsupportedMediaType)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "service-key")
	err := client.Upload(context.Background(), "data_lake", "x.bin", "application/octet-stream", []byte{0x00})

	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()
	c := NewClient("https://ref.supabase.co", "key")
	hc := c.(*httpClient)
	assert.Equal(t, "https://ref.supabase.co/storage/v1", hc.baseURL)
	assert.Equal(t, 3, hc.maxAttempts)
	assert.NotNil(t, hc.http)
}

func TestWithMaxAttempts(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", WithMaxAttempts(1))
	_, err := client.GetBucket(context.Background(), "data_lake")

	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}
