// Package supabase provides a client for the Supabase Storage API, covering
// bucket provisioning and object upload for raw dataset archives.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/SurEtBon/backend/internal/resilience"
)

// Client defines the Supabase Storage operations.
type Client interface {
	// EnsureBucket creates the bucket if it does not exist, or updates its
	// settings if it does. Safe to call repeatedly.
	EnsureBucket(ctx context.Context, spec BucketSpec) error
	// GetBucket fetches bucket metadata. Returns ErrBucketNotFound if the
	// bucket does not exist.
	GetBucket(ctx context.Context, id string) (*Bucket, error)
	// Upload stores an object under bucket/path, overwriting any existing
	// object at the same path.
	Upload(ctx context.Context, bucket, path, contentType string, data []byte) error
	// List returns objects in the bucket under the given prefix.
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
	// Remove deletes the named objects from the bucket.
	Remove(ctx context.Context, bucket string, paths []string) error
}

// ErrBucketNotFound is returned by GetBucket when the bucket does not exist.
var ErrBucketNotFound = eris.New("supabase: bucket not found")

// BucketSpec describes the desired state of a storage bucket.
type BucketSpec struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Public           bool     `json:"public"`
	AllowedMimeTypes []string `json:"allowed_mime_types,omitempty"`
	FileSizeLimit    int64    `json:"file_size_limit,omitempty"`
}

// Bucket is the storage API's bucket representation.
type Bucket struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Public           bool     `json:"public"`
	AllowedMimeTypes []string `json:"allowed_mime_types"`
	FileSizeLimit    int64    `json:"file_size_limit"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

// Object is a stored object's metadata.
type Object struct {
	Name      string `json:"name"`
	ID        string `json:"id"`
	UpdatedAt string `json:"updated_at"`
	CreatedAt string `json:"created_at"`
}

// Option configures the Supabase client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithMaxAttempts overrides the retry budget for transient failures.
func WithMaxAttempts(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

type httpClient struct {
	baseURL     string
	serviceKey  string
	maxAttempts int
	http        *http.Client
}

// NewClient creates a Supabase Storage client. projectURL is the project's
// base URL (https://<ref>.supabase.co); the storage endpoint is derived from
// it. The service role key is required for bucket administration.
func NewClient(projectURL, serviceRoleKey string, opts ...Option) Client {
	c := &httpClient{
		baseURL:     projectURL + "/storage/v1",
		serviceKey:  serviceRoleKey,
		maxAttempts: 3,
		http: &http.Client{
			Timeout: 2 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// statusError turns a non-OK Storage API response into an error. Transient
// statuses are marked so an outer retry layer can classify them.
func statusError(op string, statusCode int, body []byte) error {
	err := eris.Errorf("supabase: %s status %d: %s", op, statusCode, string(body))
	if resilience.IsTransientHTTPStatus(statusCode) {
		return resilience.NewTransientError(err, statusCode)
	}
	return err
}

// retryDo executes a request with exponential backoff on transient failures.
// The request is rebuilt per attempt so bodies can be re-sent.
func (c *httpClient) retryDo(ctx context.Context, build func() (*http.Request, error)) ([]byte, int, error) {
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, 0, eris.Wrap(err, "supabase: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
		req.Header.Set("apikey", c.serviceKey)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := readAll(resp)
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "supabase: read response body")
		}

		if resilience.IsTransientHTTPStatus(resp.StatusCode) && attempt < c.maxAttempts {
			lastErr = eris.Errorf("supabase: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func readAll(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	return buf.Bytes(), err
}

func (c *httpClient) jsonRequest(ctx context.Context, method, reqURL string, payload any) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		var body []byte
		if payload != nil {
			var err error
			body, err = json.Marshal(payload)
			if err != nil {
				return nil, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}
}

func (c *httpClient) GetBucket(ctx context.Context, id string) (*Bucket, error) {
	reqURL := fmt.Sprintf("%s/bucket/%s", c.baseURL, url.PathEscape(id))

	body, statusCode, err := c.retryDo(ctx, c.jsonRequest(ctx, http.MethodGet, reqURL, nil))
	if err != nil {
		return nil, eris.Wrap(err, "supabase: get bucket")
	}

	switch statusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrBucketNotFound
	default:
		return nil, statusError("get bucket", statusCode, body)
	}

	var bucket Bucket
	if err := json.Unmarshal(body, &bucket); err != nil {
		return nil, eris.Wrap(err, "supabase: unmarshal bucket")
	}
	return &bucket, nil
}

func (c *httpClient) EnsureBucket(ctx context.Context, spec BucketSpec) error {
	if spec.ID == "" {
		return eris.New("supabase: bucket id is required")
	}
	if spec.Name == "" {
		spec.Name = spec.ID
	}

	_, err := c.GetBucket(ctx, spec.ID)
	if eris.Is(err, ErrBucketNotFound) {
		return c.createBucket(ctx, spec)
	}
	if err != nil {
		return err
	}
	return c.updateBucket(ctx, spec)
}

func (c *httpClient) createBucket(ctx context.Context, spec BucketSpec) error {
	reqURL := c.baseURL + "/bucket"

	body, statusCode, err := c.retryDo(ctx, c.jsonRequest(ctx, http.MethodPost, reqURL, spec))
	if err != nil {
		return eris.Wrap(err, "supabase: create bucket")
	}
	if statusCode != http.StatusOK && statusCode != http.StatusCreated {
		return statusError("create bucket", statusCode, body)
	}
	return nil
}

func (c *httpClient) updateBucket(ctx context.Context, spec BucketSpec) error {
	reqURL := fmt.Sprintf("%s/bucket/%s", c.baseURL, url.PathEscape(spec.ID))

	payload := struct {
		Public           bool     `json:"public"`
		AllowedMimeTypes []string `json:"allowed_mime_types,omitempty"`
		FileSizeLimit    int64    `json:"file_size_limit,omitempty"`
	}{spec.Public, spec.AllowedMimeTypes, spec.FileSizeLimit}

	body, statusCode, err := c.retryDo(ctx, c.jsonRequest(ctx, http.MethodPut, reqURL, payload))
	if err != nil {
		return eris.Wrap(err, "supabase: update bucket")
	}
	if statusCode != http.StatusOK {
		return statusError("update bucket", statusCode, body)
	}
	return nil
}

func (c *httpClient) Upload(ctx context.Context, bucket, path, contentType string, data []byte) error {
	reqURL := fmt.Sprintf("%s/object/%s/%s", c.baseURL, url.PathEscape(bucket), escapePath(path))

	build := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("x-upsert", "true")
		return req, nil
	}

	body, statusCode, err := c.retryDo(ctx, build)
	if err != nil {
		return eris.Wrapf(err, "supabase: upload %s/%s", bucket, path)
	}
	if statusCode != http.StatusOK {
		return statusError(fmt.Sprintf("upload %s/%s", bucket, path), statusCode, body)
	}
	return nil
}

func (c *httpClient) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	reqURL := fmt.Sprintf("%s/object/list/%s", c.baseURL, url.PathEscape(bucket))

	payload := struct {
		Prefix string `json:"prefix"`
		Limit  int    `json:"limit"`
	}{prefix, 1000}

	body, statusCode, err := c.retryDo(ctx, c.jsonRequest(ctx, http.MethodPost, reqURL, payload))
	if err != nil {
		return nil, eris.Wrap(err, "supabase: list objects")
	}
	if statusCode != http.StatusOK {
		return nil, statusError("list objects", statusCode, body)
	}

	var objects []Object
	if err := json.Unmarshal(body, &objects); err != nil {
		return nil, eris.Wrap(err, "supabase: unmarshal object list")
	}
	return objects, nil
}

func (c *httpClient) Remove(ctx context.Context, bucket string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	reqURL := fmt.Sprintf("%s/object/%s", c.baseURL, url.PathEscape(bucket))

	payload := struct {
		Prefixes []string `json:"prefixes"`
	}{paths}

	body, statusCode, err := c.retryDo(ctx, c.jsonRequest(ctx, http.MethodDelete, reqURL, payload))
	if err != nil {
		return eris.Wrap(err, "supabase: remove objects")
	}
	if statusCode != http.StatusOK {
		return statusError("remove objects", statusCode, body)
	}
	return nil
}

// escapePath escapes each path segment while preserving separators.
func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}
