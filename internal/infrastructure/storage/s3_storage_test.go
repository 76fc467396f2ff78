package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/invest/ledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func validConfig(endpoint string) config.StorageConfig {
	return config.StorageConfig{
		Enabled:      true,
		Endpoint:     endpoint,
		Region:       "us-east-1",
		Bucket:       "statements",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		UsePathStyle: true,
	}
}

// ----------------------------------------------------------------------------
// Construction
// ----------------------------------------------------------------------------

func TestNewS3StatementStorage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.StorageConfig)
		wantErr string
	}{
		{"missing bucket", func(c *config.StorageConfig) { c.Bucket = "" }, "bucket is required"},
		{"missing access key", func(c *config.StorageConfig) { c.AccessKey = "" }, "access key and secret key"},
		{"missing secret key", func(c *config.StorageConfig) { c.SecretKey = "" }, "access key and secret key"},
		{"bad endpoint", func(c *config.StorageConfig) { c.Endpoint = "http://" }, "invalid storage endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig("http://localhost:9000")
			tt.mutate(&cfg)
			_, err := NewS3StatementStorage(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	got, err := normalizeEndpoint("", false)
	require.NoError(t, err)
	assert.Equal(t, defaultEndpoint, got)

	got, err = normalizeEndpoint("minio:9000", false)
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000", got)

	got, err = normalizeEndpoint("s3.example.com", true)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.com", got)
}

func TestNewS3StatementStorage_Options(t *testing.T) {
	s, err := NewS3StatementStorage(validConfig("localhost:9000"),
		WithLogger(zaptest.NewLogger(t)),
		WithPresignExpiration(time.Hour),
	)
	require.NoError(t, err)
	assert.Equal(t, "statements", s.Bucket())
	assert.Equal(t, time.Hour, s.presignExpiration)

	s, err = NewS3StatementStorage(validConfig("localhost:9000"))
	require.NoError(t, err)
	assert.Equal(t, defaultPresignExpiration, s.presignExpiration)
}

// ----------------------------------------------------------------------------
// Operations against a fake S3 endpoint
// ----------------------------------------------------------------------------

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		path := strings.TrimPrefix(r.URL.Path, "/")
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			f.objects[path] = body
			f.types[path] = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusOK)
		case http.MethodHead:
			if _, ok := f.objects[path]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func TestS3StatementStorage_UploadAndExists(t *testing.T) {
	fake, srv := newFakeS3(t)
	s, err := NewS3StatementStorage(validConfig(srv.URL))
	require.NoError(t, err)
	ctx := context.Background()

	data := []byte("date,description,amount\n2026-01-01,Installment 1,100.00\n")
	require.NoError(t, s.Upload(ctx, "plans/p1/statement.csv", data, "text/csv"))

	fake.mu.Lock()
	assert.Equal(t, data, fake.objects["statements/plans/p1/statement.csv"])
	assert.Equal(t, "text/csv", fake.types["statements/plans/p1/statement.csv"])
	fake.mu.Unlock()

	ok, err := s.Exists(ctx, "plans/p1/statement.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "plans/missing.csv")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3StatementStorage_EmptyKey(t *testing.T) {
	s, err := NewS3StatementStorage(validConfig("localhost:9000"))
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, s.Upload(ctx, "", []byte("x"), "text/csv"))
	_, _, err = s.GenerateDownloadURL(ctx, "", time.Minute)
	assert.Error(t, err)
	_, err = s.Exists(ctx, "")
	assert.Error(t, err)
}

func TestS3StatementStorage_GenerateDownloadURL(t *testing.T) {
	s, err := NewS3StatementStorage(validConfig("http://localhost:9000"))
	require.NoError(t, err)

	before := time.Now()
	u, expiresAt, err := s.GenerateDownloadURL(context.Background(), "plans/p1/statement.csv", 10*time.Minute)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(u, "http://localhost:9000/statements/plans/p1/statement.csv?"), u)
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=600")
	assert.WithinDuration(t, before.Add(10*time.Minute), expiresAt, 5*time.Second)

	// non-positive TTL uses the configured default
	u, _, err = s.GenerateDownloadURL(context.Background(), "k", 0)
	require.NoError(t, err)
	assert.Contains(t, u, "X-Amz-Expires=900")
}

// ----------------------------------------------------------------------------
// Integration (requires a running S3-compatible server)
// ----------------------------------------------------------------------------

func TestS3StatementStorage_Integration(t *testing.T) {
	endpoint := os.Getenv("LEDGER_TEST_S3_ENDPOINT")
	if testing.Short() || endpoint == "" {
		t.Skip("set LEDGER_TEST_S3_ENDPOINT to run against a live S3 server")
	}

	cfg := validConfig(endpoint)
	cfg.AccessKey = os.Getenv("LEDGER_TEST_S3_ACCESS_KEY")
	cfg.SecretKey = os.Getenv("LEDGER_TEST_S3_SECRET_KEY")
	cfg.Bucket = "ledger-statements-test"

	s, err := NewS3StatementStorage(cfg, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, s.EnsureBucket(ctx))
	require.NoError(t, s.EnsureBucket(ctx))

	key := "integration/" + time.Now().Format("20060102150405") + ".csv"
	require.NoError(t, s.Upload(ctx, key, []byte("a,b\n1,2\n"), "text/csv"))

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	u, _, err := s.GenerateDownloadURL(ctx, key, time.Minute)
	require.NoError(t, err)
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a,b\n1,2\n", string(body))
}
