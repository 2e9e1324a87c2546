package blobs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is a tiny path-style S3 endpoint: buckets and objects in memory.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	t.Helper()
	f := &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")

	if key == "" {
		switch r.Method {
		case http.MethodHead:
			if !f.buckets[bucket] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
		case http.MethodPut:
			f.buckets[bucket] = true
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[path] = data
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		_, _ = w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T, endpoint string) *S3Store {
	t.Helper()
	s, err := NewS3(context.Background(), S3Config{
		Region:       "us-east-1",
		RootUser:     "minioadmin",
		RootPassword: "minioadmin",
		BaseEndpoint: endpoint,
		Bucket:       "gophchat",
	})
	require.NoError(t, err)
	return s
}

func TestS3Store_PutGet(t *testing.T) {
	fake, srv := newFakeS3(t)
	s := newTestStore(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, s.EnsureBucket(ctx))
	assert.True(t, fake.buckets["gophchat"])
	require.NoError(t, s.EnsureBucket(ctx), "second call finds the bucket")

	key := NewKey("a@x.com_b@y.com", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
	payload := []byte{0, 1, 2, 3, 255}
	require.NoError(t, s.Put(ctx, key, payload))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = s.Get(ctx, "files/missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestNewKey(t *testing.T) {
	k1 := NewKey("a_b", time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	k2 := NewKey("a_b", time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))

	assert.True(t, strings.HasPrefix(k1, "files/a_b/2026/10/19/"), k1)
	assert.NotEqual(t, k1, k2)
}

func TestNewS3_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3(context.Background(), S3Config{Region: "us-east-1"})
	require.ErrorContains(t, err, "no config")
}

func TestS3Store_Unreachable(t *testing.T) {
	_, srv := newFakeS3(t)
	url := srv.URL
	srv.Close()

	s := newTestStore(t, url)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.Error(t, s.Put(ctx, "k", []byte("x")))
	_, err := s.Get(ctx, "k")
	require.Error(t, err)
	require.Error(t, s.EnsureBucket(ctx))
}
