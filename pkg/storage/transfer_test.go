package storage

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps objects in memory and serves presigned reads through an
// httptest server.
type fakeStore struct {
	mu            sync.Mutex
	objects       map[string][]byte
	types         map[string]string
	putPaths      []string
	failPutSuffix string
	concurrent    int
	maxConcurrent int
	srv           *httptest.Server
}

func newFakeStore(t *testing.T) *fakeStore {
	s := &fakeStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		data, ok := s.objects[strings.TrimPrefix(r.URL.Path, "/")]
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *fakeStore) Put(_ context.Context, path string, data []byte, contentType string) error {
	s.mu.Lock()
	s.concurrent++
	if s.concurrent > s.maxConcurrent {
		s.maxConcurrent = s.concurrent
	}
	s.mu.Unlock()

	// Give overlapping uploads a chance to actually overlap.
	time.Sleep(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.concurrent--
	if s.failPutSuffix != "" && strings.HasSuffix(path, s.failPutSuffix) {
		return errors.New("injected put failure")
	}
	s.putPaths = append(s.putPaths, path)
	s.objects[path] = append([]byte(nil), data...)
	s.types[path] = contentType
	return nil
}

func (s *fakeStore) PresignedGet(_ context.Context, path string, _ time.Duration) (string, error) {
	return s.srv.URL + "/" + path, nil
}

func (s *fakeStore) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

func (s *fakeStore) tempParts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var parts []string
	for path := range s.objects {
		if strings.HasPrefix(path, "tmp/") {
			parts = append(parts, path)
		}
	}
	return parts
}

func (s *fakeStore) partPutCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, path := range s.putPaths {
		if strings.HasPrefix(path, "tmp/") {
			count++
		}
	}
	return count
}

func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestStoreBelowThresholdUploadsDirectly(t *testing.T) {
	store := newFakeStore(t)
	transfer := NewTransfer(store, 5, 50, 4)

	var progress []int
	data := pattern(40)
	require.NoError(t, transfer.Store(context.Background(), "recordings/u/final.mp3", data, "audio/mpeg", func(p int) {
		progress = append(progress, p)
	}))

	assert.Equal(t, 0, store.partPutCount())
	assert.Equal(t, data, store.objects["recordings/u/final.mp3"])
	assert.Equal(t, "audio/mpeg", store.types["recordings/u/final.mp3"])
	assert.Equal(t, []int{100}, progress)
}

func TestStoreChunkedPartCountAndCleanup(t *testing.T) {
	// Same ratio as a 120MB file with 5MB chunks over a 50MB threshold.
	store := newFakeStore(t)
	transfer := NewTransfer(store, 5, 50, 4)

	data := pattern(120)
	require.NoError(t, transfer.Store(context.Background(), "recordings/u/big.mp4", data, "video/mp4", nil))

	assert.Equal(t, 24, store.partPutCount())
	assert.Empty(t, store.tempParts(), "no temporary parts may remain after a successful transfer")
	assert.Equal(t, data, store.objects["recordings/u/big.mp4"])
	assert.Equal(t, "video/mp4", store.types["recordings/u/big.mp4"])
}

func TestStoreChunkedUnevenLastPart(t *testing.T) {
	store := newFakeStore(t)
	transfer := NewTransfer(store, 8, 10, 2)

	data := pattern(27) // ceil(27/8) = 4 parts, last part 3 bytes
	require.NoError(t, transfer.Store(context.Background(), "recordings/u/odd.wav", data, "audio/wav", nil))

	assert.Equal(t, 4, store.partPutCount())
	assert.Equal(t, data, store.objects["recordings/u/odd.wav"])
	assert.Empty(t, store.tempParts())
}

func TestStoreChunkedFailureCleansUp(t *testing.T) {
	store := newFakeStore(t)
	store.failPutSuffix = "part-00003"
	transfer := NewTransfer(store, 5, 50, 4)

	err := transfer.Store(context.Background(), "recordings/u/big.mp4", pattern(120), "video/mp4", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "part 3")

	assert.Empty(t, store.tempParts(), "parts already uploaded must be removed after a failed transfer")
	_, finalExists := store.objects["recordings/u/big.mp4"]
	assert.False(t, finalExists)
}

func TestStoreChunkedProgressIsMonotonic(t *testing.T) {
	store := newFakeStore(t)
	transfer := NewTransfer(store, 5, 50, 4)

	var progress []int
	require.NoError(t, transfer.Store(context.Background(), "recordings/u/big.mp4", pattern(120), "video/mp4", func(p int) {
		progress = append(progress, p)
	}))

	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i], progress[i-1])
	}
	assert.Equal(t, 100, progress[len(progress)-1])
}

func TestStoreChunkedConcurrencyIsBounded(t *testing.T) {
	store := newFakeStore(t)
	transfer := NewTransfer(store, 2, 10, 4)

	require.NoError(t, transfer.Store(context.Background(), "recordings/u/big.mp4", pattern(200), "video/mp4", nil))
	assert.LessOrEqual(t, store.maxConcurrent, 4)
}

func TestFetchURLNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := FetchURL(context.Background(), http.DefaultClient, srv.URL+"/expired")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestFetchURLReadsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	data, err := FetchURL(context.Background(), http.DefaultClient, srv.URL+"/ok")
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte("payload"), data))
}
