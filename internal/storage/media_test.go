package storage

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 принимает PUT объектов и запоминает их
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string

	// длина объекта, заявленная клиентом для aws-chunked загрузки
	decodedLen map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}
	var body []byte
	if strings.Contains(r.Header.Get("Content-Encoding"), "aws-chunked") ||
		strings.HasPrefix(r.Header.Get("X-Amz-Content-Sha256"), "STREAMING-") {
		var err error
		if body, err = decodeAWSChunked(r.Body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	} else {
		body, _ = io.ReadAll(r.Body)
	}
	f.mu.Lock()
	f.objects[r.URL.Path] = string(body)
	f.types[r.URL.Path] = r.Header.Get("Content-Type")
	f.decodedLen[r.URL.Path] = r.Header.Get("X-Amz-Decoded-Content-Length")
	f.mu.Unlock()
	w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	w.WriteHeader(http.StatusOK)
}

// decodeAWSChunked снимает подписанную разбивку "<hex>;chunk-signature=...\r\n<data>\r\n"
func decodeAWSChunked(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	var out []byte
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		sizeHex, _, _ := strings.Cut(strings.TrimSpace(line), ";")
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return nil, err
		}
		if size == 0 {
			return out, nil
		}
		chunk := make([]byte, size)
		if _, err := io.ReadFull(br, chunk); err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		if _, err := br.Discard(2); err != nil {
			return nil, err
		}
	}
}

func newTestStore(t *testing.T, endpoint string) *MediaStore {
	t.Helper()
	store, err := NewMediaStore(Config{
		Endpoint:  endpoint,
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Bucket:    "incident-media",
		Region:    "us-east-1",
		URLTTL:    15 * time.Minute,
	})
	require.NoError(t, err)
	return store
}

func TestMediaStore_Put(t *testing.T) {
	s3 := &fakeS3{objects: map[string]string{}, types: map[string]string{}, decodedLen: map[string]string{}}
	srv := httptest.NewServer(s3)
	defer srv.Close()

	store := newTestStore(t, strings.TrimPrefix(srv.URL, "http://"))
	body := "jpeg-bytes"
	err := store.Put(context.Background(), "incidents/42/photo.jpg", strings.NewReader(body), int64(len(body)), "image/jpeg")
	require.NoError(t, err)

	s3.mu.Lock()
	defer s3.mu.Unlock()
	assert.Equal(t, body, s3.objects["/incident-media/incidents/42/photo.jpg"])
	assert.Equal(t, "image/jpeg", s3.types["/incident-media/incidents/42/photo.jpg"])
	if declared := s3.decodedLen["/incident-media/incidents/42/photo.jpg"]; declared != "" {
		assert.Equal(t, strconv.Itoa(len(body)), declared)
	}
}

func TestMediaStore_PutFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	store := newTestStore(t, strings.TrimPrefix(srv.URL, "http://"))
	err := store.Put(context.Background(), "incidents/42/photo.jpg", strings.NewReader("x"), 1, "image/jpeg")
	assert.Error(t, err)
}

func TestMediaStore_URLIsPresigned(t *testing.T) {
	store := newTestStore(t, "storage.local:9000")

	raw, err := store.URL(context.Background(), "incidents/42/clip.mp4")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "storage.local:9000", u.Host)
	assert.Equal(t, "/incident-media/incidents/42/clip.mp4", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}
