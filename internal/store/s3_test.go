package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noSuchKeyBody = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`

// mockS3 is a tiny fake of the S3 object API, enough for GetObject and PutObject.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func (m *mockS3) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return &http.Response{StatusCode: http.StatusForbidden, Body: io.NopCloser(strings.NewReader(
			`<Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)),
			Header: http.Header{"Content-Type": {"application/xml"}}}, nil
	}

	path := strings.TrimPrefix(req.URL.Path, "/")
	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		m.objects[path] = body
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)),
			Header: http.Header{"ETag": {"\"etag\""}}}, nil
	case http.MethodGet:
		body, ok := m.objects[path]
		if !ok {
			return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(noSuchKeyBody)),
				Header: http.Header{"Content-Type": {"application/xml"}}}, nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(body)), Header: http.Header{
			"Content-Length": {strconv.Itoa(len(body))},
			"Content-Type":   {"application/json"},
			"ETag":           {"\"etag\""},
		}}, nil
	}
	return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
}

// decodeChunked unwraps a single-chunk aws-chunked payload: <hex>\r\n<body>\r\n0\r\n...
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	size, err := strconv.ParseInt(strings.SplitN(parts[0], ";", 2)[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size || !strings.HasPrefix(parts[2], "0") {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newMockS3Store(t *testing.T, prefix string) (*S3Store, *mockS3) {
	t.Helper()
	mock := &mockS3{objects: make(map[string][]byte)}
	s, err := NewS3Store(context.Background(), S3Options{
		Bucket:          "relic-test",
		Region:          "us-east-1",
		Endpoint:        "https://mock.s3.local",
		Prefix:          prefix,
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: mock},
	}, "campaign")
	require.NoError(t, err)
	return s, mock
}

func TestS3Store(t *testing.T) {
	s, mock := newMockS3Store(t, "relic")
	assert.Equal(t, "relic/campaign.json", s.Object())
	exerciseStore(t, s)

	_, ok := mock.objects[fmt.Sprintf("%s/%s", "relic-test", s.Object())]
	assert.True(t, ok)
}

func TestS3Store_Errors(t *testing.T) {
	s, mock := newMockS3Store(t, "")
	assert.Equal(t, "campaign.json", s.Object())
	mock.fail = true

	_, err := s.Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Error(t, s.Save(context.Background(), sampleDocument()))

	_, err = NewS3Store(context.Background(), S3Options{}, "campaign")
	assert.Error(t, err)
}
