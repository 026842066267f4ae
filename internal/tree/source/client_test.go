package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ClientSuite struct {
	suite.Suite
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func newTestClient(url string) *Client {
	return New(url+"/ajax?action=children&nodeid=14", WithPacing(0))
}

func (s *ClientSuite) TestFetchSendsRefAndBrowserHeaders() {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	children, err := newTestClient(srv.URL).FetchChildren(context.Background(), 42)
	s.Require().NoError(err)
	s.Empty(children)

	s.Require().NotNil(got)
	s.Equal("42", got.URL.Query().Get("id"))
	s.Equal("children", got.URL.Query().Get("action"))
	s.Equal("14", got.URL.Query().Get("nodeid"))
	s.Contains(got.Header.Get("User-Agent"), "Mozilla/5.0")
	s.Contains(got.Header.Get("Accept"), "application/json")
	s.Equal("gzip", got.Header.Get("Accept-Encoding"))
}

func (s *ClientSuite) TestFetchDecodesNumericStringsAndNulls() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id": 5, "name": "X", "birth_year": 0, "death_year": null},
			{"id": "6", "name": "Y", "birth_year": "1890", "death_year": "", "extra": true}
		]`))
	}))
	defer srv.Close()

	children, err := newTestClient(srv.URL).FetchChildren(context.Background(), 1)
	s.Require().NoError(err)
	s.Require().Len(children, 2)

	s.Equal(int64(5), children[0].ID)
	s.Equal("X", children[0].Name)
	s.Require().NotNil(children[0].BirthYear)
	s.Equal(0, *children[0].BirthYear)
	s.Nil(children[0].DeathYear)

	s.Equal(int64(6), children[1].ID)
	s.Equal(1890, *children[1].BirthYear)
	s.Nil(children[1].DeathYear)
}

func (s *ClientSuite) TestFetchDecompressesGzip() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte(`[{"id": 7, "name": "Z"}]`))
		_ = zw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	children, err := newTestClient(srv.URL).FetchChildren(context.Background(), 1)
	s.Require().NoError(err)
	s.Require().Len(children, 1)
	s.Equal(int64(7), children[0].ID)
}

func (s *ClientSuite) TestFetchFailureCategories() {
	tests := []struct {
		name      string
		status    int
		body      string
		category  ErrorCategory
		retryable bool
	}{
		{"server error", http.StatusBadGateway, "", ErrorProviderOutage, true},
		{"rate limited", http.StatusTooManyRequests, "", ErrorRateLimited, true},
		{"not found", http.StatusNotFound, "", ErrorNotFound, false},
		{"object payload", http.StatusOK, `{"error": "nope"}`, ErrorBadData, false},
		{"html payload", http.StatusOK, `<html></html>`, ErrorBadData, false},
		{"broken json", http.StatusOK, `[{"id": 1,`, ErrorBadData, false},
		{"non numeric id", http.StatusOK, `[{"id": "abc", "name": "x"}]`, ErrorBadData, false},
		{"missing id", http.StatusOK, `[{"name": "x"}]`, ErrorBadData, false},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).FetchChildren(context.Background(), 9)
			s.Require().Error(err)
			s.Equal(tt.category, CategoryOf(err))
			s.Equal(tt.retryable, IsRetryable(err))
		})
	}
}

func (s *ClientSuite) TestFetchHonorsDeadline() {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestClient(srv.URL).FetchChildren(ctx, 1)
	s.Require().Error(err)
	s.Equal(ErrorTimeout, CategoryOf(err))
	s.Less(time.Since(start), 2*time.Second)
}

func (s *ClientSuite) TestUnreachableSourceIsOutage() {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).FetchChildren(context.Background(), 1)
	s.Require().Error(err)
	s.Equal(ErrorProviderOutage, CategoryOf(err))
}

func TestPacingSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithPacing(100*time.Millisecond))
	start := time.Now()
	for range 3 {
		_, err := c.FetchChildren(context.Background(), 1)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}

func TestCategoryOfPlainError(t *testing.T) {
	assert.Equal(t, ErrorInternal, CategoryOf(assert.AnError))
	assert.False(t, IsRetryable(assert.AnError))
}
