package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam_project/internal/logger"
)

type pages string

func (p pages) PageURL(page int) string {
	return fmt.Sprintf("%s/%d", string(p), page)
}

const listing = `<table>
<tr><td>113年第1學期第2次會考</td><td><a href="/f/q.pdf">q</a></td><td><a href="/f/a.pdf">a</a></td></tr>
</table>`

func TestFetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/history/1" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, listing)
	}))
	defer server.Close()

	client := NewPortalClient(server.Client(), pages(server.URL+"/history"), logger.Discard())

	files, err := client.FetchPage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, server.URL+"/f/q.pdf", files[0].URL)
	assert.Equal(t, server.URL+"/f/a.pdf", files[1].URL)
	assert.True(t, files[1].IsAnswer)
}

func TestFetchPageStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewPortalClient(server.Client(), pages(server.URL+"/history"), logger.Discard())

	_, err := client.FetchPage(context.Background(), 4)
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 4, fetchErr.Page)
	assert.Equal(t, server.URL+"/history/4", fetchErr.URL)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.True(t, errors.Is(err, ErrStatus))
}

func TestFetchPageNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewPortalClient(http.DefaultClient, pages(url), logger.Discard())

	_, err := client.FetchPage(context.Background(), 0)
	var fetchErr *FetchError
	assert.True(t, errors.As(err, &fetchErr))
}

func TestOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "%PDF-1.4")
	}))
	defer server.Close()

	client := NewPortalClient(server.Client(), pages(server.URL), logger.Discard())

	body, err := client.Open(context.Background(), server.URL+"/x.pdf")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}
