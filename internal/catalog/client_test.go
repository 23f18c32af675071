package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workshopindex/workshop-server/internal/errors"
)

func TestFetchPage(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"appid":      q.Get("appid"),
			"cursor":     q.Get("cursor"),
			"numperpage": q.Get("numperpage"),
			"query_type": q.Get("query_type"),
		}
		w.Write([]byte(`{
			"response": {
				"total": 2,
				"next_cursor": "abc",
				"publishedfiledetails": [
					{"publishedfileid": "100"},
					{"publishedfileid": "200"}
				]
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "token", 100, slog.Default())
	defer client.Close()

	page, err := client.FetchPage(context.Background(), 550, FirstCursor)
	require.NoError(t, err)

	assert.Equal(t, int64(550), page.AppID)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, "abc", page.NextCursor)
	assert.Len(t, page.Entries, 2)

	assert.Equal(t, "550", gotQuery["appid"])
	assert.Equal(t, "*", gotQuery["cursor"])
	assert.Equal(t, "100", gotQuery["numperpage"])
	assert.Equal(t, "21", gotQuery["query_type"])
}

func TestFetchPage_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>scheduled maintenance</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "token", 100, slog.Default())
	defer client.Close()

	_, err := client.FetchPage(context.Background(), 550, FirstCursor)

	var malformed *MalformedPageError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "<html>scheduled maintenance</html>", string(malformed.Body))
}

func TestFetchPage_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token", 100, slog.Default())
	defer client.Close()

	_, err := client.FetchPage(context.Background(), 550, FirstCursor)
	assert.ErrorIs(t, err, errors.ErrRateLimited)
}

func TestFetchPage_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token", 100, slog.Default())
	defer client.Close()

	_, err := client.FetchPage(context.Background(), 550, FirstCursor)
	assert.ErrorIs(t, err, errors.ErrInternal)
}

func TestDecodeEntry(t *testing.T) {
	raw := []byte(`{
		"publishedfileid": "100",
		"creator": "76561198000000000",
		"creator_appid": 550,
		"title": "A Map",
		"file_description": "[b]fun[/b]",
		"time_updated": 1700000000,
		"tags": [{"tag": "Maps", "display_name": "Maps"}],
		"children": [{"publishedfileid": "200", "sortorder": 0, "file_type": 2}]
	}`)

	entry, err := DecodeEntry(raw)
	require.NoError(t, err)
	assert.Equal(t, "100", entry.PublishedFileID)
	require.NotNil(t, entry.Creator)
	assert.Equal(t, "76561198000000000", *entry.Creator)
	require.NotNil(t, entry.TimeUpdated)
	assert.Equal(t, int64(1700000000), *entry.TimeUpdated)
	require.Len(t, entry.Children, 1)
	assert.Equal(t, "200", entry.Children[0].PublishedFileID)
}

func TestDecodeEntry_MissingFieldsStayNil(t *testing.T) {
	entry, err := DecodeEntry([]byte(`{"publishedfileid": "100"}`))
	require.NoError(t, err)

	assert.Nil(t, entry.Creator)
	assert.Nil(t, entry.CreatorAppID)
	assert.Nil(t, entry.Title)
	assert.Nil(t, entry.FileDescription)
	assert.Nil(t, entry.TimeUpdated)
}

func TestFetchProfiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1,2,3", r.URL.Query().Get("steamids"))
		w.Write([]byte(`{
			"response": {
				"players": [
					{"steamid": "1", "personaname": "Alpha"},
					{"steamid": "2", "personaname": "Beta"}
				]
			}
		}`))
	}))
	defer server.Close()

	client := NewProfileClient(server.URL, "token", slog.Default())
	defer client.Close()

	profiles, err := client.FetchProfiles(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Alpha", profiles[0].Name)
}

func TestFetchProfiles_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewProfileClient(server.URL, "token", slog.Default())
	defer client.Close()

	_, err := client.FetchProfiles(context.Background(), []string{"1"})
	assert.ErrorIs(t, err, errors.ErrRateLimited)
}
