package flickr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flickrbackup/pkg/config"
	errs "flickrbackup/pkg/errors"
	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/retry"
)

// newTestClient points a client at handler with fast retries
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.FlickrConfig{
		APIKey:   "test-key",
		BaseURL:  srv.URL,
		UserID:   "me",
		PageSize: 500,
		Timeout:  5 * time.Second,
	},
		WithLogger(logger.NewTestLogger()),
		WithRetry(&retry.Config{
			MaxAttempts: 3,
			Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
			Logger:      logger.NewNop(),
		}),
	)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(config.FlickrConfig{APIKey: "k"})
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, "me", c.userID)
	assert.Equal(t, 500, c.PageSize())
}

func TestPhotosetList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, MethodPhotosetsGetList, q.Get("method"))
		assert.Equal(t, "test-key", q.Get("api_key"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("nojsoncallback"))
		assert.Equal(t, "me", q.Get("user_id"))
		writeJSON(w, `{"stat":"ok","photosets":{"page":1,"pages":1,"photoset":[
			{"id":"721","title":{"_content":"Holidays"},"photos":"750"},
			{"id":"722","title":{"_content":"Cats"},"photos":3}
		]}}`)
	})

	sets, err := c.PhotosetList(context.Background())
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, Photoset{ID: "721", Title: "Holidays", Photos: 750}, sets[0])
	assert.Equal(t, 3, sets[1].Photos)
}

func TestPhotosetPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, MethodPhotosetsGetPhotos, q.Get("method"))
		assert.Equal(t, "721", q.Get("photoset_id"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "500", q.Get("per_page"))
		assert.Equal(t, ListExtras, q.Get("extras"))
		writeJSON(w, `{"stat":"ok","photoset":{"id":"721","title":"Holidays","page":"2","pages":"2","total":"750",
			"photo":[{"id":"1","title":"Beach","url_o":"https://live.example.com/1_o.jpg","datetaken":"2019-07-01 10:00:00","media":"photo"}]}}`)
	})

	page, err := c.PhotosetPage(context.Background(), "721", 2)
	require.NoError(t, err)
	assert.Equal(t, "Holidays", page.Title)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.Pages)
	assert.Equal(t, 750, page.Total)
	require.Len(t, page.Photos, 1)
	assert.Equal(t, "https://live.example.com/1_o.jpg", page.Photos[0].URL)
	assert.Equal(t, "2019-07-01 10:00:00", page.Photos[0].TakenAt)
}

func TestRecentlyUpdatedDefaultsMinDate(t *testing.T) {
	var seen atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.URL.Query().Get("min_date"))
		writeJSON(w, `{"stat":"ok","photos":{"page":1,"pages":0,"total":0,"photo":[]}}`)
	})

	page, err := c.RecentlyUpdatedPage(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, "1", seen.Load())
	assert.Equal(t, 0, page.Pages)

	_, err = c.RecentlyUpdatedPage(context.Background(), "1700000000", 1)
	require.NoError(t, err)
	assert.Equal(t, "1700000000", seen.Load())
}

func TestSearchByDateRange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, MethodPhotosSearch, q.Get("method"))
		assert.Equal(t, "1546300800", q.Get("min_taken_date"))
		assert.Equal(t, "1577836799", q.Get("max_taken_date"))
		writeJSON(w, `{"stat":"ok","photos":{"page":1,"pages":1,"total":1,"photo":[{"id":"9","title":"","url_o":"https://x/9.png"}]}}`)
	})

	page, err := c.SearchByDateRange(context.Background(), 1546300800, 1577836799, 1)
	require.NoError(t, err)
	require.Len(t, page.Photos, 1)
	assert.Equal(t, "9", page.Photos[0].ID)
}

func TestAllContexts(t *testing.T) {
	t.Run("first set wins", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "42", r.URL.Query().Get("photo_id"))
			writeJSON(w, `{"stat":"ok","set":[{"id":"1","title":"Alpha"},{"id":"2","title":"Beta"}]}`)
		})
		title, found, err := c.AllContexts(context.Background(), "42")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Alpha", title)
	})

	t.Run("no sets", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"stat":"ok"}`)
		})
		_, found, err := c.AllContexts(context.Background(), "42")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestWriteMethodsArePosted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		switch r.PostForm.Get("method") {
		case MethodPhotosetsCreate:
			assert.Equal(t, "2019", r.PostForm.Get("title"))
			assert.Equal(t, "p1", r.PostForm.Get("primary_photo_id"))
			writeJSON(w, `{"stat":"ok","photoset":{"id":"9001","url":"https://x/sets/9001"}}`)
		case MethodPhotosetsAddPhoto:
			writeJSON(w, `{"stat":"ok"}`)
		default:
			t.Errorf("unexpected method %s", r.PostForm.Get("method"))
		}
	})

	id, err := c.CreatePhotoset(context.Background(), "2019", "p1")
	require.NoError(t, err)
	assert.Equal(t, "9001", id)
	require.NoError(t, c.AddPhotoToPhotoset(context.Background(), id, "p2"))
}

func TestAddPhotoAlreadyInSetSucceeds(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"stat":"fail","code":3,"message":"Photo already in set"}`)
	})
	assert.NoError(t, c.AddPhotoToPhotoset(context.Background(), "9001", "p2"))
}

func TestAPIFailureCodes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want errs.ErrorType
	}{
		{"not found", `{"stat":"fail","code":1,"message":"Photoset not found"}`, errs.ErrorTypeNotFound},
		{"invalid key", `{"stat":"fail","code":100,"message":"Invalid API Key"}`, errs.ErrorTypeAuth},
		{"other", `{"stat":"fail","code":42,"message":"nope"}`, errs.ErrorTypeUnknown},
		{"garbage", `<html>`, errs.ErrorTypeMalformedResponse},
		{"missing section", `{"stat":"ok"}`, errs.ErrorTypeMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.body)
			})
			_, err := c.PhotosetPage(context.Background(), "721", 1)
			require.Error(t, err)
			assert.Equal(t, tt.want, errs.TypeOf(err))
		})
	}
}

func TestTransportFailuresAreRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, `{"stat":"ok","photos":{"page":1,"pages":1,"total":0,"photo":[]}}`)
	})

	_, err := c.NotInSetPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesGiveUp(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.NotInSetPage(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeRemoteTransport))
	assert.Equal(t, int32(3), calls.Load())
}

func TestMissingAPIKey(t *testing.T) {
	c := NewClient(config.FlickrConfig{BaseURL: "http://127.0.0.1:1"}, WithLogger(logger.NewNop()))
	_, err := c.PhotosetList(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeAuth))
}

func TestOpenPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "jpeg-bytes")
	}))
	defer srv.Close()

	c := NewClient(config.FlickrConfig{APIKey: "k"}, WithLogger(logger.NewNop()))

	body, err := c.OpenPhoto(context.Background(), srv.URL+"/1_o.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, body.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	_, err = c.OpenPhoto(context.Background(), srv.URL+"/missing.jpg")
	assert.True(t, errs.Is(err, errs.ErrorTypeNotFound))
}
