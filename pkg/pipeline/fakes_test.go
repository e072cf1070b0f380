package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"flickrbackup/pkg/errors"
	"flickrbackup/pkg/flickr"
	"flickrbackup/pkg/messages"
)

// fakeCatalog implements Catalog
type fakeCatalog struct {
	units    []messages.CatalogUnit
	notInSet []messages.Download
	err      error
}

func (f *fakeCatalog) ListPhotosets(ctx context.Context) ([]messages.CatalogUnit, error) {
	return f.units, f.err
}

func (f *fakeCatalog) Photoset(ctx context.Context, id string) (messages.CatalogUnit, error) {
	for _, u := range f.units {
		if u.ID == id {
			return u, nil
		}
	}
	return messages.CatalogUnit{}, errors.New(errors.ErrorTypeNotFound, "photoset", "unknown set "+id)
}

func (f *fakeCatalog) ListNotInSet(ctx context.Context) ([]messages.Download, error) {
	return f.notInSet, f.err
}

// fakeRemote serves photoset pages, contexts and set writes from memory
type fakeRemote struct {
	mu       sync.Mutex
	setSize  map[string]int
	titles   map[string]string
	contexts map[string]string
	created  []string
	added    map[string][]string
	failAdd  error
	pageErr  error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		setSize:  map[string]int{},
		titles:   map[string]string{},
		contexts: map[string]string{},
		added:    map[string][]string{},
	}
}

// PhotosetPage synthesizes photos <set>-<n> for the requested page
func (f *fakeRemote) PhotosetPage(ctx context.Context, id string, page int) (*flickr.PhotosetPage, error) {
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	f.mu.Lock()
	size := f.setSize[id]
	title := f.titles[id]
	f.mu.Unlock()

	const pageSize = 500
	pages := (size + pageSize - 1) / pageSize
	resp := &flickr.PhotosetPage{ID: id, Title: title, PhotoPage: flickr.PhotoPage{Page: page, Pages: pages, Total: size}}
	for i := (page - 1) * pageSize; i < size && i < page*pageSize; i++ {
		pid := fmt.Sprintf("%s-%d", id, i)
		resp.Photos = append(resp.Photos, flickr.Photo{
			ID:    pid,
			Title: "photo " + pid,
			URL:   "https://live.example.com/" + pid + "_o.jpg",
			Media: "photo",
		})
	}
	return resp, nil
}

func (f *fakeRemote) AllContexts(ctx context.Context, photoID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	title, ok := f.contexts[photoID]
	return title, ok, nil
}

func (f *fakeRemote) CreatePhotoset(ctx context.Context, title, primary string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, title+":"+primary)
	return "set-" + title, nil
}

func (f *fakeRemote) AddPhotoToPhotoset(ctx context.Context, setID, photoID string) error {
	if f.failAdd != nil {
		return f.failAdd
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added[setID] = append(f.added[setID], photoID)
	return nil
}

// fakeSearch serves date range search pages
type fakeSearch struct {
	pages  [][]flickr.Photo
	ranges [][2]int64
}

func (f *fakeSearch) ListSearchResults(ctx context.Context, minTaken, maxTaken int64, fn func(int, []flickr.Photo) error) error {
	f.ranges = append(f.ranges, [2]int64{minTaken, maxTaken})
	if len(f.pages) == 0 {
		return fn(1, nil)
	}
	for i, photos := range f.pages {
		if err := fn(i+1, photos); err != nil {
			return err
		}
	}
	return nil
}

// countingFetcher serves every photo as its own URL
type countingFetcher struct {
	calls atomic.Int64
}

func (f *countingFetcher) OpenPhoto(ctx context.Context, url string) (io.ReadCloser, error) {
	f.calls.Add(1)
	return io.NopCloser(strings.NewReader(url)), nil
}

// recordingSink remembers indexed ids and can fail
type recordingSink struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (s *recordingSink) Upsert(ctx context.Context, id string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	return s.err
}

func (s *recordingSink) Close() error { return nil }
