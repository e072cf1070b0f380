// Package catalog enumerates the remote photo library.
//
// Every listing except the photoset list is paged; all of them walk pages
// with paging.Walk and re-read the page count from each response, so a
// library that grows or shrinks mid-walk is still covered. A remote error
// aborts the listing. Messages published from earlier pages stay published.
package catalog

import (
	"context"
	"fmt"
	"strconv"

	"flickrbackup/pkg/errors"
	"flickrbackup/pkg/flickr"
	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/messages"
	"flickrbackup/pkg/paging"
)

// NotInSetName is the folder used for photos listed as belonging to no set
const NotInSetName = "NotInSet"

// AllSince is the lower bound used for full listings, 1990-01-01 UTC
const AllSince = "631152000"

// Enumerator lists catalog units and photos
type Enumerator struct {
	client flickr.CatalogClient
	logger logger.Logger
}

// NewEnumerator creates an enumerator over client
func NewEnumerator(client flickr.CatalogClient, log logger.Logger) *Enumerator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Enumerator{client: client, logger: log.WithField("component", "catalog")}
}

// ListPhotosets returns every photoset in one call
func (e *Enumerator) ListPhotosets(ctx context.Context) ([]messages.CatalogUnit, error) {
	sets, err := e.client.PhotosetList(ctx)
	if err != nil {
		return nil, fmt.Errorf("list photosets: %w", err)
	}

	units := make([]messages.CatalogUnit, 0, len(sets))
	for _, s := range sets {
		units = append(units, messages.CatalogUnit{
			ID:          s.ID,
			DisplayName: s.Title,
			ItemCount:   s.Photos,
		})
	}
	e.logger.InfoWithFields("Listed photosets", map[string]interface{}{
		"count": len(units),
	})
	return units, nil
}

// Photoset describes a single known set by reading its first page
func (e *Enumerator) Photoset(ctx context.Context, id string) (messages.CatalogUnit, error) {
	page, err := e.client.PhotosetPage(ctx, id, 1)
	if err != nil {
		return messages.CatalogUnit{}, fmt.Errorf("photoset %s: %w", id, err)
	}
	count := page.Total
	if count == 0 && page.Pages > 0 {
		// some responses omit total; the page count still bounds the fan-out
		count = page.Pages * paging.DefaultPageSize
	}
	return messages.CatalogUnit{ID: id, DisplayName: page.Title, ItemCount: count}, nil
}

// ListNotInSet returns a download for every photo that is in no set. All
// media types are included.
func (e *Enumerator) ListNotInSet(ctx context.Context) ([]messages.Download, error) {
	var out []messages.Download
	err := paging.Walk(func(page int) (int, error) {
		resp, err := e.client.NotInSetPage(ctx, page)
		if err != nil {
			return 0, fmt.Errorf("not in set page %d: %w", page, err)
		}
		for _, p := range resp.Photos {
			if err := requireURL(flickr.MethodPhotosGetNotInSet, p); err != nil {
				return 0, err
			}
			out = append(out, messages.Download{
				PhotoID:   p.ID,
				Title:     messages.TitleOrID(p.Title, p.ID),
				SourceURL: p.URL,
				SetName:   NotInSetName,
				TakenAt:   p.TakenAt,
			})
		}
		e.logPage("not in set", page, resp)
		return resp.Pages, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecentlyUpdated returns a context request for every photo changed
// since the cursor. A nil cursor lists the whole library. Only photos are
// returned; videos are skipped.
func (e *Enumerator) ListRecentlyUpdated(ctx context.Context, since *int64) ([]messages.ContextRequest, error) {
	minDate := ""
	if since != nil {
		minDate = strconv.FormatInt(*since, 10)
	}

	var out []messages.ContextRequest
	err := e.walkRecentlyUpdated(ctx, minDate, func(p flickr.Photo) error {
		if err := requireURL(flickr.MethodRecentlyUpdated, p); err != nil {
			return err
		}
		out = append(out, messages.ContextRequest{
			PhotoID:   p.ID,
			Title:     messages.TitleOrID(p.Title, p.ID),
			SourceURL: p.URL,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll returns every photo updated since the given unix timestamp
// string, AllSince when empty. Videos are skipped.
func (e *Enumerator) ListAll(ctx context.Context, since string) ([]flickr.Photo, error) {
	if since == "" {
		since = AllSince
	}
	var out []flickr.Photo
	err := e.walkRecentlyUpdated(ctx, since, func(p flickr.Photo) error {
		p.Title = messages.TitleOrID(p.Title, p.ID)
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Enumerator) walkRecentlyUpdated(ctx context.Context, minDate string, fn func(flickr.Photo) error) error {
	return paging.Walk(func(page int) (int, error) {
		resp, err := e.client.RecentlyUpdatedPage(ctx, minDate, page)
		if err != nil {
			return 0, fmt.Errorf("recently updated page %d: %w", page, err)
		}
		for _, p := range resp.Photos {
			if !p.IsPhoto() {
				continue
			}
			if err := fn(p); err != nil {
				return 0, err
			}
		}
		e.logPage("recently updated", page, resp)
		return resp.Pages, nil
	})
}

// ListSearchResults walks the photos taken in [minTaken, maxTaken] and calls
// fn once per page
func (e *Enumerator) ListSearchResults(ctx context.Context, minTaken, maxTaken int64, fn func(page int, photos []flickr.Photo) error) error {
	return paging.Walk(func(page int) (int, error) {
		resp, err := e.client.SearchByDateRange(ctx, minTaken, maxTaken, page)
		if err != nil {
			return 0, fmt.Errorf("search page %d: %w", page, err)
		}
		e.logPage("search", page, resp)
		if err := fn(page, resp.Photos); err != nil {
			return 0, err
		}
		return resp.Pages, nil
	})
}

func (e *Enumerator) logPage(listing string, page int, resp *flickr.PhotoPage) {
	e.logger.DebugWithFields("Listed page", map[string]interface{}{
		"listing": listing,
		"page":    page,
		"pages":   resp.Pages,
		"photos":  len(resp.Photos),
	})
}

func requireURL(method string, p flickr.Photo) error {
	if p.URL == "" {
		return errors.New(errors.ErrorTypeMalformedResponse, method, fmt.Sprintf("photo %s has no original URL", p.ID))
	}
	return nil
}
