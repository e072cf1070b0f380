package flickr

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	errs "flickrbackup/pkg/errors"
)

// CatalogClient is the remote surface the pipeline depends on
type CatalogClient interface {
	PhotosetList(ctx context.Context) ([]Photoset, error)
	PhotosetPage(ctx context.Context, photosetID string, page int) (*PhotosetPage, error)
	NotInSetPage(ctx context.Context, page int) (*PhotoPage, error)
	// RecentlyUpdatedPage lists photos changed at or after minDate, a unix
	// timestamp string
	RecentlyUpdatedPage(ctx context.Context, minDate string, page int) (*PhotoPage, error)
	// AllContexts returns the title of the first set containing the photo
	AllContexts(ctx context.Context, photoID string) (setTitle string, found bool, err error)
	SearchByDateRange(ctx context.Context, minTaken, maxTaken int64, page int) (*PhotoPage, error)
	CreatePhotoset(ctx context.Context, title, primaryPhotoID string) (string, error)
	AddPhotoToPhotoset(ctx context.Context, photosetID, photoID string) error
}

var _ CatalogClient = (*Client)(nil)

// PhotosetList returns every photoset of the account in one call
func (c *Client) PhotosetList(ctx context.Context) ([]Photoset, error) {
	params := url.Values{}
	params.Set("user_id", c.userID)

	var resp photosetListResponse
	if err := c.call(ctx, MethodPhotosetsGetList, params, &resp); err != nil {
		return nil, err
	}
	if resp.Photosets == nil {
		return nil, errs.New(errs.ErrorTypeMalformedResponse, MethodPhotosetsGetList, "missing photosets")
	}

	sets := make([]Photoset, 0, len(resp.Photosets.Photoset))
	for _, s := range resp.Photosets.Photoset {
		sets = append(sets, Photoset{
			ID:     s.ID,
			Title:  string(s.Title),
			Photos: int(s.Photos),
		})
	}
	return sets, nil
}

// PhotosetPage lists one page of a photoset
func (c *Client) PhotosetPage(ctx context.Context, photosetID string, page int) (*PhotosetPage, error) {
	params := pageParams(page, c.pageSize)
	params.Set("photoset_id", photosetID)
	params.Set("user_id", c.userID)

	var resp photosetPhotosResponse
	if err := c.call(ctx, MethodPhotosetsGetPhotos, params, &resp); err != nil {
		return nil, err
	}
	if resp.Photoset == nil {
		return nil, errs.New(errs.ErrorTypeMalformedResponse, MethodPhotosetsGetPhotos, "missing photoset")
	}

	id := resp.Photoset.ID
	if id == "" {
		id = photosetID
	}
	return &PhotosetPage{
		ID:        id,
		Title:     string(resp.Photoset.Title),
		PhotoPage: resp.Photoset.photoListDTO.toPage(),
	}, nil
}

// NotInSetPage lists one page of photos that belong to no set
func (c *Client) NotInSetPage(ctx context.Context, page int) (*PhotoPage, error) {
	return c.photoPage(ctx, MethodPhotosGetNotInSet, pageParams(page, c.pageSize))
}

// RecentlyUpdatedPage lists one page of recently changed photos
func (c *Client) RecentlyUpdatedPage(ctx context.Context, minDate string, page int) (*PhotoPage, error) {
	params := pageParams(page, c.pageSize)
	if minDate == "" {
		// the method requires a lower bound; 1 covers the whole history
		minDate = "1"
	}
	params.Set("min_date", minDate)
	return c.photoPage(ctx, MethodRecentlyUpdated, params)
}

// SearchByDateRange lists one page of the account's photos taken in
// [minTaken, maxTaken], both unix seconds
func (c *Client) SearchByDateRange(ctx context.Context, minTaken, maxTaken int64, page int) (*PhotoPage, error) {
	params := pageParams(page, c.pageSize)
	params.Set("user_id", c.userID)
	params.Set("min_taken_date", strconv.FormatInt(minTaken, 10))
	params.Set("max_taken_date", strconv.FormatInt(maxTaken, 10))
	return c.photoPage(ctx, MethodPhotosSearch, params)
}

func (c *Client) photoPage(ctx context.Context, method string, params url.Values) (*PhotoPage, error) {
	var resp photosResponse
	if err := c.call(ctx, method, params, &resp); err != nil {
		return nil, err
	}
	if resp.Photos == nil {
		return nil, errs.New(errs.ErrorTypeMalformedResponse, method, "missing photos")
	}
	page := resp.Photos.toPage()
	return &page, nil
}

// AllContexts looks up the sets a photo belongs to
func (c *Client) AllContexts(ctx context.Context, photoID string) (string, bool, error) {
	params := url.Values{}
	params.Set("photo_id", photoID)

	var resp contextsResponse
	if err := c.call(ctx, MethodGetAllContexts, params, &resp); err != nil {
		return "", false, err
	}
	if len(resp.Set) == 0 {
		return "", false, nil
	}
	return string(resp.Set[0].Title), true, nil
}

// CreatePhotoset creates a set seeded with its primary photo
func (c *Client) CreatePhotoset(ctx context.Context, title, primaryPhotoID string) (string, error) {
	params := url.Values{}
	params.Set("title", title)
	params.Set("primary_photo_id", primaryPhotoID)

	var resp createPhotosetResponse
	if err := c.call(ctx, MethodPhotosetsCreate, params, &resp); err != nil {
		return "", err
	}
	if resp.Photoset == nil || resp.Photoset.ID == "" {
		return "", errs.New(errs.ErrorTypeMalformedResponse, MethodPhotosetsCreate, "missing photoset id")
	}
	return resp.Photoset.ID, nil
}

// AddPhotoToPhotoset adds a photo to a set. Adding a photo that is
// already in the set succeeds.
func (c *Client) AddPhotoToPhotoset(ctx context.Context, photosetID, photoID string) error {
	params := url.Values{}
	params.Set("photoset_id", photosetID)
	params.Set("photo_id", photoID)

	err := c.call(ctx, MethodPhotosetsAddPhoto, params, nil)
	var apiErr *errs.Error
	if errors.As(err, &apiErr) && apiErr.Code == errPhotoAlreadyInSet {
		c.logger.DebugWithFields("Photo already in set", map[string]interface{}{
			"photoset_id": photosetID,
			"photo_id":    photoID,
		})
		return nil
	}
	return err
}
