package flickr

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Photo is one item of a photo listing
type Photo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	TakenAt    string `json:"datetaken,omitempty"`
	Media      string `json:"media,omitempty"`
	LastUpdate int64  `json:"lastupdate,omitempty"`
}

// IsPhoto reports whether the item is a still photo. Items without a media
// value are not photos.
func (p Photo) IsPhoto() bool {
	return strings.EqualFold(p.Media, "photo")
}

// Photoset is one entry of the set listing
type Photoset struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Photos int    `json:"photos"`
}

// PhotoPage is one page of a photo listing
type PhotoPage struct {
	Page   int
	Pages  int
	Total  int
	Photos []Photo
}

// PhotosetPage is one page of a photoset's photos
type PhotosetPage struct {
	ID    string
	Title string
	PhotoPage
}

// flexInt accepts both 12 and "12"; the service is inconsistent about
// numeric fields across methods
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// flexString accepts either a plain string or {"_content": "..."}
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '{' {
		var c struct {
			Content string `json:"_content"`
		}
		if err := json.Unmarshal(b, &c); err != nil {
			return err
		}
		*f = flexString(c.Content)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = flexString(s)
	return nil
}

type envelope struct {
	Stat    string `json:"stat"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type photoDTO struct {
	ID         string     `json:"id"`
	Title      flexString `json:"title"`
	URLO       string     `json:"url_o"`
	DateTaken  string     `json:"datetaken"`
	Media      string     `json:"media"`
	LastUpdate flexInt    `json:"lastupdate"`
}

func (d photoDTO) toPhoto() Photo {
	return Photo{
		ID:         d.ID,
		Title:      string(d.Title),
		URL:        d.URLO,
		TakenAt:    d.DateTaken,
		Media:      d.Media,
		LastUpdate: int64(d.LastUpdate),
	}
}

type photoListDTO struct {
	Page  flexInt    `json:"page"`
	Pages flexInt    `json:"pages"`
	Total flexInt    `json:"total"`
	Photo []photoDTO `json:"photo"`
}

func (d photoListDTO) toPage() PhotoPage {
	page := PhotoPage{
		Page:   int(d.Page),
		Pages:  int(d.Pages),
		Total:  int(d.Total),
		Photos: make([]Photo, 0, len(d.Photo)),
	}
	for _, p := range d.Photo {
		page.Photos = append(page.Photos, p.toPhoto())
	}
	return page
}

type photosResponse struct {
	Photos *photoListDTO `json:"photos"`
}

type photosetPhotosResponse struct {
	Photoset *struct {
		ID    string     `json:"id"`
		Title flexString `json:"title"`
		photoListDTO
	} `json:"photoset"`
}

type photosetListResponse struct {
	Photosets *struct {
		Page     flexInt `json:"page"`
		Pages    flexInt `json:"pages"`
		Photoset []struct {
			ID     string     `json:"id"`
			Title  flexString `json:"title"`
			Photos flexInt    `json:"photos"`
		} `json:"photoset"`
	} `json:"photosets"`
}

type contextsResponse struct {
	Set []struct {
		ID    string     `json:"id"`
		Title flexString `json:"title"`
	} `json:"set"`
}

type createPhotosetResponse struct {
	Photoset *struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"photoset"`
}
