// Package messages defines the work items exchanged between pipeline stages
// and their JSON wire form.
package messages

import (
	"strconv"
	"strings"
	"time"
)

// NoSetName is the folder used for photos that belong to no photoset
const NoSetName = "NoSet"

// TakenLayout is the layout of the photo service's datetaken field
const TakenLayout = "2006-01-02 15:04:05"

// CatalogUnit is one photoset (album) as reported by the set listing
type CatalogUnit struct {
	ID          string `json:"id" validate:"required"`
	DisplayName string `json:"title"`
	ItemCount   int    `json:"photos" validate:"gte=0"`
}

// PageWork asks an extractor to list one page of a photoset
type PageWork struct {
	CatalogUnitID string `json:"id" validate:"required"`
	Page          int    `json:"page" validate:"gte=1"`
	DisplayName   string `json:"setName"`
}

// Download asks a download worker to fetch one photo into a set folder
type Download struct {
	PhotoID   string `json:"id" validate:"required"`
	Title     string `json:"title" validate:"required"`
	SourceURL string `json:"url" validate:"required,url"`
	SetName   string `json:"photosetName" validate:"required"`
	TakenAt   string `json:"datetaken,omitempty"`
}

// ContextRequest asks the resolver to find the set a photo belongs to
type ContextRequest struct {
	PhotoID   string `json:"id" validate:"required"`
	Title     string `json:"title" validate:"required"`
	SourceURL string `json:"url" validate:"required,url"`
}

// Assignment asks for a photo to be added to a photoset
type Assignment struct {
	PhotoID string `json:"photoId" validate:"required"`
	SetID   string `json:"photosetId" validate:"required"`
}

// WithSet turns a resolved context request into a download
func (c ContextRequest) WithSet(setName string) Download {
	if setName == "" {
		setName = NoSetName
	}
	return Download{
		PhotoID:   c.PhotoID,
		Title:     c.Title,
		SourceURL: c.SourceURL,
		SetName:   setName,
	}
}

// TakenYear parses the year out of TakenAt
func (d Download) TakenYear() (int, bool) {
	return TakenYear(d.TakenAt)
}

// TakenYear parses the year of a datetaken value
func TakenYear(takenAt string) (int, bool) {
	if takenAt == "" {
		return 0, false
	}
	if t, err := time.Parse(TakenLayout, takenAt); err == nil {
		return t.Year(), true
	}
	if len(takenAt) >= 4 {
		if y, err := strconv.Atoi(takenAt[:4]); err == nil {
			return y, true
		}
	}
	return 0, false
}

// TitleOrID substitutes the photo id for a blank title
func TitleOrID(title, id string) string {
	if strings.TrimSpace(title) == "" {
		return id
	}
	return title
}
