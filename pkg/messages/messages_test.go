package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "flickrbackup/pkg/errors"
)

func TestDownloadWireNames(t *testing.T) {
	body, err := Encode(Download{
		PhotoID:   "53012",
		Title:     "Harbour",
		SourceURL: "https://live.staticflickr.com/65535/53012_abc_o.jpg",
		SetName:   "Holidays",
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"id": "53012",
		"title": "Harbour",
		"url": "https://live.staticflickr.com/65535/53012_abc_o.jpg",
		"photosetName": "Holidays"
	}`, string(body))
}

func TestDecodeRejectsMissingFields(t *testing.T) {
	_, err := Decode[Download]([]byte(`{"id":"1","title":"t","photosetName":"s"}`))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeMalformedResponse))
	assert.Contains(t, err.Error(), "url")
}

func TestDecodeRejectsBadJSON(t *testing.T) {
	_, err := Decode[PageWork]([]byte(`{"id":`))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeMalformedResponse))
}

func TestPageWorkRequiresPositivePage(t *testing.T) {
	_, err := Encode(PageWork{CatalogUnitID: "72157", Page: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page")

	msg, err := Decode[PageWork]([]byte(`{"id":"72157","page":2,"setName":"Trips"}`))
	require.NoError(t, err)
	assert.Equal(t, PageWork{CatalogUnitID: "72157", Page: 2, DisplayName: "Trips"}, msg)
}

func TestWithSet(t *testing.T) {
	req := ContextRequest{PhotoID: "9", Title: "Dog", SourceURL: "https://example.com/9.jpg"}

	assert.Equal(t, "Pets", req.WithSet("Pets").SetName)
	assert.Equal(t, NoSetName, req.WithSet("").SetName)
	assert.Equal(t, "9", req.WithSet("Pets").PhotoID)
}

func TestTakenYear(t *testing.T) {
	y, ok := TakenYear("2019-07-04 12:30:00")
	assert.True(t, ok)
	assert.Equal(t, 2019, y)

	y, ok = TakenYear("2008-00-00 00:00:00")
	assert.True(t, ok)
	assert.Equal(t, 2008, y)

	_, ok = TakenYear("")
	assert.False(t, ok)
}

func TestTitleOrID(t *testing.T) {
	assert.Equal(t, "123", TitleOrID("", "123"))
	assert.Equal(t, "123", TitleOrID("   ", "123"))
	assert.Equal(t, "Sunset", TitleOrID("Sunset", "123"))
}
