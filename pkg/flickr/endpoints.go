package flickr

import (
	"net/url"
	"strconv"
)

// DefaultBaseURL is the REST endpoint of the photo service
const DefaultBaseURL = "https://api.flickr.com/services/rest/"

// Remote methods used by the pipeline
const (
	MethodPhotosetsGetList   = "flickr.photosets.getList"
	MethodPhotosetsGetPhotos = "flickr.photosets.getPhotos"
	MethodPhotosGetNotInSet  = "flickr.photos.getNotInSet"
	MethodRecentlyUpdated    = "flickr.photos.recentlyUpdated"
	MethodGetAllContexts     = "flickr.photos.getAllContexts"
	MethodPhotosSearch       = "flickr.photos.search"
	MethodPhotosetsCreate    = "flickr.photosets.create"
	MethodPhotosetsAddPhoto  = "flickr.photosets.addPhoto"
)

// ListExtras are the extra fields requested on every photo listing
const ListExtras = "url_o,date_taken,media,last_update"

// errPhotoAlreadyInSet is the service's error code for a duplicate add
const errPhotoAlreadyInSet = 3

// writeMethods are sent as POST
var writeMethods = map[string]bool{
	MethodPhotosetsCreate:   true,
	MethodPhotosetsAddPhoto: true,
}

func pageParams(page, perPage int) url.Values {
	params := url.Values{}
	params.Set("extras", ListExtras)
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))
	return params
}
