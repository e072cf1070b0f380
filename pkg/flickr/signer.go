package flickr

import (
	"net/url"

	errs "flickrbackup/pkg/errors"
)

// Signer adds authentication parameters to a request before it is sent
type Signer interface {
	Sign(httpMethod, endpoint string, params url.Values) error
}

// APIKeySigner authenticates read calls with the application key
type APIKeySigner struct {
	APIKey string
}

// Sign attaches api_key
func (s APIKeySigner) Sign(httpMethod, endpoint string, params url.Values) error {
	if s.APIKey == "" {
		return errs.New(errs.ErrorTypeAuth, "sign", "api key is not configured")
	}
	params.Set("api_key", s.APIKey)
	return nil
}

// SignerFunc adapts a function to Signer
type SignerFunc func(httpMethod, endpoint string, params url.Values) error

func (f SignerFunc) Sign(httpMethod, endpoint string, params url.Values) error {
	return f(httpMethod, endpoint, params)
}
