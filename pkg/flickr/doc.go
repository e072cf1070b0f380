// Package flickr is the REST client for the photo service.
//
// CatalogClient is the narrow surface the pipeline depends on; Client is
// the HTTP implementation. Responses are decoded into wire DTOs first and
// then mapped onto Photo, Photoset and page types, so malformed payloads
// fail at the boundary as malformed_response errors.
//
// Request signing is delegated to a Signer. The default APIKeySigner only
// attaches the api_key parameter; deployments that need signed write calls
// supply their own Signer.
package flickr
