package auth

import (
	"fmt"
	"io"
	"strings"

	"flickrbackup/pkg/config"
)

// Apply fills empty API fields of cfg from the named profile. Values
// already present in cfg win over stored ones.
func (m *Manager) Apply(cfg *config.FlickrConfig, profile string) error {
	if cfg.APIKey != "" && cfg.UserID != "" {
		return nil
	}

	var (
		creds *Credentials
		err   error
	)
	if profile == "" {
		creds, err = m.RetrieveDefault()
	} else {
		creds, err = m.Retrieve(profile)
	}
	if err != nil {
		if cfg.APIKey != "" {
			return nil
		}
		return fmt.Errorf("no API key configured: %w", err)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = creds.APIKey
		cfg.APISecret = creds.APISecret
	}
	if cfg.UserID == "" {
		cfg.UserID = creds.UserID
	}
	return nil
}

// WriteAPIKeyGuide prints the steps for obtaining a Flickr API key
func WriteAPIKeyGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "FLICKR API KEY SETUP")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Sign in at https://www.flickr.com")
	fmt.Fprintln(w, "2. Open https://www.flickr.com/services/apps/create/apply")
	fmt.Fprintln(w, "3. Request a non-commercial key and name the app")
	fmt.Fprintln(w, "4. Copy the Key and Secret shown after submitting")
	fmt.Fprintln(w, "5. Find your user id (NSID, e.g. 12345678@N00) on your account page")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Keys can also be supplied through %s and %s.\n", EnvAPIKey, EnvAPISecret)
	fmt.Fprintln(w, rule)
}
