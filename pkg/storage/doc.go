// Package storage lays out the local backup tree and writes photos into it.
//
// Every photo has exactly one target path, derived from its set name, title
// and id:
//
//	<root>/<set>/<title>-<id>.<ext>
//
// A photo whose target already exists is considered backed up; that check is
// the only deduplication the pipeline performs, so the path must never depend
// on file content or download time.
//
// Writes go to a temporary file next to the target and are renamed into place,
// so a reader never observes a partial photo and a failed write leaves nothing
// behind.
//
// Usage:
//
//	manager, err := storage.NewManager("/srv/flickr-backup")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	path := manager.PathFor("Holidays", "Beach", "5321", "https://live.example.com/5321_o.jpg")
//	if !manager.Exists(path) {
//	    if _, err := manager.Save(path, body); err != nil {
//	        log.Printf("Failed to save photo: %v", err)
//	    }
//	}
package storage
