package pipeline

import (
	"context"
	"strconv"

	"flickrbackup/pkg/catalog"
	"flickrbackup/pkg/messages"
	"flickrbackup/pkg/queue"
)

// YearFromDump publishes a download for every photo in dump taken in year.
// The downloads land in a folder named after the year.
func YearFromDump(ctx context.Context, publisher queue.Publisher, topic string, dump catalog.Dump, year int) (int, error) {
	setName := strconv.Itoa(year)
	var downloads []messages.Download

	for _, p := range dump.Photos {
		if !p.IsPhoto() || p.URL == "" {
			continue
		}
		taken, ok := messages.TakenYear(p.TakenAt)
		if !ok || taken != year {
			continue
		}
		downloads = append(downloads, messages.Download{
			PhotoID:   p.ID,
			Title:     messages.TitleOrID(p.Title, p.ID),
			SourceURL: p.URL,
			SetName:   setName,
			TakenAt:   p.TakenAt,
		})
	}
	return publishAll(ctx, publisher, topic, downloads)
}
