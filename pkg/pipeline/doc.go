// Package pipeline holds the stages that turn catalog listings into
// downloads.
//
//	FanOut          photoset        -> one PageWork per page      (pages topic)
//	Extractor       PageWork        -> one Download per photo     (downloads topic)
//	ContextResolver ContextRequest  -> Download named by its set  (downloads topic)
//	AssignmentFlow  year            -> one Assignment per photo   (assignments topic)
//	Assigner        Assignment      -> photo added to set
//
// Stages talk only through a queue.Publisher, so each can run in its own
// process. Every handler tolerates redelivery: downloads are deduplicated by
// path and adding a photo to a set it is already in succeeds.
package pipeline
