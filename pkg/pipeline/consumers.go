package pipeline

import (
	"fmt"

	"flickrbackup/pkg/config"
	"flickrbackup/pkg/queue"
)

// Stages are the handlers a process can consume with. A nil handler
// leaves its topic unsubscribed.
type Stages struct {
	Pages       queue.Handler
	Downloads   queue.Handler
	Contexts    queue.Handler
	Assignments queue.Handler
}

// Subscribe registers every enabled stage on its topic and returns the
// topics that were subscribed
func Subscribe(sub queue.Subscriber, topics config.TopicsConfig, enabled config.ConsumersConfig, stages Stages) ([]string, error) {
	bindings := []struct {
		topic   string
		on      bool
		handler queue.Handler
	}{
		{topics.Pages, enabled.Pages, stages.Pages},
		{topics.Downloads, enabled.Downloads, stages.Downloads},
		{topics.Contexts, enabled.Contexts, stages.Contexts},
		{topics.Assignments, enabled.Assignments, stages.Assignments},
	}

	var subscribed []string
	for _, b := range bindings {
		if !b.on || b.handler == nil {
			continue
		}
		if err := sub.Subscribe(b.topic, b.handler); err != nil {
			return subscribed, fmt.Errorf("subscribe %s: %w", b.topic, err)
		}
		subscribed = append(subscribed, b.topic)
	}
	return subscribed, nil
}
