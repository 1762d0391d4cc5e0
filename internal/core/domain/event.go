package domain

// EventType names a progress notification.
type EventType string

// Progress event types.
const (
	EventItemStarted       EventType = "item-started"
	EventItemPartiallyDone EventType = "item-partially-done"
	EventItemDone          EventType = "item-done"
	EventJobDone           EventType = "job-done"
	EventError             EventType = "error"
	EventResultsRefreshed  EventType = "results-refreshed"
)

// ProgressEvent is broadcast to every open event stream. It is never persisted.
type ProgressEvent struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// ItemStarted is the payload of EventItemStarted. Position is 1-based.
type ItemStarted struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	Total    int    `json:"total"`
}

// ItemFiles is the payload of EventItemPartiallyDone and EventItemDone.
type ItemFiles struct {
	Index int    `json:"index"`
	File  string `json:"file"`
	PDF   string `json:"pdf,omitempty"`
}

// JobDone is the payload of EventJobDone.
type JobDone struct {
	Count int    `json:"count"`
	Job   string `json:"job"`
	Dir   string `json:"dir"`
}

// JobError is the payload of EventError. Index is set when one item failed.
type JobError struct {
	Message string `json:"message"`
	Index   *int   `json:"index,omitempty"`
	Job     string `json:"job,omitempty"`
}

// ResultsRefreshed is the payload of EventResultsRefreshed.
type ResultsRefreshed struct {
	Count int `json:"count"`
	Added int `json:"added"`
}
