package pool

import (
	"fmt"

	gojson "github.com/goccy/go-json"
)

// Stats is a point-in-time snapshot of pool state and lifetime counters.
type Stats struct {
	Name     string `json:"name"`
	Size     int    `json:"size"`
	Waiting  int    `json:"waiting"`
	Filling  bool   `json:"filling"`
	Draining bool   `json:"draining"`

	// Lifetime counters
	Gets               int64 `json:"gets"`
	Hits               int64 `json:"hits"`
	Waits              int64 `json:"waits"`
	Puts               int64 `json:"puts"`
	Created            int64 `json:"created"`
	Destroyed          int64 `json:"destroyed"`
	Rejected           int64 `json:"rejected"`
	Duplicates         int64 `json:"duplicates"`
	FactoryFailures    int64 `json:"factory_failures"`
	RetriesExhausted   int64 `json:"retries_exhausted"`
	DestructorFailures int64 `json:"destructor_failures"`
	CallbackFailures   int64 `json:"callback_failures"`
	FillCycles         int64 `json:"fill_cycles"`
	DrainCycles        int64 `json:"drain_cycles"`
}

// String renders the snapshot as JSON.
func (s Stats) String() string {
	data, err := gojson.Marshal(s)
	if err != nil {
		return fmt.Sprintf(`{"name":%q,"error":%q}`, s.Name, err.Error())
	}
	return string(data)
}
