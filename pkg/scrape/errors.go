package scrape

import (
	"errors"
	"fmt"

	"github.com/driftnetio/driftnet/pkg/scrape/types"
)

var (
	// ErrNoAdapters means no adapter at all is registered for the platform.
	ErrNoAdapters = errors.New("no adapters registered")
	// ErrNoSearchAdapters means adapters exist but none supports search.
	ErrNoSearchAdapters = errors.New("no search-capable adapters")
)

// AllStrategiesFailedError reports that every candidate strategy was tried
// and none produced posts. LastErr holds the final attempt's failure, nil
// when every attempt merely came back empty.
type AllStrategiesFailedError struct {
	Platform types.Platform
	Tried    []types.Strategy
	LastErr  error
}

func (e *AllStrategiesFailedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("all strategies failed for %s (tried %v): %v", e.Platform, e.Tried, e.LastErr)
	}
	return fmt.Sprintf("all strategies failed for %s (tried %v): no posts returned", e.Platform, e.Tried)
}

func (e *AllStrategiesFailedError) Unwrap() error { return e.LastErr }
