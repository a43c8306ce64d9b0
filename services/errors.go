// services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/opencovid/api/scraper"
)

var (
	// ErrUpstreamFetch and ErrUpstreamParse wrap failed checks. The previous snapshot stays
	// published and the next tick retries.
	ErrUpstreamFetch = errors.New("upstream fetch failure")
	ErrUpstreamParse = errors.New("upstream parse failure")

	// ErrCheckInProgress is returned when a check for the same source is already running.
	ErrCheckInProgress = errors.New("refresh already in progress")

	ErrUnknownSource = errors.New("unknown source")
)

// classify tags err with the upstream failure kind it represents.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUpstreamFetch) || errors.Is(err, ErrUpstreamParse) {
		return err
	}
	if errors.Is(err, scraper.ErrParse) {
		return fmt.Errorf("%w: %w", ErrUpstreamParse, err)
	}
	return fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
}
