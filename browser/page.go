// Package browser wraps go-rod behind the handful of page-automation
// primitives the pipeline actually uses. The rest of the codebase depends
// only on the Page interface, so the harvester and extractor can be tested
// against an in-memory fake instead of a live browser.
package browser

import "time"

// Page is the minimal automation surface for one browser tab.
//
// The tab is a shared, single-URL resource: callers navigate it, interact,
// then read a snapshot. All methods operate on the current document.
type Page interface {
	// Navigate points the tab at url and blocks until the load starts.
	Navigate(url string) error

	// Fill types text into the first element matching selector.
	Fill(selector, text string) error

	// Click clicks the first element matching selector.
	Click(selector string) error

	// HTML returns the rendered document as a snapshot string.
	HTML() (string, error)

	// WaitSettle sleeps for d to let the page settle after an action.
	// A fixed delay stands in for event-based readiness detection.
	WaitSettle(d time.Duration)

	// Screenshot captures a full-page screenshot to path. Best-effort.
	Screenshot(path string) error
}
