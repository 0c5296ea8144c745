// Package browser is the navigation and query capability the scraper drives.
// One Page is one browser tab; it is not safe for concurrent use.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by WaitFor when the selector did not appear in time.
var ErrTimeout = errors.New("timed out waiting for selector")

type Element interface {
	Text() (string, error)
	// Attr returns the attribute value and whether it was set.
	Attr(name string) (string, bool, error)
}

type Page interface {
	Goto(ctx context.Context, url string) error
	URL() string
	QueryAll(selector string) ([]Element, error)
	// QueryOne returns nil without error when nothing matches.
	QueryOne(selector string) (Element, error)
	// WaitFor blocks until selector matches. A non-positive timeout waits forever.
	WaitFor(selector string, timeout time.Duration) error
	RawSource() (string, error)

	Fill(selector, value string, keyDelay time.Duration) error
	Press(key string) error
	SaveDebug(prefix string) error
	Close() error
}
