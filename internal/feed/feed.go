// Package feed defines the ingestion contract and a deterministic synthetic
// feed. Real venue connectivity lives in the host process; anything that can
// call Store.Update qualifies as a feed.
package feed

import "context"

// Feed pushes order book updates into the store until ctx is cancelled.
type Feed interface {
	Run(ctx context.Context) error
}
