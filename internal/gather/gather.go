// Package gather brings price bars into the store, either from the Alpaca
// market-data API or from CSV files on disk.
package gather

import "context"

// Gatherer is the interface for all data ingestion processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run ingests data until done or ctx is cancelled.
	Run(ctx context.Context) error
}
