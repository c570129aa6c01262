package admission

import (
	"context"
	"errors"
)

// DefaultTable is the logical table holding IP status mappings.
const DefaultTable = "status_list"

// ErrStorage indicates a storage backend failure. Write errors wrap it
// together with the driver cause, so errors.Is matches the sentinel
// and errors.As still reaches the underlying error.
var ErrStorage = errors.New("admission storage failure")

// Record is the wire and bulk-write shape of one IP status mapping.
// It carries the raw stored code, not a normalized Status.
type Record struct {
	IP     string `json:"ip"`
	Status int8   `json:"status"`
}

// Store persists IP admission statuses. Writes propagate failures;
// reads never do. A failed Read reports StatusNone and a failed
// ReadAll reports an empty map, so a storage outage widens admission
// back to the normal pipeline instead of locking clients out.
type Store interface {
	// Insert upserts the status for one IP.
	Insert(ctx context.Context, ip string, status Status) error

	// BulkInsert upserts all records in one storage command. Duplicate
	// IPs within the batch resolve last-wins.
	BulkInsert(ctx context.Context, records []Record) error

	// Read reports the status recorded for ip. Missing entries and
	// lookup failures both report StatusNone.
	Read(ctx context.Context, ip string) Status

	// ReadAll reports every recorded mapping as raw codes. The result
	// is never nil; failures report an empty map.
	ReadAll(ctx context.Context) map[string]int8
}
