/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Item and dimension
  ids travel in their string form (see inventory.ItemID.String):

    resistor               simple
    wire:piece=150         piece of size 150
    board:serial=SN-0042   unique item

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/inventory-engine/factory"
	"github.com/warp/inventory-engine/inventory"
)

// =============================================================================
// COUNTS
// =============================================================================

// EntryDTO is one cache entry.
type EntryDTO struct {
	Item      string  `json:"item"`
	Type      string  `json:"type"`
	Kind      string  `json:"kind"`
	PieceSize *uint64 `json:"piece_size,omitempty"`
	Serial    string  `json:"serial,omitempty"`
	Dimension string  `json:"dimension"`
	Added     uint64  `json:"added"`
	Removed   uint64  `json:"removed"`
	Required  uint64  `json:"required"`
	Count     int64   `json:"count"`
	ShowEmpty bool    `json:"show_empty,omitempty"`
}

// TotalsDTO sums a listing.
type TotalsDTO struct {
	Added    uint64 `json:"added"`
	Removed  uint64 `json:"removed"`
	Required uint64 `json:"required"`
	Count    int64  `json:"count"`
}

// ListResponse is a listing of one cache.
type ListResponse struct {
	Cache   string     `json:"cache"`
	Entries []EntryDTO `json:"entries"`
	Totals  TotalsDTO  `json:"totals"`
}

func toEntryDTO(e inventory.Entry) EntryDTO {
	dto := EntryDTO{
		Item:      e.Item.String(),
		Type:      string(e.Item.Type()),
		Kind:      e.Item.Kind().String(),
		Serial:    e.Item.Serial(),
		Dimension: e.Dimension.String(),
		Added:     e.Added,
		Removed:   e.Removed,
		Required:  e.Required,
		Count:     e.Count(),
		ShowEmpty: e.ShowEmpty,
	}
	if size, ok := e.Item.PieceSizeOption(); ok {
		dto.PieceSize = &size
	}
	return dto
}

func toListResponse(c inventory.CacheKind, entries []inventory.Entry) ListResponse {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	totals := inventory.Sum(entries)
	return ListResponse{
		Cache:   c.String(),
		Entries: dtos,
		Totals: TotalsDTO{
			Added:    totals.Added,
			Removed:  totals.Removed,
			Required: totals.Required,
			Count:    totals.Count(),
		},
	}
}

// =============================================================================
// EVENTS
// =============================================================================

// EventRequest is one ledger entry to record. Exactly one of Count and
// Quantity is set; Quantity is converted to the item unit ("1.5m").
type EventRequest struct {
	Time     string  `json:"time,omitempty"`
	Count    *uint64 `json:"count,omitempty"`
	Quantity string  `json:"quantity,omitempty"`
	Part     string  `json:"part"`
	Size     *uint64 `json:"size,omitempty"`
	Serial   string  `json:"serial,omitempty"`
	Event    string  `json:"event"`
	Target   string  `json:"target"`
}

// RecordEventsRequest records entries as one transaction. A missing
// transaction id is generated.
type RecordEventsRequest struct {
	Transaction string         `json:"transaction,omitempty"`
	Events      []EventRequest `json:"events"`
}

// RecordEventsResponse is returned after a batch was recorded.
type RecordEventsResponse struct {
	Transaction string `json:"transaction"`
	Recorded    int    `json:"recorded"`
}

// =============================================================================
// ADMIN
// =============================================================================

// ReplayResponse reports a replay.
type ReplayResponse struct {
	Segments int              `json:"segments"`
	Records  int              `json:"records"`
	Unknown  int              `json:"unknown"`
	Rejected int              `json:"rejected"`
	Failed   []SegmentFailure `json:"failed"`
	State    string           `json:"state"`
}

// SegmentFailure names a ledger segment replay skipped.
type SegmentFailure struct {
	Segment string `json:"segment"`
	Error   string `json:"error"`
}

// ShowEmptyRequest pins or unpins an entry.
type ShowEmptyRequest struct {
	Cache     string `json:"cache"`
	Item      string `json:"item"`
	Dimension string `json:"dimension"`
	Show      bool   `json:"show"`
}

// RemoveResponse reports an eviction.
type RemoveResponse struct {
	ID                string `json:"id"`
	Removed           int    `json:"removed"`
	DefinitionDeleted bool   `json:"definition_deleted"`
}

// HealthResponse reports the tracker state.
type HealthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

// ItemDTO is an item definition.
type ItemDTO = factory.ItemJSON

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
