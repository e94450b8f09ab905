/*
handlers.go - HTTP API handlers for the inventory engine

PURPOSE:
  Exposes the count caches and the ledger via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the Tracker.

ENDPOINTS:
  Items:
    GET    /api/items                   List item definitions
    POST   /api/items                   Create item definition from JSON
    GET    /api/items/{type}/stock      Stock of every variant of a type
    GET    /api/items/{type}/orders     Open orders of a type
    GET    /api/items/{type}/projects   Project consumption of a type

  Dimensions:
    GET    /api/locations/{id}/stock    Stock at a location
    GET    /api/sources/{id}/orders     Orders at a source
    GET    /api/projects/{id}/usage     Consumption in a project

  Counts:
    GET    /api/count?part=&size=&serial=&location=|source=|project=

  Ledger:
    POST   /api/events                  Record entries as one transaction
    POST   /api/replay                  Rebuild all caches from the ledger

  Admin:
    PUT    /api/show-empty              Pin an empty entry into listings
    DELETE /api/objects/{id}            Evict an item or dimension (and its definition)

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Tracker: Count caches
  - Ledger: Append-only store the Tracker records into and replays from
  - Items: Item definitions (optional)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown item
  - 409: Conflict (non-empty object, reused transaction id)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/inventory-engine/factory"
	"github.com/warp/inventory-engine/inventory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Tracker     *inventory.Tracker
	Ledger      inventory.Store
	Items       inventory.ItemStore
	ItemFactory *factory.ItemFactory

	logger         *slog.Logger
	now            func() time.Time
	newTransaction func() string
}

// NewHandler creates a handler. items may be nil; item endpoints then
// answer 501.
func NewHandler(tracker *inventory.Tracker, ledger inventory.Store, items inventory.ItemStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Tracker:        tracker,
		Ledger:         ledger,
		Items:          items,
		ItemFactory:    factory.NewItemFactory(),
		logger:         logger,
		now:            time.Now,
		newTransaction: uuid.NewString,
	}
}

// Health reports liveness and the replay state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", State: h.Tracker.State().String()})
}

// =============================================================================
// ITEM HANDLERS
// =============================================================================

// ListItems returns all item definitions.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	if h.Items == nil {
		writeError(w, http.StatusNotImplemented, "No item store configured", nil)
		return
	}
	defs, err := h.Items.ListItems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list items", err)
		return
	}

	dtos := make([]ItemDTO, len(defs))
	for i, d := range defs {
		dtos[i] = h.ItemFactory.ToJSON(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateItem creates or replaces an item definition from JSON.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	if h.Items == nil {
		writeError(w, http.StatusNotImplemented, "No item store configured", nil)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	def, err := h.ItemFactory.ParseItem(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item definition", err)
		return
	}
	if err := h.Items.SaveItem(r.Context(), def); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save item", err)
		return
	}

	h.logger.Info("item saved", "item", def.ID, "tracking", def.Policy.Tracking)
	writeJSON(w, http.StatusCreated, h.ItemFactory.ToJSON(def))
}

// =============================================================================
// LISTING HANDLERS
// =============================================================================

// StockByItemType lists stock of every variant of {type} at every location.
func (h *Handler) StockByItemType(w http.ResponseWriter, r *http.Request) {
	h.listByType(w, r, inventory.CacheStock)
}

// OrdersByItemType lists open orders of {type} at every source.
func (h *Handler) OrdersByItemType(w http.ResponseWriter, r *http.Request) {
	h.listByType(w, r, inventory.CacheOrders)
}

// ProjectsByItemType lists consumption of {type} in every project.
func (h *Handler) ProjectsByItemType(w http.ResponseWriter, r *http.Request) {
	h.listByType(w, r, inventory.CacheProjects)
}

func (h *Handler) listByType(w http.ResponseWriter, r *http.Request, c inventory.CacheKind) {
	typ := inventory.TypeID(chi.URLParam(r, "type"))
	writeJSON(w, http.StatusOK, toListResponse(c, h.Tracker.ByItemType(c, typ)))
}

// LocationStock lists everything stored at location {id}.
func (h *Handler) LocationStock(w http.ResponseWriter, r *http.Request) {
	h.listByDimension(w, r, inventory.CacheStock)
}

// SourceOrders lists everything on order at source {id}.
func (h *Handler) SourceOrders(w http.ResponseWriter, r *http.Request) {
	h.listByDimension(w, r, inventory.CacheOrders)
}

// ProjectUsage lists everything consumed by project {id}.
func (h *Handler) ProjectUsage(w http.ResponseWriter, r *http.Request) {
	h.listByDimension(w, r, inventory.CacheProjects)
}

func (h *Handler) listByDimension(w http.ResponseWriter, r *http.Request, c inventory.CacheKind) {
	dim := inventory.Simple(inventory.TypeID(chi.URLParam(r, "id")))
	writeJSON(w, http.StatusOK, toListResponse(c, h.Tracker.ByDimension(c, dim)))
}

// GetCount returns a single entry. The dimension parameter picks the cache:
// location for stock, source for orders, project for projects.
func (h *Handler) GetCount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	item, err := itemFromParams(q.Get("part"), q.Get("size"), q.Get("serial"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item", err)
		return
	}

	var c inventory.CacheKind
	var dim string
	switch {
	case q.Get("location") != "":
		c, dim = inventory.CacheStock, q.Get("location")
	case q.Get("source") != "":
		c, dim = inventory.CacheOrders, q.Get("source")
	case q.Get("project") != "":
		c, dim = inventory.CacheProjects, q.Get("project")
	default:
		writeError(w, http.StatusBadRequest, "One of location, source or project is required", nil)
		return
	}

	writeJSON(w, http.StatusOK, toEntryDTO(h.Tracker.Get(c, item, inventory.Simple(inventory.TypeID(dim)))))
}

func itemFromParams(part, size, serial string) (inventory.ItemID, error) {
	if part == "" {
		return inventory.ItemID{}, fmt.Errorf("%w: part is required", inventory.ErrInvalidID)
	}
	switch {
	case serial != "" && size != "":
		return inventory.ItemID{}, fmt.Errorf("%w: size and serial are exclusive", inventory.ErrInvalidID)
	case serial != "":
		return inventory.Unique(inventory.TypeID(part), serial), nil
	case size != "":
		n, err := strconv.ParseUint(size, 10, 64)
		if err != nil {
			return inventory.ItemID{}, fmt.Errorf("%w: size %q", inventory.ErrInvalidID, size)
		}
		return inventory.Piece(inventory.TypeID(part), n), nil
	}
	return inventory.Simple(inventory.TypeID(part)), nil
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// RecordEvents appends a batch to the ledger and folds it. Every entry of
// the batch carries the same transaction id.
func (h *Handler) RecordEvents(w http.ResponseWriter, r *http.Request) {
	var req RecordEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Events) == 0 {
		writeError(w, http.StatusBadRequest, "No events", nil)
		return
	}

	ctx := r.Context()
	tx := req.Transaction
	if tx == "" {
		tx = h.newTransaction()
	}
	now := h.now().UTC()

	entries := make([]inventory.LedgerEntry, len(req.Events))
	for i, ev := range req.Events {
		e, err := h.toLedgerEntry(ctx, ev, now)
		if err != nil {
			writeError(w, statusFor(err), fmt.Sprintf("Invalid event %d", i), err)
			return
		}
		e.Transaction = tx
		entries[i] = e
	}

	if err := h.Tracker.Record(ctx, h.Ledger, entries...); err != nil {
		writeError(w, statusFor(err), "Failed to record events", err)
		return
	}

	h.logger.Info("events recorded", "transaction", tx, "count", len(entries))
	writeJSON(w, http.StatusCreated, RecordEventsResponse{Transaction: tx, Recorded: len(entries)})
}

func (h *Handler) toLedgerEntry(ctx context.Context, ev EventRequest, now time.Time) (inventory.LedgerEntry, error) {
	var e inventory.LedgerEntry

	kind, err := inventory.ParseEventKind(ev.Event)
	if err != nil {
		return e, err
	}
	if ev.Target == "" {
		return e, fmt.Errorf("%w: target is required", inventory.ErrInvalidEvent)
	}
	e.Event = inventory.Event{Kind: kind, Target: inventory.Simple(inventory.TypeID(ev.Target))}

	var size string
	if ev.Size != nil {
		size = strconv.FormatUint(*ev.Size, 10)
	}
	e.Item, err = itemFromParams(ev.Part, size, ev.Serial)
	if err != nil {
		return e, err
	}

	switch {
	case ev.Count != nil && ev.Quantity != "":
		return e, fmt.Errorf("%w: count and quantity are exclusive", inventory.ErrInvalidQuantity)
	case ev.Count != nil:
		e.Count = *ev.Count
	case ev.Quantity != "":
		unit, err := h.unitOf(ctx, e.Item.Type())
		if err != nil {
			return e, err
		}
		e.Count, err = inventory.ParseQuantity(ev.Quantity, unit)
		if err != nil {
			return e, err
		}
	default:
		return e, fmt.Errorf("%w: count or quantity is required", inventory.ErrInvalidQuantity)
	}

	e.Time = now
	if ev.Time != "" {
		e.Time, err = time.Parse(time.RFC3339, ev.Time)
		if err != nil {
			return e, fmt.Errorf("%w: time %q is not RFC3339", inventory.ErrInvalidEvent, ev.Time)
		}
	}
	return e, nil
}

// unitOf returns the unit quantities of t are counted in, pieces when the
// item is not in the catalog.
func (h *Handler) unitOf(ctx context.Context, t inventory.TypeID) (inventory.Unit, error) {
	if h.Items == nil {
		return inventory.UnitPiece, nil
	}
	p, err := h.Items.Policy(ctx, t)
	if inventory.IsNotFound(err) {
		return inventory.UnitPiece, nil
	}
	if err != nil {
		return "", err
	}
	return p.Unit, nil
}

// Replay rebuilds every cache from the ledger.
func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	report, err := h.Tracker.Replay(r.Context(), h.Ledger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Replay failed", err)
		return
	}

	resp := ReplayResponse{
		Segments: report.Segments,
		Records:  report.Records,
		Unknown:  report.Unknown,
		Rejected: report.Rejected,
		Failed:   make([]SegmentFailure, len(report.Failed)),
		State:    h.Tracker.State().String(),
	}
	for i, f := range report.Failed {
		resp.Failed[i] = SegmentFailure{Segment: f.Segment, Error: f.Err.Error()}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ShowEmpty pins or unpins an entry.
func (h *Handler) ShowEmpty(w http.ResponseWriter, r *http.Request) {
	var req ShowEmptyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c, err := inventory.ParseCacheKind(req.Cache)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cache", err)
		return
	}
	item, err := inventory.ParseItemID(req.Item)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item", err)
		return
	}
	dim, err := inventory.ParseItemID(req.Dimension)
	if err != nil || dim.Kind() != inventory.KindSimple {
		writeError(w, http.StatusBadRequest, "Invalid dimension", err)
		return
	}

	h.Tracker.SetShowEmpty(c, item, dim, req.Show)
	w.WriteHeader(http.StatusNoContent)
}

// RemoveObject evicts an item or dimension from every cache. Objects that
// still hold counts are refused with the blocking entries. Evicting a
// defined item type also deletes its definition.
func (h *Handler) RemoveObject(w http.ResponseWriter, r *http.Request) {
	id, err := inventory.ParseItemID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return
	}

	if err := h.Tracker.CanRemove(id); err != nil {
		var inUse *inventory.ObjectInUseError
		if errors.As(err, &inUse) {
			blocking := make([]EntryDTO, len(inUse.Entries))
			for i, e := range inUse.Entries {
				blocking[i] = toEntryDTO(e)
			}
			writeJSON(w, http.StatusConflict, ErrorResponse{
				Error:   "Object still has counts",
				Code:    "object_in_use",
				Details: blocking,
			})
			return
		}
		writeError(w, statusFor(err), "Cannot remove object", err)
		return
	}

	deleted, err := h.deleteDefinition(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete item definition", err)
		return
	}

	n := h.Tracker.Remove(id)
	h.logger.Info("object evicted", "id", id.String(), "entries", n, "definition", deleted)
	writeJSON(w, http.StatusOK, RemoveResponse{ID: id.String(), Removed: n, DefinitionDeleted: deleted})
}

// deleteDefinition drops the item definition of a simple id, if there is
// one. Dimensions have no definition.
func (h *Handler) deleteDefinition(ctx context.Context, id inventory.ItemID) (bool, error) {
	if h.Items == nil || id.Kind() != inventory.KindSimple {
		return false, nil
	}
	_, err := h.Items.Policy(ctx, id.Type())
	if errors.Is(err, inventory.ErrUnknownItem) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := h.Items.DeleteItem(ctx, id.Type()); err != nil {
		return false, err
	}
	return true, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func statusFor(err error) int {
	switch {
	case inventory.IsClientError(err):
		return http.StatusBadRequest
	case inventory.IsNotFound(err):
		return http.StatusNotFound
	case inventory.IsConflict(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
