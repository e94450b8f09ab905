/*
Package factory provides JSON to Go item definition conversion.

PURPOSE:
  Converts JSON item definitions into inventory.ItemDefinition values, the
  way POST /api/items and the CLI receive them.

JSON SCHEMA:
  {
    "id": "hookup-wire",
    "name": "Hookup wire, red",
    "track": "pieces",
    "unit": "cm",
    "piece_length": "1.5m"
  }

  piece_size gives the piece length as a plain number in the item unit;
  piece_length gives it as a quantity with its own unit, converted to the
  item unit. At most one of the two may be set.

DEFAULTS:
  - track: count
  - unit: pc
  - pieces tracking requires a piece size > 0

SEE ALSO:
  - inventory/policy.go: Policy type definition
  - inventory/unit.go: ParseQuantity
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/inventory-engine/inventory"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ItemJSON is the JSON representation of an item definition.
type ItemJSON struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Track       string  `json:"track,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	PieceSize   *uint64 `json:"piece_size,omitempty"`
	PieceLength string  `json:"piece_length,omitempty"`
}

// =============================================================================
// ITEM FACTORY
// =============================================================================

// ItemFactory converts JSON item definitions to inventory types.
type ItemFactory struct{}

// NewItemFactory creates a new item factory.
func NewItemFactory() *ItemFactory {
	return &ItemFactory{}
}

// ParseItem parses a JSON document into an item definition.
func (f *ItemFactory) ParseItem(data []byte) (inventory.ItemDefinition, error) {
	var ij ItemJSON
	if err := json.Unmarshal(data, &ij); err != nil {
		return inventory.ItemDefinition{}, fmt.Errorf("failed to parse item JSON: %w", err)
	}
	return f.FromJSON(ij)
}

// FromJSON validates ij and applies defaults.
func (f *ItemFactory) FromJSON(ij ItemJSON) (inventory.ItemDefinition, error) {
	if ij.ID == "" {
		return inventory.ItemDefinition{}, fmt.Errorf("%w: item id is required", inventory.ErrInvalidID)
	}
	tracking, err := inventory.ParseTracking(ij.Track)
	if err != nil {
		return inventory.ItemDefinition{}, err
	}
	unit, err := inventory.ParseUnit(ij.Unit)
	if err != nil {
		return inventory.ItemDefinition{}, err
	}

	var size uint64
	switch {
	case ij.PieceSize != nil && ij.PieceLength != "":
		return inventory.ItemDefinition{}, fmt.Errorf("piece_size and piece_length are exclusive")
	case ij.PieceSize != nil:
		size = *ij.PieceSize
	case ij.PieceLength != "":
		size, err = inventory.ParseQuantity(ij.PieceLength, unit)
		if err != nil {
			return inventory.ItemDefinition{}, fmt.Errorf("piece_length: %w", err)
		}
	}
	if size > 0 && tracking != inventory.TrackPieces {
		return inventory.ItemDefinition{}, fmt.Errorf("piece size given for %s tracking", tracking)
	}

	name := ij.Name
	if name == "" {
		name = ij.ID
	}
	def := inventory.ItemDefinition{
		ID:     inventory.TypeID(ij.ID),
		Name:   name,
		Policy: inventory.Policy{Tracking: tracking, PieceSize: size, Unit: unit},
	}
	if err := def.Policy.Validate(); err != nil {
		return inventory.ItemDefinition{}, fmt.Errorf("item %s: %w", ij.ID, err)
	}
	return def, nil
}

// ToJSON converts an item definition back to its JSON form.
func (f *ItemFactory) ToJSON(def inventory.ItemDefinition) ItemJSON {
	ij := ItemJSON{
		ID:    string(def.ID),
		Name:  def.Name,
		Track: string(def.Policy.Tracking),
		Unit:  string(def.Policy.Unit),
	}
	if def.Policy.PieceSize > 0 {
		size := def.Policy.PieceSize
		ij.PieceSize = &size
	}
	return ij
}
