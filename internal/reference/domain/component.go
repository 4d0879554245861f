package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComponentKind carries the data that only one item type needs.
// It is one of Material, Labor or Equipment.
type ComponentKind interface {
	ItemType() ItemType
	isComponentKind()
}

// Material holds the waste factor row; Waste is nil when none is on file.
type Material struct {
	Waste *WasteFactor
}

// Labor holds the production data; Task is nil when none is on file.
type Labor struct {
	Task *LaborTask
}

type Equipment struct{}

func (Material) ItemType() ItemType  { return ItemTypeMaterial }
func (Labor) ItemType() ItemType     { return ItemTypeLabor }
func (Equipment) ItemType() ItemType { return ItemTypeEquipment }

func (Material) isComponentKind()  {}
func (Labor) isComponentKind()     {}
func (Equipment) isComponentKind() {}

// Component is an item within an assembly, quantity expressed per assembly unit.
type Component struct {
	Item     Item            `json:"item"`
	Quantity decimal.Decimal `json:"quantity"`
	Trade    *Trade          `json:"trade,omitempty"`
	Kind     ComponentKind   `json:"-"`
}

// ResolveKind builds the kind for an item from its optional labor and waste rows.
func ResolveKind(item Item, task *LaborTask, waste *WasteFactor) (ComponentKind, error) {
	switch item.ItemType {
	case ItemTypeMaterial:
		return Material{Waste: waste}, nil
	case ItemTypeLabor:
		return Labor{Task: task}, nil
	case ItemTypeEquipment:
		return Equipment{}, nil
	default:
		return nil, fmt.Errorf("%w: %q on item %s", ErrUnknownItemType, item.ItemType, item.ID)
	}
}
