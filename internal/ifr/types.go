// Package ifr interprets the platform's forms-representation bytecode to
// discover where configuration values live inside the Setup variable
// store, replacing reliance on a fixed offset table.
package ifr

// Kind classifies a discovered question record.
type Kind string

const (
	KindCheckbox Kind = "checkbox"
	KindNumeric  Kind = "numeric"
	KindOneOf    Kind = "oneof"
)

// VarStore is a declared variable-storage region. Question records
// reference it by ID.
type VarStore struct {
	ID   uint16
	GUID [16]byte
	Name string
	Size uint16
}

// OffsetInfo describes one discovered setting: where it lives and how
// wide it is. Min/Max are only meaningful when HasRange is set.
type OffsetInfo struct {
	Name       string
	Offset     int
	Size       int
	VarStoreID uint16
	Kind       Kind
	PromptID   uint16
	HelpID     uint16
	HasRange   bool
	Min        int
	Max        int
	Options    map[string]int
}

// Setting is the presentation view of an OffsetInfo, used by the
// settings listing.
type Setting struct {
	Name        string
	Offset      int
	Size        int
	Description string
	Kind        Kind
	HasRange    bool
	Min         int
	Max         int
	Options     map[string]int
}
