package ifr

// Forms-representation operation codes. Only the subset the walker acts
// on is dispatched; everything else is skipped by length.
const (
	OpForm        byte = 0x01
	OpSubtitle    byte = 0x02
	OpText        byte = 0x03
	OpOneOf       byte = 0x05
	OpCheckbox    byte = 0x06
	OpNumeric     byte = 0x07
	OpPassword    byte = 0x08
	OpOneOfOption byte = 0x09
	OpSuppressIf  byte = 0x0A
	OpAction      byte = 0x0C
	OpFormSet     byte = 0x0E
	OpDate        byte = 0x1A
	OpTime        byte = 0x1B
	OpString      byte = 0x1C
	OpDisableIf   byte = 0x1E
	OpOrderedList byte = 0x23
	OpVarstore    byte = 0x24
	OpVarstoreEfi byte = 0x26
	OpEnd         byte = 0x29
	OpDefault     byte = 0x5B

	// opExtendedPrefix signals that the real opcode follows in the next
	// byte.
	opExtendedPrefix byte = 0x5C
)

// stringPackageMarker is the heuristic marker for a string package; see
// extractStrings.
var stringPackageMarker = []byte{0x02, 0x00}
