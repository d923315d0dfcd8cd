package ifr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/octools/go-biospatch/internal/logger"
)

// ErrUnknownSetting is returned by Resolve when no discovered setting
// matches the requested name.
var ErrUnknownSetting = errors.New("setting not discovered in forms data")

// Parser walks a forms-representation byte stream and accumulates the
// discovered settings. A fresh Parse resets all state.
type Parser struct {
	offsets   map[string]*OffsetInfo
	varstores map[uint16]*VarStore
	strings   map[int]string

	// currentVarstore is the most recently declared store. It is tracked
	// for diagnostics only: each question record carries its own explicit
	// varstore ID and that field is authoritative.
	currentVarstore uint16
}

// NewParser returns an empty Parser.
func NewParser() *Parser {
	return &Parser{
		offsets:   make(map[string]*OffsetInfo),
		varstores: make(map[uint16]*VarStore),
		strings:   make(map[int]string),
	}
}

// Parse interprets the setup region and returns the name to OffsetInfo
// map. Malformed or too-short input yields an empty map, not an error;
// the caller falls back to a static offset table. When two settings
// sanitize to the same name the last-registered one wins.
func (p *Parser) Parse(data []byte) map[string]*OffsetInfo {
	p.offsets = make(map[string]*OffsetInfo)
	p.varstores = make(map[uint16]*VarStore)
	p.strings = make(map[int]string)
	p.currentVarstore = 0

	if len(data) < 4 {
		logger.LogWarn("forms data missing or too short", nil)
		return p.offsets
	}

	p.strings = extractStrings(data)
	p.walk(data)

	logger.LogInfo("forms data parsed", map[string]interface{}{
		"settings":  len(p.offsets),
		"varstores": len(p.varstores),
		"strings":   len(p.strings),
	})
	return p.offsets
}

// walk scans the opcode stream. Record format is {opcode:1}{length:1}
// {payload:length-2}, with one extended-opcode escape byte. A record
// whose length is invalid or runs past the buffer does not abort the
// walk; the cursor advances a single byte to resynchronize.
func (p *Parser) walk(data []byte) {
	pos := 0

	for pos < len(data)-2 {
		opcode := data[pos]
		var length int

		if opcode == opExtendedPrefix {
			if pos+2 >= len(data) {
				pos++
				continue
			}
			opcode = data[pos+1]
			length = int(data[pos+2])
			pos++
		} else {
			length = int(data[pos+1])
		}

		if length < 2 {
			pos++ // resynchronize one byte at a time
			continue
		}
		if pos+length > len(data) {
			break
		}

		payload := data[pos+2 : pos+length]

		switch {
		case opcode == OpVarstore && len(payload) >= 4:
			p.parseVarstore(payload)
		case opcode == OpVarstoreEfi && len(payload) >= 4:
			p.parseVarstoreEfi(payload)
		case opcode == OpOneOf && len(payload) >= 6:
			p.parseOneOf(payload)
		case opcode == OpCheckbox && len(payload) >= 6:
			p.parseCheckbox(payload)
		case opcode == OpNumeric && len(payload) >= 8:
			p.parseNumeric(payload)
		case opcode == OpOneOfOption && len(payload) >= 4:
			p.parseOneOfOption(payload)
		}

		pos += length
	}
}

// parseVarstore decodes {GUID:16}{id:2}{size:2}{name...}.
func (p *Parser) parseVarstore(payload []byte) {
	if len(payload) < 20 {
		return
	}
	var guid [16]byte
	copy(guid[:], payload[0:16])
	id := binary.LittleEndian.Uint16(payload[16:18])
	size := binary.LittleEndian.Uint16(payload[18:20])
	name := asciiFromUTF16(payload[20:])
	if name == "" {
		name = fmt.Sprintf("VarStore_%d", id)
	}

	p.varstores[id] = &VarStore{ID: id, GUID: guid, Name: name, Size: size}
	p.currentVarstore = id

	logger.LogDebug("varstore declared", map[string]interface{}{
		"id": id, "size": size, "name": name,
	})
}

// parseVarstoreEfi decodes {id:2}{GUID:16}{attributes:4}{size:2}{name...}.
func (p *Parser) parseVarstoreEfi(payload []byte) {
	if len(payload) < 24 {
		return
	}
	id := binary.LittleEndian.Uint16(payload[0:2])
	var guid [16]byte
	copy(guid[:], payload[2:18])
	size := binary.LittleEndian.Uint16(payload[22:24])
	name := asciiFromUTF16(payload[24:])
	if name == "" {
		name = fmt.Sprintf("VarStore_%d", id)
	}

	p.varstores[id] = &VarStore{ID: id, GUID: guid, Name: name, Size: size}
	p.currentVarstore = id

	logger.LogDebug("EFI varstore declared", map[string]interface{}{
		"id": id, "size": size, "name": name,
	})
}

// Question records share a common prefix:
// {prompt:2}{help:2}{flags:1}{question:2}{varstore:2}{offset:2}...
func (p *Parser) parseOneOf(payload []byte) {
	if len(payload) < 12 {
		return
	}
	info := p.questionHeader(payload, KindOneOf)
	info.Size = 1
	if len(payload) > 12 {
		info.Size = int(payload[12])
	}
	info.Options = map[string]int{}
	p.register(info)
}

func (p *Parser) parseCheckbox(payload []byte) {
	if len(payload) < 12 {
		return
	}
	info := p.questionHeader(payload, KindCheckbox)
	info.Size = 1 // checkboxes are always one byte
	info.Options = map[string]int{"Disabled": 0, "Enabled": 1}
	p.register(info)
}

func (p *Parser) parseNumeric(payload []byte) {
	if len(payload) < 16 {
		return
	}
	info := p.questionHeader(payload, KindNumeric)
	info.Size = 1
	if len(payload) > 12 {
		info.Size = int(payload[12])
	}

	switch info.Size {
	case 1:
		info.HasRange = true
		info.Min = int(payload[13])
		info.Max = int(payload[14])
	case 2:
		if len(payload) >= 17 {
			info.HasRange = true
			info.Min = int(binary.LittleEndian.Uint16(payload[13:15]))
			info.Max = int(binary.LittleEndian.Uint16(payload[15:17]))
		}
	}
	p.register(info)
}

// parseOneOfOption decodes {option:2}{flags:1}{type:1}{value}. The value
// is decoded for diagnostics only; it is not linked back into the
// preceding one-of's option set.
func (p *Parser) parseOneOfOption(payload []byte) {
	optionID := binary.LittleEndian.Uint16(payload[0:2])
	optionType := payload[3]

	value := 0
	switch {
	case optionType == 0 && len(payload) >= 5:
		value = int(payload[4])
	case optionType == 1 && len(payload) >= 6:
		value = int(binary.LittleEndian.Uint16(payload[4:6]))
	case optionType == 2 && len(payload) >= 8:
		value = int(binary.LittleEndian.Uint32(payload[4:8]))
	}

	name, ok := p.strings[int(optionID)]
	if !ok {
		name = fmt.Sprintf("Option_%d", value)
	}
	logger.LogDebug("one-of option", map[string]interface{}{
		"name": name, "value": value,
	})
}

func (p *Parser) questionHeader(payload []byte, kind Kind) *OffsetInfo {
	promptID := binary.LittleEndian.Uint16(payload[0:2])
	helpID := binary.LittleEndian.Uint16(payload[2:4])
	varstoreID := binary.LittleEndian.Uint16(payload[7:9])
	varOffset := binary.LittleEndian.Uint16(payload[9:11])

	name, ok := p.strings[int(promptID)]
	if !ok {
		name = fmt.Sprintf("Setting_%04X", varOffset)
	}

	return &OffsetInfo{
		Name:       sanitizeName(name),
		Offset:     int(varOffset),
		VarStoreID: varstoreID,
		Kind:       kind,
		PromptID:   promptID,
		HelpID:     helpID,
	}
}

func (p *Parser) register(info *OffsetInfo) {
	p.offsets[info.Name] = info
	logger.LogDebug("setting discovered", map[string]interface{}{
		"name":   info.Name,
		"offset": fmt.Sprintf("0x%x", info.Offset),
		"size":   info.Size,
		"kind":   string(info.Kind),
	})
}

// sanitizeName reduces a prompt string to an identifier: alphanumerics,
// underscore and dash survive, spaces become underscores, everything
// else is dropped; the result is trimmed and capped at 50 characters.
func sanitizeName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '-':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteByte('_')
		}
	}
	clean := strings.Trim(sb.String(), "_")
	if len(clean) > 50 {
		clean = clean[:50]
	}
	if clean == "" {
		return "UnknownSetting"
	}
	return clean
}

// FindOffset resolves a setting by name: exact match, then
// case-insensitive match, then case-insensitive substring match. The
// fuzzy tiers walk the names in sorted order so a query matching
// several settings always resolves to the same one.
func (p *Parser) FindOffset(name string) (*OffsetInfo, bool) {
	if info, ok := p.offsets[name]; ok {
		return info, true
	}

	names := make([]string, 0, len(p.offsets))
	for n := range p.offsets {
		names = append(names, n)
	}
	sort.Strings(names)

	lower := strings.ToLower(name)
	for _, n := range names {
		if strings.ToLower(n) == lower {
			return p.offsets[n], true
		}
	}
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), lower) {
			return p.offsets[n], true
		}
	}
	return nil, false
}

// Resolve implements the patch engine's offset-resolver contract.
func (p *Parser) Resolve(name string) (offset, size int, desc string, err error) {
	info, ok := p.FindOffset(name)
	if !ok {
		return 0, 0, "", fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}
	return info.Offset, info.Size, fmt.Sprintf("%s (%s)", info.Name, info.Kind), nil
}

// VarStores returns the declared stores keyed by ID.
func (p *Parser) VarStores() map[uint16]*VarStore {
	return p.varstores
}

// Settings returns every discovered setting with its description,
// ordered by offset.
func (p *Parser) Settings() []Setting {
	out := make([]Setting, 0, len(p.offsets))
	for _, info := range p.offsets {
		desc := p.strings[int(info.HelpID)]
		if desc == "" {
			desc = p.strings[int(info.PromptID)]
		}
		if desc == "" {
			desc = info.Name
		}
		out = append(out, Setting{
			Name:        info.Name,
			Offset:      info.Offset,
			Size:        info.Size,
			Description: desc,
			Kind:        info.Kind,
			HasRange:    info.HasRange,
			Min:         info.Min,
			Max:         info.Max,
			Options:     info.Options,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// asciiFromUTF16 pulls the low byte of each UTF-16LE unit up to the
// double-zero terminator; varstore names are plain ASCII in practice.
func asciiFromUTF16(b []byte) string {
	var sb strings.Builder
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			break
		}
		if b[i] != 0 {
			sb.WriteByte(b[i])
		}
	}
	return sb.String()
}
