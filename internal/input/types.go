// Package input turns a target set of virtual keys into synthetic key
// presses and releases on the host OS.
package input

import (
	"fmt"
	"sort"
	"strings"
)

// Key is a virtual key by its lowercase name ("a", "up", "escape")
type Key string

// Windows virtual-key codes; the other platforms translate from these.
// Reference: https://docs.microsoft.com/en-us/windows/win32/inputdev/virtual-key-codes
var virtualKeyCodes = map[Key]uint16{
	"backspace": 0x08,
	"tab":       0x09,
	"enter":     0x0D,
	"shift":     0x10,
	"ctrl":      0x11,
	"alt":       0x12,
	"escape":    0x1B,
	"space":     0x20,
	"pageup":    0x21,
	"pagedown":  0x22,
	"end":       0x23,
	"home":      0x24,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
	"insert":    0x2D,
	"delete":    0x2E,
}

var keyAliases = map[string]Key{
	"esc":     "escape",
	"return":  "enter",
	"del":     "delete",
	"control": "ctrl",
	"option":  "alt",
}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		virtualKeyCodes[Key(string(c))] = uint16(0x41 + c - 'a')
	}
	for c := '0'; c <= '9'; c++ {
		virtualKeyCodes[Key(string(c))] = uint16(0x30 + c - '0')
	}
	for i := 1; i <= 12; i++ {
		virtualKeyCodes[Key(fmt.Sprintf("f%d", i))] = uint16(0x70 + i - 1)
	}
}

// ParseKey resolves a key name, case-insensitively and with common aliases
func ParseKey(name string) (Key, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := keyAliases[n]; ok {
		return alias, nil
	}
	if _, ok := virtualKeyCodes[Key(n)]; !ok {
		return "", fmt.Errorf("unknown key %q", name)
	}
	return Key(n), nil
}

// VirtualKeyCode returns the Windows VK code for k
func (k Key) VirtualKeyCode() (uint16, bool) {
	vk, ok := virtualKeyCodes[k]
	return vk, ok
}

// KnownKeys returns every supported key name, sorted
func KnownKeys() []Key {
	keys := make([]Key, 0, len(virtualKeyCodes))
	for k := range virtualKeyCodes {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// KeySet is a set of keys compared by membership only
type KeySet map[Key]struct{}

// NewKeySet builds a set from keys; duplicates collapse
func NewKeySet(keys ...Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts k
func (s KeySet) Add(k Key) { s[k] = struct{}{} }

// Has reports whether k is in the set
func (s KeySet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Union adds every key of other to s
func (s KeySet) Union(other KeySet) {
	for k := range other {
		s[k] = struct{}{}
	}
}

// Minus returns the keys in s but not in other, sorted
func (s KeySet) Minus(other KeySet) []Key {
	var out []Key
	for k := range s {
		if !other.Has(k) {
			out = append(out, k)
		}
	}
	sortKeys(out)
	return out
}

// Equal reports whether both sets hold the same keys
func (s KeySet) Equal(other KeySet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy
func (s KeySet) Clone() KeySet {
	c := make(KeySet, len(s))
	for k := range s {
		c[k] = struct{}{}
	}
	return c
}

// Sorted returns the keys in lexical order
func (s KeySet) Sorted() []Key {
	out := make([]Key, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}

// Names returns the sorted key names as plain strings
func (s KeySet) Names() []string {
	keys := s.Sorted()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func (s KeySet) String() string {
	return "{" + strings.Join(s.Names(), ", ") + "}"
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}
