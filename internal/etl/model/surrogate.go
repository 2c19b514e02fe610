package model

// KeyMap is a reversible first-seen enumeration: each distinct natural id is
// assigned the next dense integer starting at 1, in the order it is first
// added. The assignment is stable within one pipeline run only; reordering
// the input reorders the keys on the next run.
type KeyMap struct {
	naturals []string
	index    map[string]int
}

func NewKeyMap() *KeyMap {
	return &KeyMap{index: make(map[string]int)}
}

// Add returns the surrogate key for the natural id, assigning the next key
// on first sight.
func (m *KeyMap) Add(natural string) int {
	if key, ok := m.index[natural]; ok {
		return key
	}
	m.naturals = append(m.naturals, natural)
	key := len(m.naturals)
	m.index[natural] = key
	return key
}

// Lookup returns the surrogate key for a natural id without assigning one.
func (m *KeyMap) Lookup(natural string) (int, bool) {
	key, ok := m.index[natural]
	return key, ok
}

// Natural is the inverse mapping: surrogate key back to natural id.
func (m *KeyMap) Natural(key int) (string, bool) {
	if key < 1 || key > len(m.naturals) {
		return "", false
	}
	return m.naturals[key-1], true
}

// Len reports how many natural ids have been assigned keys.
func (m *KeyMap) Len() int {
	return len(m.naturals)
}
