package vocab

import (
	"fmt"
	"strings"
)

// LabelCodec maps disease names to dense class indexes and back.
// Class i is the i-th probability the classifier emits.
type LabelCodec struct {
	classes []string
	lookup  map[string]int
}

// NewLabelCodec builds a codec where class i decodes to classes[i].
func NewLabelCodec(classes []string) (*LabelCodec, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("%w: no classes", ErrInvalidCodec)
	}
	c := &LabelCodec{
		classes: make([]string, len(classes)),
		lookup:  make(map[string]int, len(classes)),
	}
	for i, name := range classes {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: empty class name at index %d", ErrInvalidCodec, i)
		}
		if _, dup := c.lookup[name]; dup {
			return nil, fmt.Errorf("%w: duplicate class %q at index %d", ErrInvalidCodec, name, i)
		}
		c.lookup[name] = i
		c.classes[i] = name
	}
	return c, nil
}

// Len returns the number of classes.
func (c *LabelCodec) Len() int {
	return len(c.classes)
}

// Decode returns the disease name for class index i.
func (c *LabelCodec) Decode(i int) (string, bool) {
	if i < 0 || i >= len(c.classes) {
		return "", false
	}
	return c.classes[i], true
}

// Encode returns the class index for a disease name.
func (c *LabelCodec) Encode(name string) (int, bool) {
	i, ok := c.lookup[name]
	return i, ok
}

// Classes returns a copy of the class names in index order.
func (c *LabelCodec) Classes() []string {
	out := make([]string, len(c.classes))
	copy(out, c.classes)
	return out
}
