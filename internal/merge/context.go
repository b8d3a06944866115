package merge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownKey is returned for a key outside the placeholder set.
	ErrUnknownKey = errors.New("unknown placeholder key")
	// ErrNestedPlaceholder is returned when a value contains a placeholder token.
	ErrNestedPlaceholder = errors.New("value contains a placeholder token")
)

// Context maps every placeholder key to its replacement. Keys absent from
// the input map render as the empty string.
type Context struct {
	values map[Key]string
}

// NewContext validates values and builds a Context.
func NewContext(values map[Key]string) (*Context, error) {
	ctx := &Context{values: make(map[Key]string, len(Keys))}

	for k, v := range values {
		if !k.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, string(k))
		}
		for _, other := range Keys {
			if strings.Contains(v, other.Token()) {
				return nil, fmt.Errorf("%w: %s in value of %s", ErrNestedPlaceholder, other.Token(), k)
			}
		}
		ctx.values[k] = v
	}

	return ctx, nil
}

// Value returns the replacement for k.
func (c *Context) Value(k Key) string {
	return c.values[k]
}

// Map returns a copy of the context with every key present.
func (c *Context) Map() map[string]string {
	out := make(map[string]string, len(Keys))
	for _, k := range Keys {
		out[string(k)] = c.values[k]
	}
	return out
}
