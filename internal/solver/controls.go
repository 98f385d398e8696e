package solver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidControls = errors.New("invalid solver controls")

// Control is one controlId=value pair.
type Control struct {
	ID    string
	Value string
}

// ParseControls splits "a=1;b=2" into controls, in order. Empty segments are
// skipped; a segment without '=' or with an empty id is rejected.
func ParseControls(s string) ([]Control, error) {
	var out []Control
	for i, seg := range strings.Split(s, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		id, val, ok := strings.Cut(seg, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("%w: segment %d %q", ErrInvalidControls, i, seg)
		}
		out = append(out, Control{ID: id, Value: strings.TrimSpace(val)})
	}
	return out, nil
}

// FormatControls is the inverse of ParseControls.
func FormatControls(cs []Control) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.ID + "=" + c.Value
	}
	return strings.Join(parts, ";")
}

// lookupFloat returns the last value of id parsed as a float, or def.
func lookupFloat(cs []Control, id string, def float64) (float64, error) {
	v := def
	for _, c := range cs {
		if c.ID != id {
			continue
		}
		f, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidControls, id, c.Value)
		}
		v = f
	}
	return v, nil
}
