// internal/histlog/action.go
package histlog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scribeworks/scribe/internal/transform"
)

// Direction of a manual edit, by net content delta.
type Direction int

const (
	DirectionAddition Direction = iota
	DirectionDeletion
)

func (d Direction) String() string {
	if d == DirectionDeletion {
		return "deletion"
	}
	return "addition"
}

// Action is a tagged variant: either an AI transformation or a manual
// edit. Consumers dispatch on the tag exhaustively instead of parsing
// string prefixes.
type Action struct {
	ai     transform.Kind
	manual Direction
	isAI   bool
}

// AIAction tags an AI transformation.
func AIAction(kind transform.Kind) Action {
	return Action{ai: kind, isAI: true}
}

// ManualEdit tags a manual content change.
func ManualEdit(dir Direction) Action {
	return Action{manual: dir}
}

// IsAI reports whether this is an AI transformation; kind is only
// meaningful when it returns true.
func (a Action) IsAI() (kind transform.Kind, ok bool) {
	return a.ai, a.isAI
}

// IsManual reports whether this is a manual edit; dir is only meaningful
// when it returns true.
func (a Action) IsManual() (dir Direction, ok bool) {
	return a.manual, !a.isAI
}

// String renders the wire form, e.g. "ai.summarize" or "manual.deletion".
func (a Action) String() string {
	if a.isAI {
		return "ai." + string(a.ai)
	}
	return "manual." + a.manual.String()
}

// MarshalJSON encodes the action as its wire string.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes the wire string form.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction parses the wire string form.
func ParseAction(s string) (Action, error) {
	class, rest, found := strings.Cut(s, ".")
	if !found {
		return Action{}, fmt.Errorf("malformed action %q", s)
	}
	switch class {
	case "ai":
		kind := transform.Kind(rest)
		if !kind.Valid() {
			return Action{}, fmt.Errorf("unknown transformation kind %q", rest)
		}
		return AIAction(kind), nil
	case "manual":
		switch rest {
		case "addition":
			return ManualEdit(DirectionAddition), nil
		case "deletion":
			return ManualEdit(DirectionDeletion), nil
		}
		return Action{}, fmt.Errorf("unknown manual direction %q", rest)
	}
	return Action{}, fmt.Errorf("unknown action class %q", class)
}
