package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// LinePrefix marks a protocol line on the error stream.
const LinePrefix = "@nix "

// Envelope tags.
const (
	TagMsg    = "msg"
	TagStart  = "start"
	TagResult = "result"
	TagStop   = "stop"
)

// Envelope is the generically parsed outer object of a protocol line.
// Fields stays undecoded until its shape is known.
type Envelope struct {
	Action string          `json:"action"`
	Level  *Verbosity      `json:"level,omitempty"`
	Msg    *string         `json:"msg,omitempty"`
	ID     *StepID         `json:"id,omitempty"`
	Parent *StepID         `json:"parent,omitempty"`
	Text   *string         `json:"text,omitempty"`
	Type   *uint64         `json:"type,omitempty"`
	Fields json.RawMessage `json:"fields,omitempty"`
}

// CutLine strips the protocol prefix from line. ok is false for lines that
// are plain text.
func CutLine(line string) (payload string, ok bool) {
	return strings.CutPrefix(line, LinePrefix)
}

// DecodeEnvelope parses a protocol payload (prefix already stripped) and
// checks the fields its tag requires.
func DecodeEnvelope(payload string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, malformed(err)
	}
	if bytes.Equal(bytes.TrimSpace(env.Fields), []byte("null")) {
		env.Fields = nil
	}

	switch env.Action {
	case "":
		return nil, missing("action")
	case TagMsg:
		if env.Level == nil {
			return nil, missing("level")
		}
		if env.Msg == nil {
			return nil, missing("msg")
		}
	case TagStart:
		for _, check := range []struct {
			name    string
			present bool
		}{
			{"id", env.ID != nil},
			{"level", env.Level != nil},
			{"parent", env.Parent != nil},
			{"text", env.Text != nil},
			{"type", env.Type != nil},
		} {
			if !check.present {
				return nil, missing(check.name)
			}
		}
	case TagResult:
		if env.ID == nil {
			return nil, missing("id")
		}
		if env.Type == nil {
			return nil, missing("type")
		}
	case TagStop:
		if env.ID == nil {
			return nil, missing("id")
		}
	default:
		return nil, malformed(fmt.Errorf("unknown action %q", env.Action))
	}

	return &env, nil
}
