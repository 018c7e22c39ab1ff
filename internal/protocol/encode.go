package protocol

import (
	"encoding/json"
	"fmt"
)

// Encode renders ev as a protocol payload (without the line prefix) that
// Decode turns back into an equal Event.
func Encode(ev Event) ([]byte, error) {
	env, err := envelopeOf(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// EncodeLine is Encode with the "@nix " prefix.
func EncodeLine(ev Event) (string, error) {
	payload, err := Encode(ev)
	if err != nil {
		return "", err
	}
	return LinePrefix + string(payload), nil
}

func envelopeOf(ev Event) (*Envelope, error) {
	switch ev := ev.(type) {
	case Message:
		return &Envelope{Action: TagMsg, Level: &ev.Level, Msg: &ev.Text}, nil

	case Stop:
		return &Envelope{Action: TagStop, ID: &ev.ID}, nil

	case Start:
		code := uint64(ev.Kind)
		env := &Envelope{
			Action: TagStart,
			ID:     &ev.ID,
			Parent: &ev.Parent,
			Level:  &ev.Level,
			Text:   &ev.Text,
			Type:   &code,
		}
		var tuple []any
		switch f := ev.Fields.(type) {
		case CopyPathFields:
			tuple = []any{f.Path, f.Origin, f.Destination}
		case FileTransferFields:
			tuple = []any{f.Target}
		case BuildFields:
			tuple = []any{f.Target, f.Source, f.V1, f.V2}
		case SubstituteFields:
			tuple = []any{f.Source, f.Target}
		case NoFields, nil:
		default:
			return nil, fmt.Errorf("encode start: unsupported fields %T", f)
		}
		if tuple != nil {
			raw, err := json.Marshal(tuple)
			if err != nil {
				return nil, fmt.Errorf("encode start fields: %w", err)
			}
			env.Fields = raw
		}
		return env, nil

	case Result:
		if ev.Fields == nil {
			return nil, fmt.Errorf("encode result: no fields")
		}
		code := uint64(ev.Fields.resultType())
		var tuple []any
		switch f := ev.Fields.(type) {
		case BuildLogLine:
			tuple = []any{f.Text}
		case SetPhase:
			tuple = []any{f.Phase}
		case Progress:
			tuple = []any{f.Done, f.Expected, f.Running, f.Failed}
		case SetExpected:
			tuple = []any{uint64(f.TargetKind), f.Expected}
		}
		raw, err := json.Marshal(tuple)
		if err != nil {
			return nil, fmt.Errorf("encode result fields: %w", err)
		}
		return &Envelope{Action: TagResult, ID: &ev.ID, Type: &code, Fields: raw}, nil
	}

	return nil, fmt.Errorf("encode: unsupported event %T", ev)
}
