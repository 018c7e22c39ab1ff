package protocol

import "encoding/json"

// Payload shapes, as reported in ErrInvalidFields.
const (
	shapeCopyPath     = "[text, text, text]"
	shapeFileTransfer = "[text]"
	shapeBuild        = "[text, text, uint, uint]"
	shapeSubstitute   = "[text, text]"
	shapeLogLine      = "[text]"
	shapeSetPhase     = "[text]"
	shapeProgress     = "[uint, uint, uint, uint]"
	shapeSetExpected  = "[uint, uint]"
)

// Decode runs DecodeEnvelope and TypeEvent on a protocol payload.
func Decode(payload string) (Event, error) {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	return TypeEvent(env)
}

// DecodeLine decodes a full line including the "@nix " prefix.
func DecodeLine(line string) (Event, error) {
	payload, ok := CutLine(line)
	if !ok {
		return nil, missing("prefix")
	}
	return Decode(payload)
}

// TypeEvent decodes the opaque payload of env into a typed Event. The
// envelope must come from DecodeEnvelope, which guarantees the fields
// required by its tag are present.
func TypeEvent(env *Envelope) (Event, error) {
	switch env.Action {
	case TagMsg:
		return Message{Level: *env.Level, Text: *env.Msg}, nil
	case TagStop:
		return Stop{ID: *env.ID}, nil
	case TagStart:
		return typeStart(env)
	case TagResult:
		return typeResult(env)
	}
	return nil, malformed(nil)
}

func typeStart(env *Envelope) (Event, error) {
	kind := ActionKindFromCode(*env.Type)

	var fields StartFields
	switch kind {
	case ActionCopyPath:
		var f CopyPathFields
		if err := decodeTuple(env.Fields, shapeCopyPath, &f.Path, &f.Origin, &f.Destination); err != nil {
			return nil, err
		}
		fields = f
	case ActionFileTransfer:
		var f FileTransferFields
		if err := decodeTuple(env.Fields, shapeFileTransfer, &f.Target); err != nil {
			return nil, err
		}
		fields = f
	case ActionBuild:
		var f BuildFields
		if err := decodeTuple(env.Fields, shapeBuild, &f.Target, &f.Source, &f.V1, &f.V2); err != nil {
			return nil, err
		}
		fields = f
	case ActionSubstitute:
		var f SubstituteFields
		if err := decodeTuple(env.Fields, shapeSubstitute, &f.Source, &f.Target); err != nil {
			return nil, err
		}
		fields = f
	default:
		// Groups, field-less kinds and kinds we do not know yet.
		fields = NoFields{}
	}

	return Start{
		ID:     *env.ID,
		Parent: *env.Parent,
		Level:  *env.Level,
		Text:   *env.Text,
		Kind:   kind,
		Fields: fields,
	}, nil
}

func typeResult(env *Envelope) (Event, error) {
	code := *env.Type

	switch ResultType(code) {
	case ResultFileLinked, ResultUntrustedPath, ResultCorruptedPath, ResultPostBuildLogLine:
		return nil, &DecodeError{Kind: ErrUnimplemented, Code: code}
	case ResultBuildLogLine, ResultSetPhase, ResultProgress, ResultSetExpected:
	default:
		return nil, &DecodeError{Kind: ErrUnknownCode, Code: code}
	}

	var fields ResultFields
	switch ResultType(code) {
	case ResultBuildLogLine:
		var f BuildLogLine
		if err := decodeTuple(env.Fields, shapeLogLine, &f.Text); err != nil {
			return nil, err
		}
		fields = f
	case ResultSetPhase:
		var f SetPhase
		if err := decodeTuple(env.Fields, shapeSetPhase, &f.Phase); err != nil {
			return nil, err
		}
		fields = f
	case ResultProgress:
		var f Progress
		if err := decodeTuple(env.Fields, shapeProgress, &f.Done, &f.Expected, &f.Running, &f.Failed); err != nil {
			return nil, err
		}
		fields = f
	case ResultSetExpected:
		var kind, expected uint64
		if err := decodeTuple(env.Fields, shapeSetExpected, &kind, &expected); err != nil {
			return nil, err
		}
		fields = SetExpected{TargetKind: ActionKind(kind), Expected: expected}
	}

	return Result{ID: *env.ID, Fields: fields}, nil
}

// decodeTuple decodes a positional JSON array into targets, one element per
// target.
func decodeTuple(raw json.RawMessage, shape string, targets ...any) error {
	if raw == nil {
		return missing("fields")
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return invalidFields(shape, err)
	}
	if len(elems) != len(targets) {
		return invalidFields(shape, nil)
	}
	for i, elem := range elems {
		if err := json.Unmarshal(elem, targets[i]); err != nil {
			return invalidFields(shape, err)
		}
	}
	return nil
}
