// Package protocol decodes the structured progress protocol that Nix writes
// to its error stream when run with --log-format internal-json.
//
// Each protocol line carries the "@nix " prefix followed by a JSON envelope.
// Decoding happens in two passes: DecodeEnvelope parses the outer object and
// keeps the "fields" payload opaque, then TypeEvent selects the payload shape
// from the already-known action and type codes and produces one immutable
// Event value. Decode runs both passes.
//
//	ev, err := protocol.Decode(payload)
//	switch ev := ev.(type) {
//	case protocol.Start:
//	case protocol.Result:
//	case protocol.Stop:
//	case protocol.Message:
//	}
package protocol
