package task

import (
	"bytes"
	"encoding/json"
	"fmt"

	"spool/internal/convert"
)

// document is the flat persisted mapping shared by all variants. Fields are
// additive-only: new variants may add fields, existing ones keep their
// meaning, so records written by older versions keep decoding.
type document struct {
	Type      Kind            `json:"type"`
	Msg       string          `json:"msg,omitempty"`
	Src       string          `json:"src,omitempty"`
	Dst       string          `json:"dst,omitempty"`
	Converter json.RawMessage `json:"converter,omitempty"`
}

// Marshal serializes a task into its canonical document.
func Marshal(t Task) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("task is nil")
	}

	doc := document{Type: t.Kind()}
	switch v := t.(type) {
	case Noop, *Noop, Kill, *Kill:
	case Echo:
		doc.Msg = v.Msg
	case *Echo:
		doc.Msg = v.Msg
	case *FileCheck:
		doc.Src = v.Src
	case *Delete:
		doc.Src = v.Src
	case *Copy:
		doc.Src, doc.Dst = v.Src, v.Dst
	case *Move:
		doc.Src, doc.Dst = v.Src, v.Dst
	case *Convert:
		doc.Src, doc.Dst = v.Src, v.Dst
		spec, err := convert.Marshal(v.Converter)
		if err != nil {
			return nil, fmt.Errorf("marshal converter: %w", err)
		}
		doc.Converter = spec
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, t)
	}

	return json.Marshal(doc)
}

// Unmarshal is the factory for persisted tasks: it dispatches on the
// document's discriminant and reconstructs the variant. Validation is
// optional because filesystem state at deserialization time routinely
// differs from state at enqueue time.
func Unmarshal(data []byte, validate bool) (Task, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode task document: %w", err)
	}

	switch doc.Type {
	case KindKill:
		return Kill{}, nil
	case KindNoop:
		return Noop{}, nil
	case KindEcho:
		return Echo{Msg: doc.Msg}, nil
	case KindFile:
		return NewFileCheck(doc.Src, validate)
	case KindDelete:
		return NewDelete(doc.Src, validate)
	case KindCopy:
		return NewCopy(doc.Src, doc.Dst, validate)
	case KindMove:
		return NewMove(doc.Src, doc.Dst, validate)
	case KindConvert:
		conv, err := convert.Unmarshal(doc.Converter)
		if err != nil {
			return nil, err
		}
		return NewConvert(doc.Src, doc.Dst, conv, validate)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, doc.Type)
	}
}

// Equal reports structural equality of two tasks over their persisted
// fields. Row identity never appears in the document, so it is excluded by
// construction.
func Equal(a, b Task) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	docA, errA := Marshal(a)
	docB, errB := Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(docA, docB)
}
