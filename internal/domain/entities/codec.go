package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	apperrors "github.com/zatekoja/hbnb/pkg/errors"
)

// ClassField is the discriminator stored alongside every serialized entity
const ClassField = "__class__"

// Column widths shared by every backend
const (
	MaxStringLength = 128
	MaxTextLength   = 1024
)

// Input is a typed client payload. Apply copies only the fields a client may
// change; identity fields and fixed foreign keys have no slot in any Input.
type Input interface {
	Apply(e Entity) error
	MissingForCreate() string
}

// ToMap flattens an entity into a JSON object with its class discriminator
func ToMap(e Entity) (map[string]any, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", e.Kind(), err)
	}

	out := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to flatten %s: %w", e.Kind(), err)
	}
	out[ClassField] = e.Kind().String()
	return out, nil
}

// PublicMap is ToMap without secrets, used for API responses
func PublicMap(e Entity) (map[string]any, error) {
	out, err := ToMap(e)
	if err != nil {
		return nil, err
	}
	delete(out, "password")
	return out, nil
}

// Encode serializes an entity with its class discriminator
func Encode(e Entity) ([]byte, error) {
	m, err := ToMap(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Decode rebuilds a typed entity from a serialized record
func Decode(data []byte) (Entity, error) {
	var header struct {
		Class string `json:"__class__"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to read record header: %w", err)
	}

	kind, err := ParseKind(header.Class)
	if err != nil {
		return nil, err
	}

	e := kind.Zero()
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	if p, ok := e.(*Place); ok && p.AmenityIDs == nil {
		p.AmenityIDs = []string{}
	}
	if e.GetBase().ID == "" {
		return nil, fmt.Errorf("%s record has no id", kind)
	}
	return e, nil
}

func tooLong(value string, limit int) bool {
	return utf8.RuneCountInString(value) > limit
}

func missing(field string) error {
	return apperrors.NewValidationError("Missing " + field)
}

func invalid(field string) error {
	return apperrors.NewValidationError("Invalid " + field)
}

func kindMismatch(want Kind, got Entity) error {
	return apperrors.NewInternalError(
		fmt.Sprintf("payload for %s applied to %s", want, got.Kind()), nil)
}
