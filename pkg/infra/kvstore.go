package infra

import (
	"encoding/json"
)

// KVStore is the interface for the embedded key-value store that holds
// per-chain sync state (cursors, failed blocks, backfill progress).
type KVStore interface {
	GetName() string
	Set(k string, v string) error
	Get(k string) (v string, err error)
	// SetAny/GetAny are for struct or slice values
	SetAny(k string, v any) error
	GetAny(k string, v any) (found bool, err error)

	List(prefix string) ([]*KVPair, error)
	Delete(k string) error
	Close() error
}

type KVPair struct {
	Key   string
	Value []byte
}

// Codec encodes/decodes Go values to/from slices of bytes.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON encodes/decodes Go values to/from JSON. Cursor state is stored as
// JSON so the badger database stays inspectable with generic tooling.
var JSON = JSONCodec{}

type JSONCodec struct{}

func (c JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
