package kvstore

import "errors"

var (
	ErrKeyEmpty    = errors.New("key is empty")
	ErrKeyNotFound = errors.New("key not found")
	ErrValueNil    = errors.New("value is nil")
)

func checkKeyAndValue(k string, v any) error {
	if k == "" {
		return ErrKeyEmpty
	}
	if v == nil {
		return ErrValueNil
	}
	return nil
}
