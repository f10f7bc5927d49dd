package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// TransactAs runs a typed transaction at key. The mutator receives nil when
// the document is absent and may return nil to delete it. Like Mutator, it
// must be side-effect free.
func TransactAs[T any](ctx context.Context, s Store, key string, mutator func(*T) (*T, error)) (*T, error) {
	committed, err := s.Transact(ctx, key, func(current Value) (Value, error) {
		typed, err := decode[T](current)
		if err != nil {
			return nil, err
		}

		next, err := mutator(typed)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, nil
		}

		encoded, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", key, err)
		}
		return encoded, nil
	})
	if err != nil {
		return nil, err
	}
	return decode[T](committed)
}

// OnceAs reads and decodes the document at key, or nil when absent.
func OnceAs[T any](ctx context.Context, s Store, key string) (*T, error) {
	value, err := s.Once(ctx, key)
	if err != nil {
		return nil, err
	}
	return decode[T](value)
}

// Encode marshals a document value, panicking on unmarshalable types.
// Document types in this module are all plain data.
func Encode(v interface{}) Value {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("unencodable document value: %v", err))
	}
	return b
}

func decode[T any](value Value) (*T, error) {
	if len(value) == 0 || string(value) == "null" {
		return nil, nil
	}
	typed := new(T)
	if err := json.Unmarshal(value, typed); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return typed, nil
}
