package host

import (
	"context"
	"encoding/json"
	"fmt"
)

// StorageCapability is the host's persistent key/value store.
const StorageCapability = "storage"

type storeGetArgs struct {
	Key string `json:"key"`
}

type storeSetArgs struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Store wraps the host storage capability.
type Store struct {
	cap *Capability
}

func NewStore(c *Capability) *Store {
	return &Store{cap: c}
}

// Get returns the stored value for key, or nil when it is unset.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, error) {
	data, err := s.cap.Call(ctx, "get", storeGetArgs{Key: key})
	if err != nil {
		return nil, fmt.Errorf("failed to read %q from host store: %w", key, err)
	}
	if string(data) == "null" {
		return nil, nil
	}
	return data, nil
}

// Set replaces the value stored under key.
func (s *Store) Set(ctx context.Context, key string, value json.RawMessage) error {
	if _, err := s.cap.Call(ctx, "set", storeSetArgs{Key: key, Value: value}); err != nil {
		return fmt.Errorf("failed to write %q to host store: %w", key, err)
	}
	return nil
}
