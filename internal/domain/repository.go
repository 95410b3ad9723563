package domain

import "context"

// KeyValueStore is the durable slot the connection profile lives in.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}
