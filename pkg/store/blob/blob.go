package blob

import "context"

// Store holds raw upload bytes. The rest of the system only ever sees a
// URI; blob mechanics stay behind this interface.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}
