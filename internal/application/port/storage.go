package port

import "context"

// BlobStore persists uploaded bill documents and returns a retrievable URL
type BlobStore interface {
	Store(ctx context.Context, content []byte, filename string) (url string, err error)
}
