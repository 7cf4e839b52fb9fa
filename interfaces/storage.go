package interfaces

import "context"

// StorageService abstracts object storage for report exports.
type StorageService interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	GetPublicURL(key string) string
}
