package azure

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// MockBlobStorageClient is an in-memory BlobStorage for tests
type MockBlobStorageClient struct {
	Storage      map[string][]byte
	ContentTypes map[string]string
	mu           sync.RWMutex
	logger       *zap.Logger
}

var _ BlobStorage = (*MockBlobStorageClient)(nil)

// NewMockBlobStorageClient creates a new mock blob storage client
func NewMockBlobStorageClient(logger *zap.Logger) *MockBlobStorageClient {
	return &MockBlobStorageClient{
		Storage:      make(map[string][]byte),
		ContentTypes: make(map[string]string),
		logger:       logger,
	}
}

// Upload stores a copy of data in memory
func (c *MockBlobStorageClient) Upload(ctx context.Context, blobName string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if blobName == "" {
		return "", fmt.Errorf("blob name is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.Storage[blobName] = bytes.Clone(data)
	c.ContentTypes[blobName] = contentType

	if c.logger != nil {
		c.logger.Debug("mock: blob uploaded",
			zap.String("blob_name", blobName),
			zap.Int("size_bytes", len(data)),
		)
	}

	return blobName, nil
}

// Download returns a copy of a stored blob
func (c *MockBlobStorageClient) Download(ctx context.Context, blobName string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	data, exists := c.Storage[blobName]
	if !exists {
		return nil, fmt.Errorf("blob not found: %s", blobName)
	}

	return bytes.Clone(data), nil
}

// Clear removes all data from in-memory storage
func (c *MockBlobStorageClient) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Storage = make(map[string][]byte)
	c.ContentTypes = make(map[string]string)
}

// ListBlobs returns all blob names in storage, sorted
func (c *MockBlobStorageClient) ListBlobs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blobs := make([]string, 0, len(c.Storage))
	for name := range c.Storage {
		blobs = append(blobs, name)
	}
	sort.Strings(blobs)

	return blobs
}
