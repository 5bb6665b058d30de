package azure

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

// MockBlobStorageClient is an in-memory ExportStorage used by tests and the memory storage driver
type MockBlobStorageClient struct {
	Storage map[string][]byte
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewMockBlobStorageClient creates a new mock blob storage client
func NewMockBlobStorageClient(logger *zap.Logger) *MockBlobStorageClient {
	return &MockBlobStorageClient{
		Storage: make(map[string][]byte),
		logger:  logger,
	}
}

// UploadExport stores an export snapshot in memory
func (c *MockBlobStorageClient) UploadExport(_ context.Context, filename string, data []byte) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	blobName := exportBlobName(filename)
	c.Storage[blobName] = append([]byte(nil), data...)

	if c.logger != nil {
		c.logger.Info("mock: export uploaded",
			zap.String("blob_name", blobName),
			zap.Int("size_bytes", len(data)),
		)
	}

	return blobName, nil
}

// DownloadExport returns a stored export snapshot
func (c *MockBlobStorageClient) DownloadExport(_ context.Context, blobName string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, exists := c.Storage[blobName]
	if !exists {
		return nil, fmt.Errorf("%w: blob %s", model.ErrNotFound, blobName)
	}

	return append([]byte(nil), data...), nil
}
