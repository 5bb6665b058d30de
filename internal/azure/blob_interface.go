package azure

import "context"

// ExportStorage stores data export snapshots
type ExportStorage interface {
	UploadExport(ctx context.Context, filename string, data []byte) (string, error)
	DownloadExport(ctx context.Context, blobName string) ([]byte, error)
}

var (
	_ ExportStorage = (*BlobStorageClient)(nil)
	_ ExportStorage = (*MockBlobStorageClient)(nil)
)
