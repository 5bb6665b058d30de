package azure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

func TestNewBlobStorageClient(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name          string
		accountName   string
		accountKey    string
		containerName string
		wantErr       bool
	}{
		{
			name:          "valid configuration",
			accountName:   "testaccount",
			accountKey:    "dGVzdGtleQ==", // base64 encoded "testkey"
			containerName: "exports",
			wantErr:       false,
		},
		{
			name:          "missing account name",
			accountKey:    "dGVzdGtleQ==",
			containerName: "exports",
			wantErr:       true,
		},
		{
			name:          "missing account key",
			accountName:   "testaccount",
			containerName: "exports",
			wantErr:       true,
		},
		{
			name:        "missing container name",
			accountName: "testaccount",
			accountKey:  "dGVzdGtleQ==",
			wantErr:     true,
		},
		{
			name:          "invalid account key format",
			accountName:   "testaccount",
			accountKey:    "invalid-key-format",
			containerName: "exports",
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewBlobStorageClient(tt.accountName, tt.accountKey, tt.containerName, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.containerName, client.containerName)
		})
	}
}

func TestBlobStorageClient_RejectsEmptyNames(t *testing.T) {
	client, err := NewBlobStorageClient("testaccount", "dGVzdGtleQ==", "exports", zap.NewNop())
	require.NoError(t, err)

	_, err = client.UploadExport(context.Background(), "", []byte("{}"))
	assert.Error(t, err)

	_, err = client.DownloadExport(context.Background(), "")
	assert.Error(t, err)
}

func TestMockBlobStorageClient(t *testing.T) {
	ctx := context.Background()
	mock := NewMockBlobStorageClient(zap.NewNop())

	name, err := mock.UploadExport(ctx, "export-2025-03-10.json", []byte(`{"medications":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "exports/export-2025-03-10.json", name)

	data, err := mock.DownloadExport(ctx, name)
	require.NoError(t, err)
	assert.JSONEq(t, `{"medications":[]}`, string(data))

	_, err = mock.DownloadExport(ctx, "exports/missing.json")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
