package mirror

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
)

// Ensure Azure implements the interface.
var _ driven.ArtifactMirror = (*Azure)(nil)

// Azure stores artifacts in an Azure Blob Storage container.
type Azure struct {
	client    *azblob.Client
	container string
	prefix    string
}

// NewAzure creates an Azure mirror authenticated with a shared key.
func NewAzure(account, key, container, prefix string) (*Azure, error) {
	if account == "" || key == "" || container == "" {
		return nil, domain.NewValidationError("mirror.azure", "account, key and container are required")
	}
	credential, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("build shared key credential: %w", err)
	}
	url := fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	client, err := azblob.NewClientWithSharedKeyCredential(url, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}
	return newAzure(client, container, prefix), nil
}

func newAzure(client *azblob.Client, container, prefix string) *Azure {
	return &Azure{client: client, container: container, prefix: prefix}
}

// Name returns the target name.
func (a *Azure) Name() string {
	return TargetAzure
}

// Store uploads one artifact.
func (a *Azure) Store(ctx context.Context, identity domain.Identity, name string, data []byte) error {
	blob := objectKey(a.prefix, identity, name)
	if _, err := a.client.UploadBuffer(ctx, a.container, blob, data, nil); err != nil {
		return fmt.Errorf("upload %s/%s: %w", a.container, blob, err)
	}
	return nil
}
