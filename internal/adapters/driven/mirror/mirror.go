// Package mirror implements driven.ArtifactMirror for remote object stores.
// Downloaded files are copied to "<prefix>/<nip>/<file>" in each configured
// target after they are moved into place locally.
package mirror

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
)

// Target names accepted in mirror.targets.
const (
	TargetS3    = "s3"
	TargetAzure = "azure"
	TargetSFTP  = "sftp"
)

// New builds a mirror for every configured target.
func New(ctx context.Context, settings domain.MirrorSettings) ([]driven.ArtifactMirror, error) {
	mirrors := make([]driven.ArtifactMirror, 0, len(settings.Targets))
	for _, target := range settings.Targets {
		var (
			m   driven.ArtifactMirror
			err error
		)
		switch strings.ToLower(strings.TrimSpace(target)) {
		case TargetS3:
			m, err = NewS3(ctx, settings.S3Bucket, settings.S3Prefix)
		case TargetAzure:
			m, err = NewAzure(settings.AzureAccount, settings.AzureKey, settings.AzureContainer, settings.AzurePrefix)
		case TargetSFTP:
			m, err = NewSFTP(settings)
		default:
			err = domain.NewValidationError("mirror.targets", fmt.Sprintf("unknown target %q", target))
		}
		if err != nil {
			return nil, fmt.Errorf("mirror %s: %w", target, err)
		}
		mirrors = append(mirrors, m)
	}
	return mirrors, nil
}

// objectKey places name under prefix and the identity's NIP.
func objectKey(prefix string, identity domain.Identity, name string) string {
	if prefix == "" {
		return path.Join(identity.NIP, name)
	}
	return path.Join(prefix, identity.NIP, name)
}

// contentType guesses the MIME type from the artifact extension.
func contentType(name string) string {
	switch path.Ext(name) {
	case ".xml":
		return "application/xml"
	case ".json":
		return "application/json"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
