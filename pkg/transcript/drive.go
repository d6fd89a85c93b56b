package transcript

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveUploader uploads transcript files to a Google Drive folder using a
// service account.
type DriveUploader struct {
	service  *drive.Service
	folderID string
}

// NewDriveUploader authenticates with the given service-account credentials
// file. folderID may be empty, in which case files land in the Drive root.
func NewDriveUploader(ctx context.Context, credentialsFile, folderID string) (*DriveUploader, error) {
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &DriveUploader{service: svc, folderID: folderID}, nil
}

// Upload copies localPath to Drive under remoteName. The caller bounds the
// operation through ctx; there are no retries here.
func (d *DriveUploader) Upload(ctx context.Context, localPath, remoteName string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	meta := &drive.File{Name: remoteName}
	if d.folderID != "" {
		meta.Parents = []string{d.folderID}
	}
	_, err = d.service.Files.Create(meta).Media(f).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("upload %s: %w", remoteName, err)
	}
	return nil
}
