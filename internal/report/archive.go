package report

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/autopeer-io/otarecovery/pkg/log"
	"github.com/autopeer-io/otarecovery/pkg/options"
)

// MinIO uploads install logs to an S3-compatible bucket.
type MinIO struct {
	client     *minio.Client
	bucketName string
	prefix     string
}

var _ Archiver = (*MinIO)(nil)

// NewMinIO creates the S3 client. No request is sent until the first Archive.
func NewMinIO(opts *options.S3Options) (*MinIO, error) {
	minioOpts := &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	}
	if opts.UseSSL && opts.InsecureSkipVerify {
		// Self-signed lab endpoints.
		minioOpts.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	client, err := minio.New(opts.Endpoint, minioOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIO{
		client:     client,
		bucketName: opts.BucketName,
		prefix:     opts.Prefix,
	}, nil
}

// ObjectKey returns [prefix/]<device>/<attempt>/<file name>.
func (p *MinIO) ObjectKey(deviceID, attemptID, file string) string {
	return path.Join(p.prefix, deviceID, attemptID, filepath.Base(file))
}

// Archive uploads the file at file. The bucket must already exist.
func (p *MinIO) Archive(ctx context.Context, deviceID, attemptID, file string) error {
	key := p.ObjectKey(deviceID, attemptID, file)
	info, err := p.client.FPutObject(ctx, p.bucketName, key, file, minio.PutObjectOptions{
		ContentType: "text/plain",
		UserMetadata: map[string]string{
			"device":  deviceID,
			"attempt": attemptID,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	log.Info("Archived install log", "bucket", p.bucketName, "key", key, "size", info.Size)
	return nil
}
