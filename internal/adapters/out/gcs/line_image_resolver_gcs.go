// internal/adapters/out/gcs/line_image_resolver_gcs.go
package gcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
)

// LineImageResolverGCS resolves cart line image refs (object paths in the
// product image bucket) to public URLs.
//
// Layout:
// - bucket: product image bucket (e.g. <project>-products)
// - objectPath: products/{productId}/<fileName>
//
// Public access: the bucket is expected to grant "allUsers: Storage Object
// Viewer" (uniform access); no per-object ACL handling here.
type LineImageResolverGCS struct {
	Client *storage.Client
	Bucket string

	// PublicBaseURL defaults to https://storage.googleapis.com.
	PublicBaseURL string
}

func NewLineImageResolverGCS(client *storage.Client, bucket string) *LineImageResolverGCS {
	return &LineImageResolverGCS{
		Client:        client,
		Bucket:        strings.TrimSpace(bucket),
		PublicBaseURL: "https://storage.googleapis.com",
	}
}

// ResolveURL returns the public URL for imageRef. Refs that are already
// absolute URLs pass through untouched. A ref pointing at a missing object
// resolves to "" rather than an error (the cart view degrades to no image).
func (r *LineImageResolverGCS) ResolveURL(ctx context.Context, imageRef string) (string, error) {
	ref := strings.TrimSpace(imageRef)
	if ref == "" {
		return "", nil
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}

	if r == nil || r.Client == nil {
		return "", errors.New("line_image_resolver_gcs: storage client is nil")
	}
	bucket := strings.TrimSpace(r.Bucket)
	if bucket == "" {
		return "", errors.New("line_image_resolver_gcs: bucket is empty")
	}

	obj := strings.TrimLeft(ref, "/")
	_, err := r.Client.Bucket(bucket).Object(obj).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", nil
		}
		return "", err
	}

	base := strings.TrimRight(strings.TrimSpace(r.PublicBaseURL), "/")
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	return fmt.Sprintf("%s/%s/%s", base, bucket, obj), nil
}
