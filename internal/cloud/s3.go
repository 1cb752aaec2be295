package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"                //nolint:staticcheck
	"github.com/aws/aws-sdk-go/aws/session"        //nolint:staticcheck
	"github.com/aws/aws-sdk-go/service/s3"         //nolint:staticcheck
	"github.com/aws/aws-sdk-go/service/s3/s3iface" //nolint:staticcheck

	"github.com/Conceptual-Machines/chordsheet-api/internal/storage"
)

// S3ProviderName is the provider id used in API routes.
const S3ProviderName = "s3"

// NewS3Provider serves objects under prefix in bucket using the default
// AWS credential chain.
func NewS3Provider(region, bucket, prefix string) (Provider, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewS3ProviderWithClient(s3.New(sess), bucket, prefix), nil
}

// NewS3ProviderWithClient wraps an existing client. Authenticate checks
// that the bucket is reachable with the client's credentials.
func NewS3ProviderWithClient(client s3iface.S3API, bucket, prefix string) Provider {
	return &storeProvider{
		name:  S3ProviderName,
		store: storage.NewS3StoreWithClient(client, bucket, prefix),
		check: func(ctx context.Context) error {
			_, err := client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
			if err != nil {
				return fmt.Errorf("s3 provider: bucket %s: %w", bucket, err)
			}
			return nil
		},
	}
}
