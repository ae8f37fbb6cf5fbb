package aws

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps event media and cover images in the assets bucket and
// hands back presigned URLs for them.
type S3Store struct {
	client  S3API
	presign func(ctx context.Context, bucket, key string) (string, error)
	bucket  string
	waiter  func(ctx context.Context, bucket, key string) error
}

func NewS3Store(client *s3.Client, bucket string) *S3Store {
	pre := s3.NewPresignClient(client)
	return &S3Store{
		client: client,
		bucket: bucket,
		presign: func(ctx context.Context, bucket, key string) (string, error) {
			r, err := pre.PresignGetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			}, func(po *s3.PresignOptions) {
				po.Expires = 7 * 24 * time.Hour
			})
			if err != nil {
				return "", err
			}
			return r.URL, nil
		},
		waiter: func(ctx context.Context, bucket, key string) error {
			return s3.NewObjectExistsWaiter(client).Wait(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			}, time.Minute)
		},
	}
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.Printf("Could not put object to S3 bucket: %s\n", err.Error())
		return "", err
	}
	if s.waiter != nil {
		if err := s.waiter(ctx, s.bucket, key); err != nil {
			log.Printf("Failed attempt to wait for object %s to exist: %s\n", key, err.Error())
			return "", err
		}
	}
	log.Printf("Added object '%s' to bucket '%s'", key, s.bucket)
	url, err := s.presign(ctx, s.bucket, key)
	if err != nil {
		log.Printf("Could not generate presigned URL for object [%s]: %s\n", key, err.Error())
		return "", err
	}
	return url, nil
}
