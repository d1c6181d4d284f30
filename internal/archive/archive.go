// Package archive optionally retains full allocation request/response pairs
// in object storage, for compliance audit trails beyond what the
// run-history database keeps.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/kellyfolio/internal/kelly"
)

// Uploader archives a run's request/response pair as both JSON and
// msgpack, keyed by run ID under a configured bucket/prefix. Archival is
// always best-effort: callers should log a failure, never fail the
// request that triggered it.
type Uploader struct {
	bucket   string
	prefix   string
	uploader *manager.Uploader
}

// payload is the archived shape: the request that produced a run, and the
// response it produced.
type payload struct {
	Input    kelly.AllocationInput     `json:"input" msgpack:"input"`
	Response *kelly.AllocationResponse `json:"response" msgpack:"response"`
}

// New builds an Uploader against the given bucket/prefix using the
// process's default AWS credential chain and the configured region. It
// returns (nil, nil) when bucket is empty — archival is simply disabled.
func New(ctx context.Context, bucket, prefix, region string) (*Uploader, error) {
	if bucket == "" {
		return nil, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &Uploader{
		bucket:   bucket,
		prefix:   prefix,
		uploader: manager.NewUploader(client),
	}, nil
}

// Archive uploads {prefix}{id}.json and {prefix}{id}.msgpack, where prefix
// is the configured key prefix (ARCHIVE_PREFIX, "runs/" by default).
func (u *Uploader) Archive(ctx context.Context, runID string, input kelly.AllocationInput, response *kelly.AllocationResponse) error {
	p := payload{Input: input, Response: response}

	jsonBytes, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding archive payload as JSON: %w", err)
	}
	if err := u.put(ctx, u.prefix+runID+".json", jsonBytes); err != nil {
		return err
	}

	msgpackBytes, err := msgpack.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding archive payload as msgpack: %w", err)
	}
	if err := u.put(ctx, u.prefix+runID+".msgpack", msgpackBytes); err != nil {
		return err
	}

	return nil
}

func (u *Uploader) put(ctx context.Context, key string, body []byte) error {
	_, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}
