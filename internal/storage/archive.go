// Package storage persists finished attribution reports to S3 so report
// runs can be replayed and audited without re-querying the platforms.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ignite/roas-attribution/internal/domain"
)

// Archiver writes and reads report snapshots in S3.
type Archiver struct {
	s3Client *s3.Client
	bucket   string
}

// NewArchiver creates an S3-backed report archiver.
func NewArchiver(ctx context.Context, bucket, region, profile string) (*Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage: no archive bucket configured")
	}

	var cfg aws.Config
	var err error
	if profile != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithSharedConfigProfile(profile),
		)
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}
	if err != nil {
		return nil, fmt.Errorf("storage: loading AWS config: %w", err)
	}

	return &Archiver{s3Client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// reportKey is the canonical object key for one tenant-date report.
func reportKey(tenantID, date string) string {
	return fmt.Sprintf("reports/%s/%s.json", tenantID, date)
}

// SaveReport persists a finished report. Archival is best-effort from the
// pipeline's perspective; callers log and continue on failure.
func (a *Archiver) SaveReport(ctx context.Context, report domain.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("storage: marshal report: %w", err)
	}

	_, err = a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(reportKey(report.TenantID, report.Date)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("storage: put report: %w", err)
	}
	return nil
}

// LoadReport fetches an archived report. Returns ok=false when the report
// was never archived.
func (a *Archiver) LoadReport(ctx context.Context, tenantID, date string) (domain.Report, bool, error) {
	out, err := a.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(reportKey(tenantID, date)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return domain.Report{}, false, nil
		}
		return domain.Report{}, false, fmt.Errorf("storage: get report: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return domain.Report{}, false, fmt.Errorf("storage: read report: %w", err)
	}
	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return domain.Report{}, false, fmt.Errorf("storage: decode report: %w", err)
	}
	return report, true, nil
}
