// Package s3store stores pipeline runs as JSON objects in an S3 bucket:
//
//	s3://<bucket>/<prefix>/runs/<runID>.json
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/storage/runrecord"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/observability"
)

// deleteBatch is the DeleteObjects per-request maximum.
const deleteBatch = 1000

// API is the subset of the S3 client the store uses.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Uploader is satisfied by *manager.Uploader.
type Uploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type HistoryStore struct {
	bucket   string
	prefix   string
	client   API
	uploader Uploader
}

// NewHistoryStore loads AWS configuration from the environment
// (AWS_REGION, AWS_PROFILE, AWS_ACCESS_KEY_ID/SECRET etc.).
func NewHistoryStore(ctx context.Context, bucket, prefix string) (*HistoryStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return NewHistoryStoreWithClient(bucket, prefix, client, manager.NewUploader(client)), nil
}

func NewHistoryStoreWithClient(bucket, prefix string, client API, uploader Uploader) *HistoryStore {
	return &HistoryStore{
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		client:   client,
		uploader: uploader,
	}
}

func (s *HistoryStore) runsPrefix() string {
	return path.Join(s.prefix, "runs") + "/"
}

func (s *HistoryStore) key(id domain.RunID) string {
	return s.runsPrefix() + string(id) + ".json"
}

// Save uploads the record. S3 PUTs are atomic, so readers never see a
// partial object.
func (s *HistoryStore) Save(ctx context.Context, run *domain.PipelineRun) (domain.RunID, error) {
	if run == nil {
		return "", &domain.PersistenceError{Op: "save", Err: errors.New("nil run")}
	}

	id := runrecord.NewID(run.Timestamp)
	data, err := runrecord.Marshal(runrecord.FromRun(id, run))
	if err != nil {
		return "", &domain.PersistenceError{Op: "save", Err: err}
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(s.key(id)),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String("application/json"),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return "", &domain.PersistenceError{Op: "save", Err: fmt.Errorf("s3 upload failed: %w", err)}
	}
	return id, nil
}

// List downloads every record under the prefix, newest first. Records that
// fail to download or decode are logged and skipped.
func (s *HistoryStore) List(ctx context.Context) ([]*domain.PipelineRun, error) {
	log := observability.LoggerFromContext(ctx)

	keys, err := s.listKeys(ctx)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}

	runs := make([]*domain.PipelineRun, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		id := strings.TrimSuffix(path.Base(key), ".json")
		run, err := s.fetch(ctx, key, id)
		if err != nil {
			log.Warn("skipping corrupted run record", "key", key, "error", err)
			continue
		}
		runs = append(runs, run)
	}

	runrecord.SortNewestFirst(runs)
	return runs, nil
}

func (s *HistoryStore) Get(ctx context.Context, id domain.RunID) (*domain.PipelineRun, error) {
	if !runrecord.ValidID(id) {
		return nil, domain.ErrRunNotFound
	}
	run, err := s.fetch(ctx, s.key(id), string(id))
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, domain.ErrRunNotFound
		}
		return nil, &domain.PersistenceError{Op: "get", Err: err}
	}
	return run, nil
}

func (s *HistoryStore) Clear(ctx context.Context) error {
	keys, err := s.listKeys(ctx)
	if err != nil {
		return &domain.PersistenceError{Op: "clear", Err: err}
	}

	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		objs := make([]s3types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objs = append(objs, s3types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &s3types.Delete{Objects: objs, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return &domain.PersistenceError{Op: "clear", Err: fmt.Errorf("s3 delete objects: %w", err)}
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return &domain.PersistenceError{Op: "clear", Err: fmt.Errorf("s3 delete %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))}
		}
	}

	observability.LoggerFromContext(ctx).Info("history cleared", "removed", len(keys))
	return nil
}

func (s *HistoryStore) listKeys(ctx context.Context) ([]string, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.runsPrefix()),
	})

	var keys []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (s *HistoryStore) fetch(ctx context.Context, key, id string) (*domain.PipelineRun, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return runrecord.Unmarshal(data, id)
}
