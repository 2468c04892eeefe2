package s3store_test

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/adapters/storage/s3store"
	"github.com/charlescolbourne36-create/joyful-bites-dashboard/internal/domain"
)

// fakeBucket is an in-memory bucket that serves both the client and the
// uploader side of the store.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []*s3.PutObjectInput
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (b *fakeBucket) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[aws.ToString(in.Key)] = data
	b.puts = append(b.puts, in)
	return &manager.UploadOutput{Key: in.Key}, nil
}

func (b *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (b *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (b *fakeBucket) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, obj := range in.Delete.Objects {
		delete(b.objects, aws.ToString(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func sampleRun(ts time.Time, product string) *domain.PipelineRun {
	return &domain.PipelineRun{
		Timestamp:  ts,
		Image:      domain.Image{Data: []byte{0x89, 'P', 'N', 'G', 0, 1, 2}, MediaType: domain.MediaTypePNG},
		Parameters: domain.Parameters{Product: product, Price: "₱149", Goal: "Trial", Channel: "Facebook"},
		Results: map[domain.PersonaName]*domain.PersonaResult{
			domain.PersonaBusyBrenda: {PersonaFeedback: "fb", CreativeDirection: "cd", JSONBrief: `{"a":1}`},
		},
		Failures: map[domain.PersonaName]string{domain.PersonaHungryHiro: "timeout"},
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	bucket := newFakeBucket()
	store := s3store.NewHistoryStoreWithClient("creatives", "/resonance/", bucket, bucket)
	ctx := context.Background()

	run := sampleRun(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), "Yumburger")
	id, err := store.Save(ctx, run)
	require.NoError(t, err)

	require.Len(t, bucket.puts, 1)
	put := bucket.puts[0]
	assert.Equal(t, "resonance/runs/"+string(id)+".json", aws.ToString(put.Key))
	assert.Equal(t, s3types.ServerSideEncryptionAes256, put.ServerSideEncryption)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, run.Image.Data, got.Image.Data)
	assert.Equal(t, run.Parameters, got.Parameters)
	assert.Equal(t, "cd", got.Results[domain.PersonaBusyBrenda].CreativeDirection)
	assert.Equal(t, "timeout", got.Failures[domain.PersonaHungryHiro])
	assert.True(t, run.Timestamp.Equal(got.Timestamp))
}

func TestGetMissingOrInvalid(t *testing.T) {
	bucket := newFakeBucket()
	store := s3store.NewHistoryStoreWithClient("creatives", "p", bucket, bucket)

	_, err := store.Get(context.Background(), "20260301T120000.000Z-deadbeef")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	_, err = store.Get(context.Background(), "../escape")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestListNewestFirstSkipsCorrupt(t *testing.T) {
	bucket := newFakeBucket()
	store := s3store.NewHistoryStoreWithClient("creatives", "p", bucket, bucket)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := store.Save(ctx, sampleRun(base, "older"))
	require.NoError(t, err)
	_, err = store.Save(ctx, sampleRun(base.Add(time.Hour), "newer"))
	require.NoError(t, err)

	bucket.objects["p/runs/broken.json"] = []byte("{not json")
	bucket.objects["p/runs/readme.txt"] = []byte("ignored")

	runs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newer", runs[0].Parameters.Product)
	assert.Equal(t, "older", runs[1].Parameters.Product)
}

func TestClear(t *testing.T) {
	bucket := newFakeBucket()
	store := s3store.NewHistoryStoreWithClient("creatives", "p", bucket, bucket)
	ctx := context.Background()

	_, err := store.Save(ctx, sampleRun(time.Now(), "x"))
	require.NoError(t, err)
	bucket.objects["other/keep.json"] = []byte("{}")

	require.NoError(t, store.Clear(ctx))

	runs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Contains(t, bucket.objects, "other/keep.json")
}
