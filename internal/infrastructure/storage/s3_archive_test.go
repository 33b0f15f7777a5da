package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type putCall struct {
	bucket      string
	key         string
	contentType string
	body        []byte
}

type fakeS3 struct {
	headErr   error
	createErr error
	putErr    error
	created   []string
	puts      []putCall
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, aws.ToString(in.Bucket))
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, putCall{
		bucket:      aws.ToString(in.Bucket),
		key:         aws.ToString(in.Key),
		contentType: aws.ToString(in.ContentType),
		body:        body,
	})
	return &s3.PutObjectOutput{}, nil
}

func newFakeArchive(t *testing.T, fake *fakeS3, prefix string) *S3ObjectArchive {
	t.Helper()
	archive, err := NewS3ObjectArchive(&config.ArchiveConfig{Bucket: "writes", Prefix: prefix},
		WithClient(fake), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return archive
}

func TestNewS3ObjectArchive_Validation(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewS3ObjectArchive(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket", func(t *testing.T) {
		_, err := NewS3ObjectArchive(&config.ArchiveConfig{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing credentials", func(t *testing.T) {
		_, err := NewS3ObjectArchive(&config.ArchiveConfig{Bucket: "writes"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key")
	})

	t.Run("valid config builds a client", func(t *testing.T) {
		archive, err := NewS3ObjectArchive(&config.ArchiveConfig{
			Bucket:       "writes",
			AccessKey:    "k",
			SecretKey:    "s",
			Endpoint:     "minio:9000",
			UsePathStyle: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "writes", archive.Bucket())
		assert.NotNil(t, archive.client)
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		ssl      bool
		want     string
	}{
		{"", false, "http://localhost:9000"},
		{"minio:9000", false, "http://minio:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		got, err := normalizeEndpoint(tt.endpoint, tt.ssl)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestS3ObjectArchive_Put(t *testing.T) {
	fake := &fakeS3{}
	archive := newFakeArchive(t, fake, "/written/")

	require.NoError(t, archive.Put(context.Background(), "shop-1/e1.json", []byte(`{"a":1}`), "application/json"))

	require.Len(t, fake.puts, 1)
	assert.Equal(t, "writes", fake.puts[0].bucket)
	assert.Equal(t, "written/shop-1/e1.json", fake.puts[0].key)
	assert.Equal(t, "application/json", fake.puts[0].contentType)
	assert.JSONEq(t, `{"a":1}`, string(fake.puts[0].body))

	t.Run("empty key", func(t *testing.T) {
		assert.Error(t, archive.Put(context.Background(), "", nil, "application/json"))
	})

	t.Run("client error", func(t *testing.T) {
		failing := newFakeArchive(t, &fakeS3{putErr: errors.New("boom")}, "")
		err := failing.Put(context.Background(), "k", []byte("x"), "text/plain")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestS3ObjectArchive_Key(t *testing.T) {
	assert.Equal(t, "a/b.json", newFakeArchive(t, &fakeS3{}, "").Key("a/b.json"))
	assert.Equal(t, "p/a/b.json", newFakeArchive(t, &fakeS3{}, "p").Key("a/b.json"))
}

func TestS3ObjectArchive_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("existing bucket", func(t *testing.T) {
		fake := &fakeS3{}
		require.NoError(t, newFakeArchive(t, fake, "").EnsureBucket(ctx))
		assert.Empty(t, fake.created)
	})

	t.Run("missing bucket is created", func(t *testing.T) {
		fake := &fakeS3{headErr: &types.NotFound{}}
		require.NoError(t, newFakeArchive(t, fake, "").EnsureBucket(ctx))
		assert.Equal(t, []string{"writes"}, fake.created)
	})

	t.Run("bucket created concurrently", func(t *testing.T) {
		fake := &fakeS3{headErr: &types.NoSuchBucket{}, createErr: &types.BucketAlreadyOwnedByYou{}}
		assert.NoError(t, newFakeArchive(t, fake, "").EnsureBucket(ctx))
	})

	t.Run("other head errors are returned", func(t *testing.T) {
		fake := &fakeS3{headErr: errors.New("access denied")}
		assert.Error(t, newFakeArchive(t, fake, "").EnsureBucket(ctx))
	})
}
