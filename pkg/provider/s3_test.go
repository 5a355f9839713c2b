package provider

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	data     []byte
	metadata map[string]string
}

// fakeS3 内存版对象存储
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string]fakeObject)}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = fakeObject{data: data, metadata: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{Metadata: obj.metadata}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	return out, nil
}

func TestS3Provider(t *testing.T) {
	client := newFakeS3()
	p := NewS3ProviderWithClient(client, "reports", "/redisx/")

	exerciseProvider(t, p)

	_, ok := client.objects["redisx/db1/a1.json"]
	assert.True(t, ok)
	_, ok = client.objects["redisx/db2/a3.json"]
	assert.True(t, ok)
}

func TestS3ProviderWithoutPrefix(t *testing.T) {
	client := newFakeS3()
	p := NewS3ProviderWithClient(client, "reports", "")

	_, err := p.Create(context.Background(), sampleAnalysis("a1", "db1", 0))
	require.NoError(t, err)
	_, ok := client.objects["db1/a1.json"]
	assert.True(t, ok)

	got, err := p.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
}

func TestS3ProviderRejectsBadDatabaseID(t *testing.T) {
	p := NewS3ProviderWithClient(newFakeS3(), "reports", "")

	_, err := p.Create(context.Background(), sampleAnalysis("a1", "", 0))
	assert.Error(t, err)
	_, err = p.Create(context.Background(), sampleAnalysis("a1", "a/b", 0))
	assert.Error(t, err)
}

func TestNewS3ProviderRequiresBucket(t *testing.T) {
	_, err := NewS3Provider(context.Background(), S3Config{})
	assert.Error(t, err)
}
