package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-inventory-service/internal/kv"
)

type fakeObjects struct {
	objects map[string][]byte
	puts    int
	failPut bool
}

func (f *fakeObjects) GetObject(_ context.Context, in *awss3.GetObjectInput, _ ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &awss3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) PutObject(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	if f.failPut {
		return nil, errors.New("access denied")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.puts++
	return &awss3.PutObjectOutput{}, nil
}

func TestStoreUsesSingleObject(t *testing.T) {
	ctx := context.Background()
	fake := &fakeObjects{objects: map[string][]byte{}}
	s := New(fake, "kitchen", "")

	_, err := s.Get(ctx, "items")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.SetMulti(ctx, map[string][]byte{
		"items":   []byte(`[]`),
		"history": []byte(`[]`),
	}))
	assert.Equal(t, 1, fake.puts)
	assert.Contains(t, fake.objects, "kitchen/inventory/snapshot.json")

	got, err := s.Get(ctx, "history")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestPutFailureIsReturned(t *testing.T) {
	fake := &fakeObjects{objects: map[string][]byte{}, failPut: true}
	s := New(fake, "kitchen", "snap.json")

	err := s.Set(context.Background(), "items", []byte(`[]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kitchen/snap.json")
}
