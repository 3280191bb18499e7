package artifacts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	lastPut *s3.PutObjectInput
	putErr  error
	getErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.lastPut = params
	f.objects[aws.ToString(params.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	api := newFakeS3()
	store, err := NewS3Store(api, "triage-artifacts")
	require.NoError(t, err)

	key, err := store.Put(context.Background(), "case-1", KindDiscussion, []byte("round 1"))
	require.NoError(t, err)
	assert.Equal(t, "discussions/case-1.txt", key)
	assert.Equal(t, "text/plain; charset=utf-8", aws.ToString(api.lastPut.ContentType))

	body, err := store.Get(context.Background(), "case-1", KindDiscussion)
	require.NoError(t, err)
	assert.Equal(t, "round 1", string(body))
}

func TestS3StoreGetMissing(t *testing.T) {
	store, err := NewS3Store(newFakeS3(), "triage-artifacts")
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing", KindResult)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3StorePropagatesBackendError(t *testing.T) {
	api := newFakeS3()
	api.putErr = errors.New("slow down")
	store, err := NewS3Store(api, "triage-artifacts")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "case-1", KindResult, []byte("{}"))
	assert.ErrorContains(t, err, "slow down")
}

func TestNewS3StoreValidatesInputs(t *testing.T) {
	_, err := NewS3Store(nil, "bucket")
	assert.Error(t, err)
	_, err = NewS3Store(newFakeS3(), "  ")
	assert.Error(t, err)
}
