package objectstore

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestObjectKey(t *testing.T) {
	cases := []struct {
		prefix, key, want string
	}{
		{"", "reports/a.csv", "reports/a.csv"},
		{"", "/reports/a.csv", "reports/a.csv"},
		{"payables", "reports/a.csv", "payables/reports/a.csv"},
		{"/payables/", "reports/a.csv", "payables/reports/a.csv"},
	}
	for _, tc := range cases {
		got, err := objectKey(tc.prefix, tc.key)
		if err != nil || got != tc.want {
			t.Fatalf("objectKey(%q, %q): want %q, got %q (%v)", tc.prefix, tc.key, tc.want, got, err)
		}
	}
	if _, err := objectKey("p", "/"); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("want ErrEmptyKey, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	uri, err := s.Upload(ctx, "reports/a.csv", []byte("hello"), "text/csv")
	if err != nil || uri != "mem://reports/a.csv" {
		t.Fatalf("upload: %q %v", uri, err)
	}
	got, err := s.Get(ctx, "reports/a.csv")
	if err != nil || string(got) != "hello" {
		t.Fatalf("get: %q %v", got, err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("want ErrObjectNotFound, got %v", err)
	}
	if got, err := s.Get(ctx, "/reports/a.csv"); err != nil || string(got) != "hello" {
		t.Fatalf("leading slash get: %q %v", got, err)
	}
	var _ Reader = s
}

func TestBoltStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "objects.db"), "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	uri, err := s.Upload(ctx, "invoices/x.pdf", []byte("%PDF-1.4"), "application/pdf")
	if err != nil || uri != "bolt://objects/invoices/x.pdf" {
		t.Fatalf("upload: %q %v", uri, err)
	}
	got, err := s.Get(ctx, "invoices/x.pdf")
	if err != nil || string(got) != "%PDF-1.4" {
		t.Fatalf("get: %q %v", got, err)
	}
	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("want ErrObjectNotFound, got %v", err)
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoreUpload(t *testing.T) {
	client := &fakeS3{}
	s := NewS3StoreWithClient(client, "ap-reports", "prod")

	uri, err := s.Upload(context.Background(), "reports/u1/a.csv", []byte("a,b"), "text/csv")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if uri != "s3://ap-reports/prod/reports/u1/a.csv" {
		t.Fatalf("unexpected uri %q", uri)
	}
	if aws.ToString(client.input.Bucket) != "ap-reports" || aws.ToString(client.input.Key) != "prod/reports/u1/a.csv" {
		t.Fatalf("unexpected input %+v", client.input)
	}
	if aws.ToString(client.input.ContentType) != "text/csv" || string(client.body) != "a,b" {
		t.Fatalf("unexpected content %q %q", aws.ToString(client.input.ContentType), client.body)
	}
}

func TestS3StoreUploadError(t *testing.T) {
	boom := errors.New("access denied")
	s := NewS3StoreWithClient(&fakeS3{err: boom}, "b", "")
	if _, err := s.Upload(context.Background(), "k", nil, "text/csv"); !errors.Is(err, boom) {
		t.Fatalf("want wrapped error, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	if _, _, err := Open(ctx, Config{Backend: "ftp"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}

	s, cleanup, err := Open(ctx, Config{Backend: MemoryBackend})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("unexpected store %T", s)
	}
	_ = cleanup()

	s, cleanup, err = Open(ctx, Config{Backend: BoltBackend, BoltPath: filepath.Join(t.TempDir(), "b.db"), Bucket: "ap"})
	if err != nil {
		t.Fatalf("bolt: %v", err)
	}
	if _, ok := s.(Reader); !ok {
		t.Fatalf("bolt store should be readable")
	}
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if _, _, err := Open(ctx, Config{Backend: S3Backend}); err == nil {
		t.Fatalf("expected error for s3 without bucket")
	}
}
