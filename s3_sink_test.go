package skyline

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// capturePutClient records PutObject calls instead of talking to S3.
type capturePutClient struct {
	bucket      string
	key         string
	contentType string
	body        []byte
}

func (c *capturePutClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	c.bucket = *in.Bucket
	c.key = *in.Key
	c.contentType = *in.ContentType
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	c.body = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3SinkWritePNG(t *testing.T) {
	client := &capturePutClient{}
	sink := &S3Sink{client: client, bucket: "graphs", prefix: "daily/"}

	if err := sink.WritePNG("sps.png", []byte{1, 2, 3}); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	if client.bucket != "graphs" {
		t.Errorf("bucket = %q", client.bucket)
	}
	if client.key != "daily/sps.png" {
		t.Errorf("key = %q, want daily/sps.png", client.key)
	}
	if client.contentType != "image/png" {
		t.Errorf("content type = %q", client.contentType)
	}
	if len(client.body) != 3 {
		t.Errorf("body = %d bytes, want 3", len(client.body))
	}
}

func TestS3SinkWriteGraphDef(t *testing.T) {
	gdef := buildText(t, "name,sps,:eq,:sum", DefaultOptions(), 6)

	tests := []struct {
		name        string
		object      string
		contentType string
		gzipped     bool
	}{
		{name: "plain json", object: "graph.json", contentType: "application/json"},
		{name: "gzipped", object: "graph.json.gz", contentType: "application/gzip", gzipped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &capturePutClient{}
			sink := &S3Sink{client: client, bucket: "graphs"}
			if err := sink.WriteGraphDef(tt.object, gdef); err != nil {
				t.Fatalf("WriteGraphDef: %v", err)
			}
			if client.contentType != tt.contentType {
				t.Errorf("content type = %q, want %q", client.contentType, tt.contentType)
			}
			decoded, err := ReadGraphDef(strings.NewReader(string(client.body)), tt.gzipped)
			if err != nil {
				t.Fatalf("uploaded object does not decode: %v", err)
			}
			if decoded.StartTime != gdef.StartTime || len(decoded.Plots) != len(gdef.Plots) {
				t.Error("uploaded GraphDef mismatch")
			}
		})
	}
}

func TestNewS3SinkRequiresBucket(t *testing.T) {
	if _, err := NewS3Sink(context.Background(), S3SinkConfig{}); err == nil {
		t.Error("NewS3Sink without bucket succeeded")
	}
}

func TestNewS3SinkCustomEndpoint(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewS3Sink(context.Background(), S3SinkConfig{
		Bucket:          "graphs",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	if err != nil {
		t.Fatalf("NewS3Sink: %v", err)
	}
	if err := sink.WritePNG("sps.png", []byte{1}); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %q, want PUT", gotMethod)
	}
	// Path-style addressing puts the bucket in the path.
	if gotPath != "/graphs/sps.png" {
		t.Errorf("path = %q, want /graphs/sps.png", gotPath)
	}
}
