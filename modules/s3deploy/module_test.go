package s3deploy

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/specialistvlad/stageplan/internal/ctxlog"
	"github.com/specialistvlad/stageplan/internal/handlers"
	"github.com/specialistvlad/stageplan/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type object struct {
	body         string
	contentType  string
	cacheControl string
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]object
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string]object)
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = object{
		body:         string(body),
		contentType:  aws.ToString(in.ContentType),
		cacheControl: aws.ToString(in.CacheControl),
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

func newRequest(dir string, config map[string]any) *handlers.Request {
	return &handlers.Request{
		Action: planner.PlannedAction{
			Name:   "Publish",
			Inputs: []planner.ArtifactBinding{{ID: "site"}},
			Config: config,
		},
		Inputs: map[string]string{"site": dir},
	}
}

func run(t *testing.T, client API, req *handlers.Request) error {
	t.Helper()
	reg := handlers.New()
	(&Module{Client: client}).Register(reg)
	h, ok := reg.Lookup(Name)
	require.True(t, ok)
	_, err := h.Run(ctxlog.Discard(context.Background()), req)
	return err
}

func TestRun_UploadsTree(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html":      "<h1>hi</h1>",
		"css/site.css":    "body{}",
		"data.unknownext": "?",
		".git/HEAD":       "ref: refs/heads/master",
		"drafts/a.html":   "draft",
	})
	client := &fakeS3{}

	err := run(t, client, newRequest(dir, map[string]any{
		"bucket":        "www.example.com",
		"prefix":        "/v1/",
		"cache_control": "max-age=60",
		"exclude":       []any{"drafts"},
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"www.example.com/v1/css/site.css",
		"www.example.com/v1/data.unknownext",
		"www.example.com/v1/index.html",
	}, client.keys())

	index := client.objects["www.example.com/v1/index.html"]
	assert.Equal(t, "<h1>hi</h1>", index.body)
	assert.Contains(t, index.contentType, "text/html")
	assert.Equal(t, "max-age=60", index.cacheControl)
	assert.Equal(t, DefaultContentType, client.objects["www.example.com/v1/data.unknownext"].contentType)
}

func TestRun_NamedSource(t *testing.T) {
	site := writeTree(t, map[string]string{"index.html": "site"})
	docs := writeTree(t, map[string]string{"readme.md": "docs"})
	client := &fakeS3{}

	req := newRequest(site, map[string]any{"bucket": "b", "source": "docs"})
	req.Action.Inputs = append(req.Action.Inputs, planner.ArtifactBinding{ID: "docs"})
	req.Inputs["docs"] = docs

	require.NoError(t, run(t, client, req))
	assert.Equal(t, []string{"b/readme.md"}, client.keys())
}

func TestRun_Errors(t *testing.T) {
	dir := writeTree(t, map[string]string{"index.html": "x"})

	testCases := []struct {
		name    string
		client  API
		req     *handlers.Request
		wantErr string
	}{
		{
			name:    "no client",
			req:     newRequest(dir, map[string]any{"bucket": "b"}),
			wantErr: ErrNoClient.Error(),
		},
		{
			name:    "missing bucket",
			client:  &fakeS3{},
			req:     newRequest(dir, map[string]any{}),
			wantErr: "config 'bucket' of action 'Publish' is required",
		},
		{
			name:    "unknown source",
			client:  &fakeS3{},
			req:     newRequest(dir, map[string]any{"bucket": "b", "source": "nope"}),
			wantErr: "source 'nope' of action 'Publish' is not one of its inputs",
		},
		{
			name:    "put failure",
			client:  &fakeS3{err: errors.New("access denied")},
			req:     newRequest(dir, map[string]any{"bucket": "b"}),
			wantErr: "upload s3://b/index.html: access denied",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := run(t, tc.client, tc.req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "a/b.txt", objectKey("", filepath.Join("a", "b.txt")))
	assert.Equal(t, "site/a/b.txt", objectKey("site/", filepath.Join("a", "b.txt")))
}

func TestNewClient_Endpoint(t *testing.T) {
	client := NewClient(aws.Config{Region: "us-east-1"}, "http://localhost:9000")
	opts := client.Options()
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
}
