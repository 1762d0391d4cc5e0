package mirror

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
)

var identity = domain.Identity{Name: "main", NIP: "5265877635", Environment: domain.EnvironmentTest}

// recorder is an object store endpoint that accepts every PUT.
type recorder struct {
	mu     sync.Mutex
	paths  []string
	bodies []string
	types  []string
	status int
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	if req.Method == http.MethodPut {
		r.mu.Lock()
		r.paths = append(r.paths, req.URL.Path)
		r.bodies = append(r.bodies, string(body))
		r.types = append(r.types, req.Header.Get("Content-Type"))
		r.mu.Unlock()
	}
	w.WriteHeader(r.status)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "5265877635/a.xml", objectKey("", identity, "a.xml"))
	assert.Equal(t, "invoices/5265877635/a.xml", objectKey("invoices", identity, "a.xml"))
	assert.Equal(t, "invoices/5265877635/a.xml", objectKey("invoices/", identity, "a.xml"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/xml", contentType("a.xml"))
	assert.Equal(t, "application/json", contentType("a.json"))
	assert.Equal(t, "application/pdf", contentType("a.pdf"))
	assert.Equal(t, "application/octet-stream", contentType("a"))
}

func TestNew_NoTargets(t *testing.T) {
	mirrors, err := New(context.Background(), domain.MirrorSettings{})
	require.NoError(t, err)
	assert.Empty(t, mirrors)
}

func TestNew_UnknownTarget(t *testing.T) {
	_, err := New(context.Background(), domain.MirrorSettings{Targets: []string{"ftp"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNew_MissingSettings(t *testing.T) {
	for _, target := range []string{TargetS3, TargetAzure, TargetSFTP} {
		_, err := New(context.Background(), domain.MirrorSettings{Targets: []string{target}})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, target)
	}
}

func TestS3_Store(t *testing.T) {
	rec := &recorder{status: http.StatusOK}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	client := s3.New(s3.Options{
		Region:       "eu-central-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "key", SecretAccessKey: "secret"}, nil
		}),
	})
	m := newS3(client, "bucket", "ksef")
	assert.Equal(t, TargetS3, m.Name())

	require.NoError(t, m.Store(context.Background(), identity, "a.xml", []byte("<Faktura/>")))
	require.Len(t, rec.paths, 1)
	assert.Equal(t, "/bucket/ksef/5265877635/a.xml", rec.paths[0])
	assert.Equal(t, "application/xml", rec.types[0])
}

func TestAzure_Store(t *testing.T) {
	rec := &recorder{status: http.StatusCreated}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	client, err := azblob.NewClientWithNoCredential(srv.URL+"/", nil)
	require.NoError(t, err)
	m := newAzure(client, "invoices", "")
	assert.Equal(t, TargetAzure, m.Name())

	require.NoError(t, m.Store(context.Background(), identity, "a.pdf", []byte("%PDF")))
	require.Len(t, rec.paths, 1)
	assert.Equal(t, "/invoices/5265877635/a.pdf", rec.paths[0])
	assert.Equal(t, "%PDF", rec.bodies[0])
}

func TestSFTP_Settings(t *testing.T) {
	m, err := NewSFTP(domain.MirrorSettings{
		SFTPHost:     "files.example",
		SFTPUser:     "ksef",
		SFTPPassword: "secret",
		SFTPBaseDir:  "/upload/",
	})
	require.NoError(t, err)
	assert.Equal(t, "files.example:22", m.addr)
	assert.Equal(t, TargetSFTP, m.Name())
	assert.Equal(t, "/upload/5265877635/a.xml", m.remotePath(identity, "a.xml"))

	auths, err := m.authMethods()
	require.NoError(t, err)
	assert.Len(t, auths, 1)
}

func TestSFTP_BadKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, []byte("not a key"), 0o600))

	m, err := NewSFTP(domain.MirrorSettings{SFTPHost: "h", SFTPUser: "u", SFTPKeyPath: keyPath})
	require.NoError(t, err)

	_, err = m.authMethods()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse key"))
}

func TestSFTP_CancelledContext(t *testing.T) {
	m, err := NewSFTP(domain.MirrorSettings{SFTPHost: "h", SFTPUser: "u", SFTPPassword: "p"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Store(ctx, identity, "a.xml", nil), context.Canceled)
}
