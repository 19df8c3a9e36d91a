// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestObjectKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                         string
		prefix, device, version, ext string
		want                         string
	}{
		{"full", "reports", "RDR-1", "v1.2", "md", "reports/RDR-1/v1.2/report.md"},
		{"no prefix", "", "RDR-1", "v1.2", "json", "RDR-1/v1.2/report.json"},
		{"slashed prefix", "/a/b/", "D", "1", ".xml", "a/b/D/1/report.xml"},
		{"empty segments", "", "", "", "", "unknown/unversioned/report.txt"},
		{"traversal", "p", "..", "a/b", "md", "p/unknown/a_b/report.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ObjectKey(tt.prefix, tt.device, tt.version, tt.ext); got != tt.want {
				t.Errorf("ObjectKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()

	if got := ContentType("json"); got != "application/json" {
		t.Errorf("ContentType(json) = %q", got)
	}
	if got := ContentType("bin"); got != "application/octet-stream" {
		t.Errorf("ContentType(bin) = %q", got)
	}
}

func TestNewS3_Validation(t *testing.T) {
	t.Parallel()

	valid := Config{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s"}
	if _, err := NewS3(valid); err != nil {
		t.Fatalf("NewS3(valid) error = %v", err)
	}

	for name, mutate := range map[string]func(*Config){
		"no endpoint": func(c *Config) { c.Endpoint = " " },
		"no bucket":   func(c *Config) { c.Bucket = "" },
		"no secret":   func(c *Config) { c.SecretKey = "" },
	} {
		cfg := valid
		mutate(&cfg)
		if _, err := NewS3(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: error = %v, want ErrInvalidConfig", name, err)
		}
	}
}

// checkTestcontainersAvailable reports whether a container provider can be
// reached. Provider detection may panic without a daemon.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

func startMinIO(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:RELEASE.2024-08-17T01-24-54Z",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     "makesps",
				"MINIO_ROOT_PASSWORD": "makesps-secret",
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping: cannot start minio container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(context.Background()) //nolint:errcheck // best-effort cleanup
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "9000/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return host + ":" + port.Port()
}

func TestS3_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping integration test: testcontainers provider not available")
	}

	endpoint := startMinIO(t)
	pub, err := NewS3(Config{
		Endpoint:  endpoint,
		Bucket:    "sps-reports",
		Prefix:    "deliveries",
		AccessKey: "makesps",
		SecretKey: "makesps-secret",
	})
	if err != nil {
		t.Fatalf("NewS3() error = %v", err)
	}

	ctx := t.Context()
	body := []byte("## 실행파일\n")
	loc, err := pub.Publish(ctx, Artifact{Device: "RDR-1", Version: "v1.2", Extension: "md", Body: body})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if loc.Key != "deliveries/RDR-1/v1.2/report.md" || loc.Size != int64(len(body)) {
		t.Errorf("Publish() = %+v", loc)
	}
	if loc.URI() != "s3://sps-reports/deliveries/RDR-1/v1.2/report.md" {
		t.Errorf("URI() = %q", loc.URI())
	}

	got, err := pub.Fetch(ctx, loc.Key)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("Fetch() = %q, want %q", got, body)
	}

	// A second publish reuses the bucket and overwrites the object.
	if _, err := pub.Publish(ctx, Artifact{Device: "RDR-1", Version: "v1.2", Extension: "md", Body: []byte("v2")}); err != nil {
		t.Fatalf("second Publish() error = %v", err)
	}

	if _, err := pub.Fetch(ctx, "deliveries/none/report.md"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Fetch(missing) error = %v, want ErrNotFound", err)
	}
}
