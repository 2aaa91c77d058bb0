//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/api/handlers"
	"github.com/cloo-solutions/statusdigest/internal/api/middleware"
	"github.com/cloo-solutions/statusdigest/internal/cli"
	"github.com/cloo-solutions/statusdigest/internal/config"
	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/jobs"
	"github.com/cloo-solutions/statusdigest/internal/server"
	"github.com/cloo-solutions/statusdigest/internal/storage"
	"github.com/cloo-solutions/statusdigest/internal/testutil"
	"go.uber.org/zap/zaptest"
)

const (
	testAPIKey = "digest-e2e-key"
	testBucket = "test-reports"
)

// E2ETestEnv holds the containers, the in-process server and the pipeline
// behind it
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pipeline     *cli.Pipeline
	ServerURL    string
	ServerCloser func()
	S3Store      *storage.S3Store
	HTTPClient   *http.Client
	BinaryDir    string

	importWorker *jobs.ImportWorker
}

// SetupE2EEnv starts Postgres and RustFS, migrates the schema and serves
// the API on a free local port. The import worker is not started; tests
// drive it with ProcessImports.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	migrationPool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")
	migrationPool.Close()

	t.Setenv("DIGEST_DATABASE_URL", pgC.ConnectionString())
	t.Setenv("DIGEST_PROJECT_CSV_PATH", "")
	t.Setenv("DIGEST_API_KEY", testAPIKey)
	t.Setenv("DIGEST_S3_ENDPOINT", s3C.Endpoint())
	t.Setenv("DIGEST_S3_ACCESS_KEY_ID", testutil.S3AccessKey)
	t.Setenv("DIGEST_S3_SECRET_ACCESS_KEY", testutil.S3SecretKey)
	t.Setenv("DIGEST_S3_BUCKET", testBucket)
	t.Setenv("DIGEST_OPENAI_API_KEY", "")
	t.Setenv("DIGEST_AZURE_OPENAI_API_KEY", "")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Store.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	logger := zaptest.NewLogger(t)
	p, err := cli.NewPipeline(ctx, cfg, logger, cli.PipelineOptions{
		RequireDatabase: true,
		Store:           s3Store,
	})
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	serverURL, serverCloser := startServer(t, p, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pipeline:     p,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Store:      s3Store,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		importWorker: jobs.NewImportWorker(p.JobRepo, p.Importer, logger),
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pipeline != nil {
		e.Pipeline.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// SeedProjects writes registry entries and reloads the knowledge base
func (e *E2ETestEnv) SeedProjects(entries ...domain.KnowledgeEntry) {
	if _, err := e.Pipeline.Projects.Seed(e.Ctx, entries, "e2e"); err != nil {
		e.T.Fatalf("failed to seed projects: %v", err)
	}
}

// ProcessImports runs one pass of the import worker
func (e *E2ETestEnv) ProcessImports() {
	if err := e.importWorker.ProcessJobs(e.Ctx); err != nil {
		e.T.Fatalf("import worker failed: %v", err)
	}
}

// BuildCLI builds the digest binary into a temp dir
func (e *E2ETestEnv) BuildCLI() {
	tmpDir, err := os.MkdirTemp("", "digest-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "digest"), "./cmd/digest")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build digest: %v\n%s", err, out)
	}
}

// RunDigest runs the digest CLI against the test server
func (e *E2ETestEnv) RunDigest(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "digest"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("DIGEST_API_KEY=%s", testAPIKey),
		fmt.Sprintf("DIGEST_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int             `json:"-"`
	Header http.Header     `json:"-"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.do(http.MethodGet, path, nil, "", authToken)
}

// Post performs a POST request without a body
func (e *E2ETestEnv) Post(path, authToken string) (*APIResponse, error) {
	return e.do(http.MethodPost, path, nil, "", authToken)
}

// PostReport uploads a report as multipart form data with extra fields
func (e *E2ETestEnv) PostReport(path, filename string, content []byte, fields map[string]string, authToken string) (*APIResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return e.do(http.MethodPost, path, &body, w.FormDataContentType(), authToken)
}

func (e *E2ETestEnv) do(method, path string, body io.Reader, contentType, authToken string) (*APIResponse, error) {
	req, err := http.NewRequest(method, e.ServerURL+path, body)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := APIResponse{Status: resp.StatusCode, Header: resp.Header}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		return &apiResp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}
	return &apiResp, nil
}

// startServer serves the router built from p the way digestd does
func startServer(t *testing.T, p *cli.Pipeline, port int) (string, func()) {
	router := server.NewRouter(server.RouterConfig{
		AuthValidator:  middleware.StaticKeyValidator{Key: testAPIKey},
		Logger:         p.Logger,
		ReportHandler:  handlers.NewReportHandler(p.ImportJobs, p.Engine),
		JobHandler:     handlers.NewJobHandler(p.ImportJobs),
		ProjectHandler: handlers.NewProjectHandler(p.Projects),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
