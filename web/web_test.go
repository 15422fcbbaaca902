package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mogaika/s2gltf/config"
	"github.com/mogaika/s2gltf/exporter"
	"github.com/mogaika/s2gltf/status"
	"github.com/mogaika/s2gltf/vfs"
)

const testMesh = `
m_vertexBuffers:
  - m_nElementCount: 4
    m_nElementSizeInBytes: 12
    m_inputLayoutFields:
      - {m_pSemanticName: POSITION, m_nSemanticIndex: 0, m_Format: R32G32B32_FLOAT, m_nOffset: 0}
    m_pData: AAAAAAAAAAAAAAAAAACAPwAAAAAAAAAAAAAAAAAAgD8AAAAAAACAPwAAgD8AAAAA
m_indexBuffers:
  - m_nElementCount: 6
    m_nElementSizeInBytes: 2
    m_pData: AAABAAIAAgABAAMA
m_sceneObjects:
  - m_drawCalls:
      - m_nPrimitiveType: RENDER_PRIM_TRIANGLES
        m_nIndexCount: 6
        m_indexBuffer: {m_hBuffer: 0}
        m_vertexBuffers: [{m_hBuffer: 0}]
`

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	in, out := t.TempDir(), t.TempDir()
	if err := os.MkdirAll(filepath.Join(in, "models"), 0777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "models", "quad.vmesh_c"), []byte(testMesh), 0666); err != nil {
		t.Fatal(err)
	}
	e := exporter.New(vfs.NewDirectoryLoaderFromPath(in), config.Default())
	t.Cleanup(e.Close)
	return NewServer(e, out), out
}

func TestOutputName(t *testing.T) {
	for _, c := range []struct {
		req      exportRequest
		expected string
		fail     bool
	}{
		{exportRequest{Resource: "models/quad.vmdl"}, "quad.glb", false},
		{exportRequest{Resource: "x", Output: "../../etc/a.gltf"}, "etc/a.gltf", false},
		{exportRequest{Resource: "x", Output: "a.fbx"}, "", true},
	} {
		got, err := outputName(&c.req)
		if (err != nil) != c.fail || got != c.expected {
			t.Errorf("outputName(%+v)=%q, %v; expected %q", c.req, got, err, c.expected)
		}
	}
}

func TestExportJob(t *testing.T) {
	s, out := testServer(t)
	router := s.Router()

	body := bytes.NewBufferString(`{"resource": "models/quad.vmesh", "output": "quad.glb"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export", body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /api/export code=%d body=%s", rec.Code, rec.Body.String())
	}
	var job Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatal(err)
	}

	s.Jobs.Wait()

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/job/"+job.ID.String(), nil))
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatal(err)
	}
	if job.State != JobDone {
		t.Fatalf("job state=%q error=%q; expected done", job.State, job.Error)
	}
	if _, err := os.Stat(filepath.Join(out, "quad.glb")); err != nil {
		t.Errorf("output not written: %v", err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/file/quad.glb", nil))
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "glTF") {
		t.Errorf("GET /api/file/quad.glb code=%d", rec.Code)
	}
}

func TestExportJobFailure(t *testing.T) {
	s, _ := testServer(t)
	job := s.Jobs.Start("models/missing.vmdl", filepath.Join(t.TempDir(), "x.glb"))
	s.Jobs.Wait()

	got, ok := s.Jobs.Get(job.ID)
	if !ok || got.State != JobFailed || got.Error == "" {
		t.Errorf("job=%+v; expected failed", got)
	}
}

func TestJobNotFound(t *testing.T) {
	s, _ := testServer(t)
	router := s.Router()
	for _, c := range []struct {
		method, url string
		code        int
	}{
		{http.MethodGet, "/api/job/2b1a3b4c-0000-4000-8000-000000000000", http.StatusNotFound},
		{http.MethodDelete, "/api/job/2b1a3b4c-0000-4000-8000-000000000000", http.StatusNotFound},
		{http.MethodGet, "/api/job/nope", http.StatusBadRequest},
		{http.MethodGet, "/api/file/none.glb", http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(c.method, c.url, nil))
		if rec.Code != c.code {
			t.Errorf("%s %s code=%d; expected %d", c.method, c.url, rec.Code, c.code)
		}
	}
}

func TestStatusWebsocket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(HandlerStatus))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for status.ClientsCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	status.Info("hello %d", 42)

	conn.SetReadDeadline(deadline)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		if strings.Contains(string(msg), "hello 42") {
			return
		}
	}
}
