package web

import (
	"bytes"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/resource"
	"github.com/mogaika/s2gltf/status"
	"github.com/mogaika/s2gltf/vfs"
	"github.com/mogaika/s2gltf/webutils"
)

type exportRequest struct {
	Resource string `json:"resource"`
	Output   string `json:"output"`
}

// outputName returns output path relative to server output directory.
func outputName(req *exportRequest) (string, error) {
	name := req.Output
	if name == "" {
		name = resource.BaseName(req.Resource) + ".glb"
	}
	name = vfs.CleanPath(name)
	if name == "" || name == "." {
		return "", errors.Errorf("Invalid output name %q", req.Output)
	}
	if ext := strings.ToLower(path.Ext(name)); ext != ".gltf" && ext != ".glb" {
		return "", errors.Errorf("Output %q must be .gltf or .glb", name)
	}
	return name, nil
}

func (s *Server) HandlerExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := webutils.ReadJson(r, &req); err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if req.Resource == "" {
		webutils.WriteError(w, http.StatusBadRequest, errors.New("Resource is not set"))
		return
	}
	name, err := outputName(&req)
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}

	job := s.Jobs.Start(req.Resource, path.Join(s.Output.Path(), name))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	webutils.WriteJson(w, job)
}

func (s *Server) HandlerJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.Jobs.List()
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Started.Before(jobs[j].Started) })
	webutils.WriteJson(w, jobs)
}

func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, errors.Wrapf(err, "Invalid job id"))
		return id, false
	}
	return id, true
}

func (s *Server) HandlerJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	job, ok := s.Jobs.Get(id)
	if !ok {
		webutils.WriteError(w, http.StatusNotFound, errors.Errorf("Job %v not found", id))
		return
	}
	webutils.WriteJson(w, job)
}

func (s *Server) HandlerJobCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}
	if !s.Jobs.Cancel(id) {
		webutils.WriteError(w, http.StatusNotFound, errors.Errorf("Job %v not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlerDownload serves exported file from output directory.
func (s *Server) HandlerDownload(w http.ResponseWriter, r *http.Request) {
	name := vfs.CleanPath(mux.Vars(r)["name"])
	data, err := vfs.ReadFile(s.Output, name)
	if err != nil {
		code := http.StatusInternalServerError
		if vfs.IsNotExist(err) {
			code = http.StatusNotFound
		}
		webutils.WriteError(w, code, err)
		return
	}
	webutils.WriteFile(w, bytes.NewReader(data), path.Base(name))
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func HandlerStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Failed to upgrade status connection", zap.Error(err))
		return
	}
	status.NewClient(conn)
}
