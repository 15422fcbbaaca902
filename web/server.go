package web

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mogaika/s2gltf/exporter"
	"github.com/mogaika/s2gltf/logger"
	"github.com/mogaika/s2gltf/vfs"
)

type Server struct {
	Jobs   *JobManager
	Output *vfs.DirectoryDriver
}

func NewServer(e *exporter.Exporter, outDir string) *Server {
	return &Server{
		Jobs:   NewJobManager(e),
		Output: vfs.NewDirectoryDriver(outDir),
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/export", s.HandlerExport).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs", s.HandlerJobs).Methods(http.MethodGet)
	r.HandleFunc("/api/job/{id}", s.HandlerJob).Methods(http.MethodGet)
	r.HandleFunc("/api/job/{id}", s.HandlerJobCancel).Methods(http.MethodDelete)
	r.HandleFunc("/api/file/{name:.+}", s.HandlerDownload).Methods(http.MethodGet)
	r.HandleFunc("/ws/status", HandlerStatus)
	return r
}

func StartServer(addr string, e *exporter.Exporter, outDir string) error {
	s := NewServer(e, outDir)

	var h http.Handler = s.Router()
	h = handlers.RecoveryHandler()(h)
	h = handlers.LoggingHandler(os.Stdout, h)

	logger.Info("Starting server", zap.String("addr", addr), zap.String("output", outDir))

	return http.ListenAndServe(addr, h)
}
