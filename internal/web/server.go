// Package web 提供上传表格、启动提取、查看进度和下载结果的网页界面
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/config"
	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/LouYuanbo1/serpagent/param"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templateFS embed.FS

// HistoryStore 持久化的运行历史, 可以为nil
type HistoryStore interface {
	ListRuns(ctx context.Context, limit int) ([]*model.Run, error)
	GetRun(ctx context.Context, id string) (*model.Run, error)
	Results(ctx context.Context, runID string) ([]*model.SerpResult, error)
}

type Server struct {
	cfg      *config.Config
	manager  *RunManager
	history  HistoryStore
	uploads  *uploadStore
	tmpl     *template.Template
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewServer(cfg *config.Config, manager *RunManager, history HistoryStore, logger *zap.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:     cfg,
		manager: manager,
		history: history,
		uploads: newUploadStore(32),
		tmpl:    tmpl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/uploads", s.handleUpload)
	mux.HandleFunc("POST /api/runs", s.handleStartRun)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("POST /api/runs/{id}/cancel", s.handleCancelRun)
	mux.HandleFunc("GET /api/runs/{id}/events", s.handleEvents)
	mux.HandleFunc("GET /api/runs/{id}/download", s.handleDownload)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http请求",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// ListenAndServe ctx结束时优雅关闭, 并取消正在进行的运行
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("网页界面已启动", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("正在关闭网页界面")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.manager.Shutdown()
	return err
}

type pageData struct {
	Delay, MinDelay, MaxDelay      float64
	MaxPAA, MinPAA, MaxPAALimit    int
	MaxPASF, MinPASF, MaxPASFLimit int
	OpenTabsLimit                  int
	Driver                         config.Driver
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ex := s.cfg.Extract
	data := pageData{
		Delay:         ex.DelaySeconds,
		MinDelay:      param.MinDelay.Seconds(),
		MaxDelay:      param.MaxDelay.Seconds(),
		MaxPAA:        ex.MaxPAA,
		MinPAA:        param.MinPAA,
		MaxPAALimit:   param.MaxPAA,
		MaxPASF:       ex.MaxPASF,
		MinPASF:       param.MinPASF,
		MaxPASFLimit:  param.MaxPASF,
		OpenTabsLimit: param.OpenTabsLimit,
		Driver:        ex.Driver,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		s.logger.Warn("渲染页面失败", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
