package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	"github.com/LouYuanbo1/serpagent/internal/infra/export"
	"github.com/LouYuanbo1/serpagent/internal/infra/input"
	"github.com/LouYuanbo1/serpagent/param"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const previewRows = 5

type uploadResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Columns       []string   `json:"columns"`
	Preview       [][]string `json:"preview"`
	Rows          int        `json:"rows"`
	KeywordColumn string     `json:"keyword_column"`
	CountryColumn string     `json:"country_column"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("读取上传文件失败: %w", err))
		return
	}
	defer file.Close()

	table, err := input.Read(header.Filename, file)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, input.ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		writeError(w, status, fmt.Errorf("File error: %w", err))
		return
	}
	u := s.uploads.add(header.Filename, table)
	kw, cc := table.DetectColumns()
	s.logger.Info("文件已上传", zap.String("name", header.Filename), zap.Int("rows", len(table.Rows)))
	writeJSON(w, http.StatusOK, uploadResponse{
		ID:            u.ID,
		Name:          u.Name,
		Columns:       table.Columns,
		Preview:       table.Head(previewRows),
		Rows:          len(table.Rows),
		KeywordColumn: kw,
		CountryColumn: cc,
	})
}

type startRunRequest struct {
	UploadID      string   `json:"upload_id"`
	KeywordColumn string   `json:"keyword_column"`
	CountryColumn string   `json:"country_column"`
	Delay         *float64 `json:"delay"`
	MaxPAA        *int     `json:"max_paa"`
	MaxPASF       *int     `json:"max_pasf"`
	OpenTabs      *bool    `json:"open_tabs"`
}

type startRunResponse struct {
	ID               string   `json:"id"`
	Total            int      `json:"total"`
	UnknownCountries []string `json:"unknown_countries,omitempty"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("请求格式错误: %w", err))
		return
	}
	u, ok := s.uploads.get(req.UploadID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("上传文件不存在: %s", req.UploadID))
		return
	}
	queries, unknown, err := u.Table.Queries(req.KeywordColumn, req.CountryColumn)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p := param.FromConfig(s.cfg)
	if req.Delay != nil {
		p.SetDelaySeconds(*req.Delay)
	}
	if req.MaxPAA != nil {
		p.MaxPAA = *req.MaxPAA
	}
	if req.MaxPASF != nil {
		p.MaxPASF = *req.MaxPASF
	}
	if req.OpenTabs != nil {
		p.OpenTabs = *req.OpenTabs
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(unknown) > 0 {
		s.logger.Warn("存在无法识别的国家代码", zap.Strings("codes", unknown))
	}

	run, err := s.manager.Start(u.Name, queries, p)
	if errors.Is(err, ErrRunActive) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, startRunResponse{ID: run.ID, Total: run.Total, UnknownCountries: unknown})
}

// lookup 先查内存中的运行, 再查持久化的历史
func (s *Server) lookup(r *http.Request, id string) (RunView, error) {
	view, err := s.manager.View(id)
	if err == nil {
		return view, nil
	}
	if s.history == nil {
		return RunView{}, err
	}
	run, herr := s.history.GetRun(r.Context(), id)
	if herr != nil {
		return RunView{}, err
	}
	results, herr := s.history.Results(r.Context(), id)
	if herr != nil {
		return RunView{}, herr
	}
	return RunView{Run: *run, Results: results}, nil
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	view, err := s.lookup(r, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if view.Results == nil {
		view.Results = []*model.SerpResult{}
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Cancel(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	writer, err := export.ForFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := s.lookup(r, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", writer.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName("", writer)))
	if err := writer.Write(w, view.Results); err != nil {
		s.logger.Warn("导出结果失败", zap.String("run_id", view.Run.ID), zap.Error(err))
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	runs := []*model.Run{}
	if s.history != nil {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		stored, err := s.history.ListRuns(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		runs = append(runs, stored...)
	}
	writeJSON(w, http.StatusOK, runs)
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// handleEvents 先补发已有事件, 再推送实时进度, 运行结束后关闭连接
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	history, ch, unsubscribe, err := s.manager.Subscribe(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	defer unsubscribe()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket升级失败", zap.Error(err))
		return
	}
	defer conn.Close()

	// 读取客户端消息以便处理关闭帧
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(p model.Progress) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(p)
	}
	for _, p := range history {
		if err := send(p); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
					time.Now().Add(writeWait))
				return
			}
			if err := send(p); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
