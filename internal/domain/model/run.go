package model

import "time"

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunDone      RunStatus = "done"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// Run 一次批量提取任务
type Run struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Total      int        `json:"total"`
	Processed  int        `json:"processed"`
	Status     RunStatus  `json:"status"`
}

// Progress 每处理完一行推送一次
type Progress struct {
	RunID   string      `json:"run_id"`
	Index   int         `json:"index"`
	Total   int         `json:"total"`
	Message string      `json:"message"`
	Result  *SerpResult `json:"result,omitempty"`
}

// Fraction 进度比例 [0,1]
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Index) / float64(p.Total)
}
