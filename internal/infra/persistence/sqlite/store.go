package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	_ "modernc.org/sqlite"
)

const fileName = "serpagent.db"

var ErrRunNotFound = errors.New("run not found")

// Store 运行历史和逐行结果, 每个数据目录一个数据库文件
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL DEFAULT '',
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	total       INTEGER NOT NULL DEFAULT 0,
	processed   INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT NOT NULL REFERENCES runs(id),
	row_index      INTEGER NOT NULL,
	keyword        TEXT NOT NULL,
	country        TEXT NOT NULL,
	url            TEXT NOT NULL,
	paa            TEXT NOT NULL,
	pasf           TEXT NOT NULL,
	paa_count      INTEGER NOT NULL,
	pasf_count     INTEGER NOT NULL,
	status         TEXT NOT NULL,
	error          TEXT NOT NULL DEFAULT '',
	paa_selectors  TEXT NOT NULL DEFAULT '[]',
	pasf_selectors TEXT NOT NULL DEFAULT '[]',
	extracted_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id, row_index);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Open 在dir下打开或创建数据库
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, fileName)+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	// SQLite只支持一个写连接
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("启用WAL失败: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("创建表失败: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func (s *Store) CreateRun(ctx context.Context, run *model.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, started_at, total, processed, status) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, formatTime(run.StartedAt), run.Total, run.Processed, string(run.Status),
	)
	if err != nil {
		return fmt.Errorf("保存运行记录失败: %w", err)
	}
	return nil
}

// SaveResult 同时更新运行记录的已处理行数
func (s *Store) SaveResult(ctx context.Context, runID string, r *model.SerpResult) error {
	paa, err := json.Marshal(r.PeopleAlsoAsk)
	if err != nil {
		return err
	}
	pasf, err := json.Marshal(r.PeopleAlsoSearchFor)
	if err != nil {
		return err
	}
	paaSel, err := json.Marshal(r.PAASelectors)
	if err != nil {
		return err
	}
	pasfSel, err := json.Marshal(r.PASFSelectors)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO results
		(run_id, row_index, keyword, country, url, paa, pasf, paa_count, pasf_count, status, error, paa_selectors, pasf_selectors, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Row, r.Keyword, r.Country, r.URL, string(paa), string(pasf), r.PAACount, r.PASFCount,
		string(r.Status), r.Error, string(paaSel), string(pasfSel), formatTime(r.ExtractedAt),
	)
	if err != nil {
		return fmt.Errorf("保存结果失败: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET processed = processed + 1 WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("更新运行进度失败: %w", err)
	}
	return tx.Commit()
}

// FinishRun 写入最终状态, finishedAt与内存中的运行记录保持一致
func (s *Store) FinishRun(ctx context.Context, runID string, status model.RunStatus, processed int, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, processed = ?, finished_at = ? WHERE id = ?`,
		string(status), processed, formatTime(finishedAt), runID,
	)
	if err != nil {
		return fmt.Errorf("更新运行记录失败: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `id, source, started_at, finished_at, total, processed, status`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*model.Run, error) {
	var (
		run             model.Run
		started, status string
		finished        sql.NullString
	)
	if err := sc.Scan(&run.ID, &run.Source, &started, &finished, &run.Total, &run.Processed, &status); err != nil {
		return nil, err
	}
	t, err := parseTime(started)
	if err != nil {
		return nil, fmt.Errorf("解析开始时间失败: %w", err)
	}
	run.StartedAt = t
	if finished.Valid {
		ft, err := parseTime(finished.String)
		if err != nil {
			return nil, fmt.Errorf("解析结束时间失败: %w", err)
		}
		run.FinishedAt = &ft
	}
	run.Status = model.RunStatus(status)
	return &run, nil
}

// ListRuns 最近的运行记录, 按开始时间倒序
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) GetRun(ctx context.Context, id string) (*model.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Results 按输入行顺序返回一次运行的全部结果
func (s *Store) Results(ctx context.Context, runID string) ([]*model.SerpResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		row_index, keyword, country, url, paa, pasf, paa_count, pasf_count, status, error, paa_selectors, pasf_selectors, extracted_at
		FROM results WHERE run_id = ? ORDER BY row_index, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("查询结果失败: %w", err)
	}
	defer rows.Close()

	var results []*model.SerpResult
	for rows.Next() {
		var (
			r                          model.SerpResult
			paa, pasf, paaSel, pasfSel string
			status, extracted          string
		)
		if err := rows.Scan(&r.Row, &r.Keyword, &r.Country, &r.URL, &paa, &pasf, &r.PAACount, &r.PASFCount,
			&status, &r.Error, &paaSel, &pasfSel, &extracted); err != nil {
			return nil, err
		}
		for _, f := range []struct {
			raw string
			dst *[]string
		}{
			{paa, &r.PeopleAlsoAsk},
			{pasf, &r.PeopleAlsoSearchFor},
			{paaSel, &r.PAASelectors},
			{pasfSel, &r.PASFSelectors},
		} {
			if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
				return nil, fmt.Errorf("解析结果列表失败: %w", err)
			}
		}
		r.Status = model.Status(status)
		if r.ExtractedAt, err = parseTime(extracted); err != nil {
			return nil, fmt.Errorf("解析提取时间失败: %w", err)
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}
