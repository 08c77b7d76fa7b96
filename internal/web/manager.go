package web

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/LouYuanbo1/serpagent/internal/domain/entity"
	"github.com/LouYuanbo1/serpagent/internal/domain/model"
	service "github.com/LouYuanbo1/serpagent/internal/service/serp"
	"github.com/LouYuanbo1/serpagent/param"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrRunActive 同一时间只允许一个浏览器会话
	ErrRunActive   = errors.New("a run is already in progress")
	ErrRunNotFound = errors.New("run not found")
)

// DoneMessage 运行结束时推送的最后一条消息
const DoneMessage = "Done!"

// SessionFactory 为一次运行创建服务和浏览器会话, closeFn在运行结束后调用
type SessionFactory func(ctx context.Context) (svc service.SerpService, closeFn func(), err error)

const subscriberBuffer = 64

type runState struct {
	mu      sync.Mutex
	run     model.Run
	results []*model.SerpResult
	events  []model.Progress
	subs    map[chan model.Progress]struct{}
	err     string
	cancel  context.CancelFunc
	done    chan struct{}
}

// RunView 运行状态快照
type RunView struct {
	Run     model.Run           `json:"run"`
	Results []*model.SerpResult `json:"results"`
	Error   string              `json:"error,omitempty"`
}

// RunManager 管理后台运行, 保留本进程内所有运行的结果和进度事件
type RunManager struct {
	mu      sync.Mutex
	base    context.Context
	factory SessionFactory
	runs    map[string]*runState
	active  string
	wg      sync.WaitGroup
	logger  *zap.Logger
}

func NewRunManager(base context.Context, factory SessionFactory, logger *zap.Logger) *RunManager {
	return &RunManager{
		base:    base,
		factory: factory,
		runs:    make(map[string]*runState),
		logger:  logger,
	}
}

// Start 在后台开始一次运行, 已有运行未结束时返回ErrRunActive
func (m *RunManager) Start(source string, queries []entity.Query, p *param.Extract) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != "" {
		return model.Run{}, fmt.Errorf("%w: %s", ErrRunActive, m.active)
	}

	ctx, cancel := context.WithCancel(m.base)
	st := &runState{
		run: model.Run{
			ID:     uuid.NewString(),
			Source: source,
			Total:  len(queries),
			Status: model.RunRunning,
		},
		subs:   make(map[chan model.Progress]struct{}),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.runs[st.run.ID] = st
	m.active = st.run.ID
	// goroutine启动后st.run只能在st.mu下读取
	started := st.run

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.execute(ctx, st, queries, p)
	}()
	return started, nil
}

func (m *RunManager) execute(ctx context.Context, st *runState, queries []entity.Query, p *param.Extract) {
	defer st.cancel()

	st.mu.Lock()
	run := st.run
	st.mu.Unlock()

	svc, closeFn, err := m.factory(ctx)
	if err != nil {
		m.logger.Error("创建浏览器会话失败", zap.String("run_id", run.ID), zap.Error(err))
		run.Status = model.RunFailed
		m.release(run.ID)
		st.finish(run, err)
		return
	}
	_, runErr := svc.Run(ctx, &run, queries, p, st.publish)
	closeFn()
	// 先释放会话再通知结束, 等待Done的调用方可以立即开始新的运行
	m.release(run.ID)
	st.finish(run, runErr)
}

func (m *RunManager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == id {
		m.active = ""
	}
}

func (st *runState) publish(p model.Progress) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.events = append(st.events, p)
	if p.Result != nil {
		st.results = append(st.results, p.Result)
		st.run.Processed = p.Index
	}
	for ch := range st.subs {
		select {
		case ch <- p:
		default:
			// 订阅者太慢时丢弃, 重新连接时可以从历史事件补齐
		}
	}
}

func (st *runState) finish(run model.Run, runErr error) {
	if runErr != nil && run.Status == model.RunDone {
		run.Status = model.RunFailed
	}
	if run.Status == model.RunRunning {
		run.Status = model.RunFailed
	}
	msg := DoneMessage
	if runErr != nil {
		msg = runErr.Error()
	}
	st.publish(model.Progress{RunID: run.ID, Index: run.Processed, Total: run.Total, Message: msg})

	st.mu.Lock()
	defer st.mu.Unlock()
	// 结果按输入顺序保存, 并发模式下进度事件的顺序可能不同
	if len(st.results) > 1 {
		sortByRow(st.results)
	}
	st.run = run
	if runErr != nil {
		st.err = runErr.Error()
	}
	for ch := range st.subs {
		close(ch)
	}
	st.subs = nil
	close(st.done)
}

func (m *RunManager) get(id string) (*runState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return st, nil
}

// Active 当前正在运行的ID, 没有时为空
func (m *RunManager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *RunManager) View(id string) (RunView, error) {
	st, err := m.get(id)
	if err != nil {
		return RunView{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return RunView{
		Run:     st.run,
		Results: append([]*model.SerpResult(nil), st.results...),
		Error:   st.err,
	}, nil
}

// Subscribe 返回已发生的事件和后续事件的通道, 运行结束后通道关闭
func (m *RunManager) Subscribe(id string) ([]model.Progress, <-chan model.Progress, func(), error) {
	st, err := m.get(id)
	if err != nil {
		return nil, nil, nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	history := append([]model.Progress(nil), st.events...)
	ch := make(chan model.Progress, subscriberBuffer)
	if st.subs == nil {
		close(ch)
		return history, ch, func() {}, nil
	}
	st.subs[ch] = struct{}{}
	unsubscribe := func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		if _, ok := st.subs[ch]; ok {
			delete(st.subs, ch)
			close(ch)
		}
	}
	return history, ch, unsubscribe, nil
}

func (m *RunManager) Cancel(id string) error {
	st, err := m.get(id)
	if err != nil {
		return err
	}
	st.cancel()
	return nil
}

// Done 运行结束时关闭
func (m *RunManager) Done(id string) (<-chan struct{}, error) {
	st, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return st.done, nil
}

// Shutdown 取消所有运行并等待后台goroutine退出
func (m *RunManager) Shutdown() {
	m.mu.Lock()
	for _, st := range m.runs {
		st.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
