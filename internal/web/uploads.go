package web

import (
	"sync"
	"time"

	"github.com/LouYuanbo1/serpagent/internal/infra/input"
	"github.com/google/uuid"
)

type upload struct {
	ID         string
	Name       string
	Table      *input.Table
	UploadedAt time.Time
}

// uploadStore 内存中保存最近上传的表格, 超过上限时淘汰最早的
type uploadStore struct {
	mu    sync.Mutex
	items map[string]*upload
	order []string
	limit int
}

func newUploadStore(limit int) *uploadStore {
	return &uploadStore{items: make(map[string]*upload), limit: limit}
}

func (us *uploadStore) add(name string, table *input.Table) *upload {
	us.mu.Lock()
	defer us.mu.Unlock()
	u := &upload{ID: uuid.NewString(), Name: name, Table: table, UploadedAt: time.Now()}
	us.items[u.ID] = u
	us.order = append(us.order, u.ID)
	for len(us.order) > us.limit {
		delete(us.items, us.order[0])
		us.order = us.order[1:]
	}
	return u
}

func (us *uploadStore) get(id string) (*upload, bool) {
	us.mu.Lock()
	defer us.mu.Unlock()
	u, ok := us.items[id]
	return u, ok
}
