package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"gorm.io/gorm"

	"shopfloor/backend/internal/model"
	"shopfloor/backend/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) add(id, name, role string) {
	m.users[id] = &model.User{UserID: id, Name: name, Role: role, IsActive: true}
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) ListActive(_ context.Context) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if u.IsActive {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ── Mock JobRepository ──

type mockJobRepo struct {
	jobs map[string]*model.ShopJob
	seq  int
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*model.ShopJob)}
}

func (m *mockJobRepo) Create(_ context.Context, job *model.ShopJob) error {
	m.seq++
	if job.JobID == "" {
		job.JobID = fmt.Sprintf("job-%03d", m.seq)
	}
	clone := *job
	m.jobs[job.JobID] = &clone
	return nil
}

func (m *mockJobRepo) GetByID(_ context.Context, id string) (*model.ShopJob, error) {
	if j, ok := m.jobs[id]; ok {
		clone := *j
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockJobRepo) ListByShop(_ context.Context, shop string) ([]model.ShopJob, error) {
	var result []model.ShopJob
	for _, j := range m.jobs {
		if j.Shop == shop {
			result = append(result, *j)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].QueuePosition != result[j].QueuePosition {
			return result[i].QueuePosition < result[j].QueuePosition
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *mockJobRepo) ListByIDs(_ context.Context, ids []string) ([]model.ShopJob, error) {
	var result []model.ShopJob
	for _, id := range ids {
		if j, ok := m.jobs[id]; ok {
			result = append(result, *j)
		}
	}
	return result, nil
}

func (m *mockJobRepo) Update(_ context.Context, job *model.ShopJob) error {
	clone := *job
	m.jobs[job.JobID] = &clone
	return nil
}

func (m *mockJobRepo) Delete(_ context.Context, id string) error {
	delete(m.jobs, id)
	return nil
}

func (m *mockJobRepo) UpdatePositions(_ context.Context, positions map[string]int) error {
	for id, pos := range positions {
		if j, ok := m.jobs[id]; ok {
			j.QueuePosition = pos
		}
	}
	return nil
}

func (m *mockJobRepo) CountUnclaimed(_ context.Context, shop string) (int64, error) {
	var count int64
	for _, j := range m.jobs {
		if j.Shop == shop && j.ClaimedByID == nil {
			count++
		}
	}
	return count, nil
}

// ── Mock PartRepository ──

type mockPartRepo struct {
	parts map[string]*model.ManufacturingPart
	seq   int
}

func newMockPartRepo() *mockPartRepo {
	return &mockPartRepo{parts: make(map[string]*model.ManufacturingPart)}
}

func (m *mockPartRepo) Create(_ context.Context, part *model.ManufacturingPart) error {
	m.seq++
	if part.PartID == "" {
		part.PartID = fmt.Sprintf("part-%03d", m.seq)
	}
	clone := *part
	m.parts[part.PartID] = &clone
	return nil
}

func (m *mockPartRepo) GetByID(_ context.Context, id string) (*model.ManufacturingPart, error) {
	if p, ok := m.parts[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPartRepo) List(_ context.Context, filters *repository.PartListFilters) ([]model.ManufacturingPart, error) {
	var result []model.ManufacturingPart
	for _, p := range m.parts {
		if filters != nil {
			if filters.Status != "" && p.Status != filters.Status {
				continue
			}
			if filters.ManufacturingType != "" && p.ManufacturingType != filters.ManufacturingType {
				continue
			}
			if filters.Priority != "" && p.Priority != filters.Priority {
				continue
			}
			if filters.Search != "" {
				needle := strings.ToLower(filters.Search)
				if !strings.Contains(strings.ToLower(p.PartName), needle) &&
					!strings.Contains(strings.ToLower(p.Subsystem), needle) &&
					!strings.Contains(strings.ToLower(p.Material), needle) {
					continue
				}
			}
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PartID < result[j].PartID })
	return result, nil
}

func (m *mockPartRepo) Update(_ context.Context, part *model.ManufacturingPart) error {
	clone := *part
	m.parts[part.PartID] = &clone
	return nil
}

func (m *mockPartRepo) Delete(_ context.Context, id string) error {
	delete(m.parts, id)
	return nil
}

func (m *mockPartRepo) NextLanePosition(_ context.Context, status string) (int, error) {
	max := 0
	for _, p := range m.parts {
		if p.Status == status && p.LanePosition > max {
			max = p.LanePosition
		}
	}
	if max == 0 {
		return 1, nil
	}
	return max + 1, nil
}

func (m *mockPartRepo) StatusPriorityRows(_ context.Context) ([]repository.PartStatusRow, error) {
	var rows []repository.PartStatusRow
	for _, p := range m.parts {
		rows = append(rows, repository.PartStatusRow{Status: p.Status, Priority: p.Priority})
	}
	return rows, nil
}

// ── Mock FileStore ──

type mockFileStore struct {
	saved   map[string]string
	removed []string
}

func newMockFileStore() *mockFileStore {
	return &mockFileStore{saved: make(map[string]string)}
}

func (m *mockFileStore) Save(subdir, filename string, r io.Reader) (string, error) {
	io.Copy(io.Discard, r)
	path := "/uploads/" + subdir + "/" + filename
	m.saved[path] = subdir
	return path, nil
}

func (m *mockFileStore) Remove(subdir string) error {
	m.removed = append(m.removed, subdir)
	return nil
}

func (m *mockFileStore) URL(path string) string {
	return path
}
