package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/recarga/backend/internal/domain"
)

const PendingMessage = "Recarga em processamento..."

// TaskService keeps recharge tasks in a bounded, expiring in-memory store.
// Tasks are lost on restart.
type TaskService struct {
	tasks *expirable.LRU[string, *domain.Task]
	mu    sync.Mutex
	now   func() time.Time
}

type TaskServiceConfig struct {
	MaxEntries int
	TTL        time.Duration
	// OnEvict is called when a task leaves the store, either by age or size.
	OnEvict func(task domain.Task)
}

func NewTaskService(cfg TaskServiceConfig) *TaskService {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	var onEvict expirable.EvictCallback[string, *domain.Task]
	if cfg.OnEvict != nil {
		onEvict = func(_ string, task *domain.Task) {
			cfg.OnEvict(*task)
		}
	}
	return &TaskService{
		tasks: expirable.NewLRU[string, *domain.Task](cfg.MaxEntries, onEvict, cfg.TTL),
		now:   time.Now,
	}
}

func (s *TaskService) Create() (*domain.Task, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTaskIDGeneration, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	task := &domain.Task{
		ID:        id.String(),
		Status:    domain.TaskStatusPending,
		Message:   PendingMessage,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks.Add(task.ID, task)

	taskCopy := *task
	return &taskCopy, nil
}

func (s *TaskService) Complete(id, message string) error {
	return s.finish(id, domain.TaskStatusCompleted, message)
}

func (s *TaskService) Fail(id, message string) error {
	return s.finish(id, domain.TaskStatusFailed, message)
}

// finish applies the single allowed transition out of pending.
func (s *TaskService) finish(id string, status domain.TaskStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks.Peek(id)
	if !ok {
		return ErrTaskNotFound
	}
	if task.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTaskAlreadyFinished, id, task.Status)
	}

	task.Status = status
	task.Message = message
	task.UpdatedAt = s.now()
	return nil
}

func (s *TaskService) Get(id string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks.Get(id)
	if !ok {
		return nil, ErrTaskNotFound
	}

	taskCopy := *task
	return &taskCopy, nil
}

func (s *TaskService) Len() int {
	return s.tasks.Len()
}
