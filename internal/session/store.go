package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store — долговременное хранилище session-токена (переживает перезапуск клиента).
type Store interface {
	// Load возвращает токен и признак его наличия.
	Load(ctx context.Context) (string, bool, error)
	// Save перезаписывает токен.
	Save(ctx context.Context, session string) error
	// Clear удаляет токен; отсутствие токена — не ошибка.
	Clear(ctx context.Context) error
}

// MemoryStore — Store в памяти процесса.
type MemoryStore struct {
	mu      sync.Mutex
	session string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session, s.session != "", nil
}

func (s *MemoryStore) Save(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = session
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = ""
	return nil
}

// FileStore хранит токен в файле с правами 0600, каталог создаётся с 0700.
// Запись атомарна: временный файл + rename.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore создаёт каталог файла при необходимости.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("session: empty store path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("session: create store dir: %w", err)
	}

	return &FileStore{path: path}, nil
}

func (s *FileStore) Load(context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: read store: %w", err)
	}

	v := strings.TrimSpace(string(b))
	return v, v != "", nil
}

func (s *FileStore) Save(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(session), 0o600); err != nil {
		return fmt.Errorf("session: write store: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("session: replace store: %w", err)
	}

	return nil
}

func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: remove store: %w", err)
	}

	return nil
}
