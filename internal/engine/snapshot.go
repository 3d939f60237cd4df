package engine

import "github.com/pribylovaa/agora/internal/models"

// Order — порядок комментариев.
type Order string

const (
	// OrderOldest — первые PageSize комментариев (first=N).
	OrderOldest Order = "oldest"
	// OrderNewest — последние PageSize комментариев (last=N).
	OrderNewest Order = "newest"
)

// Key — ключ выборки. Смена ключа запускает новую загрузку.
type Key struct {
	Repo   string
	Term   string
	Number int
	Order  Order
}

// Snapshot — неизменяемое состояние движка. Любое изменение создаёт новый
// Snapshot; неизменённые комментарии и ответы разделяются между снимками.
// Получатель не должен менять поля снимка.
type Snapshot struct {
	Key        Key
	Viewer     *models.User
	Discussion *models.Discussion
	// Err — ошибка последней загрузки; предыдущее обсуждение при этом сохраняется.
	Err error
	// Loading — идёт загрузка или перезагрузка.
	Loading bool
	// Loaded — хотя бы одна загрузка по Key завершилась.
	Loaded bool

	seq uint64
}

// HasMore — есть следующая страница комментариев.
func (s *Snapshot) HasMore() bool {
	return s.Discussion != nil && s.Discussion.PageInfo.HasNextPage
}

// NumHidden — сколько комментариев есть на сервере, но не загружено.
func (s *Snapshot) NumHidden() int {
	if s.Discussion == nil {
		return 0
	}

	n := s.Discussion.TotalCommentCount - len(s.Discussion.Comments)
	if n < 0 {
		return 0
	}

	return n
}

// NotFound — загрузка завершилась без ошибки, обсуждения нет.
func (s *Snapshot) NotFound() bool {
	return s.Loaded && !s.Loading && s.Err == nil && s.Discussion == nil
}

// Metadata — сводка для хоста; ok == false, если обсуждения нет.
func (s *Snapshot) Metadata() (models.DiscussionMetadata, bool) {
	if s.Discussion == nil {
		return models.DiscussionMetadata{}, false
	}

	return s.Discussion.Metadata(), true
}

// Comment ищет комментарий по id.
func (s *Snapshot) Comment(id string) (models.Comment, bool) {
	if s.Discussion == nil {
		return models.Comment{}, false
	}

	for _, c := range s.Discussion.Comments {
		if c.ID == id {
			return c, true
		}
	}

	return models.Comment{}, false
}
