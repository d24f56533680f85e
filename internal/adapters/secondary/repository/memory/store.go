package memory

import (
	"context"
	"sync"
)

// Store est la persistance en mémoire (DB_URL=memory et tests).
// Users et posts partagent un même verrou pour que la résolution du nom
// du créateur et la réconciliation voient un état cohérent.
type Store struct {
	mu     sync.RWMutex
	users  map[string]*userRecord
	emails map[string]string // email -> id
	posts  map[string]*postRecord
	seq    int64
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]*userRecord),
		emails: make(map[string]string),
		posts:  make(map[string]*postRecord),
	}
}

func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }
func (s *Store) Posts() *PostRepo { return &PostRepo{s: s} }

// WithinTx exécute fn directement : pas de transaction en mémoire,
// les deux écritures restent séparées.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
