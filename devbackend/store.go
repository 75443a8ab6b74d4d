package devbackend

import (
	"errors"
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DialectorOpener returns a gorm.Dialector for a given DSN.
type DialectorOpener = func(string) gorm.Dialector

var (
	registryMu sync.RWMutex
	openers    = make(map[string]DialectorOpener)
)

// Register adds a database driver to the registry. sqlite, postgres and
// mysql are registered by default.
func Register(name string, opener DialectorOpener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	openers[name] = opener
}

func init() {
	Register("sqlite", sqlite.Open)
	Register("postgres", postgres.Open)
	Register("mysql", mysql.Open)
}

// ErrNotFound is returned when no user matches a lookup.
var ErrNotFound = errors.New("devbackend: user not found")

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// OpenStore opens the configured database and migrates the schema.
func OpenStore(dbType, dsn string, migrate bool) (*Store, error) {
	registryMu.RLock()
	opener, ok := openers[dbType]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("devbackend: unknown database type %q", dbType)
	}

	db, err := gorm.Open(opener(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	s := NewStore(db)
	if migrate {
		if err := s.AutoMigrate(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&User{})
}

func (s *Store) CreateUser(u *User) error {
	return s.db.Create(u).Error
}

func (s *Store) SaveUser(u *User) error {
	return s.db.Save(u).Error
}

func (s *Store) GetUserByEmail(email string) (*User, error) {
	var u User
	if err := s.db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByTelegramID(id int64) (*User, error) {
	var u User
	if err := s.db.Where("telegram_id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
