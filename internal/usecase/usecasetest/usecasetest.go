// Package usecasetest holds fixtures shared by usecase package tests.
package usecasetest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"parkalert/internal/domain/parking"
	"parkalert/internal/infrastructure/persistence/sqlstore/repository"
	"parkalert/internal/infrastructure/persistence/sqlstore/sqlstoretest"
	"parkalert/internal/infrastructure/persistence/sqlstore/uow"
	"parkalert/internal/ports"
)

// Start is the default fake clock reading: a Sunday morning, UTC.
var Start = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(at time.Time) *Clock {
	return &Clock{now: at.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *Clock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at.UTC()
}

// Env is one SQLite-backed store with a fake clock.
type Env struct {
	DB    *gorm.DB
	Store *repository.Store
	UoW   *uow.UnitOfWork
	Clock *Clock
}

func NewEnv(t testing.TB) *Env {
	t.Helper()
	db := sqlstoretest.Open(t)
	return &Env{
		DB:    db,
		Store: repository.NewStore(db),
		UoW:   uow.NewUnitOfWork(db, 10*time.Second),
		Clock: NewClock(Start),
	}
}

// Account inserts an active account with the given score.
func (e *Env) Account(t testing.TB, score int) string {
	t.Helper()
	id := uuid.NewString()
	now := e.Clock.Now()
	if _, err := e.Store.CreateAccount(context.Background(), parking.Account{
		AccountID:       id,
		ReputationScore: score,
		Status:          parking.AccountActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	return id
}

// Score reads the stored reputation score.
func (e *Env) Score(t testing.TB, accountID string) int {
	t.Helper()
	account, err := e.Store.GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	return account.ReputationScore
}

// Hash builds a valid identifier or proof digest from a short seed.
func Hash(seed string) string {
	h := strings.Repeat(seed, 64/len(seed)+1)
	return strings.ToLower(h[:64])
}

// Cache is an in-memory ports.Cache.
type Cache struct {
	mu   sync.Mutex
	data map[string]string
	Gets int
}

func NewCache() *Cache {
	return &Cache{data: make(map[string]string)}
}

func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gets++
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *Cache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// Push records every message and answers with Result/Err.
type Push struct {
	mu       sync.Mutex
	Messages []ports.PushMessage
	Result   ports.DeliveryResult
	Err      error
}

func (p *Push) Send(_ context.Context, msg ports.PushMessage) (ports.DeliveryResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, msg)
	if p.Err != nil {
		return ports.DeliveryResult{}, p.Err
	}
	return p.Result, nil
}

func (p *Push) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Messages)
}
