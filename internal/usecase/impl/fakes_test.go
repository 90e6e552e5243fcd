package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"renthouse/internal/domain/entity"
	domainerrors "renthouse/internal/domain/errors"
	"renthouse/internal/domain/repository"
	"renthouse/internal/domain/service"
	"renthouse/internal/infra/auth"
	redisstore "renthouse/internal/infra/persistence/redis"
	"renthouse/internal/infra/storage"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
	"golang.org/x/crypto/bcrypt"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memState is a snapshot of the account tables.
type memState struct {
	accounts      map[int64]*entity.Account
	roles         []*entity.Role
	nextAccountID int64
	nextRoleID    int64
}

func (s *memState) clone() *memState {
	cloned := &memState{
		accounts:      make(map[int64]*entity.Account, len(s.accounts)),
		roles:         make([]*entity.Role, 0, len(s.roles)),
		nextAccountID: s.nextAccountID,
		nextRoleID:    s.nextRoleID,
	}
	for id, account := range s.accounts {
		copied := *account
		cloned.accounts[id] = &copied
	}
	for _, role := range s.roles {
		copied := *role
		cloned.roles = append(cloned.roles, &copied)
	}

	return cloned
}

// memDB is an in-memory store with snapshot transactions: a transaction works
// on a copy that replaces the committed state only when fn succeeds.
type memDB struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	state *memState

	failRoleSave     error
	hidePhoneLookups bool
	saveCalls        int
	saveAllCalls     int
}

func newMemDB() *memDB {
	return &memDB{state: &memState{accounts: map[int64]*entity.Account{}}}
}

func (db *memDB) Execute(_ context.Context, fn func(txRepoFactory repository.RepositoryFactory) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	working := db.state.clone()
	db.mu.Unlock()

	if err := fn(&memRepoFactory{db: db, state: working}); err != nil {
		return err
	}

	db.mu.Lock()
	db.state = working
	db.mu.Unlock()

	return nil
}

// AccountRepo returns a repository on the committed state.
func (db *memDB) AccountRepo() repository.AccountRepository {
	return &memAccountRepo{db: db}
}

// RoleRepo returns a repository on the committed state.
func (db *memDB) RoleRepo() repository.RoleRepository {
	return &memRoleRepo{db: db}
}

func (db *memDB) accountCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	return len(db.state.accounts)
}

func (db *memDB) roleCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	return len(db.state.roles)
}

func (db *memDB) removeAccount(id int64) {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.state.accounts, id)
}

type memRepoFactory struct {
	db    *memDB
	state *memState
}

func (f *memRepoFactory) AccountRepo() repository.AccountRepository {
	return &memAccountRepo{db: f.db, state: f.state}
}

func (f *memRepoFactory) RoleRepo() repository.RoleRepository {
	return &memRoleRepo{db: f.db, state: f.state}
}

// withState runs fn on the transaction snapshot, or on the committed state
// under the lock when the repository is not transaction-bound.
func withState(db *memDB, state *memState, fn func(s *memState) error) error {
	if state != nil {
		return fn(state)
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	return fn(db.state)
}

type memAccountRepo struct {
	db    *memDB
	state *memState
}

func (r *memAccountRepo) find(match func(*entity.Account) bool) (*entity.Account, error) {
	var found *entity.Account
	err := withState(r.db, r.state, func(s *memState) error {
		for _, account := range s.accounts {
			if match(account) {
				copied := *account
				found = &copied

				return nil
			}
		}

		return nil
	})

	return found, err
}

func (r *memAccountRepo) FindByID(_ context.Context, id int64) (*entity.Account, error) {
	return r.find(func(a *entity.Account) bool { return a.ID == id })
}

func (r *memAccountRepo) FindByPhoneNumber(_ context.Context, phoneNumber string) (*entity.Account, error) {
	if r.db.hidePhoneLookups {
		return nil, nil
	}

	return r.find(func(a *entity.Account) bool { return a.PhoneNumber == phoneNumber })
}

func (r *memAccountRepo) FindByNickName(_ context.Context, nickName string) (*entity.Account, error) {
	return r.find(func(a *entity.Account) bool { return a.NickName == nickName })
}

func (r *memAccountRepo) Create(_ context.Context, account *entity.Account) error {
	return withState(r.db, r.state, func(s *memState) error {
		for _, existing := range s.accounts {
			if existing.PhoneNumber == account.PhoneNumber || existing.Name == account.Name {
				return domainerrors.ErrDuplicatePhone.WrapMessage("phone number already registered")
			}
			if existing.NickName == account.NickName {
				return domainerrors.ErrDuplicateNickName.WrapMessage("nickname already taken")
			}
		}

		s.nextAccountID++
		account.ID = s.nextAccountID
		stored := *account
		s.accounts[account.ID] = &stored

		return nil
	})
}

func (r *memAccountRepo) Update(_ context.Context, account *entity.Account) error {
	return withState(r.db, r.state, func(s *memState) error {
		stored, ok := s.accounts[account.ID]
		if !ok {
			return repository.ErrAccountNotFound
		}
		for _, existing := range s.accounts {
			if existing.ID != account.ID && existing.NickName == account.NickName {
				return domainerrors.ErrDuplicateNickName.WrapMessage("nickname already taken")
			}
		}
		stored.NickName = account.NickName
		stored.Avatar = account.Avatar
		stored.Introduction = account.Introduction

		return nil
	})
}

func (r *memAccountRepo) UpdatePasswordHash(_ context.Context, id int64, passwordHash string) error {
	return withState(r.db, r.state, func(s *memState) error {
		stored, ok := s.accounts[id]
		if !ok {
			return repository.ErrAccountNotFound
		}
		stored.PasswordHash = passwordHash

		return nil
	})
}

func (r *memAccountRepo) UpdateAvatar(_ context.Context, id int64, avatar string) error {
	return withState(r.db, r.state, func(s *memState) error {
		stored, ok := s.accounts[id]
		if !ok {
			return repository.ErrAccountNotFound
		}
		stored.Avatar = avatar

		return nil
	})
}

type memRoleRepo struct {
	db    *memDB
	state *memState
}

func (r *memRoleRepo) insert(s *memState, role *entity.Role) error {
	if r.db.failRoleSave != nil {
		return r.db.failRoleSave
	}
	if _, ok := s.accounts[role.AccountID]; !ok {
		return domainerrors.ErrAccountNotFound.WrapMessage("role owner does not exist")
	}
	s.nextRoleID++
	role.ID = s.nextRoleID
	stored := *role
	s.roles = append(s.roles, &stored)

	return nil
}

func (r *memRoleRepo) SaveAll(_ context.Context, roles []*entity.Role) error {
	return withState(r.db, r.state, func(s *memState) error {
		r.db.saveAllCalls++
		for _, role := range roles {
			if err := r.insert(s, role); err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *memRoleRepo) Save(_ context.Context, role *entity.Role) error {
	return withState(r.db, r.state, func(s *memState) error {
		r.db.saveCalls++

		return r.insert(s, role)
	})
}

func (r *memRoleRepo) FindByAccountID(_ context.Context, accountID int64) ([]*entity.Role, error) {
	var roles []*entity.Role
	err := withState(r.db, r.state, func(s *memState) error {
		for _, role := range s.roles {
			if role.AccountID == accountID {
				copied := *role
				roles = append(roles, &copied)
			}
		}

		return nil
	})

	return roles, err
}

// mockPublisher records published account events.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishAccountEvent(ctx context.Context, event *service.AccountEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

func newAcceptingPublisher() *mockPublisher {
	publisher := &mockPublisher{}
	publisher.On("PublishAccountEvent", mock.Anything, mock.Anything).Return(nil).Maybe()

	return publisher
}

type serviceFixture struct {
	svc       *accountService
	db        *memDB
	mr        *miniredis.Miniredis
	bucket    *blob.Bucket
	publisher *mockPublisher
	hasher    service.PasswordHasher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	return newServiceFixtureWithPublisher(t, newAcceptingPublisher())
}

func newServiceFixtureWithPublisher(t *testing.T, publisher *mockPublisher) *serviceFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { _ = bucket.Close() })

	db := newMemDB()
	hasher := auth.NewBcryptHasherWithCost(bcrypt.MinCost)

	svc, ok := NewAccountService(AccountServiceParams{
		TxManager:   db,
		AccountRepo: db.AccountRepo(),
		RoleRepo:    db.RoleRepo(),
		ResetTokens: redisstore.NewResetTokenStore(client),
		Avatars:     storage.NewBucketAvatarStorage(bucket, "https://cdn.example.com"),
		Hasher:      hasher,
		Publisher:   publisher,
		Logger:      newDiscardLogger(),
	}).(*accountService)
	if !ok {
		t.Fatal("unexpected account service type")
	}

	return &serviceFixture{
		svc:       svc,
		db:        db,
		mr:        mr,
		bucket:    bucket,
		publisher: publisher,
		hasher:    hasher,
	}
}
