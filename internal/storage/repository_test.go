package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ledger/internal/core"
	"ledger/internal/store"
)

var _ store.RecordStore = (*SQLiteRepository)(nil)
var _ store.ProfileStore = (*SQLiteRepository)(nil)

// RepositoryTestSuite runs the store contract against an in-memory database
type RepositoryTestSuite struct {
	suite.Suite
	repo *SQLiteRepository
	ctx  context.Context
}

func (suite *RepositoryTestSuite) SetupTest() {
	repo, err := NewSQLiteRepository(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.repo = repo
	suite.ctx = context.Background()
}

func (suite *RepositoryTestSuite) TearDownTest() {
	if suite.repo != nil {
		suite.repo.Close()
	}
}

func (suite *RepositoryTestSuite) newExpense(owner, primary, secondary string) core.NewExpense {
	return core.NewExpense{
		OwnerID:         owner,
		Date:            core.NewDate(2024, 1, 10),
		Category:        core.Transport,
		Description:     "train",
		AmountPrimary:   decimal.RequireFromString(primary),
		AmountSecondary: decimal.RequireFromString(secondary),
	}
}

func (suite *RepositoryTestSuite) TestCreateAndList() {
	first, err := suite.repo.Create(suite.ctx, suite.newExpense("alice", "100", "267"))
	require.NoError(suite.T(), err)
	_, err = suite.repo.Create(suite.ctx, suite.newExpense("bob", "1", "2.67"))
	require.NoError(suite.T(), err)
	second, err := suite.repo.Create(suite.ctx, suite.newExpense("alice", "20.5", "54.74"))
	require.NoError(suite.T(), err)

	records, err := suite.repo.ListExpenses(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), records, 2)

	assert.Equal(suite.T(), second, records[0].ID, "newest record first")
	assert.Equal(suite.T(), first, records[1].ID)
	assert.True(suite.T(), records[0].CreatedAt.After(records[1].CreatedAt))
	assert.Equal(suite.T(), "2024-01-10", records[0].Date.String())
	assert.Equal(suite.T(), core.Transport, records[0].Category)
	assert.Equal(suite.T(), "20.50", core.FormatAmount(records[0].AmountPrimary))
	assert.Equal(suite.T(), "54.74", core.FormatAmount(records[0].AmountSecondary))
}

func (suite *RepositoryTestSuite) TestCreateRejectsInvalid() {
	e := suite.newExpense("alice", "1", "1")
	e.Category = "Groceries"
	_, err := suite.repo.Create(suite.ctx, e)
	assert.ErrorIs(suite.T(), err, core.ErrInvalidCategory)
}

func (suite *RepositoryTestSuite) TestUpdate() {
	id, err := suite.repo.Create(suite.ctx, suite.newExpense("alice", "10", "26.7"))
	require.NoError(suite.T(), err)

	amount := decimal.RequireFromString("12")
	require.NoError(suite.T(), suite.repo.Update(suite.ctx, "alice", id, core.ExpensePatch{AmountPrimary: &amount}))

	records, err := suite.repo.ListExpenses(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), records, 1)
	assert.Equal(suite.T(), "12.00", core.FormatAmount(records[0].AmountPrimary))
	assert.Equal(suite.T(), "26.70", core.FormatAmount(records[0].AmountSecondary), "secondary amount is left alone")
	assert.True(suite.T(), records[0].UpdatedAt.After(records[0].CreatedAt))
}

func (suite *RepositoryTestSuite) TestUpdateNotFound() {
	id, err := suite.repo.Create(suite.ctx, suite.newExpense("alice", "10", "26.7"))
	require.NoError(suite.T(), err)

	desc := "x"
	assert.ErrorIs(suite.T(), suite.repo.Update(suite.ctx, "bob", id, core.ExpensePatch{Description: &desc}), core.ErrRecordNotFound)
	assert.ErrorIs(suite.T(), suite.repo.Update(suite.ctx, "alice", "missing", core.ExpensePatch{Description: &desc}), core.ErrRecordNotFound)
}

func (suite *RepositoryTestSuite) TestDelete() {
	id, err := suite.repo.Create(suite.ctx, suite.newExpense("alice", "10", "26.7"))
	require.NoError(suite.T(), err)

	assert.NoError(suite.T(), suite.repo.Delete(suite.ctx, "bob", id))
	records, _ := suite.repo.ListExpenses(suite.ctx, "alice")
	assert.Len(suite.T(), records, 1, "foreign delete must not remove the record")

	assert.NoError(suite.T(), suite.repo.Delete(suite.ctx, "alice", id))
	assert.NoError(suite.T(), suite.repo.Delete(suite.ctx, "alice", id), "deleting an absent id succeeds")
	records, _ = suite.repo.ListExpenses(suite.ctx, "alice")
	assert.Empty(suite.T(), records)
}

func (suite *RepositoryTestSuite) TestMalformedRowsAreSkipped() {
	_, err := suite.repo.Create(suite.ctx, suite.newExpense("alice", "10", "26.7"))
	require.NoError(suite.T(), err)

	bad := []struct {
		id, date, category, primary string
	}{
		{"bad-category", "2024-01-01", "Groceries", "1"},
		{"bad-date", "01/02/2024", "Food", "1"},
		{"bad-amount", "2024-01-01", "Food", "abc"},
		{"negative-amount", "2024-01-01", "Food", "-5"},
	}
	for _, b := range bad {
		_, err := suite.repo.db.Exec(`
INSERT INTO expenses (id, owner_id, date, category, description, amount_primary, amount_secondary, created_at, updated_at)
VALUES (?, 'alice', ?, ?, '', ?, '0', ?, ?)`, b.id, b.date, b.category, b.primary, time.Now().UnixNano(), time.Now().UnixNano())
		require.NoError(suite.T(), err, "insert %s", b.id)
	}

	records, err := suite.repo.ListExpenses(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), records, 1)
	assert.Equal(suite.T(), "train", records[0].Description)
}

func (suite *RepositoryTestSuite) TestSubscribe() {
	sub, err := suite.repo.Subscribe(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	defer sub.Close()

	select {
	case snap := <-sub.Snapshots():
		assert.Empty(suite.T(), snap)
	case <-time.After(2 * time.Second):
		suite.T().Fatal("no initial snapshot")
	}

	id, err := suite.repo.Create(suite.ctx, suite.newExpense("alice", "3", "8.01"))
	require.NoError(suite.T(), err)

	select {
	case snap := <-sub.Snapshots():
		require.Len(suite.T(), snap, 1)
		assert.Equal(suite.T(), id, snap[0].ID)
	case <-time.After(2 * time.Second):
		suite.T().Fatal("no snapshot after create")
	}

	require.NoError(suite.T(), sub.Close())
	assert.Equal(suite.T(), 0, suite.repo.Hub().Listeners("alice"))
}

func (suite *RepositoryTestSuite) TestProfiles() {
	_, ok, err := suite.repo.GetProfile(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	p, err := suite.repo.CreateProfile(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "alice", p.UserID)
	assert.NotNil(suite.T(), p.Connections)
	assert.Empty(suite.T(), p.Connections)

	again, err := suite.repo.CreateProfile(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), p.CreatedAt.Equal(again.CreatedAt), "CreateProfile keeps the existing profile")

	for _, target := range []string{"carol", "bob", "carol"} {
		require.NoError(suite.T(), suite.repo.AppendConnection(suite.ctx, "alice", target))
	}
	p, _, err = suite.repo.GetProfile(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"carol", "bob"}, p.Connections)

	require.NoError(suite.T(), suite.repo.RemoveConnection(suite.ctx, "alice", "carol"))
	require.NoError(suite.T(), suite.repo.RemoveConnection(suite.ctx, "alice", "carol"))
	p, _, err = suite.repo.GetProfile(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"bob"}, p.Connections)

	_, ok, err = suite.repo.GetProfile(suite.ctx, "bob")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok, "connections are not reciprocal")
}

func (suite *RepositoryTestSuite) TestAppendConnectionCreatesProfile() {
	require.NoError(suite.T(), suite.repo.AppendConnection(suite.ctx, "dave", "erin"))
	p, ok, err := suite.repo.GetProfile(suite.ctx, "dave")
	require.NoError(suite.T(), err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), []string{"erin"}, p.Connections)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestNewSQLiteRepository_FileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	id, err := repo.Create(ctx, core.NewExpense{
		OwnerID:         "alice",
		Date:            core.NewDate(2024, 2, 1),
		Category:        core.Rent,
		AmountPrimary:   decimal.RequireFromString("500"),
		AmountSecondary: decimal.RequireFromString("1335"),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(path)
	require.NoError(t, err, "migrations must be re-runnable")
	defer reopened.Close()

	records, err := reopened.ListExpenses(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
}

func TestNewSQLiteRepository_SharedFilePragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	var mode string
	require.NoError(t, repo.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, repo.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)

	// A second handle on the same file, as the worker process opens.
	other, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer other.Close()
	_, err = repo.Create(context.Background(), core.NewExpense{
		OwnerID:         "alice",
		Date:            core.NewDate(2024, 2, 1),
		Category:        core.Food,
		AmountPrimary:   decimal.RequireFromString("1"),
		AmountSecondary: decimal.RequireFromString("2.67"),
	})
	require.NoError(t, err)
	records, err := other.ListExpenses(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
