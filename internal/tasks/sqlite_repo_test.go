package tasks

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTempDB(t *testing.T) *SQLiteRepo {
	t.Helper()
	dir := t.TempDir()
	dsn, err := SQLiteFileDSN(filepath.Join(dir, "test.db"))
	require.NoError(t, err, "dsn error")

	repo, err := NewSQLiteRepo(dsn)
	require.NoError(t, err, "open error")
	t.Cleanup(func() {
		_ = repo.Close()
		_ = os.RemoveAll(dir)
	})
	require.NoError(t, repo.ApplyMigrations(context.Background()), "migrate error")
	return repo
}

func strPtr(s string) *string { return &s }

func TestSQLiteRepo_MigrationsIdempotent(t *testing.T) {
	repo := newTempDB(t)
	require.NoError(t, repo.ApplyMigrations(context.Background()))
	require.NoError(t, repo.Ping(context.Background()))
}

func TestSQLiteRepo_CreateDefaults(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateTask{})
	require.ErrorIs(t, err, ErrTitleRequired)

	a, err := repo.Create(ctx, CreateTask{Title: "A"})
	require.NoError(t, err)
	assert.Positive(t, a.ID)
	assert.Equal(t, "A", a.Title)
	assert.Nil(t, a.Description)
	assert.False(t, a.Completed)

	got, ok, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a, got)
}

func TestSQLiteRepo_CreateAndList(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, CreateTask{Title: "first", Description: strPtr("one")})
	require.NoError(t, err)
	b, err := repo.Create(ctx, CreateTask{Title: "second", Completed: Some(true)})
	require.NoError(t, err)
	require.Greater(t, b.ID, a.ID, "expected monotonic IDs")

	all, err := repo.FindAll(ctx, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Task{a, b}, all)

	yes, no := true, false
	done, err := repo.FindAll(ctx, &yes)
	require.NoError(t, err)
	open, err := repo.FindAll(ctx, &no)
	require.NoError(t, err)

	assert.Equal(t, []Task{b}, done)
	assert.Equal(t, []Task{a}, open)
	assert.ElementsMatch(t, all, append(done, open...))
}

func TestSQLiteRepo_FindAllEmpty(t *testing.T) {
	repo := newTempDB(t)

	list, err := repo.FindAll(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestSQLiteRepo_FindByIDMissing(t *testing.T) {
	repo := newTempDB(t)

	_, ok, err := repo.FindByID(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteRepo_UpdatePartial(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	orig, err := repo.Create(ctx, CreateTask{Title: "t", Description: strPtr("d")})
	require.NoError(t, err)

	got, ok, err := repo.Update(ctx, orig.ID, UpdateTask{Completed: Some(true)})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Task{ID: orig.ID, Title: "t", Description: strPtr("d"), Completed: true}, got)

	got, ok, err = repo.Update(ctx, orig.ID, UpdateTask{Title: Some("renamed"), Description: Null[string]()})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Task{ID: orig.ID, Title: "renamed", Completed: true}, got)

	stored, ok, err := repo.FindByID(ctx, orig.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, got, stored)

	same, ok, err := repo.Update(ctx, orig.ID, UpdateTask{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stored, same)
}

func TestSQLiteRepo_UpdateMissingDoesNotWrite(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	_, ok, err := repo.Update(ctx, 5, UpdateTask{Title: Some("ghost")})
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := repo.FindAll(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteRepo_UpdateRejectsInvalidPatch(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, CreateTask{Title: "keep"})
	require.NoError(t, err)

	_, _, err = repo.Update(ctx, a.ID, UpdateTask{Title: Null[string]()})
	require.ErrorIs(t, err, ErrInvalidPatch)

	got, _, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Title)
}

func TestSQLiteRepo_Delete(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, CreateTask{Title: "a"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, CreateTask{Title: "b"})
	require.NoError(t, err)

	ok, err := repo.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, found, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, found)

	ok, err = repo.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := repo.FindAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []Task{b}, list)

	c, err := repo.Create(ctx, CreateTask{Title: "c"})
	require.NoError(t, err)
	assert.Greater(t, c.ID, b.ID, "ids must not be recycled")
}

func TestSQLiteRepo_ConcurrentUpdatesLastWriteWins(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, CreateTask{Title: "race"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(done bool) {
			defer wg.Done()
			_, ok, err := repo.Update(ctx, a.ID, UpdateTask{Completed: Some(done)})
			assert.NoError(t, err)
			assert.True(t, ok)
		}(i%2 == 0)
	}
	wg.Wait()

	got, ok, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "race", got.Title)
}
