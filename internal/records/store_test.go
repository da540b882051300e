package records

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock hands out strictly increasing timestamps.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)}
}

func runStoreContract(t *testing.T, st Store, clock *fakeClock) {
	t.Helper()
	ctx := context.Background()

	_, err := st.Insert(ctx, Record{Equipment: "Linde H25", Problem: "", Solution: "x"})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	first, err := st.Insert(ctx, Record{Equipment: "Linde H25", Problem: "motor não liga", Solution: "trocar relé"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())

	for i := 0; i < 6; i++ {
		_, err := st.Insert(ctx, Record{Equipment: "Linde H25", Problem: "vazamento hidráulico", Solution: "vedação"})
		require.NoError(t, err)
	}
	_, err = st.Insert(ctx, Record{Equipment: "linde h25", Problem: "freio", Solution: "pastilhas"})
	require.NoError(t, err)

	recent, err := st.FindRecent(ctx, "Linde H25", 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	for i := 1; i < len(recent); i++ {
		assert.False(t, recent[i].Timestamp.After(recent[i-1].Timestamp), "not newest first: %+v", recent)
	}
	for _, r := range recent {
		assert.Equal(t, "Linde H25", r.Equipment, "equipment match must be case-sensitive")
	}

	none, err := st.FindRecent(ctx, "Hyster", 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := st.ListSince(ctx, first.Timestamp)
	require.NoError(t, err)
	require.Len(t, all, 8)
	assert.Equal(t, first.ID, all[0].ID)

	later, err := st.ListSince(ctx, clock.t)
	require.NoError(t, err)
	require.Len(t, later, 1)
	assert.Equal(t, "freio", later[0].Problem)
}

func TestFileStore(t *testing.T) {
	st, err := NewFileStore(filepath.Join(t.TempDir(), "records.jsonl"))
	require.NoError(t, err)
	clock := newClock()
	st.now = clock.now
	runStoreContract(t, st, clock)
}

func TestSQLiteStore(t *testing.T) {
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	clock := newClock()
	st.now = clock.now
	runStoreContract(t, st, clock)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	st, err := NewPostgresStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	_, err = st.db.Exec(`DELETE FROM maintenance_records`)
	require.NoError(t, err)
	clock := newClock()
	st.now = clock.now
	runStoreContract(t, st, clock)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}
	ctx := context.Background()
	st, err := NewMongoStore(ctx, uri, "forklift_test", "records_"+time.Now().Format("150405"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.coll.Drop(ctx)
		_ = st.Close(ctx)
	})
	clock := newClock()
	st.now = clock.now
	runStoreContract(t, st, clock)
}

func TestSQLStore_BindsDollarPlaceholders(t *testing.T) {
	s := &sqlStore{dollarPH: true}
	assert.Equal(t, "a = $1 AND b = $2", s.bind("a = ? AND b = ?"))
	s.dollarPH = false
	assert.Equal(t, "a = ?", s.bind("a = ?"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "cassandra"})
	assert.Error(t, err)
}

func TestOpen_File(t *testing.T) {
	st, err := Open(context.Background(), Options{Driver: "FILE", FilePath: filepath.Join(t.TempDir(), "r.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, st)
}
