package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutumi2011kt-gif/mulmochat/store"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
)

// testSessionStore runs the behaviour shared by all stores
func testSessionStore(t *testing.T, st store.SessionStore) {
	ctx := context.Background()

	_, err := st.Get(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
	require.NoError(t, st.Delete(ctx, "missing"))

	sess := tools.NewSessionContext("", tools.CapabilityMapKey)
	require.NoError(t, st.Create(ctx, sess))
	err = st.Create(ctx, tools.NewSessionContext(sess.ID))
	assert.True(t, errors.Is(err, store.ErrExists))

	got, err := st.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, tools.Capabilities{tools.CapabilityMapKey}, got.Capabilities)
	assert.Empty(t, got.Images())

	img1 := gofakeit.LetterN(32)
	img2 := gofakeit.LetterN(32)
	got.AppendImage(img1)
	got.AppendImage(img2)
	require.NoError(t, st.Save(ctx, got))

	got, err = st.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{img1, img2}, got.Images())
	assert.Equal(t, sess.CreatedAt.Unix(), got.CreatedAt.Unix())

	// overlapping tool calls on one session keep both images
	first, err := st.Get(ctx, sess.ID)
	require.NoError(t, err)
	second, err := st.Get(ctx, sess.ID)
	require.NoError(t, err)
	img3 := gofakeit.LetterN(32)
	img4 := gofakeit.LetterN(32)
	first.AppendImage(img3)
	second.AppendImage(img4)
	require.NoError(t, st.Save(ctx, first))
	require.NoError(t, st.Save(ctx, second))
	// saving again does not duplicate
	require.NoError(t, st.Save(ctx, second))

	got, err = st.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{img1, img2, img3, img4}, got.Images())

	other := tools.NewSessionContext("")
	require.NoError(t, st.Create(ctx, other))

	ids, err := st.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, sess.ID)
	assert.Contains(t, ids, other.ID)

	require.NoError(t, st.Delete(ctx, sess.ID))
	_, err = st.Get(ctx, sess.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	time.Sleep(10 * time.Millisecond)
	n, err := st.Cleanup(ctx, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n)
	_, err = st.Get(ctx, other.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func Test_MemoryStore(t *testing.T) {
	testSessionStore(t, store.NewMemoryStore(0))
}

func Test_MemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(20 * time.Millisecond)

	sess := tools.NewSessionContext("")
	require.NoError(t, st.Create(ctx, sess))

	got, err := st.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	time.Sleep(40 * time.Millisecond)
	_, err = st.Get(ctx, sess.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	ids, err := st.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// an expired ID can be reused
	require.NoError(t, st.Create(ctx, tools.NewSessionContext(sess.ID)))
}
