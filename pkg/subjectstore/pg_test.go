package subjectstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openjms/biometric-gateway/pkg/pgutil"
	mghelper "github.com/openjms/biometric-gateway/pkg/pgutil/migrations"
	"github.com/openjms/biometric-gateway/pkg/subject"
)

func TestPgStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers test in short mode")
	}

	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, mghelper.CreateSchema(ctx, db, &PersonDao{}))
	pgutil.AssertTableExists(t, db, "persons")

	store := NewStore(db)

	birthdate := time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC)
	person := &subject.Person{
		ID:        uuid.NewString(),
		Kind:      subject.KindPDL,
		FirstName: "Juan",
		LastName:  "Dela Cruz",
		Birthdate: &birthdate,
	}
	require.NoError(t, store.Create(ctx, person))

	t.Run("get", func(t *testing.T) {
		got, err := store.Get(ctx, person.ID)
		require.NoError(t, err)
		assert.Equal(t, subject.KindPDL, got.Kind)
		assert.Equal(t, "Juan", got.FirstName)
		require.NotNil(t, got.Birthdate)
		assert.True(t, got.Birthdate.Equal(birthdate))
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := store.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrPersonNotFound)
	})

	t.Run("list by kind", func(t *testing.T) {
		other := &subject.Person{
			ID:        uuid.NewString(),
			Kind:      subject.KindVisitor,
			FirstName: "Maria",
			LastName:  "Santos",
		}
		require.NoError(t, store.Create(ctx, other))

		pdls, err := store.List(ctx, subject.KindPDL)
		require.NoError(t, err)
		require.Len(t, pdls, 1)
		assert.Equal(t, person.ID, pdls[0].ID)

		all, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("update", func(t *testing.T) {
		person.LastName = "Dela Cruz Jr"
		require.NoError(t, store.Update(ctx, person))

		got, err := store.Get(ctx, person.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dela Cruz Jr", got.LastName)
	})

	t.Run("update missing", func(t *testing.T) {
		missing := &subject.Person{ID: uuid.NewString(), Kind: subject.KindPDL}
		assert.ErrorIs(t, store.Update(ctx, missing), ErrPersonNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, person.ID))
		_, err := store.Get(ctx, person.ID)
		assert.ErrorIs(t, err, ErrPersonNotFound)
	})
}
