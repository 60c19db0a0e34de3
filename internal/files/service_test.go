package files

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharedrop/internal/apperr"
	"sharedrop/internal/database"
	"sharedrop/internal/database/dbtest"
	"sharedrop/internal/models"
	"sharedrop/internal/storage"
	"sharedrop/internal/user"
)

var testConfig database.Config

func TestMain(m *testing.M) {
	cfg, teardown, err := dbtest.MustStartPostgresContainer()
	if err != nil {
		log.Fatal().Err(err).Msg("could not start postgres container")
	}
	testConfig = cfg

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("could not teardown postgres container")
		}
	}
}

const testMaxSize = 1024

type testEnv struct {
	svc   *Service
	repo  Repository
	blobs *storage.LocalStorageProvider
	users user.Repository
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.Setup(t, testConfig)

	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	users := user.NewRepository(db)
	repo := NewRepository(db)
	return &testEnv{
		svc:   NewService(repo, blobs, user.NewService(users), testMaxSize),
		repo:  repo,
		blobs: blobs,
		users: users,
	}
}

func (e *testEnv) createUser(t *testing.T) uuid.UUID {
	t.Helper()
	suffix := uuid.New().String()[:8]
	u := &models.User{
		ID:           uuid.New(),
		Email:        "files-" + suffix + "@example.com",
		Username:     "files" + suffix,
		PasswordHash: "hashed_password",
		IsActive:     true,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u.ID
}

func (e *testEnv) upload(t *testing.T, owner uuid.UUID, name, content string) *models.FileRecord {
	t.Helper()
	file, err := e.svc.Upload(context.Background(), &UploadRequest{
		Body:     strings.NewReader(content),
		Filename: name,
		MimeType: "text/plain",
		Size:     int64(len(content)),
		OwnerID:  owner,
	})
	require.NoError(t, err)
	return file
}

func (e *testEnv) blobCount(t *testing.T) int {
	t.Helper()
	objects, err := e.blobs.List(context.Background(), "")
	require.NoError(t, err)
	return len(objects)
}

func readAll(t *testing.T, d *storage.Download) string {
	t.Helper()
	defer d.Body.Close()
	data, err := io.ReadAll(d.Body)
	require.NoError(t, err)
	return string(data)
}

func TestService_Upload(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	owner := env.createUser(t)

	t.Run("round trip", func(t *testing.T) {
		file := env.upload(t, owner, "notes.txt", "hello")
		assert.Equal(t, int64(5), file.Size)
		assert.Equal(t, "notes.txt", file.Filename)
		assert.Equal(t, "text/plain", file.MimeType)
		assert.Equal(t, owner, file.OwnerID)
		assert.False(t, file.IsPublic)
		assert.Nil(t, file.ShareID)
		assert.NotEqual(t, file.Filename, file.StoredName)

		d, err := env.svc.Download(ctx, file.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, "notes.txt", d.Filename)
		assert.Equal(t, int64(5), d.Size)
		assert.Equal(t, "hello", readAll(t, d))
	})

	t.Run("mime type is sniffed when missing", func(t *testing.T) {
		file, err := env.svc.Upload(ctx, &UploadRequest{
			Body:     bytes.NewReader([]byte("%PDF-1.4\n%...")),
			Filename: "doc.pdf",
			Size:     -1,
			OwnerID:  owner,
		})
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", file.MimeType)
	})

	tests := []struct {
		name     string
		req      *UploadRequest
		wantKind apperr.Kind
	}{
		{
			name:     "no owner",
			req:      &UploadRequest{Body: strings.NewReader("x"), Filename: "a.txt", Size: 1},
			wantKind: apperr.KindUnauthorized,
		},
		{
			name:     "empty payload",
			req:      &UploadRequest{Body: strings.NewReader(""), Filename: "a.txt", Size: 0, OwnerID: owner},
			wantKind: apperr.KindValidation,
		},
		{
			name:     "blank filename",
			req:      &UploadRequest{Body: strings.NewReader("x"), Filename: "  ", Size: 1, OwnerID: owner},
			wantKind: apperr.KindValidation,
		},
		{
			name:     "declared too large",
			req:      &UploadRequest{Body: strings.NewReader("x"), Filename: "a.txt", Size: testMaxSize + 1, OwnerID: owner},
			wantKind: apperr.KindPayloadTooLarge,
		},
		{
			name: "actual size too large",
			req: &UploadRequest{
				Body:     strings.NewReader(strings.Repeat("a", testMaxSize+10)),
				Filename: "a.txt",
				Size:     -1,
				OwnerID:  owner,
			},
			wantKind: apperr.KindPayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := env.blobCount(t)
			_, err := env.svc.Upload(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			assert.Equal(t, before, env.blobCount(t), "no blob may survive a rejected upload")
		})
	}
}

func TestService_RecordFailureRemovesBlob(t *testing.T) {
	env := setup(t)

	// Unknown owner violates the foreign key
	_, err := env.svc.Upload(context.Background(), &UploadRequest{
		Body:     strings.NewReader("data"),
		Filename: "a.txt",
		Size:     4,
		OwnerID:  uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Zero(t, env.blobCount(t))
}

func TestService_AccessControl(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	owner := env.createUser(t)
	other := env.createUser(t)
	file := env.upload(t, owner, "private.txt", "secret")

	_, err := env.svc.Download(ctx, file.ID, other)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.svc.GetDetails(ctx, file.ID, other)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	err = env.svc.Delete(ctx, file.ID, other)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.svc.IssueShareLink(ctx, file.ID, other)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.svc.GrantAccess(ctx, file.ID, other, []uuid.UUID{other})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.svc.Download(ctx, uuid.New(), owner)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_ShareLinks(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	owner := env.createUser(t)
	file := env.upload(t, owner, "public.txt", "shared bytes")

	first, err := env.svc.IssueShareLink(ctx, file.ID, owner)
	require.NoError(t, err)
	require.NotNil(t, first.ShareID)
	assert.True(t, first.IsPublic)

	t.Run("issuing twice is idempotent", func(t *testing.T) {
		second, err := env.svc.IssueShareLink(ctx, file.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, *first.ShareID, *second.ShareID)
	})

	t.Run("anonymous download", func(t *testing.T) {
		d, err := env.svc.DownloadShared(ctx, *first.ShareID)
		require.NoError(t, err)
		assert.Equal(t, "shared bytes", readAll(t, d))

		resolved, err := env.svc.Resolve(ctx, *first.ShareID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), resolved.DownloadCount)
	})

	t.Run("unknown share id", func(t *testing.T) {
		_, err := env.svc.Resolve(ctx, "0123456789abcdef")
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = env.svc.Resolve(ctx, "../../etc")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("revoked share is forbidden", func(t *testing.T) {
		revoked, err := env.svc.RevokeShareLink(ctx, file.ID, owner)
		require.NoError(t, err)
		assert.False(t, revoked.IsPublic)
		assert.Equal(t, *first.ShareID, *revoked.ShareID)

		_, err = env.svc.DownloadShared(ctx, *first.ShareID)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("re-issuing restores the same link", func(t *testing.T) {
		again, err := env.svc.IssueShareLink(ctx, file.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, *first.ShareID, *again.ShareID)
		assert.True(t, again.IsPublic)
	})
}

func TestService_GrantAccess(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	owner := env.createUser(t)
	alice := env.createUser(t)
	bob := env.createUser(t)
	file := env.upload(t, owner, "team.txt", "for the team")

	shared, err := env.svc.GrantAccess(ctx, file.ID, owner, []uuid.UUID{alice, alice, owner})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{alice}, shared)

	shared, err = env.svc.GrantAccess(ctx, file.ID, owner, []uuid.UUID{bob, alice})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{alice, bob}, shared)

	_, err = env.svc.GrantAccess(ctx, file.ID, owner, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	d, err := env.svc.Download(ctx, file.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, "for the team", readAll(t, d))

	mine, err := env.svc.ListSharedWithMe(ctx, bob)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, file.ID, mine[0].ID)

	details, err := env.svc.GetDetails(ctx, file.ID, owner)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{alice, bob}, details.SharedWith)

	// A grant does not make the file public
	assert.False(t, details.IsPublic)
}

func TestService_ListOwnedNewestFirst(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	owner := env.createUser(t)

	older := env.upload(t, owner, "older.txt", "1")
	time.Sleep(10 * time.Millisecond)
	newer := env.upload(t, owner, "newer.txt", "2")
	env.upload(t, env.createUser(t), "someone-else.txt", "3")

	files, err := env.svc.ListOwned(ctx, owner)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, newer.ID, files[0].ID)
	assert.Equal(t, older.ID, files[1].ID)
}

func TestService_Delete(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	owner := env.createUser(t)
	file := env.upload(t, owner, "gone.txt", "bye")

	require.NoError(t, env.svc.Delete(ctx, file.ID, owner))

	_, err := env.svc.Download(ctx, file.ID, owner)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, env.blobCount(t))

	err = env.svc.Delete(ctx, file.ID, owner)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_MissingBlobIsNotFound(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	owner := env.createUser(t)
	file := env.upload(t, owner, "lost.txt", "lost")

	require.NoError(t, env.blobs.Delete(ctx, file.BlobHandle))

	_, err := env.svc.Download(ctx, file.ID, owner)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
