package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/healthmate/server/internal/models"
	"github.com/healthmate/server/internal/storage"
	"github.com/healthmate/server/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type failingStore struct {
	storage.ContentStore
	putErr    error
	existsErr error
}

func (f *failingStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.ContentStore.Put(ctx, key, r, size, contentType)
}

func (f *failingStore) Exists(ctx context.Context, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.ContentStore.Exists(ctx, key)
}

type ingestionFixture struct {
	db    *gorm.DB
	store *storage.LocalStore
	svc   *IngestionService
	owner *models.User
}

func newIngestionFixture(t *testing.T) *ingestionFixture {
	t.Helper()

	db := setupTestDB(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	return &ingestionFixture{
		db:    db,
		store: store,
		svc:   NewIngestionService(db, store, NewDocumentService(db), time.Hour),
		owner: createTestUser(t, db, "ann@x.com"),
	}
}

func (f *ingestionFixture) stage(t *testing.T, name string, data []byte) *models.StagedUpload {
	t.Helper()

	staged, err := f.svc.Stage(context.Background(), f.owner.ID, name, "application/pdf", int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)
	return staged
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestIngestionService_Stage(t *testing.T) {
	ctx := context.Background()

	t.Run("writes bytes under an owner-scoped unique key", func(t *testing.T) {
		f := newIngestionFixture(t)
		data := testutil.BuildPDF([]string{"Hemoglobin 13.5"})

		first := f.stage(t, "labs.pdf", data)
		second := f.stage(t, "labs.pdf", data)

		require.NotEqual(t, first.FilePath, second.FilePath)
		require.True(t, strings.HasPrefix(first.FilePath, ownerPrefix(f.owner.ID)))
		require.True(t, strings.HasSuffix(first.FilePath, "_labs.pdf"))
		require.Equal(t, "labs.pdf", first.FileName)
		require.Equal(t, int64(len(data)), first.Size)
		require.WithinDuration(t, first.CreatedAt.Add(time.Hour), first.ExpiresAt, time.Second)

		exists, err := f.store.Exists(ctx, first.FilePath)
		require.NoError(t, err)
		require.True(t, exists)

		require.Equal(t, int64(2), countRows(t, f.db, &models.StagedUpload{}))
		require.Zero(t, countRows(t, f.db, &models.Document{}))
	})

	t.Run("strips directories from the uploaded name", func(t *testing.T) {
		f := newIngestionFixture(t)

		staged := f.stage(t, "../../etc/labs.pdf", []byte("%PDF-1.4"))
		require.Equal(t, "labs.pdf", staged.FileName)
		require.False(t, strings.Contains(staged.FilePath, ".."))
	})

	t.Run("accepts pdf content type without extension", func(t *testing.T) {
		f := newIngestionFixture(t)

		_, err := f.svc.Stage(ctx, f.owner.ID, "scan", "application/pdf; charset=binary", 3, strings.NewReader("pdf"))
		require.NoError(t, err)
	})

	t.Run("rejects non-pdf uploads", func(t *testing.T) {
		f := newIngestionFixture(t)

		_, err := f.svc.Stage(ctx, f.owner.ID, "notes.txt", "text/plain", 5, strings.NewReader("hello"))
		require.ErrorIs(t, err, ErrValidation)
		_, err = f.svc.Stage(ctx, f.owner.ID, "", "application/pdf", 0, strings.NewReader(""))
		require.ErrorIs(t, err, ErrValidation)
		require.Zero(t, countRows(t, f.db, &models.StagedUpload{}))
	})

	t.Run("storage failure records nothing", func(t *testing.T) {
		f := newIngestionFixture(t)
		f.svc.Store = &failingStore{ContentStore: f.store, putErr: errors.New("disk full")}

		_, err := f.svc.Stage(ctx, f.owner.ID, "labs.pdf", "application/pdf", 3, strings.NewReader("pdf"))
		require.ErrorIs(t, err, ErrStorageIO)
		require.Zero(t, countRows(t, f.db, &models.StagedUpload{}))
	})
}

func TestIngestionService_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("registers the staged upload and clears staging", func(t *testing.T) {
		f := newIngestionFixture(t)
		staged := f.stage(t, "labs.pdf", []byte("%PDF-1.4"))

		doc, err := f.svc.Confirm(ctx, f.owner.ID, "Blood work", staged.FilePath)
		require.NoError(t, err)
		require.Equal(t, "Blood work", doc.FileName)
		require.Equal(t, staged.FilePath, doc.FilePath)
		require.Equal(t, f.owner.ID, doc.UserID)

		docs, err := f.svc.Documents.ListForOwner(ctx, f.owner.ID)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		require.Zero(t, countRows(t, f.db, &models.StagedUpload{}))
	})

	t.Run("empty display name falls back to the uploaded name", func(t *testing.T) {
		f := newIngestionFixture(t)
		staged := f.stage(t, "labs.pdf", []byte("%PDF-1.4"))

		doc, err := f.svc.Confirm(ctx, f.owner.ID, " ", staged.FilePath)
		require.NoError(t, err)
		require.Equal(t, "labs.pdf", doc.FileName)
	})

	t.Run("confirming twice fails the second time", func(t *testing.T) {
		f := newIngestionFixture(t)
		staged := f.stage(t, "labs.pdf", []byte("%PDF-1.4"))

		_, err := f.svc.Confirm(ctx, f.owner.ID, "", staged.FilePath)
		require.NoError(t, err)
		_, err = f.svc.Confirm(ctx, f.owner.ID, "", staged.FilePath)
		require.ErrorIs(t, err, ErrStagedUploadNotFound)
		require.Equal(t, int64(1), countRows(t, f.db, &models.Document{}))
	})

	t.Run("location outside the owner's namespace is refused", func(t *testing.T) {
		f := newIngestionFixture(t)
		other := createTestUser(t, f.db, "bob@x.com")
		staged := f.stage(t, "labs.pdf", []byte("%PDF-1.4"))

		_, err := f.svc.Confirm(ctx, other.ID, "", staged.FilePath)
		require.ErrorIs(t, err, ErrStagedUploadNotFound)
		require.Zero(t, countRows(t, f.db, &models.Document{}))
	})

	t.Run("unknown location is refused", func(t *testing.T) {
		f := newIngestionFixture(t)

		_, err := f.svc.Confirm(ctx, f.owner.ID, "", ownerPrefix(f.owner.ID)+"missing.pdf")
		require.ErrorIs(t, err, ErrStagedUploadNotFound)
	})

	t.Run("missing bytes register nothing", func(t *testing.T) {
		f := newIngestionFixture(t)
		staged := f.stage(t, "labs.pdf", []byte("%PDF-1.4"))
		require.NoError(t, f.store.Delete(ctx, staged.FilePath))

		_, err := f.svc.Confirm(ctx, f.owner.ID, "", staged.FilePath)
		require.ErrorIs(t, err, ErrStorageIO)
		require.Zero(t, countRows(t, f.db, &models.Document{}))
	})

	t.Run("storage error registers nothing", func(t *testing.T) {
		f := newIngestionFixture(t)
		staged := f.stage(t, "labs.pdf", []byte("%PDF-1.4"))
		f.svc.Store = &failingStore{ContentStore: f.store, existsErr: errors.New("bucket unreachable")}

		_, err := f.svc.Confirm(ctx, f.owner.ID, "", staged.FilePath)
		require.ErrorIs(t, err, ErrStorageIO)
		require.Zero(t, countRows(t, f.db, &models.Document{}))
		require.Equal(t, int64(1), countRows(t, f.db, &models.StagedUpload{}))
	})
}

func TestIngestionService_ReadText(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts text from a stored pdf", func(t *testing.T) {
		f := newIngestionFixture(t)
		staged := f.stage(t, "labs.pdf", testutil.BuildPDF([]string{"Glucose 92", "Cholesterol 180"}))

		text, err := f.svc.ReadText(ctx, staged.FilePath)
		require.NoError(t, err)
		require.Contains(t, text, "Glucose 92")
		require.Contains(t, text, "Cholesterol 180")
	})

	t.Run("unparseable content is an extraction failure", func(t *testing.T) {
		f := newIngestionFixture(t)
		staged := f.stage(t, "broken.pdf", []byte("this is not really a pdf"))

		_, err := f.svc.ReadText(ctx, staged.FilePath)
		require.ErrorIs(t, err, ErrExtractionFailed)
	})

	t.Run("missing content is a storage failure", func(t *testing.T) {
		f := newIngestionFixture(t)

		_, err := f.svc.ReadText(ctx, "1/nothing.pdf")
		require.ErrorIs(t, err, ErrStorageIO)
	})
}

func TestIngestionService_SweepExpired(t *testing.T) {
	ctx := context.Background()
	f := newIngestionFixture(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }
	old := f.stage(t, "old.pdf", []byte("%PDF-1.4"))

	f.svc.now = func() time.Time { return base.Add(50 * time.Minute) }
	fresh := f.stage(t, "fresh.pdf", []byte("%PDF-1.4"))
	confirmedStage := f.stage(t, "kept.pdf", []byte("%PDF-1.4"))
	confirmed, err := f.svc.Confirm(ctx, f.owner.ID, "", confirmedStage.FilePath)
	require.NoError(t, err)

	removed, err := f.svc.SweepExpired(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	exists, err := f.store.Exists(ctx, old.FilePath)
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = f.store.Exists(ctx, fresh.FilePath)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = f.store.Exists(ctx, confirmed.FilePath)
	require.NoError(t, err)
	require.True(t, exists)

	var remaining []models.StagedUpload
	require.NoError(t, f.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, fresh.FilePath, remaining[0].FilePath)

	t.Run("sweeper goroutine stops with its context", func(t *testing.T) {
		sweepCtx, cancel := context.WithCancel(ctx)
		f.svc.now = func() time.Time { return base.Add(48 * time.Hour) }
		f.svc.StartSweeper(sweepCtx, 10*time.Millisecond)

		require.Eventually(t, func() bool {
			var n int64
			if err := f.db.Model(&models.StagedUpload{}).Count(&n).Error; err != nil {
				return false
			}
			return n == 0
		}, 2*time.Second, 20*time.Millisecond)
		cancel()

		require.Equal(t, int64(1), countRows(t, f.db, &models.Document{}))
	})
}

func TestIngestionService_ConcurrentConfirm(t *testing.T) {
	ctx := context.Background()
	f := newIngestionFixture(t)
	staged := f.stage(t, "labs.pdf", []byte("%PDF-1.4 labs"))

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Confirm(ctx, f.owner.ID, "Labs", staged.FilePath)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, ErrStagedUploadNotFound) && !errors.Is(err, ErrDuplicateLocation) {
			t.Fatalf("unexpected confirm error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.EqualValues(t, 1, countRows(t, f.db, &models.Document{}))
	require.EqualValues(t, 0, countRows(t, f.db, &models.StagedUpload{}))
}
