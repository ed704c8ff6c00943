package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menufeed/menufeed/internal/common"
	"github.com/menufeed/menufeed/internal/interfaces"
	"github.com/menufeed/menufeed/internal/storage/badger"
)

func newTestSink(t *testing.T) (*Sink, interfaces.StorageManager) {
	t.Helper()

	manager, err := badger.NewManager(common.GetLogger(), &common.BadgerConfig{
		Path: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	config := &common.StorageConfig{
		Bucket:       "food-menus",
		ObjectPrefix: "menus",
	}
	return NewSink(config, manager, common.GetLogger()), manager
}

func TestStoreWritesObjectAndRecord(t *testing.T) {
	sink, manager := newTestSink(t)
	ctx := context.Background()

	data := []byte{0x89, 0x50, 0x4E, 0x47}
	now := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)

	path, err := sink.Store(ctx, data, now)
	require.NoError(t, err)
	assert.Equal(t, "menus/food_menu_2026-09-01.png", path)

	obj, err := manager.ObjectStorage().Get(ctx, "food-menus", path)
	require.NoError(t, err)
	assert.Equal(t, data, obj.Data)
	assert.Equal(t, "image/png", obj.ContentType)

	record, err := manager.MenuStorage().GetLatestByFileName(ctx, "food_menu_2026-09-01.png")
	require.NoError(t, err)
	assert.Equal(t, path, record.StoragePath)
	assert.Equal(t, now, record.UploadDate.UTC())
}

func TestStoreSameDayOverwritesObjectAppendsRecord(t *testing.T) {
	sink, manager := newTestSink(t)
	ctx := context.Background()

	now := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)

	_, err := sink.Store(ctx, []byte("morning upload"), now)
	require.NoError(t, err)
	path, err := sink.Store(ctx, []byte("corrected upload"), now)
	require.NoError(t, err)

	obj, err := manager.ObjectStorage().Get(ctx, "food-menus", path)
	require.NoError(t, err)
	assert.Equal(t, []byte("corrected upload"), obj.Data, "object is upserted")

	count, err := manager.MenuStorage().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "records append on rerun")
}
