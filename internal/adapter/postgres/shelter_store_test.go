package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/couchcryptid/shelter-routing-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func newMockStore(t *testing.T) (*ShelterStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMock(t)
	return NewShelterStore(db), mock
}

func TestShelterStore_List(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "lat", "lng"}).
		AddRow("shelter-1", "SJK (T) Saraswathy", 3.1099, 101.6968).
		AddRow("shelter-2", "Sekolah Rendah Agama Seksyen 16", 3.0628, 101.5129)
	mock.ExpectQuery(`SELECT id, name, lat, lng FROM shelters ORDER BY id`).WillReturnRows(rows)

	shelters, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, shelters, 2)
	assert.Equal(t, domain.Shelter{
		ID:       "shelter-1",
		Name:     "SJK (T) Saraswathy",
		Position: domain.Coordinates{Lat: 3.1099, Lng: 101.6968},
	}, shelters[0])
}

func TestShelterStore_List_QueryError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT id, name, lat, lng FROM shelters`).WillReturnError(errors.New("relation does not exist"))

	_, err := store.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query shelters")
}

func TestShelterStore_List_RowError(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "name", "lat", "lng"}).
		AddRow("shelter-1", "A", 3.1, 101.6).
		RowError(0, errors.New("connection reset"))
	mock.ExpectQuery(`SELECT id, name, lat, lng FROM shelters`).WillReturnRows(rows)

	_, err := store.List(context.Background())
	require.Error(t, err)
}

func TestShelterStore_Get(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "name", "lat", "lng"}).
		AddRow("shelter-4", "SK Rantau Panjang, Klang", 3.0432, 101.4424)
	mock.ExpectQuery(`SELECT id, name, lat, lng FROM shelters WHERE id = (.+)`).
		WithArgs("shelter-4").
		WillReturnRows(rows)

	sh, err := store.Get(context.Background(), "shelter-4")
	require.NoError(t, err)
	assert.Equal(t, "SK Rantau Panjang, Klang", sh.Name)
	assert.InDelta(t, 101.4424, sh.Position.Lng, 1e-9)
}

func TestShelterStore_Get_NotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT id, name, lat, lng FROM shelters WHERE id = (.+)`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "lat", "lng"}))

	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrShelterNotFound)
}

func TestShelterStore_Get_Error(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT id, name, lat, lng FROM shelters WHERE id = (.+)`).
		WithArgs("shelter-1").
		WillReturnError(sqlmock.ErrCancelled)

	_, err := store.Get(context.Background(), "shelter-1")
	require.ErrorIs(t, err, sqlmock.ErrCancelled)
	assert.NotErrorIs(t, err, domain.ErrShelterNotFound)
}

func TestShelterStore_CheckReadiness(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("down"))

	require.NoError(t, store.CheckReadiness(context.Background()))
	err := store.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping postgres")
}
