package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"grillstream/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockDeviceRepo(t *testing.T) (*DeviceSQLite, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	repo := NewDeviceSQLite(mockDB)
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
		_ = mockDB.Close()
	}
	return repo, mock, cleanup
}

func TestDeviceSQLite_Create_InsertsDeviceAndChannels(t *testing.T) {
	repo, mock, cleanup := newMockDeviceRepo(t)
	defer cleanup()

	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	dev := models.Device{
		ID:        "dev-1",
		Name:      "Backyard Smoker",
		Simulated: true,
		CreatedAt: created,
		Channels: []models.Channel{
			{ID: "ch-1", DeviceID: "dev-1", Name: "Brisket Flat", ProbeType: models.ProbeFood, Unit: models.UnitFahrenheit},
			{ID: "ch-2", DeviceID: "dev-1", Name: "Pit", ProbeType: models.ProbeAmbient, Unit: models.UnitFahrenheit},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertDeviceSQL)).
		WithArgs("dev-1", "Backyard Smoker", true, "", created).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertChannelSQL)).
		WithArgs("ch-1", "dev-1", "Brisket Flat", models.ProbeFood, models.UnitFahrenheit).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertChannelSQL)).
		WithArgs("ch-2", "dev-1", "Pit", models.ProbeAmbient, models.UnitFahrenheit).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Create(context.Background(), dev); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestDeviceSQLite_Get(t *testing.T) {
	repo, mock, cleanup := newMockDeviceRepo(t)
	defer cleanup()

	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(selectDeviceSQL)).
		WithArgs("dev-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "simulated", "address", "created_at"}).
			AddRow("dev-1", "Backyard Smoker", true, nil, created))
	mock.ExpectQuery(regexp.QuoteMeta(selectChannelsSQL)).
		WithArgs("dev-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "device_id", "name", "probe_type", "unit"}).
			AddRow("ch-1", "dev-1", "Brisket Flat", models.ProbeFood, models.UnitFahrenheit))

	got, err := repo.Get(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected device, got nil")
	}
	if len(got.Channels) != 1 || got.Channels[0].ID != "ch-1" {
		t.Fatalf("channels not attached: %+v", got.Channels)
	}
}

func TestDeviceSQLite_Get_NotFound(t *testing.T) {
	repo, mock, cleanup := newMockDeviceRepo(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectDeviceSQL)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "simulated", "address", "created_at"}))

	got, err := repo.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing device, got %+v", got)
	}
}
