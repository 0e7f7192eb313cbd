package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockConfigsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresConfigsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresConfigsRepository(db, zap.NewNop())
	return db, mock, repo
}

func sampleSavedConfig() *SavedConfig {
	return &SavedConfig{
		UserID:         "user-1",
		Name:           "Living Room",
		LightType:      "ceiling",
		BaseType:       "round",
		BaseColor:      "Matte Black",
		ConnectorColor: "Brushed Brass",
		ConfigType:     "pendant",
		LightAmount:    3,
		Designs:        []string{"Cone", "Cone", "Globe"},
		CableSizes:     []int{3, 3, 5},
		Price:          405,
		Iframe: []string{
			"light_type:ceiling",
			"base_type:round",
			"light_amount:3",
			"cable_0:product_2",
			"cable_1:product_2",
			"cable_2:product_3",
		},
	}
}

func TestSaveConfig_Success(t *testing.T) {
	db, mock, repo := setupMockConfigsDB(t)
	defer db.Close()

	cfg := sampleSavedConfig()
	mock.ExpectExec(`INSERT INTO light_configs`).
		WithArgs(
			sqlmock.AnyArg(), // config_id
			sqlmock.AnyArg(), // user_id
			cfg.Name,
			cfg.LightType,
			sqlmock.AnyArg(), // base_type
			cfg.LightAmount,
			cfg.Price,
			sqlmock.AnyArg(), // payload
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	configID, err := repo.SaveConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, configID)
	_, err = uuid.Parse(configID)
	assert.NoError(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveConfig_RequiresName(t *testing.T) {
	db, _, repo := setupMockConfigsDB(t)
	defer db.Close()

	cfg := sampleSavedConfig()
	cfg.Name = ""

	_, err := repo.SaveConfig(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestGetConfig_Success(t *testing.T) {
	db, mock, repo := setupMockConfigsDB(t)
	defer db.Close()

	configID := uuid.New().String()
	payload := `{
		"base_color": "Matte Black",
		"connector_color": "Brushed Brass",
		"config_type": "pendant",
		"designs": ["Cone", "Cone", "Globe"],
		"cable_sizes": [3, 3, 5],
		"iframe": ["light_type:ceiling", "base_type:round", "light_amount:3"]
	}`

	rows := sqlmock.NewRows([]string{
		"config_id", "user_id", "name", "light_type", "base_type",
		"light_amount", "price", "payload", "created_at", "updated_at",
	}).AddRow(
		configID, "user-1", "Living Room", "ceiling", "round",
		3, 405.0, []byte(payload), time.Now(), time.Now(),
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs(configID).
		WillReturnRows(rows)

	cfg, err := repo.GetConfig(context.Background(), configID)
	require.NoError(t, err)
	assert.Equal(t, configID, cfg.ConfigID)
	assert.Equal(t, "user-1", cfg.UserID)
	assert.Equal(t, "Living Room", cfg.Name)
	assert.Equal(t, "ceiling", cfg.LightType)
	assert.Equal(t, "round", cfg.BaseType)
	assert.Equal(t, 3, cfg.LightAmount)
	assert.Equal(t, []string{"Cone", "Cone", "Globe"}, cfg.Designs)
	assert.Equal(t, []int{3, 3, 5}, cfg.CableSizes)
	assert.Equal(t, "light_type:ceiling", cfg.Iframe[0])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConfig_NotFound(t *testing.T) {
	db, mock, repo := setupMockConfigsDB(t)
	defer db.Close()

	configID := uuid.New().String()
	mock.ExpectQuery(`SELECT`).
		WithArgs(configID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetConfig(context.Background(), configID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListConfigsByUser_Success(t *testing.T) {
	db, mock, repo := setupMockConfigsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rows := sqlmock.NewRows([]string{
		"config_id", "name", "light_type", "light_amount", "price", "created_at",
	}).
		AddRow(uuid.New().String(), "Living Room", "ceiling", 6, 780.0, time.Now()).
		AddRow(uuid.New().String(), "Hallway", "wall", 1, 175.0, time.Now().Add(-time.Hour))

	mock.ExpectQuery(`SELECT`).
		WithArgs("user-1", 20, 0).
		WillReturnRows(rows)

	list, total, err := repo.ListConfigsByUser(context.Background(), "user-1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "Living Room", list[0].Name)
	assert.Equal(t, "Hallway", list[1].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListConfigsByUser_RequiresUser(t *testing.T) {
	db, _, repo := setupMockConfigsDB(t)
	defer db.Close()

	_, _, err := repo.ListConfigsByUser(context.Background(), "", 1, 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id is required")
}

func TestDeleteConfig_Success(t *testing.T) {
	db, mock, repo := setupMockConfigsDB(t)
	defer db.Close()

	configID := uuid.New().String()
	mock.ExpectExec(`DELETE FROM light_configs`).
		WithArgs(configID, "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteConfig(context.Background(), "user-1", configID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteConfig_NotFound(t *testing.T) {
	db, mock, repo := setupMockConfigsDB(t)
	defer db.Close()

	configID := uuid.New().String()
	mock.ExpectExec(`DELETE FROM light_configs`).
		WithArgs(configID, "user-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteConfig(context.Background(), "user-2", configID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
