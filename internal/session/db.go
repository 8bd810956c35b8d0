package session

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/skinwise/internal/models"
	"github.com/example/skinwise/internal/utils"
)

// DBBackend persists device-scoped slots in Postgres. Values are sealed at
// rest and bound to their scope and key.
type DBBackend struct {
	db     *gorm.DB
	sealer *utils.Sealer
	logger *zap.Logger
}

// NewDBBackend builds a DBBackend.
func NewDBBackend(db *gorm.DB, sealer *utils.Sealer, logger *zap.Logger) *DBBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBBackend{db: db, sealer: sealer, logger: logger}
}

// Scope implements Backend.
func (b *DBBackend) Scope(id string) Storage {
	return &dbStorage{backend: b, scope: id}
}

type dbStorage struct {
	backend *DBBackend
	scope   string
}

func (s *dbStorage) binding(key string) string {
	return s.scope + "/" + key
}

func (s *dbStorage) Get(key string) (string, bool) {
	var row models.StoredValue
	err := s.backend.db.Where("scope = ? AND key = ?", s.scope, key).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.backend.logger.Warn("read session slot", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}

	value, err := s.backend.sealer.Open(row.Value, s.binding(key))
	if err != nil {
		// Sealed with a rotated secret or tampered with; treat as unset.
		s.backend.logger.Warn("open session slot", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return value, true
}

func (s *dbStorage) Set(key, value string) error {
	sealed, err := s.backend.sealer.Seal(value, s.binding(key))
	if err != nil {
		return err
	}

	row := models.StoredValue{Scope: s.scope, Key: key, Value: sealed}
	return s.backend.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}, {Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      sealed,
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
}

func (s *dbStorage) Remove(key string) error {
	return s.backend.db.Where("scope = ? AND key = ?", s.scope, key).
		Delete(&models.StoredValue{}).Error
}
