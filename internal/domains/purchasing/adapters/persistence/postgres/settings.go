package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/approval"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

var _ ports.SettingsProvider = (*Settings)(nil)

const defaultSettingsKey = "default"

// Settings stores the workflow configuration as a single JSON row.
type Settings struct {
	db *gorm.DB
}

func NewSettings(db *gorm.DB) *Settings {
	return &Settings{db: db}
}

type settingsRecord struct {
	Key       string                `gorm:"primaryKey;column:key;size:64"`
	Config    domain.WorkflowConfig `gorm:"column:config;type:jsonb;serializer:json"`
	UpdatedAt time.Time             `gorm:"column:updated_at"`
}

func (settingsRecord) TableName() string { return "workflow_settings" }

// WorkflowConfig returns the stored configuration, or the defaults when none was saved.
func (s *Settings) WorkflowConfig(ctx context.Context) (domain.WorkflowConfig, error) {
	if err := s.ensureDB(); err != nil {
		return domain.WorkflowConfig{}, err
	}
	var record settingsRecord
	if err := s.db.WithContext(ctx).First(&record, "key = ?", defaultSettingsKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.DefaultWorkflowConfig(), nil
		}
		return domain.WorkflowConfig{}, err
	}
	return record.Config, nil
}

// Replace validates and upserts the configuration.
func (s *Settings) Replace(ctx context.Context, cfg domain.WorkflowConfig) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if err := approval.ValidateThresholds(cfg.Approval.Thresholds); err != nil {
		return err
	}
	record := settingsRecord{Key: defaultSettingsKey, Config: cfg, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"config", "updated_at"}),
		}).
		Create(&record).Error
}

func (s *Settings) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres workflow settings not configured")
	}
	return nil
}
