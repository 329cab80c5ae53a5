package memory

import (
	"context"
	"sync"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/approval"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/ports"
)

var _ ports.SettingsProvider = (*Settings)(nil)

// Settings holds a workflow configuration in memory.
type Settings struct {
	mu  sync.RWMutex
	cfg domain.WorkflowConfig
}

// NewSettings starts from the default workflow configuration.
func NewSettings() *Settings {
	return &Settings{cfg: domain.DefaultWorkflowConfig()}
}

func (s *Settings) WorkflowConfig(context.Context) (domain.WorkflowConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, nil
}

// Replace swaps the configuration after checking threshold consistency.
func (s *Settings) Replace(cfg domain.WorkflowConfig) error {
	if err := approval.ValidateThresholds(cfg.Approval.Thresholds); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}
