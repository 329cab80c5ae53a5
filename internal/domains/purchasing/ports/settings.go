package ports

import (
	"context"

	"github.com/Apurer/backoffice-purchasing/internal/domains/purchasing/domain"
)

// SettingsProvider loads the workflow configuration snapshot for one request.
type SettingsProvider interface {
	WorkflowConfig(ctx context.Context) (domain.WorkflowConfig, error)
}
