package service

import (
	"github.com/routewatch/backend/internal/domain"
)

// MonitorRepository is re-exported from domain for convenience
type MonitorRepository = domain.MonitorRepository
