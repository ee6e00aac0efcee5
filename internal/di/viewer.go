package di

import (
	"EnsembleView/internal/services/analytics"
	"EnsembleView/internal/usecase"
	pkgkafka "EnsembleView/pkg/kafka"
	"EnsembleView/pkg/logger"
)

// Viewer bundles what the terminal viewer needs. Producer is nil unless the
// stream runs over Kafka.
type Viewer struct {
	Log      *logger.Logger
	Session  *usecase.Session
	Calc     *analytics.Calculator
	Producer *pkgkafka.Producer
}
