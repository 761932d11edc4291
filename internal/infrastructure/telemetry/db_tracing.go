package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TraceDB installs the otelgorm plugin on db so every query becomes a child
// span of the request that issued it. Query variables are recorded only when
// withVars is set. It is a no-op while tracing is disabled.
func (tp *TracerProvider) TraceDB(db *gorm.DB, system string, withVars bool) error {
	if tp.provider == nil {
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(system),
		otelgorm.WithTracerProvider(tp.provider),
	}
	if !withVars {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return fmt.Errorf("failed to register otelgorm: %w", err)
	}

	tp.logger.Info("Database tracing enabled",
		zap.String("db_system", system),
		zap.Bool("query_variables", withVars),
	)
	return nil
}
