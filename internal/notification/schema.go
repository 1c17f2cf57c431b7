package notification

import (
	"database/sql"
	"embed"
	"fmt"

	"go.uber.org/zap"

	"github.com/nao1215/timeand-notifier/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// initSchema 는 SQLite 데이터베이스에 마이그레이션을 적용한다.
func initSchema(db *sql.DB, log *zap.Logger) error {
	if err := migration.Run(db, migrationsFS, "migrations", log); err != nil {
		return fmt.Errorf("스키마 적용 실패: %w", err)
	}
	return nil
}
