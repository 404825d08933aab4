// Package migrations embeds the schema so the service and integration tests
// apply the same SQL.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/availability/libs/db"
)

//go:embed *.sql
var files embed.FS

// Apply runs every embedded file in name order inside one transaction. The
// statements are idempotent, so Apply is safe on an already migrated database.
func Apply(ctx context.Context, pool *db.Pool) error {
	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	return pool.InTx(ctx, func(tx pgx.Tx) error {
		for _, name := range names {
			sql, err := files.ReadFile(name)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, string(sql)); err != nil {
				return fmt.Errorf("apply %s: %w", name, err)
			}
		}
		return nil
	})
}
