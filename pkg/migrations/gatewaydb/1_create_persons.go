package gatewaydb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/openjms/biometric-gateway/pkg/pgutil/migrations"
	"github.com/openjms/biometric-gateway/pkg/subjectstore"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating persons table...")
		if err := mghelper.CreateSchema(ctx, db, &subjectstore.PersonDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &subjectstore.PersonDao{}, "kind")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping persons table...")
		return mghelper.DropTables(ctx, db, &subjectstore.PersonDao{})
	})
}
