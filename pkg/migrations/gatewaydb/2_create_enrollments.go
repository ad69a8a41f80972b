package gatewaydb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/openjms/biometric-gateway/pkg/enrollmentstore"
	mghelper "github.com/openjms/biometric-gateway/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating enrollments table...")
		if err := mghelper.CreateSchema(ctx, db, &enrollmentstore.RecordDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &enrollmentstore.RecordDao{}, "person_id", "modality")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping enrollments table...")
		return mghelper.DropTables(ctx, db, &enrollmentstore.RecordDao{})
	})
}
