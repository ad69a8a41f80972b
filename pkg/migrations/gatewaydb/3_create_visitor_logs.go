package gatewaydb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	mghelper "github.com/openjms/biometric-gateway/pkg/pgutil/migrations"
	"github.com/openjms/biometric-gateway/pkg/visitorstore"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating visitor_logs table...")
		if err := mghelper.CreateSchema(ctx, db, &visitorstore.VisitDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateModelUniqueIndexes(ctx, db, &visitorstore.VisitDao{}, "qr_code"); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &visitorstore.VisitDao{}, "visitor_id", "pdl_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping visitor_logs table...")
		return mghelper.DropTables(ctx, db, &visitorstore.VisitDao{})
	})
}
