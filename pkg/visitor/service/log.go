package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openjms/biometric-gateway/pkg/visitor"
)

const serviceName = "VisitorService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the visit log Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) CheckIn(ctx context.Context, req CheckInRequest) (visit *visitor.Visit, err error) {
	start := time.Now()

	ls.logger.Info("CheckIn started",
		zap.String("service", serviceName),
		zap.String("method", "CheckIn"),
		zap.String("visitor_id", req.VisitorID),
		zap.String("pdl_id", req.PDLID),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("CheckIn failed",
				zap.String("service", serviceName),
				zap.String("method", "CheckIn"),
				zap.String("visitor_id", req.VisitorID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("CheckIn completed",
				zap.String("service", serviceName),
				zap.String("method", "CheckIn"),
				zap.String("visit_id", visit.ID),
				zap.String("visitor_id", visit.VisitorID),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.CheckIn(ctx, req)
}

func (ls *logService) CheckOutByQRCode(ctx context.Context, qrCode string) (visit *visitor.Visit, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("CheckOut failed",
				zap.String("service", serviceName),
				zap.String("method", "CheckOutByQRCode"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("CheckOut completed",
				zap.String("service", serviceName),
				zap.String("method", "CheckOutByQRCode"),
				zap.String("visit_id", visit.ID),
				zap.String("visitor_id", visit.VisitorID),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.CheckOutByQRCode(ctx, qrCode)
}

func (ls *logService) LookupByQRCode(ctx context.Context, qrCode string) (*visitor.Visit, error) {
	return ls.svc.LookupByQRCode(ctx, qrCode)
}

func (ls *logService) ListActive(ctx context.Context) ([]*visitor.Visit, error) {
	return ls.svc.ListActive(ctx)
}
