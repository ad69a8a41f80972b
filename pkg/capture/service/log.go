package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openjms/biometric-gateway/pkg/biometric"
	"github.com/openjms/biometric-gateway/pkg/bridge"
	"github.com/openjms/biometric-gateway/pkg/capture"
)

const serviceName = "CaptureService"

// logService wraps Service with automatic logging of all method calls.
// Templates are biometric data and are never logged; only flow metadata is.
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the capture Service.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) Capture(ctx context.Context, modality biometric.Modality, opts bridge.CaptureOptions) (flow *capture.Flow, err error) {
	start := time.Now()

	ls.logger.Info("Capture started",
		zap.String("service", serviceName),
		zap.String("method", "Capture"),
		zap.String("modality", string(modality)),
		zap.Int("fingers", len(opts.Fingers)),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Capture failed",
				zap.String("service", serviceName),
				zap.String("method", "Capture"),
				zap.String("modality", string(modality)),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Capture completed",
				zap.String("service", serviceName),
				zap.String("method", "Capture"),
				zap.String("modality", string(modality)),
				zap.String("flow_id", flow.ID),
				zap.Int("quality", flow.Quality),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Capture(ctx, modality, opts)
}

func (ls *logService) Enroll(ctx context.Context, flowID, personID string) (result *biometric.EnrollmentResult, err error) {
	start := time.Now()

	ls.logger.Info("Enroll started",
		zap.String("service", serviceName),
		zap.String("method", "Enroll"),
		zap.String("flow_id", flowID),
		zap.String("person_id", personID),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Enroll failed",
				zap.String("service", serviceName),
				zap.String("method", "Enroll"),
				zap.String("flow_id", flowID),
				zap.String("person_id", personID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Enroll completed",
				zap.String("service", serviceName),
				zap.String("method", "Enroll"),
				zap.String("flow_id", flowID),
				zap.String("person_id", personID),
				zap.String("reference_id", result.ReferenceID),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Enroll(ctx, flowID, personID)
}

func (ls *logService) Identify(ctx context.Context, flowID string) (result *biometric.IdentificationResult, err error) {
	start := time.Now()

	ls.logger.Info("Identify started",
		zap.String("service", serviceName),
		zap.String("method", "Identify"),
		zap.String("flow_id", flowID),
	)

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Identify failed",
				zap.String("service", serviceName),
				zap.String("method", "Identify"),
				zap.String("flow_id", flowID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			ls.logger.Info("Identify completed",
				zap.String("service", serviceName),
				zap.String("method", "Identify"),
				zap.String("flow_id", flowID),
				zap.String("person_id", result.PersonID),
				zap.Duration("duration", duration),
			)
		}
	}()

	return ls.svc.Identify(ctx, flowID)
}

func (ls *logService) GetFlow(ctx context.Context, flowID string) (*capture.Flow, error) {
	return ls.svc.GetFlow(ctx, flowID)
}

func (ls *logService) Devices(ctx context.Context) []DeviceStatus {
	return ls.svc.Devices(ctx)
}

func (ls *logService) Close(ctx context.Context) error {
	return ls.svc.Close(ctx)
}
