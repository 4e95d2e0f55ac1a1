package container

import (
	"github.com/sirupsen/logrus"

	"damage-detect/config"
	app "damage-detect/internal/application"
	"damage-detect/internal/domain/port"
)

type Container struct {
	SessionService   *app.SessionService
	DetectionService *app.DetectionService
	Dashboard        app.Dashboard
}

func New(
	cfg *config.Config,
	sessionRepo port.SessionRepository,
	detector port.DamageDetector,
	prober port.VideoProber,
	renderer port.OverlayRenderer,
	logger *logrus.Logger,
) *Container {
	sessionService := app.NewSessionService(sessionRepo)
	detectionService := app.NewDetectionService(
		sessionService,
		detector,
		prober,
		renderer,
		app.FileRules{Pattern: cfg.ImageAccept, MaxBytes: cfg.ImageMaxBytes},
		app.FileRules{Pattern: cfg.VideoAccept, MaxBytes: cfg.VideoMaxBytes},
		logger,
	)

	return &Container{
		SessionService:   sessionService,
		DetectionService: detectionService,
		Dashboard:        app.NewDashboard(),
	}
}
