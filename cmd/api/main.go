package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/config"
	"github.com/noah-isme/gema-lms-api/internal/database"
	"github.com/noah-isme/gema-lms-api/internal/handler"
	"github.com/noah-isme/gema-lms-api/internal/jobs"
	mailer "github.com/noah-isme/gema-lms-api/internal/mail"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/router"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
	cloud "github.com/noah-isme/gema-lms-api/pkg/cloudinary"
	"github.com/noah-isme/gema-lms-api/pkg/lms"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api").Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Without NATS the API runs jobs itself on an in-process queue.
	var jobQueue queue.Queue
	var memoryQueue *queue.MemoryQueue
	if natsConn != nil {
		jobQueue = queue.NewNATSQueue(natsConn, cfg.QueuePrefix, logger)
	} else {
		memoryQueue = queue.NewMemoryQueue()
		jobQueue = memoryQueue
	}

	validate := utils.NewValidator()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)

	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	notificationService := service.NewNotificationService(repository.NewNotificationRepository(db), redisClient, natsConn, cfg.QueuePrefix, validate, logger)
	notificationService.Start(ctx)

	courseGradeService := service.NewCourseGradeService(repository.NewCourseGradeRepository(db), courseRepo, submissionRepo, studentRepo, jobQueue, redisClient, cfg.CourseGradeCacheTTL, logger)
	submissionService := service.NewSubmissionService(submissionRepo, courseRepo, studentRepo, uploader, validate, logger)
	gradingService := service.NewGradingService(submissionRepo, validate, notificationService, courseGradeService, activityService, logger)
	courseService := service.NewCourseService(courseRepo, validate, logger)
	progressService := service.NewProgressService(repository.NewProgressRepository(db), courseRepo, studentRepo, courseGradeService, activityService, validate, logger)
	announcementService := service.NewAnnouncementService(announcementRepo, jobQueue, validate, activityService, logger)
	admissionService := service.NewAdmissionService(applicationRepo, jobQueue, validate, activityService, logger)

	if memoryQueue != nil && cfg.WorkerEnabled {
		m, err := mailer.New(mailer.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.MailFromEmail,
			FromName:  cfg.MailFromName,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create mailer: %v", err)
		}

		worker := queue.NewWorker(memoryQueue, logger)
		jobs.Register(worker, jobs.Dependencies{
			Queue:         memoryQueue,
			Announcements: announcementRepo,
			Applications:  applicationRepo,
			Users:         userRepo,
			CourseGrades:  courseGradeService,
			Notifier:      notificationService,
			Mailer:        m,
			Mirror:        lms.New(cfg.LMSBaseURL, cfg.LMSToken),
			AdminEmail:    cfg.MailAdminEmail,
			ChunkSize:     cfg.FanoutChunkSize,
			InAppRate:     cfg.FanoutInAppRate,
			EmailRate:     cfg.FanoutEmailRate,
		}, logger)
		go memoryQueue.Run(ctx, worker)
		logger.Info().Strs("jobs", worker.Names()).Msg("in-process worker started")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.AllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, logger),
		GradingHandler:      handler.NewGradingHandler(gradingService, logger),
		CourseHandler:       handler.NewCourseHandler(courseService, courseGradeService, logger),
		ProgressHandler:     handler.NewProgressHandler(progressService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.StreamPingInterval),
		AnnouncementHandler: handler.NewAnnouncementHandler(announcementService, logger),
		AdmissionHandler:    handler.NewAdmissionHandler(admissionService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		HealthChecks: []handler.HealthDependency{
			{Name: "database", Check: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}},
			{Name: "redis", Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}},
		},
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
		AdmissionRateLimit: cfg.AdmissionRateLimit,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(ctx, app)
}

func waitForShutdown(ctx context.Context, app *fiber.App) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
