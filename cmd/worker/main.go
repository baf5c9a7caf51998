package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/config"
	"github.com/noah-isme/gema-lms-api/internal/database"
	"github.com/noah-isme/gema-lms-api/internal/jobs"
	mailer "github.com/noah-isme/gema-lms-api/internal/mail"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/internal/utils"
	"github.com/noah-isme/gema-lms-api/pkg/lms"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "worker").Logger()

	if cfg.NATSURL == "" {
		log.Fatalf("GEMA_NATS_URL is required for the standalone worker")
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName+" worker", logger)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Drain()

	m, err := mailer.New(mailer.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.MailFromEmail,
		FromName:  cfg.MailFromName,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create mailer: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobQueue := queue.NewNATSQueue(natsConn, cfg.QueuePrefix, logger)
	validate := utils.NewValidator()

	courseRepo := repository.NewCourseRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)

	// Notifications published here reach API nodes through the NATS relay.
	notificationService := service.NewNotificationService(repository.NewNotificationRepository(db), redisClient, natsConn, cfg.QueuePrefix, validate, logger)
	courseGradeService := service.NewCourseGradeService(
		repository.NewCourseGradeRepository(db),
		courseRepo,
		repository.NewSubmissionRepository(db),
		repository.NewStudentRepository(db),
		jobQueue,
		redisClient,
		cfg.CourseGradeCacheTTL,
		logger,
	)

	worker := queue.NewWorker(jobQueue, logger)
	jobs.Register(worker, jobs.Dependencies{
		Queue:         jobQueue,
		Announcements: announcementRepo,
		Applications:  repository.NewApplicationRepository(db),
		Users:         repository.NewUserRepository(db),
		CourseGrades:  courseGradeService,
		Notifier:      notificationService,
		Mailer:        m,
		Mirror:        lms.New(cfg.LMSBaseURL, cfg.LMSToken),
		AdminEmail:    cfg.MailAdminEmail,
		ChunkSize:     cfg.FanoutChunkSize,
		InAppRate:     cfg.FanoutInAppRate,
		EmailRate:     cfg.FanoutEmailRate,
	}, logger)

	if err := jobQueue.Consume(ctx, worker, cfg.QueuePrefix+"-workers", cfg.QueueWorkers); err != nil {
		log.Fatalf("failed to start job consumers: %v", err)
	}

	<-ctx.Done()
	log.Println("worker stopped")
}
