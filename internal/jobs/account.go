package jobs

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	mailer "github.com/noah-isme/gema-lms-api/internal/mail"
	"github.com/noah-isme/gema-lms-api/internal/models"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/service"
	"github.com/noah-isme/gema-lms-api/pkg/lms"
)

// AccountMirror is the external LMS that receives new student accounts.
type AccountMirror interface {
	Configured() bool
	CreateAccount(ctx context.Context, account lms.Account) (string, error)
}

// EmailLookup finds an existing account by email.
type EmailLookup interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// AccountJob turns an approved admission application into a student account.
type AccountJob struct {
	applications repository.ApplicationRepository
	users        EmailLookup
	mirror       AccountMirror
	mailer       mailer.Mailer
	adminEmail   string
	logger       zerolog.Logger
	now          func() time.Time
	password     func() string
}

// NewAccountJob constructs the account creation handler.
func NewAccountJob(applications repository.ApplicationRepository, users EmailLookup, mirror AccountMirror, m mailer.Mailer, adminEmail string, logger zerolog.Logger) *AccountJob {
	return &AccountJob{
		applications: applications,
		users:        users,
		mirror:       mirror,
		mailer:       m,
		adminEmail:   strings.TrimSpace(adminEmail),
		logger:       logger.With().Str("component", "account_job").Logger(),
		now:          time.Now,
		password:     temporaryPassword,
	}
}

func (j *AccountJob) Name() string { return service.JobAccountCreate }

func (j *AccountJob) RetryPolicy() queue.RetryPolicy { return queue.StandardRetry() }

func (j *AccountJob) Handle(ctx context.Context, env queue.Envelope) error {
	var payload service.AccountPayload
	if err := env.Decode(&payload); err != nil {
		return queue.Delete(err)
	}

	application, err := j.applications.GetByID(ctx, payload.ApplicationID)
	if err != nil {
		if repository.IsNotFound(err) {
			return queue.Delete(fmt.Errorf("application %d: %w", payload.ApplicationID, service.ErrApplicationNotFound))
		}
		return err
	}

	logger := j.logger.With().Uint("application_id", application.ID).Logger()

	switch application.Status {
	case models.ApplicationStatusAccountCreated:
		logger.Info().Msg("account already created")
		return nil
	case models.ApplicationStatusApproved:
	default:
		return queue.Delete(fmt.Errorf("application %d is %s: %w", application.ID, application.Status, service.ErrApplicationNotReviewable))
	}

	existing, err := j.users.FindByEmail(ctx, application.Email)
	switch {
	case err == nil:
		return j.holdDuplicate(ctx, application, existing, logger)
	case !repository.IsNotFound(err):
		return fmt.Errorf("lookup email: %w", err)
	}

	password := j.password()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := j.now().UTC()
	user := models.User{
		Name:         application.FullName(),
		Email:        strings.ToLower(strings.TrimSpace(application.Email)),
		Role:         models.RoleStudent,
		Status:       models.UserStatusActive,
		PasswordHash: string(hash),
	}
	student := models.Student{
		ProgramID:     application.ProgramID,
		StudentNumber: StudentNumber(now, application.ID),
		Name:          application.FullName(),
		Email:         user.Email,
	}

	if err := j.applications.CreateAccount(ctx, application.ID, &user, &student, now); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	logger.Info().Uint("user_id", user.ID).Str("student_number", student.StudentNumber).Msg("student account created")

	j.mirrorAccount(ctx, application, user, student, logger)
	j.sendWelcome(ctx, user, student, password, logger)
	return nil
}

// Failed marks the application failed once retries are exhausted.
func (j *AccountJob) Failed(ctx context.Context, env queue.Envelope, err error) {
	var payload service.AccountPayload
	if decodeErr := env.Decode(&payload); decodeErr != nil {
		j.logger.Error().Err(decodeErr).Str("job_id", env.ID).Msg("undecodable account job failed")
		return
	}

	if updateErr := j.applications.UpdateStatus(ctx, payload.ApplicationID, models.ApplicationStatusFailed, truncate(err.Error(), 500)); updateErr != nil {
		j.logger.Error().Err(updateErr).Uint("application_id", payload.ApplicationID).Msg("failed to mark application failed")
		return
	}
	j.logger.Error().Err(err).Uint("application_id", payload.ApplicationID).Msg("account creation failed")
}

func (j *AccountJob) holdDuplicate(ctx context.Context, application models.StudentApplication, existing models.User, logger zerolog.Logger) error {
	note := fmt.Sprintf("email already registered to user %d", existing.ID)
	if err := j.applications.UpdateStatus(ctx, application.ID, models.ApplicationStatusPendingReview, note); err != nil {
		return err
	}

	logger.Warn().Uint("existing_user_id", existing.ID).Msg("duplicate email, application held for review")

	if j.adminEmail == "" {
		logger.Warn().Msg("no admin email configured for duplicate notice")
	} else {
		err := j.mailer.Send(ctx, mailer.Message{
			To:      mail.Address{Address: j.adminEmail},
			Subject: "Admission held for review: duplicate email",
			TextBody: fmt.Sprintf(
				"Application %d from %s <%s> was not converted into an account because the email already belongs to user %d.",
				application.ID, application.FullName(), application.Email, existing.ID,
			),
		})
		if err != nil {
			logger.Error().Err(err).Msg("failed to notify admin of duplicate email")
		}
	}

	return queue.Delete(service.ErrDuplicateEmail)
}

func (j *AccountJob) mirrorAccount(ctx context.Context, application models.StudentApplication, user models.User, student models.Student, logger zerolog.Logger) {
	if j.mirror == nil || !j.mirror.Configured() {
		logger.Debug().Msg("lms mirror not configured")
		return
	}

	account := lms.Account{
		ExternalID:    strconv.FormatUint(uint64(user.ID), 10),
		StudentNumber: student.StudentNumber,
		FirstName:     application.FirstName,
		LastName:      application.LastName,
		Email:         user.Email,
	}
	if application.ProgramID != nil {
		code, err := j.applications.ProgramCode(ctx, *application.ProgramID)
		if err != nil {
			logger.Warn().Err(err).Msg("program code lookup failed")
		}
		account.ProgramCode = code
	}

	remoteID, err := j.mirror.CreateAccount(ctx, account)
	if err != nil {
		logger.Warn().Err(err).Msg("lms mirror failed")
		return
	}
	if err := j.applications.MarkSynced(ctx, application.ID); err != nil {
		logger.Warn().Err(err).Msg("failed to flag lms sync")
		return
	}
	logger.Info().Str("lms_id", remoteID).Msg("account mirrored to lms")
}

func (j *AccountJob) sendWelcome(ctx context.Context, user models.User, student models.Student, password string, logger zerolog.Logger) {
	err := j.mailer.Send(ctx, mailer.Message{
		To:      mail.Address{Name: user.Name, Address: user.Email},
		Subject: "Welcome to GEMA",
		TextBody: fmt.Sprintf(
			"Hello %s,\n\nYour student account is ready.\nStudent number: %s\nTemporary password: %s\n\nPlease change your password after signing in.",
			user.Name, student.StudentNumber, password,
		),
	})
	if err != nil {
		logger.Error().Err(err).Msg("welcome email failed")
	}
}

// StudentNumber derives the enrolment number from the year and application id.
func StudentNumber(at time.Time, applicationID uint) string {
	return fmt.Sprintf("%d%06d", at.Year(), applicationID)
}

func temporaryPassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
