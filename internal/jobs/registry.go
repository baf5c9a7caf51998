package jobs

import (
	"github.com/rs/zerolog"

	mailer "github.com/noah-isme/gema-lms-api/internal/mail"
	"github.com/noah-isme/gema-lms-api/internal/queue"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/service"
)

// Dependencies carries what the background handlers need.
type Dependencies struct {
	Queue         queue.Queue
	Announcements repository.AnnouncementRepository
	Applications  repository.ApplicationRepository
	Users         repository.UserRepository
	CourseGrades  CourseGradeRecomputer
	Notifier      service.Notifier
	Mailer        mailer.Mailer
	Mirror        AccountMirror
	AdminEmail    string
	ChunkSize     int
	InAppRate     int
	EmailRate     int
}

// Register attaches every background handler to w.
func Register(w *queue.Worker, deps Dependencies, logger zerolog.Logger) {
	w.Register(
		NewCourseGradeJob(deps.CourseGrades, logger),
		NewFanoutJob(deps.Announcements, deps.Users, deps.Queue, deps.ChunkSize, logger),
		NewInAppJob(deps.Announcements, deps.Notifier, deps.InAppRate, logger),
		NewEmailJob(deps.Announcements, deps.Users, deps.Mailer, deps.EmailRate, logger),
		NewAccountJob(deps.Applications, deps.Users, deps.Mirror, deps.Mailer, deps.AdminEmail, logger),
	)
}
