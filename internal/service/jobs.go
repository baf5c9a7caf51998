package service

// Job names carried on the queue.
const (
	JobCourseGradeRecompute = "course_grade.recompute"
	JobAnnouncementFanout   = "announcements.fanout"
	JobNotifyInApp          = "notifications.in_app"
	JobNotifyEmail          = "notifications.email"
	JobAccountCreate        = "accounts.create"
)

// CourseGradePayload identifies the course grade to recompute.
type CourseGradePayload struct {
	StudentID uint `json:"student_id"`
	CourseID  uint `json:"course_id"`
}

// FanoutPayload identifies the announcement to fan out.
type FanoutPayload struct {
	AnnouncementID uint `json:"announcement_id"`
}

// NotifyChunkPayload is one recipient chunk of an announcement.
type NotifyChunkPayload struct {
	AnnouncementID uint   `json:"announcement_id"`
	Chunk          int    `json:"chunk"`
	UserIDs        []uint `json:"user_ids"`
}

// AccountPayload identifies the approved application to turn into an account.
type AccountPayload struct {
	ApplicationID uint `json:"application_id"`
}
