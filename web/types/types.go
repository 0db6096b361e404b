package types

import "time"

// Message roles.
const (
	RoleUser   = "user"
	RoleAigent = "aigent"
	RoleSystem = "system"
)

// Message status flavors. Normal messages are regular chat turns; info and
// error mark synthetic system notices.
const (
	StatusNormal = "normal"
	StatusInfo   = "info"
	StatusError  = "error"
)

// Aigent presentation formats reported by the server.
const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatRaw      = "raw"
)

// Celery task states as reported by the task status endpoint. TIMED_OUT is
// synthesized client-side when the poll budget runs out and never comes
// from the server.
const (
	TaskPending = "PENDING"
	TaskStarted = "STARTED"
	TaskRetry   = "RETRY"
	TaskSuccess = "SUCCESS"
	TaskFailure = "FAILURE"
)

// ChatMessage represents a single message in the chat. Immutable once
// rendered.
type ChatMessage struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status,omitempty"`
}

// Aigent is a configured persona profile the chat can target.
type Aigent struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	IsActive           bool   `json:"is_active"`
	PresentationFormat string `json:"presentation_format"`
}

// DefaultAigent is the safe fallback used before the first aigent list
// load completes, so the renderer never sees a nil persona.
func DefaultAigent() Aigent {
	return Aigent{Name: "Aigent", PresentationFormat: FormatMarkdown}
}

// User is the authenticated user's profile.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// TaskHandle is the submission response: the work itself is asynchronous,
// only the handle comes back synchronously.
type TaskHandle struct {
	TaskID string `json:"task_id"`
	Detail string `json:"detail,omitempty"`
}

// TaskResult is the payload of a successful task.
type TaskResult struct {
	AnswerToUser string `json:"answer_to_user"`
}

// TaskStatus is one poll response for an in-flight task.
type TaskStatus struct {
	TaskID       string      `json:"task_id"`
	Status       string      `json:"status"`
	Result       *TaskResult `json:"result,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// CalendarEvent is a read-only upcoming event entry.
type CalendarEvent struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}
