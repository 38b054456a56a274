package domain

import (
	"time"

	"github.com/google/uuid"
)

// --- ENUM Types ---

// Platform identifies a supported social platform. The set is closed:
// dispatch selects a gateway implementation by this discriminator.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformThreads   Platform = "threads"
	PlatformYouTube   Platform = "youtube"
)

// Platforms lists every supported platform.
func Platforms() []Platform {
	return []Platform{PlatformInstagram, PlatformFacebook, PlatformThreads, PlatformYouTube}
}

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformInstagram, PlatformFacebook, PlatformThreads, PlatformYouTube:
		return true
	}
	return false
}

// ProcessingState tracks the automation claim on a comment. A comment can
// only move idle -> processing -> done; the conditional claim update in the
// store is what enforces single-flight processing per comment.
type ProcessingState string

const (
	ProcessingIdle ProcessingState = "idle"
	ProcessingBusy ProcessingState = "processing"
	ProcessingDone ProcessingState = "done"
)

// DMStatus is the delivery status of a direct message. Transitions are
// forward-only: pending -> sent -> opened -> clicked, or pending -> failed.
type DMStatus string

const (
	DMPending DMStatus = "pending"
	DMSent    DMStatus = "sent"
	DMFailed  DMStatus = "failed"
	DMOpened  DMStatus = "opened"
	DMClicked DMStatus = "clicked"
)

// rank orders DM statuses along the success path. failed is terminal and
// ranks outside the path.
func (s DMStatus) rank() int {
	switch s {
	case DMPending:
		return 0
	case DMSent:
		return 1
	case DMOpened:
		return 2
	case DMClicked:
		return 3
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next is a legal forward
// transition.
func (s DMStatus) CanAdvanceTo(next DMStatus) bool {
	if s == DMFailed || next == s {
		return false
	}
	if next == DMFailed {
		return s == DMPending
	}
	return next.rank() > s.rank()
}

type ResponseMethod string

const (
	ResponseManual ResponseMethod = "manual"
	ResponseAuto   ResponseMethod = "auto"
)

type ActivityType string

const (
	ActivityKeywordTriggered ActivityType = "keyword_triggered"
	ActivityCommentReplied   ActivityType = "comment_replied"
	ActivityDMSent           ActivityType = "dm_sent"
	ActivityError            ActivityType = "error"
)

type ActivityStatus string

const (
	ActivitySuccess ActivityStatus = "success"
	ActivityFailed  ActivityStatus = "failed"
)

// --- Base Structs ---

type BaseEntity struct {
	ID        int64     `db:"id"         json:"id"`
	UserID    uuid.UUID `db:"user_id"    json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
