package db

import (
	"encoding/json"
	"time"
)

// LibraryEntryModel maps backlog.library_entries.
type LibraryEntryModel struct {
	EntryID              int64           `gorm:"column:entry_id;primaryKey;autoIncrement"`
	EntryUUID            string          `gorm:"column:entry_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	CanonicalGameID      *string         `gorm:"column:canonical_game_id;type:text"`
	Title                string          `gorm:"column:title;type:text;not null"`
	NormalizedTitle      string          `gorm:"column:normalized_title;type:text;not null"`
	Platform             string          `gorm:"column:platform;type:text;not null"`
	PlatformItemID       *string         `gorm:"column:platform_item_id;type:text"`
	CoverURL             *string         `gorm:"column:cover_url;type:text"`
	PlaytimeHours        float64         `gorm:"column:playtime_hours;type:double precision;not null;default:0"`
	AchievementsEarned   int             `gorm:"column:achievements_earned;type:integer;not null;default:0"`
	AchievementsTotal    int             `gorm:"column:achievements_total;type:integer;not null;default:0"`
	CompletionPercentage float64         `gorm:"column:completion_percentage;type:double precision;not null;default:0"`
	LastPlayedAt         *time.Time      `gorm:"column:last_played_at;type:timestamptz"`
	Status               string          `gorm:"column:status;type:backlog.entry_status;not null;default:unplayed"`
	Priority             string          `gorm:"column:priority;type:backlog.entry_priority;not null;default:medium"`
	Notes                string          `gorm:"column:notes;type:text;not null;default:''"`
	Tags                 json.RawMessage `gorm:"column:tags;type:jsonb;not null;default:'[]'"`
	CreatedAt            time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (LibraryEntryModel) TableName() string { return "backlog.library_entries" }

// DismissalModel maps backlog.dismissals. One row per normalized title the
// user marked as "keep all"; grouping skips those keys on later scans.
type DismissalModel struct {
	DismissalID   int64           `gorm:"column:dismissal_id;primaryKey;autoIncrement"`
	DismissalUUID string          `gorm:"column:dismissal_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	GroupKey      string          `gorm:"column:group_key;type:text;not null;unique"`
	MemberIDs     json.RawMessage `gorm:"column:member_ids;type:jsonb;not null;default:'[]'"`
	DismissedAt   time.Time       `gorm:"column:dismissed_at;type:timestamptz;not null;default:now()"`
	CreatedAt     time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (DismissalModel) TableName() string { return "backlog.dismissals" }

// PlatformAccountModel maps backlog.platform_accounts.
type PlatformAccountModel struct {
	Platform            string     `gorm:"column:platform;type:text;primaryKey"`
	PlatformAccountUUID string     `gorm:"column:platform_account_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	AccountID           string     `gorm:"column:account_id;type:text;not null"`
	DisplayName         *string    `gorm:"column:display_name;type:text"`
	LastSyncedAt        *time.Time `gorm:"column:last_synced_at;type:timestamptz"`
	CreatedAt           time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (PlatformAccountModel) TableName() string { return "backlog.platform_accounts" }

// ResolutionEventModel maps backlog.resolution_events, the audit trail of
// executed duplicate resolutions.
type ResolutionEventModel struct {
	EventID      int64     `gorm:"column:event_id;primaryKey;autoIncrement"`
	EventUUID    string    `gorm:"column:event_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	SessionID    string    `gorm:"column:session_id;type:uuid;not null"`
	GroupKey     string    `gorm:"column:group_key;type:text;not null"`
	ActionType   string    `gorm:"column:action_type;type:backlog.resolution_action;not null"`
	Succeeded    bool      `gorm:"column:succeeded;type:boolean;not null"`
	ErrorMessage *string   `gorm:"column:error_message;type:text"`
	OccurredAt   time.Time `gorm:"column:occurred_at;type:timestamptz;not null;default:now()"`
}

func (ResolutionEventModel) TableName() string { return "backlog.resolution_events" }

// User maps backlog.users.
type User struct {
	UserID             int64      `gorm:"column:user_id;primaryKey;autoIncrement"`
	Username           string     `gorm:"column:username;type:text;not null;unique"`
	PasswordHash       string     `gorm:"column:password_hash;type:text;not null"`
	MustChangePassword bool       `gorm:"column:must_change_password;type:boolean;not null;default:false"`
	CreatedAt          time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	LastLoginAt        *time.Time `gorm:"column:last_login_at;type:timestamptz"`
}

func (User) TableName() string { return "backlog.users" }

// Session maps backlog.sessions.
type Session struct {
	SessionID  string    `gorm:"column:session_id;type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID     int64     `gorm:"column:user_id;type:bigint;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;type:timestamptz;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	LastSeenAt time.Time `gorm:"column:last_seen_at;type:timestamptz;not null;default:now()"`
}

func (Session) TableName() string { return "backlog.sessions" }

// UserSettings maps backlog.user_settings.
type UserSettings struct {
	UserID          int64           `gorm:"column:user_id;type:bigint;primaryKey"`
	DefaultPlatform string          `gorm:"column:default_platform;type:text;not null;default:''"`
	UIPrefs         json.RawMessage `gorm:"column:ui_prefs;type:jsonb;not null;default:'{}'"`
}

func (UserSettings) TableName() string { return "backlog.user_settings" }

func autoMigrateModels() []any {
	return []any{
		&LibraryEntryModel{},
		&DismissalModel{},
		&PlatformAccountModel{},
		&ResolutionEventModel{},
		&User{},
		&Session{},
		&UserSettings{},
	}
}
