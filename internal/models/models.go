package models

import (
	"encoding/json"
	"time"
)

// GameMode identifies one of the four osu! rulesets
type GameMode int

const (
	GameModeOsu GameMode = iota
	GameModeTaiko
	GameModeCatch
	GameModeMania
)

// GameModeAny marks a role that is not scoped to a single game mode
const GameModeAny GameMode = -1

// GameModes lists every supported game mode in display order
var GameModes = []GameMode{GameModeOsu, GameModeTaiko, GameModeCatch, GameModeMania}

// Valid reports whether m is one of the supported game modes
func (m GameMode) Valid() bool {
	return m >= GameModeOsu && m <= GameModeMania
}

func (m GameMode) String() string {
	switch m {
	case GameModeOsu:
		return "osu"
	case GameModeTaiko:
		return "taiko"
	case GameModeCatch:
		return "catch"
	case GameModeMania:
		return "mania"
	default:
		return "unknown"
	}
}

// RankedStatus mirrors the osu! API beatmap status values
type RankedStatus int

const (
	RankedStatusGraveyard RankedStatus = -2
	RankedStatusWIP       RankedStatus = -1
	RankedStatusPending   RankedStatus = 0
	RankedStatusRanked    RankedStatus = 1
	RankedStatusApproved  RankedStatus = 2
	RankedStatusQualified RankedStatus = 3
	RankedStatusLoved     RankedStatus = 4
)

// ExceedsPending is true for ranked, approved, qualified and loved content
func (s RankedStatus) ExceedsPending() bool {
	return s > RankedStatusPending
}

// User is the local cache of an osu! user
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Country      string    `json:"country" db:"country"`
	AvatarURL    string    `json:"avatar_url" db:"avatar_url"`
	Banned       bool      `json:"banned" db:"banned"`
	APIFetchedAt time.Time `json:"api_fetched_at" db:"api_fetched_at"`
}

// Role names a capability granted to a user
type Role string

const (
	RoleGod       Role = "god"
	RoleCaptain   Role = "captain"
	RoleMetadata  Role = "metadata"
	RoleModerator Role = "moderator"
	RoleNews      Role = "news"
	RoleDeveloper Role = "developer"
)

// UserRole grants Role to a user, optionally scoped to one game mode
type UserRole struct {
	ID       int64    `json:"id" db:"id"`
	UserID   int64    `json:"user_id" db:"user_id"`
	Role     Role     `json:"role" db:"role"`
	GameMode GameMode `json:"game_mode" db:"game_mode"`
	Alumni   bool     `json:"alumni" db:"alumni"`
}

// Beatmapset is the local cache of an osu! beatmapset
type Beatmapset struct {
	ID           int64        `json:"id" db:"id"`
	Artist       string       `json:"artist" db:"artist"`
	Title        string       `json:"title" db:"title"`
	CreatorID    int64        `json:"creator_id" db:"creator_id"`
	CreatorName  string       `json:"creator_name" db:"creator_name"`
	RankedStatus RankedStatus `json:"ranked_status" db:"ranked_status"`
	SubmittedAt  time.Time    `json:"submitted_at" db:"submitted_at"`
	APIFetchedAt time.Time    `json:"api_fetched_at" db:"api_fetched_at"`
	Beatmaps     []Beatmap    `json:"beatmaps,omitempty"`
}

// HasGameMode reports whether the set has at least one live beatmap in mode
func (b *Beatmapset) HasGameMode(mode GameMode) bool {
	for _, beatmap := range b.Beatmaps {
		if beatmap.GameMode == mode && beatmap.DeletedAt == nil {
			return true
		}
	}
	return false
}

// Beatmap is a single difficulty of a beatmapset
type Beatmap struct {
	ID           int64        `json:"id" db:"id"`
	BeatmapsetID int64        `json:"beatmapset_id" db:"beatmapset_id"`
	GameMode     GameMode     `json:"game_mode" db:"game_mode"`
	Version      string       `json:"version" db:"version"`
	StarRating   float64      `json:"star_rating" db:"star_rating"`
	KeyCount     *int         `json:"key_count,omitempty" db:"key_count"`
	BPM          float64      `json:"bpm" db:"bpm"`
	RankedStatus RankedStatus `json:"ranked_status" db:"ranked_status"`
	DeletedAt    *time.Time   `json:"deleted_at,omitempty" db:"deleted_at"`
	Excluded     bool         `json:"excluded"`
}

// ConsentValue is a mapper's answer to whether their work may be nominated
type ConsentValue int

const (
	ConsentNo ConsentValue = iota
	ConsentYes
	// ConsentUnreachable is kept for historic rows and rejected on write
	ConsentUnreachable
)

// Valid reports whether v may be written
func (v ConsentValue) Valid() bool {
	return v == ConsentNo || v == ConsentYes
}

// Consent is a mapper's blanket consent
type Consent struct {
	UserID        int64               `json:"user_id" db:"user_id"`
	Consent       *ConsentValue       `json:"consent" db:"consent"`
	ConsentReason *string             `json:"consent_reason" db:"consent_reason"`
	UpdatedAt     time.Time           `json:"updated_at" db:"updated_at"`
	UpdaterID     int64               `json:"updater_id" db:"updater_id"`
	User          *User               `json:"user,omitempty"`
	Beatmapsets   []ConsentBeatmapset `json:"beatmapset_consents"`
}

// ConsentBeatmapset overrides a mapper's blanket consent for one beatmapset
type ConsentBeatmapset struct {
	UserID        int64        `json:"user_id" db:"user_id"`
	BeatmapsetID  int64        `json:"beatmapset_id" db:"beatmapset_id"`
	Consent       ConsentValue `json:"consent" db:"consent"`
	ConsentReason *string      `json:"consent_reason" db:"consent_reason"`
	Beatmapset    *Beatmapset  `json:"beatmapset,omitempty"`
}

// Review is one reviewer's score of a beatmapset in one game mode
type Review struct {
	ID           int64     `json:"id" db:"id"`
	BeatmapsetID int64     `json:"beatmapset_id" db:"beatmapset_id"`
	GameMode     GameMode  `json:"game_mode" db:"game_mode"`
	ReviewerID   int64     `json:"reviewer_id" db:"reviewer_id"`
	Score        int       `json:"score" db:"score"`
	Reason       string    `json:"reason" db:"reason"`
	ReviewedAt   time.Time `json:"reviewed_at" db:"reviewed_at"`
}

// Submission expresses interest in a beatmapset. It is open while Reason is nil.
type Submission struct {
	ID           int64      `json:"id" db:"id"`
	BeatmapsetID int64      `json:"beatmapset_id" db:"beatmapset_id"`
	GameMode     GameMode   `json:"game_mode" db:"game_mode"`
	SubmitterID  *int64     `json:"submitter_id" db:"submitter_id"`
	Reason       *string    `json:"reason" db:"reason"`
	SubmittedAt  *time.Time `json:"submitted_at" db:"submitted_at"`
}

// Round groups nominations into one voting cycle
type Round struct {
	ID               int64           `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	NewsIntro        *string         `json:"news_intro" db:"news_intro"`
	NewsIntroPreview *string         `json:"news_intro_preview" db:"news_intro_preview"`
	NewsOutro        *string         `json:"news_outro" db:"news_outro"`
	NewsPostedAt     *time.Time      `json:"news_posted_at" db:"news_posted_at"`
	Done             bool            `json:"done" db:"done"`
	NominationCount  int             `json:"nomination_count"`
	GameModes        []RoundGameMode `json:"game_modes,omitempty"`
}

// RoundGameMode holds per game mode settings of a round
type RoundGameMode struct {
	RoundID           int64    `json:"round_id" db:"round_id"`
	GameMode          GameMode `json:"game_mode" db:"game_mode"`
	VotingThreshold   float64  `json:"voting_threshold" db:"voting_threshold"`
	NominationsLocked bool     `json:"nominations_locked" db:"nominations_locked"`
}

// DescriptionState tracks whether a news editor has reviewed a description
type DescriptionState int

const (
	DescriptionStateNotReviewed DescriptionState = iota
	DescriptionStateReviewed
)

// MetadataState tracks the metadata check of a nomination
type MetadataState int

const (
	MetadataStateUnchecked MetadataState = iota
	MetadataStateNeedsChange
	MetadataStateGood
)

// Valid reports whether s is a known metadata state
func (s MetadataState) Valid() bool {
	return s >= MetadataStateUnchecked && s <= MetadataStateGood
}

// ModeratorState tracks the content moderation check of a nomination
type ModeratorState int

const (
	ModeratorStateUnchecked ModeratorState = iota
	ModeratorStateNeedsChange
	ModeratorStateSentToReview
	ModeratorStateGood
	ModeratorStateNotAllowed
)

// Valid reports whether s is a known moderator state
func (s ModeratorState) Valid() bool {
	return s >= ModeratorStateUnchecked && s <= ModeratorStateNotAllowed
}

// AssigneeType selects which check an assignee is responsible for
type AssigneeType int

const (
	AssigneeTypeMetadata AssigneeType = iota
	AssigneeTypeModerator
)

// Valid reports whether t is a known assignee type
func (t AssigneeType) Valid() bool {
	return t == AssigneeTypeMetadata || t == AssigneeTypeModerator
}

// Nomination is a beatmapset's candidacy in one round and game mode
type Nomination struct {
	ID                  int64            `json:"id" db:"id"`
	RoundID             int64            `json:"round_id" db:"round_id"`
	GameMode            GameMode         `json:"game_mode" db:"game_mode"`
	BeatmapsetID        int64            `json:"beatmapset_id" db:"beatmapset_id"`
	ParentID            *int64           `json:"parent_id" db:"parent_id"`
	Order               int              `json:"order" db:"order"`
	Description         *string          `json:"description" db:"description"`
	DescriptionAuthorID *int64           `json:"description_author_id" db:"description_author_id"`
	DescriptionState    DescriptionState `json:"description_state" db:"description_state"`
	MetadataState       MetadataState    `json:"metadata_state" db:"metadata_state"`
	ModeratorState      ModeratorState   `json:"moderator_state" db:"moderator_state"`
	OverwriteArtist     *string          `json:"overwrite_artist" db:"overwrite_artist"`
	OverwriteTitle      *string          `json:"overwrite_title" db:"overwrite_title"`

	Beatmapset         *Beatmapset `json:"beatmapset,omitempty"`
	Beatmaps           []Beatmap   `json:"beatmaps"`
	BeatmapsetCreators []User      `json:"beatmapset_creators"`
	Nominators         []User      `json:"nominators"`
	MetadataAssignees  []User      `json:"metadata_assignees"`
	ModeratorAssignees []User      `json:"moderator_assignees"`
	DescriptionAuthor  *User       `json:"description_author,omitempty"`
	Poll               *Poll       `json:"poll,omitempty"`
}

// Poll is the read-only result of a forum vote on a nomination
type Poll struct {
	ID           int64     `json:"id" db:"id"`
	RoundID      int64     `json:"round_id" db:"round_id"`
	GameMode     GameMode  `json:"game_mode" db:"game_mode"`
	BeatmapsetID int64     `json:"beatmapset_id" db:"beatmapset_id"`
	TopicID      int64     `json:"topic_id" db:"topic_id"`
	StartedAt    time.Time `json:"started_at" db:"started_at"`
	EndedAt      time.Time `json:"ended_at" db:"ended_at"`
	ResultNo     *int      `json:"result_no" db:"result_no"`
	ResultYes    *int      `json:"result_yes" db:"result_yes"`
}

// LogType names an audit log event
type LogType string

const (
	LogTypeMapperConsentCreated           LogType = "mapper_consent_created"
	LogTypeMapperConsentUpdated           LogType = "mapper_consent_updated"
	LogTypeMapperConsentBeatmapsetCreated LogType = "mapper_consent_beatmapset_created"
	LogTypeMapperConsentBeatmapsetUpdated LogType = "mapper_consent_beatmapset_updated"
	LogTypeMapperConsentBeatmapsetDeleted LogType = "mapper_consent_beatmapset_deleted"
	LogTypeReviewCreated                  LogType = "review_created"
	LogTypeReviewUpdated                  LogType = "review_updated"
	LogTypeReviewDeleted                  LogType = "review_deleted"
	LogTypeSubmissionDeleted              LogType = "submission_deleted"
	LogTypeNominationDeleted              LogType = "nomination_deleted"
	LogTypeNominationDescriptionEdited    LogType = "nomination_description_edited"
	LogTypeNominationMetadataEdited       LogType = "nomination_metadata_edited"
	LogTypeNominationModerationEdited     LogType = "nomination_moderation_edited"
	LogTypeNominationOrdersUpdated        LogType = "nomination_orders_updated"
	LogTypeNominationNominatorsUpdated    LogType = "nomination_nominators_updated"
	LogTypeNominationAssigneesUpdated     LogType = "nomination_assignees_updated"
	LogTypeNominationExcludedUpdated      LogType = "nomination_excluded_beatmaps_updated"
	LogTypeRoundCreated                   LogType = "round_created"
	LogTypeRoundUpdated                   LogType = "round_updated"
	LogTypeRoundNominationsLocked         LogType = "round_nominations_locked"
)

// AuditLog is an append-only record of a mutation
type AuditLog struct {
	ID        int64           `json:"id" db:"id"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	Type      LogType         `json:"type" db:"type"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
}
