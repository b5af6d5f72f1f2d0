package model

import "time"

type UserSession struct {
	SessionID int64     `gorm:"primaryKey;autoIncrement:false" json:"session_id,string"`
	UserID    int64     `gorm:"not null;index" json:"user_id,string"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}

// Valid reports whether the session can still authenticate requests.
func (s *UserSession) Valid(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
