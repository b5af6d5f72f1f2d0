package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"portfoliotracker/src/database"
	"portfoliotracker/src/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository() *SessionRepository {
	logger.WithField("component", "SessionRepository").
		Info("Creating new SessionRepository with MainDB")

	return &SessionRepository{
		db: database.MainDB,
	}
}

func (r *SessionRepository) WithDB(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.UserSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindByID returns (nil, nil) if the session is not found.
func (r *SessionRepository) FindByID(ctx context.Context, sessionID int64) (*model.UserSession, error) {
	var s model.UserSession
	err := r.db.WithContext(ctx).First(&s, "session_id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Deactivate marks a session as logged out.
func (r *SessionRepository) Deactivate(ctx context.Context, sessionID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.UserSession{}).
		Where("session_id = ?", sessionID).
		Update("is_active", false).Error
}
