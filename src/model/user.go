package model

import "time"

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

type User struct {
	ID             int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Email          string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PhoneNumber    *string   `gorm:"size:50" json:"phone_number,omitempty"`
	HashedPassword string    `gorm:"type:text" json:"-"`
	Name           *string   `gorm:"size:200" json:"name,omitempty"`
	Status         string    `gorm:"size:20;not null;default:active" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

type UserResponse struct {
	ID   int64   `json:"id,string"`
	Name *string `json:"name,omitempty"`
}

type UserMeResponse struct {
	ID          int64     `json:"id,string"`
	Status      string    `json:"status"`
	Email       string    `json:"email"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	Name        *string   `json:"name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name}
}

func (u *User) ToMeResponse() UserMeResponse {
	return UserMeResponse{
		ID:          u.ID,
		Status:      u.Status,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Name:        u.Name,
		CreatedAt:   u.CreatedAt,
	}
}

type SignUpPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	UserID int64  `json:"user_id,string"`
	Token  string `json:"token"`
}
