package models

import (
	"time"
)

// Role роль пользователя, которую выдаёт Identity Guard
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleSeller Role = "SELLER"
	RoleRenter Role = "RENTER"
)

// Valid сообщает, известна ли роль системе
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSeller, RoleRenter:
		return true
	}
	return false
}

// Kos представляет объявление об аренде (объект недвижимости)
type Kos struct {
	ID        int64      `json:"id"`
	PostID    int64      `json:"post_id"`
	Name      string     `json:"name"`
	DeletedAt *time.Time `json:"deleted_at"`
	DeletedBy *int64     `json:"deleted_by"`
	CreatedAt time.Time  `json:"created_at"`
	Post      *Post      `json:"post,omitempty"`
}

// Archived сообщает, находится ли объявление в архиве
func (k Kos) Archived() bool {
	return k.DeletedAt != nil
}

// Post представляет публикацию, которой владеет Kos (видимость, featured, просмотры)
type Post struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Title      string     `json:"title"`
	IsFeatured bool       `json:"is_featured"`
	ViewCount  int64      `json:"view_count"`
	DeletedAt  *time.Time `json:"deleted_at"`
	DeletedBy  *int64     `json:"deleted_by"`
	CreatedAt  time.Time  `json:"created_at"`
}
