package models

import "time"

type Admin struct {
	Email        string    `json:"email" mapstructure:"email"`
	PasswordHash string    `json:"-" mapstructure:"password_hash"`
	Roles        []string  `json:"roles" mapstructure:"-"`
	CreatedAt    time.Time `json:"created_at" mapstructure:"-"`
}
