package models

import "time"

type User struct {
	ID          int       `json:"id" example:"1"`                   // User ID
	Email       string    `json:"email" example:"user@example.com"` // User email
	FirstName   string    `json:"firstName" example:"John"`         // User first name
	LastName    string    `json:"lastName" example:"Doe"`           // User last name
	AccountID   int64     `json:"accountId" example:"1024"`         // Point account ID
	PhoneNumber string    `json:"phoneNumber" example:"+14155550123"`
	CreatedAt   time.Time `json:"createdAt"`
}
