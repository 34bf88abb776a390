// Package forms holds the explicit per-entity validators shared by the
// HTML pages and the JSON API. Each validator returns either the cleaned
// value or a field -> messages mapping, never a single opaque failure.
package forms

import (
	"errors"
	"mime/multipart"
	"net/mail"
	"path/filepath"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"goblog/models"
	"goblog/utils"
)

// Errors maps a field name to one or more human readable messages.
type Errors map[string][]string

// Add appends a message for the given field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Any reports whether any field failed validation.
func (e Errors) Any() bool {
	return len(e) > 0
}

// First returns the first message recorded for a field, or "".
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// PostInput carries raw post fields as submitted by either surface.
type PostInput struct {
	Title      string
	Content    string
	CategoryID string
}

// PostData is a validated, sanitized post payload.
type PostData struct {
	Title      string
	Content    string
	CategoryID uint
}

// ValidatePost checks required fields and resolves the category reference.
func (in PostInput) ValidatePost(db *gorm.DB) (PostData, Errors) {
	errs := Errors{}
	out := PostData{}

	title := utils.Sanitize(strings.TrimSpace(in.Title))
	if title == "" {
		errs.Add("title", "title is required")
	} else if len([]rune(title)) > 200 {
		errs.Add("title", "title must be at most 200 characters")
	}
	out.Title = title

	content := utils.Sanitize(strings.TrimSpace(in.Content))
	if content == "" {
		errs.Add("content", "content is required")
	}
	out.Content = content

	rawID := strings.TrimSpace(in.CategoryID)
	if rawID == "" {
		errs.Add("category", "category is required")
	} else {
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			errs.Add("category", "category must be a valid id")
		} else {
			var category models.Category
			if err := db.First(&category, uint(id)).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					errs.Add("category", "category does not exist")
				} else {
					errs.Add("category", "category could not be verified")
				}
			} else {
				out.CategoryID = category.ID
			}
		}
	}

	return out, errs
}

// CommentInput carries a raw comment body. The author is never taken from
// the input; handlers derive it from the authenticated actor.
type CommentInput struct {
	Content string
}

// ValidateComment returns the sanitized comment body.
func (in CommentInput) ValidateComment() (string, Errors) {
	errs := Errors{}
	content := utils.Sanitize(strings.TrimSpace(in.Content))
	if content == "" {
		errs.Add("content", "content is required")
	}
	return content, errs
}

// RegisterInput carries raw registration fields.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// RegisterData is a validated registration payload. The password is kept in
// plaintext here only for immediate hashing by the caller.
type RegisterData struct {
	Username string
	Email    string
	Password string
}

// ValidateRegister checks field shapes and username uniqueness.
func (in RegisterInput) ValidateRegister(db *gorm.DB) (RegisterData, Errors) {
	errs := Errors{}
	out := RegisterData{}

	username := strings.TrimSpace(in.Username)
	switch {
	case username == "":
		errs.Add("username", "username is required")
	case len([]rune(username)) < 3 || len([]rune(username)) > 64:
		errs.Add("username", "username must be 3-64 characters")
	default:
		var existing models.User
		err := db.Where("username = ?", username).First(&existing).Error
		if err == nil {
			errs.Add("username", "username already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			errs.Add("username", "username could not be verified")
		}
	}
	out.Username = username

	email := strings.TrimSpace(in.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			errs.Add("email", "email is not a valid address")
		}
	}
	out.Email = email

	if msg := passwordMessage(in.Password); msg != "" {
		errs.Add("password", msg)
	}
	out.Password = in.Password

	return out, errs
}

// ChangePasswordInput carries raw password change fields.
type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

// ValidateChangePassword verifies the old credential and checks the new one.
func (in ChangePasswordInput) ValidateChangePassword(user *models.User) Errors {
	errs := Errors{}
	if in.OldPassword == "" {
		errs.Add("old_password", "old password is required")
	} else if !utils.CheckPassword(user.PasswordHash, in.OldPassword) {
		errs.Add("old_password", "old password is incorrect")
	}
	if msg := passwordMessage(in.NewPassword); msg != "" {
		errs.Add("new_password", msg)
	}
	return errs
}

func passwordMessage(password string) string {
	switch {
	case password == "":
		return "password is required"
	case len(password) < 6:
		return "password must be at least 6 characters"
	case len(password) > 72:
		return "password must be at most 72 characters"
	}
	return ""
}

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ValidateImage checks an optional uploaded post image. A nil header is valid.
func ValidateImage(fh *multipart.FileHeader, maxBytes int64) Errors {
	errs := Errors{}
	if fh == nil {
		return errs
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedImageExts[ext] {
		errs.Add("image", "image must be a jpg, png, gif or webp file")
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		errs.Add("image", "image exceeds the maximum allowed size")
	}
	return errs
}

// DuplicateKey maps a storage duplicate-key failure onto a field error so
// integrity violations surface exactly like validation failures.
func DuplicateKey(err error, field, msg string) (Errors, bool) {
	if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false
	}
	errs := Errors{}
	errs.Add(field, msg)
	return errs, true
}
