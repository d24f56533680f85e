package domain

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MinPasswordLength = 4
	MinNameLength     = 2
)

// --- ENTITÉ ---

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Status       string
	// Posts est l'ensemble des posts possédés ; il reflète Post.Creator.ID
	// et ne doit jamais diverger.
	Posts     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// --- FACTORY ---

// NewUser crée un user valide. Le hash est calculé par l'appelant (PasswordHasher).
func NewUser(email, name, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		Status:       "I am new!",
		Posts:        []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ValidateSignup vérifie les règles d'inscription avant tout hachage.
func ValidateSignup(email, name, password string) error {
	verr := &ValidationError{}
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		verr.Add("email", "E-mail is invalid")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		verr.Add("password", "Password too short")
	}
	if utf8.RuneCountInString(strings.TrimSpace(name)) < MinNameLength {
		verr.Add("name", "Name is too short")
	}
	return verr.OrNil()
}

// --- COMPORTEMENTS ---

// UpdateStatus change le statut affiché du user.
func (u *User) UpdateStatus(status string) {
	u.Status = strings.TrimSpace(status)
	u.touch()
}

// AddPost ajoute un post à l'ensemble possédé (idempotent).
func (u *User) AddPost(postID string) {
	for _, id := range u.Posts {
		if id == postID {
			return
		}
	}
	u.Posts = append(u.Posts, postID)
	u.touch()
}

// RemovePost retire un post de l'ensemble possédé.
func (u *User) RemovePost(postID string) {
	for i, id := range u.Posts {
		if id == postID {
			u.Posts = append(u.Posts[:i], u.Posts[i+1:]...)
			u.touch()
			return
		}
	}
}

// OwnsPost indique si postID fait partie de l'ensemble possédé.
func (u *User) OwnsPost(postID string) bool {
	for _, id := range u.Posts {
		if id == postID {
			return true
		}
	}
	return false
}

func (u *User) touch() {
	u.UpdatedAt = time.Now().UTC()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeEmail est exposé pour les lookups (login, unicité).
func NormalizeEmail(email string) string {
	return normalizeEmail(email)
}
