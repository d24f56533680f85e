package domain

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinTitleLength   = 4
	MinContentLength = 4
)

// Creator est la vue "résolue" de l'auteur, inlinée dans les posts
// pour éviter un aller-retour côté client.
type Creator struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type Post struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl"`
	Creator   Creator   `json:"creator"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsOwnedBy vérifie la propriété : égalité stricte des identifiants, aucun rôle.
func (p *Post) IsOwnedBy(userID string) bool {
	return userID != "" && p.Creator.ID == userID
}

// PostPage est une page du feed (ordre anti-chronologique).
type PostPage struct {
	Posts      []*Post `json:"posts"`
	TotalPosts int     `json:"totalPosts"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
}

// PostInput est l'entrée commune de Create et Update.
// ImageURL == nil signifie "pas de nouvelle image" (Update uniquement).
type PostInput struct {
	Title    string
	Content  string
	ImageURL *string
}

// --- VALIDATEURS ---

// ValidatePostInput collecte toutes les violations, sans s'arrêter à la première.
// requireImage est vrai pour la création, où l'image est obligatoire.
func ValidatePostInput(in PostInput, requireImage bool) error {
	verr := &ValidationError{}

	if !hasMinLength(in.Title, MinTitleLength) {
		verr.Add("title", "Title length is too short")
	}
	if !hasMinLength(in.Content, MinContentLength) {
		verr.Add("content", "Content length is too short")
	}

	switch {
	case in.ImageURL == nil && requireImage:
		verr.Add("imageUrl", "No file picked")
	case in.ImageURL != nil && strings.TrimSpace(*in.ImageURL) == "":
		verr.Add("imageUrl", "No file picked")
	}

	return verr.OrNil()
}

func hasMinLength(s string, min int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= min
}

// Offset convertit une page (1-based) en offset ; les pages < 1 valent 1.
func Offset(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	// (page-1)*pageSize doit tenir dans un int
	if pageSize > 0 && page-1 > math.MaxInt/pageSize {
		page = math.MaxInt/pageSize + 1
	}
	return page, (page - 1) * pageSize
}
