package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
)

// sqlUser sert de tampon entre la base et le domaine.
type sqlUser struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Status       string
	Posts        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepo struct {
	db *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{db: pool}
}

const selectUser = `
	SELECT u.id, u.email, u.name, u.password_hash, u.status,
	       COALESCE((SELECT array_agg(up.post_id ORDER BY up.added_at, up.post_id)
	                 FROM user_posts up WHERE up.user_id = u.id), '{}') AS posts,
	       u.created_at, u.updated_at
	FROM users u
`

func (r *UserRepo) Save(ctx context.Context, user *domain.User) error {
	q := `
		INSERT INTO users (id, email, name, password_hash, status, created_at, updated_at)
		VALUES (@id, @email, @name, @password_hash, @status, @created_at, @updated_at)
	`
	args := pgx.NamedArgs{
		"id":            user.ID,
		"email":         user.Email,
		"name":          user.Name,
		"password_hash": user.PasswordHash,
		"status":        user.Status,
		"created_at":    user.CreatedAt,
		"updated_at":    user.UpdatedAt,
	}

	if _, err := conn(ctx, r.db).Exec(ctx, q, args); err != nil {
		return handleError(err)
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := r.getOne(ctx, selectUser+` WHERE u.email = $1`, email)
	if err != nil {
		return nil, fmt.Errorf("db: get by email: %w", err)
	}
	return u, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := r.getOne(ctx, selectUser+` WHERE u.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("db: get by id: %w", err)
	}
	return u, nil
}

func (r *UserRepo) Update(ctx context.Context, user *domain.User) error {
	q := `
		UPDATE users
		SET email = @email, name = @name, password_hash = @password_hash, status = @status, updated_at = @updated_at
		WHERE id = @id
	`
	args := pgx.NamedArgs{
		"id":            user.ID,
		"email":         user.Email,
		"name":          user.Name,
		"password_hash": user.PasswordHash,
		"status":        user.Status,
		"updated_at":    user.UpdatedAt,
	}

	tag, err := conn(ctx, r.db).Exec(ctx, q, args)
	if err != nil {
		return handleError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) AddPost(ctx context.Context, userID, postID string) error {
	q := `INSERT INTO user_posts (user_id, post_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := conn(ctx, r.db).Exec(ctx, q, userID, postID); err != nil {
		return handleError(err)
	}
	return nil
}

func (r *UserRepo) RemovePost(ctx context.Context, userID, postID string) error {
	q := `DELETE FROM user_posts WHERE user_id = $1 AND post_id = $2`
	if _, err := conn(ctx, r.db).Exec(ctx, q, userID, postID); err != nil {
		return fmt.Errorf("db: remove owned post: %w", err)
	}
	return nil
}

// ReconcileOwnedPosts aligne user_posts sur posts.creator_id, en une transaction.
func (r *UserRepo) ReconcileOwnedPosts(ctx context.Context) (added, removed int, err error) {
	err = NewTransactor(r.db).WithinTx(ctx, func(ctx context.Context) error {
		db := conn(ctx, r.db)

		tag, err := db.Exec(ctx, `
			DELETE FROM user_posts up
			WHERE NOT EXISTS (
				SELECT 1 FROM posts p WHERE p.id = up.post_id AND p.creator_id = up.user_id
			)`)
		if err != nil {
			return fmt.Errorf("db: prune owned posts: %w", err)
		}
		removed = int(tag.RowsAffected())

		tag, err = db.Exec(ctx, `
			INSERT INTO user_posts (user_id, post_id, added_at)
			SELECT p.creator_id, p.id, p.created_at
			FROM posts p
			WHERE NOT EXISTS (
				SELECT 1 FROM user_posts up WHERE up.post_id = p.id AND up.user_id = p.creator_id
			)`)
		if err != nil {
			return fmt.Errorf("db: restore owned posts: %w", err)
		}
		added = int(tag.RowsAffected())
		return nil
	})
	return added, removed, err
}

// --- HELPERS ---

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*domain.User, error) {
	var u sqlUser
	err := conn(ctx, r.db).QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Status, &u.Posts, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound // Traduction technique -> Domaine
		}
		return nil, err
	}
	return u.toDomain(), nil
}

func (u *sqlUser) toDomain() *domain.User {
	posts := u.Posts
	if posts == nil {
		posts = []string{}
	}
	return &domain.User{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Status:       u.Status,
		Posts:        posts,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}
