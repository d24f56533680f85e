package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jupiterclapton/cenackle-feed/internal/core/domain"
)

type PostRepo struct {
	db *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{db: pool}
}

// Le nom du créateur est résolu par jointure à chaque lecture.
const selectPost = `
	SELECT p.id, p.title, p.content, p.image_url, p.creator_id, COALESCE(u.name, ''), p.created_at, p.updated_at
	FROM posts p
	LEFT JOIN users u ON u.id = p.creator_id
`

func (r *PostRepo) Save(ctx context.Context, post *domain.Post) error {
	q := `
		INSERT INTO posts (id, title, content, image_url, creator_id, created_at, updated_at)
		VALUES (@id, @title, @content, @image_url, @creator_id, @created_at, @updated_at)
	`
	args := pgx.NamedArgs{
		"id":         post.ID,
		"title":      post.Title,
		"content":    post.Content,
		"image_url":  post.ImageURL,
		"creator_id": post.Creator.ID,
		"created_at": post.CreatedAt,
		"updated_at": post.UpdatedAt,
	}

	if _, err := conn(ctx, r.db).Exec(ctx, q, args); err != nil {
		return handleError(err)
	}
	return nil
}

func (r *PostRepo) FindByID(ctx context.Context, postID string) (*domain.Post, error) {
	row := conn(ctx, r.db).QueryRow(ctx, selectPost+` WHERE p.id = $1`, postID)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("db: find post: %w", err)
	}
	return p, nil
}

// Update ne touche ni à creator_id ni à created_at.
func (r *PostRepo) Update(ctx context.Context, post *domain.Post) error {
	q := `
		UPDATE posts
		SET title = @title, content = @content, image_url = @image_url, updated_at = @updated_at
		WHERE id = @id
	`
	args := pgx.NamedArgs{
		"id":         post.ID,
		"title":      post.Title,
		"content":    post.Content,
		"image_url":  post.ImageURL,
		"updated_at": post.UpdatedAt,
	}

	tag, err := conn(ctx, r.db).Exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("db: update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (r *PostRepo) Delete(ctx context.Context, postID string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("db: delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// List : pagination par offset, ordre anti-chronologique, id en départage.
func (r *PostRepo) List(ctx context.Context, offset, limit int) ([]*domain.Post, int, error) {
	db := conn(ctx, r.db)

	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db: count posts: %w", err)
	}

	rows, err := db.Query(ctx, selectPost+`
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT @limit OFFSET @offset`,
		pgx.NamedArgs{"limit": limit, "offset": offset},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("db: list posts: %w", err)
	}
	defer rows.Close()

	posts := []*domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db: scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db: list posts: %w", err)
	}
	return posts, total, nil
}

func (r *PostRepo) CountByImage(ctx context.Context, imageRef string) (int, error) {
	var n int
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE image_url = $1`, imageRef).Scan(&n); err != nil {
		return 0, fmt.Errorf("db: count image refs: %w", err)
	}
	return n, nil
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	if err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.ImageURL, &p.Creator.ID, &p.Creator.Name, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
