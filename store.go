package instagram

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	username      TEXT PRIMARY KEY,
	full_name     TEXT NOT NULL DEFAULT '',
	biography     TEXT NOT NULL DEFAULT '',
	followers     INTEGER NOT NULL DEFAULT 0,
	following     INTEGER NOT NULL DEFAULT 0,
	posts         INTEGER NOT NULL DEFAULT 0,
	verified      INTEGER NOT NULL DEFAULT 0,
	private       INTEGER NOT NULL DEFAULT 0,
	avatar_url    TEXT NOT NULL DEFAULT '',
	external_url  TEXT NOT NULL DEFAULT '',
	scraped_at    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS videos (
	url            TEXT PRIMARY KEY,
	username       TEXT NOT NULL DEFAULT '',
	likes          INTEGER NOT NULL DEFAULT 0,
	comments       INTEGER NOT NULL DEFAULT 0,
	views          INTEGER NOT NULL DEFAULT 0,
	likes_rate     REAL NOT NULL DEFAULT 0,
	comments_rate  REAL NOT NULL DEFAULT 0,
	transcription  TEXT NOT NULL DEFAULT '',
	posted_at      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_videos_username ON videos(username);
`

// Store persists scraped profiles and video records in SQLite. It is the
// read surface the analytics queries run over.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens (creating if needed) the SQLite database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveProfile upserts the profile snapshot, stamping the scrape time.
func (s *Store) SaveProfile(ctx context.Context, p Profile) error {
	query, args, err := sq.Insert("profiles").
		Columns("username", "full_name", "biography", "followers", "following",
			"posts", "verified", "private", "avatar_url", "external_url", "scraped_at").
		Values(p.Username, p.FullName, p.Biography, p.Followers, p.Following,
			p.Posts, p.Verified, p.Private, p.AvatarURL, p.ExternalURL, s.now().Unix()).
		Suffix(`ON CONFLICT(username) DO UPDATE SET
			full_name = excluded.full_name,
			biography = excluded.biography,
			followers = excluded.followers,
			following = excluded.following,
			posts = excluded.posts,
			verified = excluded.verified,
			private = excluded.private,
			avatar_url = excluded.avatar_url,
			external_url = excluded.external_url,
			scraped_at = excluded.scraped_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build profile upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert profile %q: %w", p.Username, err)
	}
	return nil
}

// GetProfile returns the stored profile, or ErrNotFound.
func (s *Store) GetProfile(ctx context.Context, username string) (Profile, error) {
	query, args, err := sq.Select("username", "full_name", "biography", "followers",
		"following", "posts", "verified", "private", "avatar_url", "external_url").
		From("profiles").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return Profile{}, fmt.Errorf("build profile query: %w", err)
	}

	var p Profile
	row := s.db.QueryRowContext(ctx, query, args...)
	err = row.Scan(&p.Username, &p.FullName, &p.Biography, &p.Followers,
		&p.Following, &p.Posts, &p.Verified, &p.Private, &p.AvatarURL, &p.ExternalURL)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, fmt.Errorf("profile %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("query profile %q: %w", username, err)
	}
	return p, nil
}

// UpsertVideo inserts the record or updates it in place when the URL was
// acquired before.
func (s *Store) UpsertVideo(ctx context.Context, v Video) error {
	var postedAt int64
	if !v.PostedAt.IsZero() {
		postedAt = v.PostedAt.Unix()
	}

	query, args, err := sq.Insert("videos").
		Columns("url", "username", "likes", "comments", "views",
			"likes_rate", "comments_rate", "transcription", "posted_at").
		Values(v.URL, v.Username, v.Likes, v.Comments, v.Views,
			v.LikesRate, v.CommentsRate, v.Transcription, postedAt).
		Suffix(`ON CONFLICT(url) DO UPDATE SET
			username = excluded.username,
			likes = excluded.likes,
			comments = excluded.comments,
			views = excluded.views,
			likes_rate = excluded.likes_rate,
			comments_rate = excluded.comments_rate,
			transcription = excluded.transcription,
			posted_at = excluded.posted_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build video upsert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert video %q: %w", v.URL, err)
	}
	return nil
}

// ListVideos returns every stored video record in insertion order.
func (s *Store) ListVideos(ctx context.Context) ([]Video, error) {
	return s.queryVideos(ctx, sq.Select(videoColumns...).From("videos").OrderBy("rowid"))
}

// VideosByUsername returns the stored records for one user.
func (s *Store) VideosByUsername(ctx context.Context, username string) ([]Video, error) {
	return s.queryVideos(ctx, sq.Select(videoColumns...).From("videos").
		Where(sq.Eq{"username": username}).OrderBy("rowid"))
}

// ProfileStats assembles the per-profile analytics view from the persisted
// collections.
func (s *Store) ProfileStats(ctx context.Context, username string) (ProfileStats, error) {
	profile, err := s.GetProfile(ctx, username)
	if err != nil {
		return ProfileStats{}, err
	}
	videos, err := s.VideosByUsername(ctx, username)
	if err != nil {
		return ProfileStats{}, err
	}
	return BuildProfileStats(profile, videos), nil
}

var videoColumns = []string{
	"url", "username", "likes", "comments", "views",
	"likes_rate", "comments_rate", "transcription", "posted_at",
}

func (s *Store) queryVideos(ctx context.Context, builder sq.SelectBuilder) ([]Video, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build video query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []Video
	for rows.Next() {
		var v Video
		var postedAt int64
		if err := rows.Scan(&v.URL, &v.Username, &v.Likes, &v.Comments, &v.Views,
			&v.LikesRate, &v.CommentsRate, &v.Transcription, &postedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		if postedAt != 0 {
			v.PostedAt = time.Unix(postedAt, 0).UTC()
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	return videos, nil
}
