package state

import (
	"database/sql"
)

// QueueTrack is a queued track as saved on quit.
type QueueTrack struct {
	Path   string
	Title  string
	Artist string
	Album  string
}

func getQueue(db *sql.DB) ([]QueueTrack, error) {
	rows, err := db.Query(`
		SELECT path, title, artist, album
		FROM queue_tracks
		ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []QueueTrack
	for rows.Next() {
		var t QueueTrack
		var title, artist, album sql.NullString
		if err := rows.Scan(&t.Path, &title, &artist, &album); err != nil {
			return nil, err
		}
		t.Title = nullStringValue(title)
		t.Artist = nullStringValue(artist)
		t.Album = nullStringValue(album)
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func saveQueue(sqlDB *sql.DB, tracks []QueueTrack) error {
	return withTx(sqlDB, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM queue_tracks`); err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO queue_tracks (position, path, title, artist, album)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range tracks {
			if _, err := stmt.Exec(i, t.Path, nullIfEmpty(t.Title), nullIfEmpty(t.Artist), nullIfEmpty(t.Album)); err != nil {
				return err
			}
		}
		return nil
	})
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
