package state

import (
	"database/sql"
	"errors"
	"time"
)

// Settings are the playback controls last set by the user.
type Settings struct {
	Volume  float64
	Looping bool
}

func getSettings(db *sql.DB) (*Settings, error) {
	var s Settings
	row := db.QueryRow(`SELECT volume, looping FROM player_settings WHERE id = 1`)
	err := row.Scan(&s.Volume, &s.Looping)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // no saved settings is not an error
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func saveSettings(db *sql.DB, s Settings) error {
	_, err := db.Exec(`
		INSERT INTO player_settings (id, volume, looping, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			volume = excluded.volume,
			looping = excluded.looping,
			updated_at = excluded.updated_at
	`, s.Volume, s.Looping, time.Now().Unix())
	return err
}
