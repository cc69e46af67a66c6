package database

import (
	"database/sql"
	"encoding/json"
	"strings"

	"cadenza/pkg/models"
)

// GetSettings returns the user's settings row, creating a default row
// when missing so the first read always succeeds.
func (db *Database) GetSettings(userID string) (*models.UserSettings, error) {
	row := db.conn.QueryRow(`
		SELECT user_id, theme, language, audio_quality, crossfade, replay_gain,
			equalizer_preset, equalizer_bands, lyrics_enabled, gapless_playback, music_folders
		FROM user_settings WHERE user_id = ?`, userID)

	s, err := scanSettings(row)
	if err == sql.ErrNoRows {
		if _, err := db.conn.Exec("INSERT INTO user_settings (user_id) VALUES (?)", userID); err != nil {
			return nil, err
		}
		return db.GetSettings(userID)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanSettings(row rowScanner) (*models.UserSettings, error) {
	var s models.UserSettings
	var bands, folders string

	err := row.Scan(&s.UserID, &s.Theme, &s.Language, &s.AudioQuality, &s.Crossfade,
		&s.ReplayGain, &s.EqualizerPreset, &bands, &s.LyricsEnabled,
		&s.GaplessPlayback, &folders)
	if err != nil {
		return nil, err
	}

	// Serialized fields are stored as JSON text; a corrupt blob degrades
	// to the empty value rather than failing the read.
	if err := json.Unmarshal([]byte(bands), &s.EqualizerBands); err != nil {
		s.EqualizerBands = []models.EqualizerBand{}
	}
	if err := json.Unmarshal([]byte(folders), &s.MusicFolders); err != nil {
		s.MusicFolders = []string{}
	}
	if s.EqualizerBands == nil {
		s.EqualizerBands = []models.EqualizerBand{}
	}
	if s.MusicFolders == nil {
		s.MusicFolders = []string{}
	}
	return &s, nil
}

// SettingsUpdate carries partial settings edits; nil fields are left
// unchanged.
type SettingsUpdate struct {
	Theme           *string                `json:"theme"`
	Language        *string                `json:"language"`
	AudioQuality    *string                `json:"audioQuality"`
	Crossfade       *int                   `json:"crossfade"`
	ReplayGain      *bool                  `json:"replayGain"`
	EqualizerPreset *string                `json:"equalizerPreset"`
	EqualizerBands  []models.EqualizerBand `json:"equalizerBands"`
	LyricsEnabled   *bool                  `json:"lyricsEnabled"`
	GaplessPlayback *bool                  `json:"gaplessPlayback"`
	MusicFolders    []string               `json:"musicFolders"`
}

// UpdateSettings applies a partial update and returns the result.
func (db *Database) UpdateSettings(userID string, upd SettingsUpdate) (*models.UserSettings, error) {
	// Ensure the row exists before updating.
	if _, err := db.GetSettings(userID); err != nil {
		return nil, err
	}

	var sets []string
	var args []interface{}
	if upd.Theme != nil {
		sets = append(sets, "theme = ?")
		args = append(args, *upd.Theme)
	}
	if upd.Language != nil {
		sets = append(sets, "language = ?")
		args = append(args, *upd.Language)
	}
	if upd.AudioQuality != nil {
		sets = append(sets, "audio_quality = ?")
		args = append(args, *upd.AudioQuality)
	}
	if upd.Crossfade != nil {
		sets = append(sets, "crossfade = ?")
		args = append(args, *upd.Crossfade)
	}
	if upd.ReplayGain != nil {
		sets = append(sets, "replay_gain = ?")
		args = append(args, *upd.ReplayGain)
	}
	if upd.EqualizerPreset != nil {
		sets = append(sets, "equalizer_preset = ?")
		args = append(args, *upd.EqualizerPreset)
	}
	if upd.EqualizerBands != nil {
		blob, err := json.Marshal(upd.EqualizerBands)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "equalizer_bands = ?")
		args = append(args, string(blob))
	}
	if upd.LyricsEnabled != nil {
		sets = append(sets, "lyrics_enabled = ?")
		args = append(args, *upd.LyricsEnabled)
	}
	if upd.GaplessPlayback != nil {
		sets = append(sets, "gapless_playback = ?")
		args = append(args, *upd.GaplessPlayback)
	}
	if upd.MusicFolders != nil {
		blob, err := json.Marshal(upd.MusicFolders)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "music_folders = ?")
		args = append(args, string(blob))
	}

	if len(sets) > 0 {
		args = append(args, userID)
		_, err := db.conn.Exec(
			"UPDATE user_settings SET "+strings.Join(sets, ", ")+" WHERE user_id = ?", args...)
		if err != nil {
			return nil, err
		}
	}
	return db.GetSettings(userID)
}
