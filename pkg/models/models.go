package models

import "time"

// Track represents a music track in the catalog.
type Track struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ArtistID    string    `json:"artistId"`
	ArtistName  string    `json:"artistName"`
	AlbumID     string    `json:"albumId"`
	AlbumTitle  string    `json:"albumTitle"`
	TrackNumber int       `json:"trackNumber"`
	DiscNumber  int       `json:"discNumber"`
	Duration    int       `json:"duration"` // in seconds
	Bitrate     *int      `json:"bitrate"`  // kbps, nil if unknown
	SampleRate  *int      `json:"sampleRate"`
	Format      string    `json:"format"` // lowercase extension without dot
	Size        int64     `json:"size"`
	FilePath    string    `json:"-"` // don't expose file path to client
	Genre       *string   `json:"genre"`
	Year        *int      `json:"year"`
	Lyrics      *string   `json:"lyrics,omitempty"`
	LyricsType  *string   `json:"lyricsType,omitempty"` // "lrc" or plain
	PlayCount   int       `json:"playCount"`
	Rating      int       `json:"rating"`
	CoverURL    *string   `json:"coverUrl"` // inherited from album
	IsFavorite  bool      `json:"isFavorite,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Album represents an album with cached track aggregates.
type Album struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	ArtistID   string  `json:"artistId"`
	ArtistName string  `json:"artistName"`
	Year       *int    `json:"year"`
	Genre      *string `json:"genre"`
	CoverURL   *string `json:"coverUrl"`
	DiscCount  int     `json:"discCount"`
	TrackCount int     `json:"trackCount"` // cached aggregate
	Duration   int     `json:"duration"`   // cached aggregate, seconds
	Tracks     []Track `json:"tracks,omitempty"`
}

// Artist represents a performing artist. Counts are computed at query
// time, never stored.
type Artist struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Bio        *string `json:"bio"`
	ImageURL   *string `json:"imageUrl"`
	AlbumCount int     `json:"albumCount"`
	TrackCount int     `json:"trackCount"`
	Albums     []Album `json:"albums,omitempty"`
}

// Playlist represents a user playlist with cached membership aggregates.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CoverURL    *string   `json:"coverUrl"`
	UserID      string    `json:"userId"`
	IsPublic    bool      `json:"isPublic"`
	IsSmart     bool      `json:"isSmart"`
	SmartRules  *string   `json:"smartRules,omitempty"` // serialized rule set
	TrackCount  int       `json:"trackCount"`
	Duration    int       `json:"duration"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Tracks      []Track   `json:"tracks,omitempty"`
}

// PlaylistTrack is a playlist membership entry. Positions are dense and
// zero-based within a playlist.
type PlaylistTrack struct {
	PlaylistID string    `json:"playlistId"`
	TrackID    string    `json:"trackId"`
	Position   int       `json:"position"`
	AddedAt    time.Time `json:"addedAt"`
}

// HistoryEntry is one row of the append-only play log.
type HistoryEntry struct {
	Track    Track     `json:"track"`
	PlayedAt time.Time `json:"playedAt"`
}

// QueueItem is one entry of the persisted play queue. The whole queue is
// replaced wholesale, never merged.
type QueueItem struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Source   string `json:"source"` // e.g. "manual", "library"
	Track    Track  `json:"track"`
}

// EqualizerBand is a single frequency/gain pair of an equalizer preset.
type EqualizerBand struct {
	Frequency int     `json:"frequency"`
	Gain      float64 `json:"gain"`
}

// UserSettings holds per-user preferences. One row per user.
type UserSettings struct {
	UserID          string          `json:"userId"`
	Theme           string          `json:"theme"`
	Language        string          `json:"language"`
	AudioQuality    string          `json:"audioQuality"`
	Crossfade       int             `json:"crossfade"` // seconds
	ReplayGain      bool            `json:"replayGain"`
	EqualizerPreset string          `json:"equalizerPreset"`
	EqualizerBands  []EqualizerBand `json:"equalizerBands"`
	LyricsEnabled   bool            `json:"lyricsEnabled"`
	GaplessPlayback bool            `json:"gaplessPlayback"`
	MusicFolders    []string        `json:"musicFolders"`
}

// ScanLog is the audit trail for one scan invocation.
type ScanLog struct {
	ID         string     `json:"id"`
	FolderPath string     `json:"folderPath"` // joined with ";"
	Status     string     `json:"status"`     // scanning, completed, failed
	FilesFound int        `json:"filesFound"`
	FilesAdded int        `json:"filesAdded"`
	Errors     []string   `json:"errors,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
}

// LibraryStats aggregates whole-library counters.
type LibraryStats struct {
	TotalTracks    int   `json:"totalTracks"`
	TotalAlbums    int   `json:"totalAlbums"`
	TotalArtists   int   `json:"totalArtists"`
	TotalPlaylists int   `json:"totalPlaylists"`
	TotalDuration  int64 `json:"totalDuration"`
	TotalSize      int64 `json:"totalSize"`
}

// GenreCount is one genre bucket of the library genre listing.
type GenreCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SearchResults groups cross-entity search matches.
type SearchResults struct {
	Tracks    []Track    `json:"tracks"`
	Albums    []Album    `json:"albums"`
	Artists   []Artist   `json:"artists"`
	Playlists []Playlist `json:"playlists"`
}
