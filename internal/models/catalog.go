package models

import "strings"

// ItemType identifies the kind of catalog record
type ItemType string

const (
	ItemTypeSong     ItemType = "song"
	ItemTypeAlbum    ItemType = "album"
	ItemTypeArtist   ItemType = "artist"
	ItemTypePlaylist ItemType = "playlist"
)

// DefaultItemType is used for records that do not declare a type and
// arrive without a category hint
const DefaultItemType = ItemTypeSong

// UnknownTitle is shown for records with neither a name nor a title
const UnknownTitle = "Unknown"

// ParseItemType maps a raw type string to a known ItemType
func ParseItemType(raw string) (ItemType, bool) {
	switch ItemType(strings.ToLower(strings.TrimSpace(raw))) {
	case ItemTypeSong:
		return ItemTypeSong, true
	case ItemTypeAlbum:
		return ItemTypeAlbum, true
	case ItemTypeArtist:
		return ItemTypeArtist, true
	case ItemTypePlaylist:
		return ItemTypePlaylist, true
	}
	return "", false
}

// NormalizedCard is the display-ready projection of a catalog record.
// Every field the renderer reads is populated.
type NormalizedCard struct {
	ID         string   `json:"id"`
	Type       ItemType `json:"type"`
	Title      string   `json:"title"`
	Subtitle   string   `json:"subtitle"`
	ImageURL   string   `json:"image_url"`
	TargetLink string   `json:"target_link,omitempty"` // empty for songs, which play instead
}

// Playable reports whether clicking the card starts playback
func (c NormalizedCard) Playable() bool {
	return c.Type == ItemTypeSong
}

// DownloadVariant is one encoding of a song's audio
type DownloadVariant struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// Filter is a search category tab
type Filter string

const (
	FilterAll       Filter = "all"
	FilterSongs     Filter = "songs"
	FilterAlbums    Filter = "albums"
	FilterArtists   Filter = "artists"
	FilterPlaylists Filter = "playlists"
)

// Filters lists the tabs in display order
var Filters = []Filter{FilterAll, FilterSongs, FilterAlbums, FilterArtists, FilterPlaylists}

// ParseFilter validates a raw filter name
func ParseFilter(raw string) (Filter, bool) {
	f := Filter(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Filters {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// ItemType returns the record type a category search yields, or "" for FilterAll
func (f Filter) ItemType() ItemType {
	switch f {
	case FilterSongs:
		return ItemTypeSong
	case FilterAlbums:
		return ItemTypeAlbum
	case FilterArtists:
		return ItemTypeArtist
	case FilterPlaylists:
		return ItemTypePlaylist
	}
	return ""
}

// SearchState is the query/filter pair a search controller works from
type SearchState struct {
	ActiveFilter Filter `json:"active_filter"`
	LastQuery    string `json:"last_query"`
}

// PlayerState mirrors the audio element of one page
type PlayerState struct {
	SongID          string `json:"song_id,omitempty"`
	Title           string `json:"title,omitempty"`
	Artist          string `json:"artist,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`
	CurrentAudioURL string `json:"current_audio_url,omitempty"`
	Quality         string `json:"quality,omitempty"`
	IsPlaying       bool   `json:"is_playing"`
}
