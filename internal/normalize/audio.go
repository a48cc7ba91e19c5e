package normalize

import (
	"strings"

	"github.com/tidwall/gjson"

	"melodeck/internal/models"
)

// Preferred quality tiers, best first
var preferredQualities = []string{"320kbps", "160kbps"}

// DownloadVariants lists the usable entries of a song's downloadUrl list
func DownloadVariants(song gjson.Result) []models.DownloadVariant {
	field := song.Get("downloadUrl")
	if !field.IsArray() {
		return nil
	}

	var variants []models.DownloadVariant
	for _, entry := range field.Array() {
		var u string
		if entry.Type == gjson.String {
			u = strings.TrimSpace(entry.Str)
		} else {
			u = firstString(entry, "url", "link")
		}
		if u == "" {
			continue
		}
		variants = append(variants, models.DownloadVariant{
			Quality: strings.TrimSpace(entry.Get("quality").String()),
			URL:     u,
		})
	}
	return variants
}

// ResolveAudioURL picks the single URL to play for a song record.
// A downloadUrl list yields 320kbps, else 160kbps, else its last entry;
// a downloadUrl string is used as is; otherwise the record's url field.
// ok is false when nothing playable is found.
func ResolveAudioURL(song gjson.Result) (audioURL, quality string, ok bool) {
	if variant, found := pickVariant(DownloadVariants(song)); found {
		return variant.URL, variant.Quality, true
	}

	if dl := song.Get("downloadUrl"); dl.Type == gjson.String {
		if u := strings.TrimSpace(dl.Str); u != "" {
			return u, "", true
		}
	}

	if u := firstString(song, "url"); u != "" {
		return u, "", true
	}
	return "", "", false
}

func pickVariant(variants []models.DownloadVariant) (models.DownloadVariant, bool) {
	if len(variants) == 0 {
		return models.DownloadVariant{}, false
	}
	for _, want := range preferredQualities {
		for _, v := range variants {
			if qualityKey(v.Quality) == want {
				return v, true
			}
		}
	}
	return variants[len(variants)-1], true
}

// qualityKey folds "320 kbps" and "320KBPS" onto "320kbps"
func qualityKey(q string) string {
	return strings.ToLower(strings.ReplaceAll(q, " ", ""))
}
