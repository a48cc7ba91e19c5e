// Package normalize turns loosely shaped catalog records into display-ready cards.
package normalize

import (
	"html"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"melodeck/internal/models"
)

// DefaultPlaceholderImage is used when a record carries no usable image
const DefaultPlaceholderImage = "https://via.placeholder.com/300"

// Normalizer projects catalog records onto models.NormalizedCard
type Normalizer struct {
	placeholder string
}

// New creates a normalizer; an empty placeholder selects DefaultPlaceholderImage
func New(placeholder string) *Normalizer {
	if strings.TrimSpace(placeholder) == "" {
		placeholder = DefaultPlaceholderImage
	}
	return &Normalizer{placeholder: placeholder}
}

// Placeholder returns the fallback image URL
func (n *Normalizer) Placeholder() string {
	return n.placeholder
}

// Card normalizes one record. hint is the type to assume when the record
// does not declare one; an empty hint falls back to models.DefaultItemType.
// Card never fails: missing or malformed fields take their defaults.
func (n *Normalizer) Card(item gjson.Result, hint models.ItemType) models.NormalizedCard {
	itemType := TypeOf(item, hint)
	id := strings.TrimSpace(item.Get("id").String())

	return models.NormalizedCard{
		ID:         id,
		Type:       itemType,
		Title:      Title(item),
		Subtitle:   Subtitle(item),
		ImageURL:   n.Image(item.Get("image")),
		TargetLink: TargetLink(itemType, id),
	}
}

// Cards normalizes a list of records with a shared type hint
func (n *Normalizer) Cards(items []gjson.Result, hint models.ItemType) []models.NormalizedCard {
	cards := make([]models.NormalizedCard, 0, len(items))
	for _, item := range items {
		cards = append(cards, n.Card(item, hint))
	}
	return cards
}

// Image resolves an image field of any shape to a URL
func (n *Normalizer) Image(field gjson.Result) string {
	if u := imageURL(field); u != "" {
		return u
	}
	return n.placeholder
}

func imageURL(field gjson.Result) string {
	switch {
	case field.IsArray():
		// Quality tiers are ordered low to high
		entries := field.Array()
		for i := len(entries) - 1; i >= 0; i-- {
			if u := imageURL(entries[i]); u != "" {
				return u
			}
		}
		return ""
	case field.IsObject():
		return firstString(field, "url", "link")
	case field.Type == gjson.String:
		return strings.TrimSpace(field.Str)
	}
	return ""
}

// Title returns the display title of a record
func Title(item gjson.Result) string {
	if t := firstString(item, "name", "title"); t != "" {
		return html.UnescapeString(t)
	}
	return models.UnknownTitle
}

// Subtitle returns the artist/description line of a record
func Subtitle(item gjson.Result) string {
	for _, key := range []string{"primaryArtists", "artist"} {
		if s := artistField(item.Get(key)); s != "" {
			return html.UnescapeString(s)
		}
	}
	if s := firstString(item, "description", "subtitle"); s != "" {
		return html.UnescapeString(s)
	}
	if s := nestedArtists(item.Get("artists")); s != "" {
		return html.UnescapeString(s)
	}
	return ""
}

// artistField reads an artist field that is either a string or a list of {name}
func artistField(field gjson.Result) string {
	if field.Type == gjson.String {
		return strings.TrimSpace(field.Str)
	}
	if field.IsArray() {
		return joinNames(field)
	}
	return ""
}

// nestedArtists handles artists: {primary: [...], all: [...]} and artists: [...]
func nestedArtists(field gjson.Result) string {
	if field.IsArray() {
		return joinNames(field)
	}
	if field.IsObject() {
		if names := joinNames(field.Get("primary")); names != "" {
			return names
		}
		return joinNames(field.Get("all"))
	}
	return ""
}

func joinNames(list gjson.Result) string {
	var names []string
	for _, entry := range list.Array() {
		name := entry.Get("name").String()
		if entry.Type == gjson.String {
			name = entry.Str
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// TypeOf returns the declared type of a record, falling back to hint and
// then to models.DefaultItemType
func TypeOf(item gjson.Result, hint models.ItemType) models.ItemType {
	if t, ok := models.ParseItemType(item.Get("type").String()); ok {
		return t
	}
	if hint != "" {
		return hint
	}
	return models.DefaultItemType
}

// TargetLink returns the navigation path for a card; songs have none
func TargetLink(itemType models.ItemType, id string) string {
	if itemType == models.ItemTypeSong {
		return ""
	}
	if id == "" {
		return "#"
	}
	return "/" + string(itemType) + "/" + url.PathEscape(id)
}

// firstString returns the first non-blank string value among keys
func firstString(obj gjson.Result, keys ...string) string {
	for _, key := range keys {
		v := obj.Get(key)
		if v.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(v.Str); s != "" {
			return s
		}
	}
	return ""
}
