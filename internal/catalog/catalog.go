package catalog

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"melodeck/internal/models"
)

// Catalog exposes typed reads over a Fetcher. Every method returns the
// envelope's data member, already checked for success.
type Catalog struct {
	fetcher Fetcher
}

// New creates a Catalog over the given fetcher
func New(fetcher Fetcher) *Catalog {
	return &Catalog{fetcher: fetcher}
}

// Fetcher returns the underlying fetcher, used by the raw API proxy
func (c *Catalog) Fetcher() Fetcher {
	return c.fetcher
}

// Envelope validates a {success, data} body and returns data.
// Non-JSON bodies, success other than true, and a missing or null data
// member are all ErrUnsuccessful.
func Envelope(endpoint string, body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &APIError{Endpoint: endpoint, Operation: "decode", Message: "malformed JSON", Err: ErrUnsuccessful}
	}

	root := gjson.ParseBytes(body)
	if !root.Get("success").Bool() {
		msg := firstNonEmpty(root.Get("message").String(), root.Get("error").String())
		return gjson.Result{}, &APIError{Endpoint: endpoint, Operation: "decode", Message: msg, Err: ErrUnsuccessful}
	}

	data := root.Get("data")
	if !data.Exists() || data.Type == gjson.Null {
		return gjson.Result{}, &APIError{Endpoint: endpoint, Operation: "decode", Message: "missing data", Err: ErrUnsuccessful}
	}
	return data, nil
}

func (c *Catalog) get(ctx context.Context, endpoint string, params url.Values) (gjson.Result, error) {
	body, err := c.fetcher.Fetch(ctx, endpoint, params)
	if err != nil {
		return gjson.Result{}, err
	}
	return Envelope(endpoint, body)
}

// Modules returns the aggregate home feed payload
func (c *Catalog) Modules(ctx context.Context) (gjson.Result, error) {
	return c.get(ctx, EndpointModules, nil)
}

// Trending returns the trending payload
func (c *Catalog) Trending(ctx context.Context) (gjson.Result, error) {
	return c.get(ctx, EndpointTrending, nil)
}

// Charts returns the charts payload
func (c *Catalog) Charts(ctx context.Context) (gjson.Result, error) {
	return c.get(ctx, EndpointCharts, nil)
}

// Song returns a single full song record. The API answers with an array or
// a bare object; the first record wins.
func (c *Catalog) Song(ctx context.Context, id string) (gjson.Result, error) {
	endpoint := DetailEndpoint(models.ItemTypeSong, id)
	data, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return gjson.Result{}, err
	}

	if data.IsArray() {
		records := data.Array()
		if len(records) == 0 {
			return gjson.Result{}, &APIError{Endpoint: endpoint, Operation: "decode", Message: "empty song list", Err: ErrNotFound}
		}
		return records[0], nil
	}
	if !data.IsObject() {
		return gjson.Result{}, &APIError{Endpoint: endpoint, Operation: "decode", Message: "unexpected song shape", Err: ErrNotFound}
	}
	return data, nil
}

// Detail returns the record for an album, artist or playlist
func (c *Catalog) Detail(ctx context.Context, itemType models.ItemType, id string) (gjson.Result, error) {
	return c.get(ctx, DetailEndpoint(itemType, id), nil)
}

// Lyrics returns the lyrics payload for a song
func (c *Catalog) Lyrics(ctx context.Context, id string) (gjson.Result, error) {
	return c.get(ctx, LyricsEndpoint(id), nil)
}

// SearchAll queries the aggregate search endpoint
func (c *Catalog) SearchAll(ctx context.Context, query string) (gjson.Result, error) {
	return c.get(ctx, EndpointSearchAll, url.Values{"query": {query}})
}

// Search queries a category endpoint; an "all" filter is routed to SearchAll
func (c *Catalog) Search(ctx context.Context, filter models.Filter, query string) (gjson.Result, error) {
	if filter == models.FilterAll {
		return c.SearchAll(ctx, query)
	}
	return c.get(ctx, SearchEndpoint(filter), url.Values{"query": {query}})
}

// SearchPage queries a category endpoint with explicit paging
func (c *Catalog) SearchPage(ctx context.Context, filter models.Filter, query string, page, limit int) (gjson.Result, error) {
	params := url.Values{
		"query": {query},
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
	return c.get(ctx, SearchEndpoint(filter), params)
}

// DetailEndpoint builds /songs/{id}, /albums/{id}, /artists/{id} or /playlists/{id}
func DetailEndpoint(itemType models.ItemType, id string) string {
	return "/" + string(itemType) + "s/" + url.PathEscape(id)
}

// LyricsEndpoint builds /songs/{id}/lyrics
func LyricsEndpoint(id string) string {
	return DetailEndpoint(models.ItemTypeSong, id) + "/lyrics"
}

// SearchEndpoint builds /search/{filter}
func SearchEndpoint(filter models.Filter) string {
	return "/search/" + string(filter)
}

// Results extracts the record list of a category search or a flat list,
// accepting {results: [...]} as well as a bare array
func Results(data gjson.Result) []gjson.Result {
	if data.IsArray() {
		return data.Array()
	}
	return data.Get("results").Array()
}

// GroupResults extracts one group of an aggregate search, e.g. "albums"
func GroupResults(data gjson.Result, group string) []gjson.Result {
	return Results(data.Get(group))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
