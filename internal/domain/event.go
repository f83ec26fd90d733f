package domain

import "time"

// PlaceholderAdID is the unresolved template token the funnel tool emits
// when no real ad id was bound to a click (URL-encoded "{{ad.id}}").
// It must never surface in ranked candidates.
const PlaceholderAdID = "%7B%7Bad.id%7D%7D"

// FunnelEvent is a click/visit document recorded by the funnel tool.
// Ad identifiers may appear under several historical field names, both at the
// top level and nested under additional_info; extraction probes them in order.
type FunnelEvent struct {
	Email          string           `json:"email"`
	IP             string           `json:"ip"`
	Contact        FunnelContact    `json:"contact"`
	AdID           string           `json:"ad_id"`
	FBAdID         string           `json:"fb_ad_id"`
	HAdID          string           `json:"h_ad_id"`
	FBID           string           `json:"fb_id"`
	AdditionalInfo FunnelAdditional `json:"additional_info"`
	UpdatedAtUnix  int64            `json:"updated_at_unix_timestamp"`
}

// FunnelContact carries the contact block some funnel events nest their
// visitor IP under.
type FunnelContact struct {
	IP string `json:"ip"`
}

// FunnelAdditional mirrors the ad id fields that may be nested under
// additional_info instead of the event root.
type FunnelAdditional struct {
	FBAdID string `json:"fb_ad_id"`
	HAdID  string `json:"h_ad_id"`
	FBID   string `json:"fb_id"`
}

// ExtractAdID returns the event's advertisement id using the ordered field
// probe: the direct ad id first, then the alternately named ids, with each
// nested additional_info copy checked right after its root counterpart.
// Placeholder tokens are skipped; an empty result means un-attributable.
func (e FunnelEvent) ExtractAdID() string {
	return firstAdID(
		e.AdID,
		e.FBAdID, e.AdditionalInfo.FBAdID,
		e.HAdID, e.AdditionalInfo.HAdID,
		e.FBID, e.AdditionalInfo.FBID,
	)
}

// ExtractIP returns the visitor IP, preferring the direct field over the
// nested contact block.
func (e FunnelEvent) ExtractIP() string {
	if e.IP != "" {
		return e.IP
	}
	return e.Contact.IP
}

// SiteEvent is a raw website interaction from the general event store.
type SiteEvent struct {
	IPv4      string `json:"ipv4"`
	IPv6      string `json:"ipv6"`
	UserAgent string `json:"userAgent"`
	AdID      string `json:"ad_id"`
	FBAdID    string `json:"fb_ad_id"`
	HAdID     string `json:"h_ad_id"`
	FBID      string `json:"fb_id"`

	// Timestamp source fields, probed in order by UTCTimestamp.
	CreatedAtUnix  int64  `json:"created_at_unix_timestamp"`
	UTCUnixTime    int64  `json:"utc_unix_time"`
	UTCISODatetime string `json:"utc_iso_datetime"`
	UnixDatetime   int64  `json:"unix_datetime"`
}

// ExtractAdID returns the advertisement id via the ordered field probe,
// skipping placeholder tokens.
func (e SiteEvent) ExtractAdID() string {
	return firstAdID(e.AdID, e.FBAdID, e.HAdID, e.FBID)
}

// IPs returns the non-empty addresses observed on the event.
func (e SiteEvent) IPs() []string {
	var out []string
	if e.IPv4 != "" {
		out = append(out, e.IPv4)
	}
	if e.IPv6 != "" {
		out = append(out, e.IPv6)
	}
	return out
}

// UTCTimestamp normalizes the event's timestamp to UTC unix seconds by
// checking, in order: created_at_unix_timestamp, utc_unix_time,
// utc_iso_datetime, unix_datetime. Millisecond-scale values are converted to
// seconds. Returns 0 when no source field is present; callers must treat a
// zero timestamp as unorderable (it sorts last).
func (e SiteEvent) UTCTimestamp() int64 {
	if e.CreatedAtUnix != 0 {
		return ToUTCSeconds(e.CreatedAtUnix)
	}
	if e.UTCUnixTime != 0 {
		return ToUTCSeconds(e.UTCUnixTime)
	}
	if e.UTCISODatetime != "" {
		if t, err := time.Parse(time.RFC3339, e.UTCISODatetime); err == nil {
			return t.Unix()
		}
	}
	return ToUTCSeconds(e.UnixDatetime)
}

// ToUTCSeconds corrects a unix timestamp that was recorded in milliseconds.
// A value that does not land on a plausible calendar date when read as
// seconds is divided by 1000.
func ToUTCSeconds(ts int64) int64 {
	if ts == 0 {
		return 0
	}
	year := time.Unix(ts, 0).UTC().Year()
	if year >= 1971 && year <= 2500 {
		return ts
	}
	return ts / 1000
}

// firstAdID returns the first candidate that is non-empty and not the
// unresolved placeholder token.
func firstAdID(candidates ...string) string {
	for _, id := range candidates {
		if id != "" && id != PlaceholderAdID {
			return id
		}
	}
	return ""
}
