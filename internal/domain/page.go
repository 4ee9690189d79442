package domain

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MainNamespace is the article namespace.
const MainNamespace = 0

// Page is a snapshot of a wiki page as read from the page index.
type Page struct {
	ID               int64              `json:"page_id"`
	Title            string             `json:"title"`
	Namespace        int                `json:"namespace"`
	LatestRevisionID int64              `json:"revision_id"`
	LastEditedAt     time.Time          `json:"last_edited_at"`
	IsRedirect       bool               `json:"is_redirect"`
	IsDisambiguation bool               `json:"is_disambiguation"`
	Templates        []string           `json:"templates,omitempty"`
	Categories       []string           `json:"categories,omitempty"`
	Length           int                `json:"length"`
	HTML             string             `json:"html,omitempty"`
	OutgoingLinks    []string           `json:"outgoing_links,omitempty"`
	Topics           map[string]float64 `json:"topics,omitempty"`
	InboundLinks     int                `json:"inbound_links"`
}

// NormalizeTitle returns the display form of a title: underscores become
// spaces, runs of whitespace collapse, and the first letter is upper-cased.
func NormalizeTitle(title string) string {
	title = strings.Join(strings.Fields(strings.ReplaceAll(title, "_", " ")), " ")
	if title == "" {
		return ""
	}

	r, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(r)) + title[size:]
}

// TitleKey returns the underscore form used as a storage and document key.
func TitleKey(title string) string {
	return strings.ReplaceAll(NormalizeTitle(title), " ", "_")
}
