package service

import (
	"fmt"
	"strings"
	"time"
)

const (
	RowTimeLayout = "2006-01-02 15:04:05"
	RowNoTime     = "N/A"
)

// Row is a single search result flattened for display or export.
type Row struct {
	Keyword    string
	Time       string
	UserName   string
	ScreenName string
	Text       string
	TweetURL   string
	TweetID    string
	Extra      []Field
}

// NewRow maps an item into a row, the creation time is rendered in location.
func NewRow(keyword string, item Item, location *time.Location) Row {
	row := Row{
		Keyword:    keyword,
		Time:       RowNoTime,
		UserName:   item.AuthorName,
		ScreenName: item.AuthorHandle,
		Text:       item.Text,
		TweetURL:   TweetURL(item.AuthorHandle, item.ID),
		TweetID:    item.ID,
		Extra:      append([]Field(nil), item.Extra...),
	}
	if !item.CreatedAt.IsZero() {
		if location != nil {
			row.Time = item.CreatedAt.In(location).Format(RowTimeLayout)
		} else {
			row.Time = item.CreatedAt.Format(RowTimeLayout)
		}
	}
	return row
}

// TweetURL is empty when either part is unknown.
func TweetURL(screenName, id string) string {
	if screenName == "" || id == "" {
		return ""
	}
	return fmt.Sprintf("https://twitter.com/%s/status/%s", screenName, id)
}

// ParseKeywords splits user input into one keyword per line, trims each entry
// and drops the empty ones. Order and duplicates are kept, commas are part of
// the keyword.
func ParseKeywords(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == '\n' || r == '\r'
	})

	out := []string{}
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}
