// Package export serializes search rows into downloadable CSV files.
package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"tweetexport-backend/internal/service"
)

// Header is the fixed column prefix of every export, extra fields follow it.
var Header = []string{"keyword", "time", "user_name", "screen_name", "text", "tweet_url", "tweet_id"}

var bom = []byte{0xEF, 0xBB, 0xBF}

// Columns returns Header followed by the names of extra fields in the order they
// first appear.
func Columns(rows []service.Row) []string {
	columns := append([]string{}, Header...)
	seen := map[string]bool{}
	for _, name := range Header {
		seen[name] = true
	}
	for _, row := range rows {
		for _, field := range row.Extra {
			if seen[field.Name] {
				continue
			}
			seen[field.Name] = true
			columns = append(columns, field.Name)
		}
	}
	return columns
}

func record(row service.Row, extraColumns []string) []string {
	out := []string{
		row.Keyword,
		row.Time,
		row.UserName,
		row.ScreenName,
		row.Text,
		row.TweetURL,
		row.TweetID,
	}
	for _, column := range extraColumns {
		value := ""
		for _, field := range row.Extra {
			if field.Name == column {
				value = field.Value
				break
			}
		}
		out = append(out, value)
	}
	return out
}

// Write writes rows as UTF-8 CSV prefixed with a byte order mark so spreadsheet
// software detects the encoding.
func Write(w io.Writer, rows []service.Row) error {
	_, err := w.Write(bom)
	if err != nil {
		return err
	}

	columns := Columns(rows)
	extraColumns := columns[len(Header):]

	writer := csv.NewWriter(w)
	err = writer.Write(columns)
	if err != nil {
		return err
	}
	for _, row := range rows {
		err = writer.Write(record(row, extraColumns))
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Read parses what Write produced. Extra fields with an empty value are omitted
// from the rows.
func Read(r io.Reader) ([]service.Row, error) {
	buffered := bufio.NewReader(r)
	prefix, err := buffered.Peek(len(bom))
	if err == nil && bytes.Equal(prefix, bom) {
		_, err = buffered.Discard(len(bom))
		if err != nil {
			return nil, err
		}
	}

	reader := csv.NewReader(buffered)
	columns, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header")
	}
	if err != nil {
		return nil, err
	}
	if len(columns) < len(Header) {
		return nil, fmt.Errorf("header has %d columns, expected at least %d", len(columns), len(Header))
	}
	for i, name := range Header {
		if columns[i] != name {
			return nil, fmt.Errorf("header column %d is '%s', expected '%s'", i, columns[i], name)
		}
	}

	rows := []service.Row{}
	for {
		values, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := service.Row{
			Keyword:    values[0],
			Time:       values[1],
			UserName:   values[2],
			ScreenName: values[3],
			Text:       values[4],
			TweetURL:   values[5],
			TweetID:    values[6],
		}
		for i := len(Header); i < len(columns); i++ {
			if values[i] == "" {
				continue
			}
			row.Extra = append(row.Extra, service.Field{Name: columns[i], Value: values[i]})
		}
		rows = append(rows, row)
	}
	return rows, nil
}
