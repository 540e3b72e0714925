package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tiktokalert/tiktokalert-go/internal/activitylog"
)

// ValidFormats lists the output formats of tail and parse.
var ValidFormats = map[string]bool{
	"text":  true,
	"jsonl": true,
}

// OutputEntry writes entry to w in the given format.
func OutputEntry(format string, entry activitylog.Entry, w io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(entry, w)
	case "text":
		return OutputText(entry, w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// OutputJSON writes entry as one JSON object per line.
func OutputJSON(entry activitylog.Entry, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(entry)
}

// OutputText writes entry the way it appears in the log file.
func OutputText(entry activitylog.Entry, w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s - %s\n", entry.Time.Format(activitylog.TimeLayout), entry.Message)
	return err
}

func validateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format %q: must be one of: text, jsonl", format)
	}
	return nil
}
