package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"tabsight/internal/dataset"
	apperrors "tabsight/internal/errors"
)

// loadJSON reads an array of flat objects. The column set is the union of
// keys across all objects, ordered by first appearance; nulls and absent
// keys become missing cells. Cell payloads are rendered to raw strings and
// run through the same kind inference as delimited input.
func (l *Loader) loadJSON(ctx context.Context, r io.Reader) (*dataset.Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read JSON input", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, apperrors.NewParsingError("JSON input must be an array of objects", nil)
	}

	var names []string
	seen := make(map[string]int)
	var rows []map[string]string

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := decodeObject(dec, &names, seen)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if l.maxRows > 0 && len(rows) > l.maxRows {
			return nil, apperrors.NewAppValidationError(
				fmt.Sprintf("row count exceeds limit of %d", l.maxRows))
		}
	}

	if len(names) == 0 {
		return nil, apperrors.NewParsingError("JSON array contains no objects with fields", nil)
	}

	records := make([][]string, len(rows))
	for i, row := range rows {
		record := make([]string, len(names))
		for j, name := range names {
			record[j] = row[name]
		}
		records[i] = record
	}
	return l.fromRecords(names, records)
}

// decodeObject consumes one object from the stream, registering keys in
// first-appearance order and rendering each scalar to its raw string form.
func decodeObject(dec *json.Decoder, names *[]string, seen map[string]int) (map[string]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read JSON object", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, apperrors.NewParsingError("JSON array elements must be objects", nil)
	}

	row := make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read JSON key", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, apperrors.NewParsingError("unexpected JSON key type", nil)
		}
		if _, known := seen[key]; !known {
			seen[key] = len(*names)
			*names = append(*names, key)
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read JSON value", err)
		}
		raw, err := renderScalar(valTok)
		if err != nil {
			return nil, err
		}
		row[key] = raw
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, apperrors.NewParsingError("failed to read end of JSON object", err)
	}
	return row, nil
}

func renderScalar(tok json.Token) (string, error) {
	switch v := tok.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case json.Delim:
		return "", apperrors.NewParsingError("nested JSON structures are not supported", nil)
	default:
		return fmt.Sprintf("%v", v), nil
	}
}
