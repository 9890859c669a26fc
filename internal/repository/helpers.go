package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/parisxmas/OxiDB/OxiSubmit/oxidb"
)

// normalizeID converts the _id field from numeric (float64) to string
// since OxiDB returns auto-increment numeric IDs, and moves it to "id" to
// match the JSON shape of the models.
func normalizeID(doc map[string]any) {
	id, ok := doc["_id"]
	if !ok {
		return
	}
	switch v := id.(type) {
	case float64:
		doc["id"] = strconv.FormatFloat(v, 'f', 0, 64)
	case int:
		doc["id"] = strconv.Itoa(v)
	case string:
		doc["id"] = v
	}
	delete(doc, "_id")
}

// extractID gets the inserted document ID from an OxiDB insert response.
func extractID(result map[string]any) string {
	if id, ok := result["id"]; ok {
		switch v := id.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', 0, 64)
		}
	}
	return ""
}

// toDoc converts a model into an OxiDB document, dropping the fields the
// database owns.
func toDoc(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal doc: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal doc: %w", err)
	}
	delete(doc, "id")
	delete(doc, "_id")
	return doc, nil
}

// fromDoc decodes an OxiDB document into out.
func fromDoc(doc map[string]any, out any) error {
	normalizeID(doc)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal doc: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var oerr *oxidb.Error
	return errors.As(err, &oerr) && oerr.NotFound()
}

// isAlreadyExists reports whether a create command failed only because the
// collection, index or bucket is already there.
func isAlreadyExists(err error) bool {
	var oerr *oxidb.Error
	return errors.As(err, &oerr) && strings.Contains(strings.ToLower(oerr.Msg), "already exists")
}
