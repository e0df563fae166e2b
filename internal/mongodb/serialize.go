package mongodb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Serialize rewrites a decoded BSON value into a JSON-safe one. Total over
// everything the driver can decode: unknown types fall through to a string
// rendering rather than failing.
func Serialize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC().Format(time.RFC3339Nano)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case primitive.Timestamp:
		return fmt.Sprintf("Timestamp(%d, %d)", val.T, val.I)
	case primitive.Decimal128:
		return val.String()
	case primitive.Binary:
		return fmt.Sprintf("Binary(subtype %d, %d bytes)", val.Subtype, len(val.Data))
	case primitive.Regex:
		return fmt.Sprintf("/%s/%s", val.Pattern, val.Options)
	case primitive.JavaScript:
		return string(val)
	case primitive.Symbol:
		return string(val)
	case primitive.MinKey:
		return "MinKey"
	case primitive.MaxKey:
		return "MaxKey"
	case primitive.Undefined:
		return nil
	case primitive.Null:
		return nil
	case bson.D:
		doc := make(orderedDoc, 0, len(val))
		for _, e := range val {
			doc = append(doc, docEntry{Key: e.Key, Value: Serialize(e.Value)})
		}
		return doc
	case bson.M:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Serialize(item)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Serialize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Serialize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Serialize(item)
		}
		return out
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// orderedDoc preserves the server's field order when a document is rendered
// as JSON; a plain map would sort the keys.
type orderedDoc []docEntry

type docEntry struct {
	Key   string
	Value any
}

func (d orderedDoc) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatDocument renders one decoded document as indented JSON.
func FormatDocument(v any) string {
	data, err := json.MarshalIndent(Serialize(v), "", "  ")
	if err != nil {
		return fmt.Sprintf("<unrenderable document: %v>", err)
	}
	return string(data)
}
