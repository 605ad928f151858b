package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// valueEncoding は真偽値の1つの表現形式。
type valueEncoding struct {
	name  string
	match func(v any) bool
}

// readStateKeys は通知サービスが既読状態を返しうるフィールド名。
// バックエンドのバージョンによって名前と大文字小文字が揺れる。
var readStateKeys = []string{"read", "is_read", "isRead", "IsRead", "Read"}

// readStateEncodings は「既読」とみなす値の表現。
var readStateEncodings = []valueEncoding{
	{name: "bool", match: func(v any) bool {
		b, ok := v.(bool)
		return ok && b
	}},
	{name: "string", match: func(v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		s = strings.TrimSpace(s)
		return strings.EqualFold(s, "true") || s == "1"
	}},
	{name: "number", match: func(v any) bool {
		n, ok := v.(json.Number)
		if !ok {
			return false
		}
		f, err := n.Float64()
		return err == nil && f == 1
	}},
}

// timestampKeys は作成日時として解釈するフィールド名。先頭から順に試す。
var timestampKeys = []string{"created_at", "createdAt", "timestamp", "created"}

// timestampLayouts は文字列の作成日時として受け付けるレイアウト。
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

var knownTypes = map[string]Type{
	"info":    TypeInfo,
	"success": TypeSuccess,
	"warning": TypeWarning,
	"error":   TypeError,
}

var knownPriorities = map[string]Priority{
	"low":    PriorityLow,
	"medium": PriorityMedium,
	"high":   PriorityHigh,
}

// decodeSnapshot はスナップショットをレコードの配列として取り出す。
// {"notifications": [...]} 形式と、配列そのものの形式を受け付ける。
func decodeSnapshot(raw []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: JSONの後に余分なデータがある", ErrSnapshotInvalid)
	}

	switch v := root.(type) {
	case []any:
		return v, nil
	case map[string]any:
		records, ok := v["notifications"].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: notificationsが配列ではない", ErrSnapshotInvalid)
		}
		return records, nil
	default:
		return nil, fmt.Errorf("%w: コンテナの型が不正 (%T)", ErrSnapshotInvalid, root)
	}
}

// normalizeRecord はリモートのレコードを通知に変換する。IDが使えない場合はfalseを返す。
func normalizeRecord(rec map[string]any, now time.Time) (Notification, bool) {
	id, ok := recordID(rec)
	if !ok {
		return Notification{}, false
	}

	n := Notification{
		ID:        id,
		Type:      parseType(rec["type"]),
		Priority:  parsePriority(rec["priority"]),
		Title:     stringField(rec["title"]),
		Message:   stringField(rec["message"]),
		Timestamp: parseTimestamp(rec, now),
		Read:      isRead(rec),
		Origin:    OriginRemote,
	}
	if data, ok := rec["data"].(map[string]any); ok {
		n.Data = data
	}
	return n, true
}

func recordID(rec map[string]any) (string, bool) {
	switch v := rec["id"].(type) {
	case string:
		id := strings.TrimSpace(v)
		return id, id != ""
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

// isRead はいずれかの既読フィールドが既読を表していればtrueを返す。
func isRead(rec map[string]any) bool {
	for _, key := range readStateKeys {
		v, ok := rec[key]
		if !ok {
			continue
		}
		for _, enc := range readStateEncodings {
			if enc.match(v) {
				return true
			}
		}
	}
	return false
}

// parseTimestamp は作成日時を解釈する。どのフィールドも解釈できなければnowを返す。
func parseTimestamp(rec map[string]any, now time.Time) time.Time {
	for _, key := range timestampKeys {
		switch v := rec[key].(type) {
		case string:
			for _, layout := range timestampLayouts {
				if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
					return t.UTC()
				}
			}
		case json.Number:
			if ms, err := v.Int64(); err == nil {
				return time.UnixMilli(ms).UTC()
			}
		}
	}
	return now
}

func parseType(v any) Type {
	s, _ := v.(string)
	if t, ok := knownTypes[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t
	}
	return TypeInfo
}

func parsePriority(v any) Priority {
	s, _ := v.(string)
	if p, ok := knownPriorities[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p
	}
	return PriorityMedium
}

func stringField(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return ""
	}
}
