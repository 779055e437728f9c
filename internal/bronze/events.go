package bronze

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Alexander-Kershaw/JANUS/internal/model"
	"github.com/Alexander-Kershaw/JANUS/internal/store"
)

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 4 << 20

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
}

func loadEventsFile(ctx context.Context, tx store.Store, path string, ts time.Time, batchSize int, res *Result) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var (
		batch []*model.BronzeEvent
		read  int64
	)
	flush := func() error {
		n, err := tx.InsertBronzeEvents(ctx, batch)
		if err != nil {
			return err
		}
		res.InsertAttempts += int64(len(batch))
		res.Inserted += n
		batch = nil
		return nil
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		e, err := ParseEvent(path, line, ts)
		if err != nil {
			return read, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		read++
		res.RecordsRead++
		batch = append(batch, e)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return read, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return read, fmt.Errorf("%s: %w", path, err)
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return read, err
		}
	}
	return read, nil
}

// ParseEvent decodes one JSONL record into a bronze row. Absent and null
// fields stay nil; only undecodable input is an error.
func ParseEvent(sourceFile string, line []byte, ingestionTS time.Time) (*model.BronzeEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec == nil {
		return nil, errors.New("decode record: not a JSON object")
	}
	if dec.More() {
		return nil, errors.New("decode record: trailing data after object")
	}

	canonical, err := CanonicalJSON(rec)
	if err != nil {
		return nil, err
	}
	e := &model.BronzeEvent{
		SourceFile:  sourceFile,
		IngestionTS: ingestionTS,
		RowHash:     RowHash(sourceFile, string(canonical)),
	}

	for _, f := range []struct {
		key string
		dst **string
	}{
		{"event_id", &e.EventID},
		{"user_id", &e.UserID},
		{"device_id", &e.DeviceID},
		{"session_id", &e.SessionID},
		{"event_type", &e.EventType},
	} {
		if *f.dst, err = stringField(rec, f.key); err != nil {
			return nil, err
		}
	}
	if e.EventTS, err = timeField(rec, "event_ts"); err != nil {
		return nil, err
	}
	if e.ReceivedTS, err = timeField(rec, "received_ts"); err != nil {
		return nil, err
	}
	if props, ok := rec["props"]; ok && props != nil {
		if e.Props, err = CanonicalJSON(props); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// CanonicalJSON encodes v compactly with object keys sorted at every depth,
// HTML characters left as is and numbers kept as written.
func CanonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical json: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// RowHash is the hex SHA-256 of the source file and the canonical record.
func RowHash(sourceFile, canonical string) string {
	sum := sha256.Sum256([]byte(sourceFile + "|" + canonical))
	return hex.EncodeToString(sum[:])
}

func stringField(rec map[string]any, key string) (*string, error) {
	switch v := rec[key].(type) {
	case nil:
		return nil, nil
	case string:
		return &v, nil
	case json.Number:
		s := v.String()
		return &s, nil
	case bool:
		s := strconv.FormatBool(v)
		return &s, nil
	default:
		return nil, fmt.Errorf("field %s: expected a scalar, got %T", key, v)
	}
}

func timeField(rec map[string]any, key string) (*time.Time, error) {
	switch v := rec[key].(type) {
	case nil:
		return nil, nil
	case string:
		t, err := ParseTimestamp(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("field %s: expected a timestamp string, got %T", key, v)
	}
}

// ParseTimestamp reads an ISO 8601 timestamp with a Z suffix, a numeric
// offset, or no zone at all (taken as UTC). The result is in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
