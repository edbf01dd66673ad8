package chunks

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// EncodeJSONL serializes records as newline-delimited JSON, one record per
// line. The encoding is deterministic for a given record list, so the
// content hash of two identical runs matches.
func EncodeJSONL(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	for i := range records {
		line, err := json.Marshal(&records[i])
		if err != nil {
			return nil, fmt.Errorf("marshal chunk %s: %w", records[i].ChunkID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// DecodeJSONL parses a newline-delimited artifact back into records. Blank
// lines are skipped.
func DecodeJSONL(data []byte) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("parse artifact line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return records, nil
}

// Hash returns the hex sha-256 digest of an artifact's bytes.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}
