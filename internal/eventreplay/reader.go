// Package eventreplay feeds a file of recorded events through the
// supervisor, in process or over HTTP, and summarizes what happened.
package eventreplay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is one event from the input, kept as raw JSON so it reaches the
// supervisor exactly as written.
type Record struct {
	Seq    int
	UserID string
	Raw    json.RawMessage
}

// ReadFile reads records from path; see Read.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read accepts either a JSON array of events or one event per line. Blank
// lines are skipped. Elements that are not objects are kept; the supervisor
// rejects them.
func Read(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInput, err)
	}

	var raws []json.RawMessage
	if first == '[' {
		if err := json.NewDecoder(br).Decode(&raws); err != nil {
			return nil, fmt.Errorf("%w: decode array: %v", ErrInput, err)
		}
	} else {
		sc := bufio.NewScanner(br)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			raws = append(raws, append(json.RawMessage(nil), line...))
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("%w: scan lines: %v", ErrInput, err)
		}
	}

	out := make([]Record, 0, len(raws))
	for i, raw := range raws {
		out = append(out, Record{Seq: i, UserID: userOf(raw), Raw: raw})
	}
	return out, nil
}

const maxLineBytes = 4 << 20

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// userOf extracts user_id for routing; anything unreadable routes together.
func userOf(raw json.RawMessage) string {
	var head struct {
		UserID any `json:"user_id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return ""
	}
	s, _ := head.UserID.(string)
	return strings.TrimSpace(s)
}
