package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/upskill/internal/domain/model"
	"github.com/okian/upskill/pkg/metrics"
)

// Both drivers keep documents as JSON so a value read back never aliases
// what the caller wrote, and numbers keep their literal form.
func encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrStorage, err)
	}
	return b, nil
}

func decode(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrStorage, err)
	}
	return nil
}

func stamp(entry *model.AuditEntry, now time.Time) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.TS == "" {
		entry.TS = now.UTC().Format(time.RFC3339Nano)
	}
}

// observe records latency and failures for one store operation.
func observe(driver, op string, start time.Time, err error) {
	metrics.RecordStoreOperation(driver, op, float64(time.Since(start).Microseconds())/1000, err != nil)
}
