// Package audit records every raid resolution as a compressed JSON line.
//
// Files rotate hourly and are named raids-YYYY-MM-DD-HH.jsonl.zst. A file
// reopened after restart gains another zstd frame, which readers decode as
// one stream.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/raid"
	"github.com/louisbranch/throne-of-dust/internal/services/kingdom/domain/resource"
)

// FilePrefix names every audit file.
const FilePrefix = "raids"

// Record is one resolved raid with every draw that decided it.
type Record struct {
	RaidID     string           `json:"raid_id"`
	PlayerID   string           `json:"player_id"`
	Map        raid.MapID       `json:"map"`
	AllyMode   bool             `json:"ally_mode"`
	RadarLevel int              `json:"radar_level"`
	Seed       int64            `json:"seed"`
	ResolvedAt time.Time        `json:"resolved_at"`
	Trace      raid.Trace       `json:"trace"`
	Outcome    raid.Outcome     `json:"outcome"`
	Credited   resource.Amounts `json:"credited"`
	Members    []raid.Member    `json:"members"`
}

// NewRecord builds the audit record of a resolution.
func NewRecord(res raid.Resolution, radarLevel int, seed int64) Record {
	rec := Record{
		RaidID:     res.Raid.ID,
		PlayerID:   res.Raid.PlayerID,
		Map:        res.Raid.Map,
		AllyMode:   res.Raid.AllyMode,
		RadarLevel: radarLevel,
		Seed:       seed,
		ResolvedAt: res.Raid.ResolvedAt,
		Trace:      res.Trace,
		Credited:   res.Credited,
		Members:    res.Raid.Members,
	}
	if res.Raid.Outcome != nil {
		rec.Outcome = *res.Raid.Outcome
	}
	return rec
}

// Writer appends records to hourly files under a directory.
type Writer struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewWriter creates a writer for dir. Files are opened lazily.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Write appends one record and flushes it to disk.
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

// Close flushes and closes the current file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// PathForHour returns the file that holds records written during hour.
func (w *Writer) PathForHour(hour time.Time) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", FilePrefix, hour.UTC().Format("2006-01-02-15")))
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", FilePrefix, hour))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var errs []error
	if w.w != nil {
		errs = append(errs, w.w.Flush())
	}
	if w.enc != nil {
		errs = append(errs, w.enc.Close())
		w.enc = nil
	}
	if w.f != nil {
		errs = append(errs, w.f.Close())
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return errors.Join(errs...)
}

// Decode reads zstd-compressed JSON lines from r and calls fn per record.
func Decode(r io.Reader, fn func(Record) error) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	jd := json.NewDecoder(dec)
	for {
		var rec Record
		if err := jd.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode audit record: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
