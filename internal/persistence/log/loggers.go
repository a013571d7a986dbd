package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"tilegen.ai/internal/generator"
)

const hourLayout = "2006-01-02-15"

// RunLogger appends one JSON line per generation run to an hourly
// zstd-compressed file under <dataDir>/runs.
type RunLogger struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	seg *segment
}

// segment is the open file for one UTC hour. Every open starts a new zstd
// frame, so reopening an hour appends to it.
type segment struct {
	hour string
	f    *os.File
	zw   *zstd.Encoder
	enc  *json.Encoder
}

func NewRunLogger(dataDir string) *RunLogger {
	return &RunLogger{dir: filepath.Join(dataDir, "runs"), now: time.Now}
}

func (l *RunLogger) RecordRun(rec generator.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	hour := l.now().UTC().Format(hourLayout)
	if l.seg == nil || l.seg.hour != hour {
		err := l.seg.close()
		l.seg = nil
		if err != nil {
			return err
		}
		seg, err := openSegment(l.dir, hour)
		if err != nil {
			return err
		}
		l.seg = seg
	}
	if err := l.seg.enc.Encode(rec); err != nil {
		return err
	}
	// End the block so readers of a live file see every finished run.
	return l.seg.zw.Flush()
}

func (l *RunLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.seg.close()
	l.seg = nil
	return err
}

func runFile(dir, hour string) string {
	return filepath.Join(dir, "runs-"+hour+".jsonl.zst")
}

func openSegment(dir, hour string) (*segment, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(runFile(dir, hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{hour: hour, f: f, zw: zw, enc: json.NewEncoder(zw)}, nil
}

func (s *segment) close() error {
	if s == nil {
		return nil
	}
	err := s.zw.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// ReadRuns decodes every record of one run log file. A file may hold
// several zstd frames when a writer reopened the same hour.
func ReadRuns(path string) ([]generator.RunRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []generator.RunRecord
	jd := json.NewDecoder(bufio.NewReader(dec))
	for {
		var rec generator.RunRecord
		if err := jd.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return out, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// RunFiles lists run log files under dataDir, oldest first.
func RunFiles(dataDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dataDir, "runs", "runs-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
