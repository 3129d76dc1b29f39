package xmlfile

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// snapshotFile owns one XML snapshot file and the mutex serializing every
// access to it. The lock must be held for the entire load-mutate-save
// sequence of a logical operation, never per call, otherwise two callers
// can interleave and one write silently overwrites the other.
type snapshotFile struct {
	path string
	mu   sync.Mutex
}

// read unmarshals the file into doc. It reports found=false when the file
// does not exist yet, which callers treat as an empty first-run collection
// rather than an error. The caller must hold f.mu.
func (f *snapshotFile) read(doc any) (found bool, err error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", f.path, err)
	}
	if err := xml.Unmarshal(data, doc); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", f.path, err)
	}
	return true, nil
}

// write marshals doc and replaces the file via a temp file and rename so a
// failed write never leaves a truncated snapshot behind. The caller must
// hold f.mu.
func (f *snapshotFile) write(doc any) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	data, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", f.path, err)
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
