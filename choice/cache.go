package choice

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Cache persists compiled Programs to disk, keyed by a content hash of the
// choice name and its normalized, tag-resolved statements, mirroring the
// original implementation's CacheHandler: a `{name}_{hash[:8]}.json`
// artifact file and a paired `{name}_metadata.json` sidecar recording the
// full hash, the artifact's path, and the JSONPath-to-parameter mapping.
type Cache struct {
	Dir string
}

// NewCache creates a Cache rooted at dir, creating the directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("choice: creating cache dir %s: %w", dir, err)
	}
	return &Cache{Dir: dir}, nil
}

type cacheMetadata struct {
	Hash       string            `json:"hash"`
	CacheFile  string            `json:"cache_file"`
	ParamPaths map[string]string `json:"jsonpath_params"`
	CreatedAt  time.Time         `json:"created_at"`
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func safeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// ContentHash computes the SHA-256 digest of the choice's name and its
// normalized statements, matching the original's
// `json.dumps({'choice_name':..., 'conditions':...}, sort_keys=True)`
// hashing scheme.
func ContentHash(choiceName string, statements []string) [32]byte {
	payload := struct {
		ChoiceName string   `json:"choice_name"`
		Conditions []string `json:"conditions"`
	}{ChoiceName: choiceName, Conditions: statements}
	// The struct's two fields already serialize in a fixed order, so this
	// is equivalent to a sort_keys dump without needing a map.
	data, _ := json.Marshal(payload)
	return sha256.Sum256(data)
}

func (c *Cache) metadataPath(name string) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%s_metadata.json", safeName(name)))
}

func (c *Cache) artifactPath(name string, hash [32]byte) string {
	hexHash := hex.EncodeToString(hash[:])
	return filepath.Join(c.Dir, fmt.Sprintf("%s_%s.json", safeName(name), hexHash[:8]))
}

// Load returns the cached Program for name and hash if present and valid
// (the metadata's recorded hash matches exactly), and false otherwise.
func (c *Cache) Load(name string, hash [32]byte) (*Program, bool) {
	metaRaw, err := os.ReadFile(c.metadataPath(name))
	if err != nil {
		return nil, false
	}
	var meta cacheMetadata
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, false
	}
	if meta.Hash != hex.EncodeToString(hash[:]) {
		return nil, false
	}
	progRaw, err := os.ReadFile(c.artifactPath(name, hash))
	if err != nil {
		return nil, false
	}
	var prog Program
	if err := json.Unmarshal(progRaw, &prog); err != nil {
		return nil, false
	}
	return &prog, true
}

// Save writes prog's artifact and metadata atomically (temp file plus
// rename), then removes any stale artifact left behind by a previous
// compilation of the same choice name under a different hash.
func (c *Cache) Save(name string, hash [32]byte, prog *Program) error {
	artifactPath := c.artifactPath(name, hash)
	progData, err := json.MarshalIndent(prog, "", "  ")
	if err != nil {
		return fmt.Errorf("choice: marshaling program: %w", err)
	}
	if err := atomicWrite(artifactPath, progData); err != nil {
		return err
	}

	meta := cacheMetadata{
		Hash:       hex.EncodeToString(hash[:]),
		CacheFile:  filepath.Base(artifactPath),
		ParamPaths: prog.ParamPaths,
		CreatedAt:  time.Now(),
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("choice: marshaling cache metadata: %w", err)
	}
	if err := atomicWrite(c.metadataPath(name), metaData); err != nil {
		return err
	}

	c.cleanupStale(name, filepath.Base(artifactPath))
	return nil
}

// cleanupStale removes cached artifact files for name other than keep. It
// is a best-effort disk-space reclamation pass: a failed removal, or a
// race with a concurrent compiler that is simultaneously writing a
// different hash, is not treated as an error. See DESIGN.md's Open
// Question decision on cache GC.
func (c *Cache) cleanupStale(name, keep string) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return
	}
	prefix := safeName(name) + "_"
	for _, entry := range entries {
		n := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(n, prefix) || !strings.HasSuffix(n, ".json") {
			continue
		}
		if n == keep || strings.HasSuffix(n, "_metadata.json") {
			continue
		}
		// Only `{name}_{8 hex}.json` belongs to name; a longer remainder is
		// another choice whose safe name merely starts with this prefix.
		hashPart := strings.TrimSuffix(strings.TrimPrefix(n, prefix), ".json")
		if len(hashPart) != 8 || strings.Trim(hashPart, "0123456789abcdef") != "" {
			continue
		}
		_ = os.Remove(filepath.Join(c.Dir, n))
	}
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("choice: creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("choice: writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("choice: closing %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("choice: renaming into place %s: %w", path, err)
	}
	return nil
}
