package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hammamikhairi/voicevibe/internal/logger"
)

// maxMemEntries bounds the in-memory tier.
const maxMemEntries = 256

// AudioCache keeps synthesized WAV audio in memory and, optionally, on
// disk under <dir>/<voice>/<sha256(text)>.wav. Lines are cached per
// voice: the same sentence spoken by speaker A and speaker B is stored
// twice. The memory tier evicts oldest-first once it is full; the disk
// tier is never pruned.
type AudioCache struct {
	log       *logger.Logger
	dir       string
	diskWrite bool

	mu      sync.Mutex
	entries map[string][]byte
	order   []string // insertion order, oldest first

	hits   atomic.Int64
	misses atomic.Int64
}

// NewAudioCache creates a cache. An empty dir disables the disk tier;
// with diskWrite false existing files are still read.
func NewAudioCache(dir string, diskWrite bool, log *logger.Logger) *AudioCache {
	if dir != "" && diskWrite {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("cache: creating %s: %v", dir, err)
		}
	}
	return &AudioCache{
		log:       log,
		dir:       dir,
		diskWrite: diskWrite,
		entries:   make(map[string][]byte),
	}
}

// Get returns the audio for text in voice, promoting disk hits to memory.
func (c *AudioCache) Get(voice, text string) ([]byte, bool) {
	key := cacheKey(voice, text)

	c.mu.Lock()
	data, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		c.hits.Add(1)
		return data, true
	}

	if data, ok := c.readDisk(voice, text); ok {
		c.remember(key, data)
		c.hits.Add(1)
		c.log.Debug("cache: disk hit %q (%s)", truncate(text, 40), voice)
		return data, true
	}
	c.misses.Add(1)
	return nil, false
}

// Put stores audio for text in voice.
func (c *AudioCache) Put(voice, text string, audio []byte) {
	c.remember(cacheKey(voice, text), audio)
	if c.dir != "" && c.diskWrite {
		c.writeDisk(voice, text, audio)
	}
}

// Has reports whether either tier holds text in voice.
func (c *AudioCache) Has(voice, text string) bool {
	c.mu.Lock()
	_, ok := c.entries[cacheKey(voice, text)]
	c.mu.Unlock()
	if ok || c.dir == "" {
		return ok
	}
	_, err := os.Stat(c.diskPath(voice, text))
	return err == nil
}

// Len is the number of entries in memory.
func (c *AudioCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts since creation.
func (c *AudioCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *AudioCache) remember(key string, audio []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = audio
	for len(c.order) > maxMemEntries {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
}

func cacheKey(voice, text string) string {
	return voice + "\x00" + text
}

func (c *AudioCache) diskPath(voice, text string) string {
	sum := sha256.Sum256([]byte(text))
	return filepath.Join(c.dir, voiceDir(voice), hex.EncodeToString(sum[:])+".wav")
}

// voiceDir turns "en-US-JennyNeural" into a safe directory name.
func voiceDir(voice string) string {
	if voice == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, voice)
}

func (c *AudioCache) readDisk(voice, text string) ([]byte, bool) {
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.diskPath(voice, text))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

// writeDisk writes through a temp file so a crash never leaves a
// truncated clip behind.
func (c *AudioCache) writeDisk(voice, text string, audio []byte) {
	path := c.diskPath(voice, text)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.log.Error("cache: %v", err)
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".clip-*")
	if err != nil {
		c.log.Error("cache: %v", err)
		return
	}
	_, werr := tmp.Write(audio)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		c.log.Error("cache: writing %s: %v", path, errors.Join(werr, cerr))
		return
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		c.log.Error("cache: %v", err)
	}
}
