package jsondoc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const backupStampLayout = "20060102T150405Z"

// Backup writes a copy of the in-memory document into dir as
// <name>-<UTC stamp>.json and returns the written path. The live file is not
// touched.
func (s *Store) Backup(_ context.Context, dir string) (string, error) {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.doc, "", "    ")
	s.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	path := filepath.Join(dir, s.backupPrefix()+s.now().UTC().Format(backupStampLayout)+".json")
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	s.log.Info("backup written", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

// PruneBackups deletes all but the newest keep backups in dir and returns
// how many were removed. keep <= 0 disables pruning.
func (s *Store) PruneBackups(dir string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, s.backupPrefix()+"*.json"))
	if err != nil {
		return 0, err
	}
	if len(matches) <= keep {
		return 0, nil
	}

	// Stamps sort lexically in time order.
	sort.Strings(matches)
	removed := 0
	for _, p := range matches[:len(matches)-keep] {
		if err := os.Remove(p); err != nil {
			return removed, fmt.Errorf("failed to remove backup: %w", err)
		}
		removed++
	}
	s.log.Debug("backups pruned", zap.String("dir", dir), zap.Int("removed", removed))
	return removed, nil
}

func (s *Store) backupPrefix() string {
	base := filepath.Base(s.path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "-"
}
