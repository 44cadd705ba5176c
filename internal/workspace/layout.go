// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/invowk/fusioner/pkg/types"
)

const (
	stagingSuffix = "-temp"
	mergeDirName  = "merged-temp"
	relocatedDir  = "relocated"
)

// Layout names the directories of one run's workspace. All of them are
// children of Root, which the run owns outright.
type Layout struct {
	Root string
}

// Create returns a Layout rooted at root. When root is empty a new temporary
// directory is created; otherwise root is cleared and recreated.
func Create(root string) (*Layout, error) {
	if root == "" {
		dir, err := os.MkdirTemp("", "fusioner-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create temporary workspace: %w", err)
		}
		return &Layout{Root: dir}, nil
	}
	if err := FreshDir(root); err != nil {
		return nil, err
	}
	return &Layout{Root: root}, nil
}

// StagingDir is the private extraction directory of variant v.
func (l *Layout) StagingDir(v types.VariantName) string {
	return filepath.Join(l.Root, v.String()+stagingSuffix)
}

// MergeDir is the unified directory every staging tree is merged into.
func (l *Layout) MergeDir() string {
	return filepath.Join(l.Root, mergeDirName)
}

// RelocatedArchive is where the relocated copy of v's input archive is written.
func (l *Layout) RelocatedArchive(v types.VariantName) string {
	return filepath.Join(l.Root, relocatedDir, v.String()+".jar")
}

// Remove deletes the whole workspace.
func (l *Layout) Remove() error {
	if err := os.RemoveAll(l.Root); err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", l.Root, err)
	}
	return nil
}
