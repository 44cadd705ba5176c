// SPDX-License-Identifier: MPL-2.0

package classify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// MetaDir is the archive metadata directory.
	MetaDir = "META-INF"
	// ManifestPath is the manifest location relative to an archive root.
	ManifestPath = MetaDir + "/MANIFEST.MF"

	classExt = ".class"
	jarExt   = ".jar"
)

// EmbeddedLibraryDirs are the nested-library directories under META-INF used
// by the different loaders (jar-in-jar and fabric "jars").
var EmbeddedLibraryDirs = []string{"jars", "jarjar"}

// ServicesDir is the service-loader descriptor directory under META-INF.
const ServicesDir = "services"

type (
	// Scanner walks an extracted archive and reports the files each
	// re-linking stage must handle.
	Scanner struct {
		Content   ContentClassifier
		Resources ResourceClassifier
	}

	// MixinResources groups the mixin-related resources found in one tree.
	// A file appears in at most one list.
	MixinResources struct {
		Mixins         []string
		Refmaps        []string
		AccessWideners []string
	}

	// Findings is everything Scan found in one extracted archive.
	Findings struct {
		EmbeddedLibraries []string
		Services          []string
		MixinResources
		TextFiles []string
	}
)

// NewScanner returns a Scanner using NUL sniffing for content and rc for
// resources. A nil rc selects the heuristic classifier.
func NewScanner(rc ResourceClassifier) *Scanner {
	if rc == nil {
		rc = Heuristic{}
	}
	return &Scanner{Content: NulSniffer{}, Resources: rc}
}

// EmbeddedLibraries returns the nested jar files directly inside the
// META-INF library directories of dir.
func (s *Scanner) EmbeddedLibraries(dir string) ([]string, error) {
	var out []string
	for _, sub := range EmbeddedLibraryDirs {
		libDir := filepath.Join(dir, MetaDir, sub)
		entries, err := readDirIfExists(libDir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), jarExt) {
				out = append(out, filepath.Join(libDir, e.Name()))
			}
		}
	}
	return out, nil
}

// PlatformServices returns the service descriptors in META-INF/services
// whose base name (final extension removed) contains group. Descriptors for
// interfaces outside the shared codebase are left alone.
func (s *Scanner) PlatformServices(dir, group string) ([]string, error) {
	servicesDir := filepath.Join(dir, MetaDir, ServicesDir)
	entries, err := readDirIfExists(servicesDir)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if strings.Contains(base, group) {
			out = append(out, filepath.Join(servicesDir, e.Name()))
		}
	}
	return out, nil
}

// TextFiles returns every non-class file under dir that the content
// classifier reports as text, in lexical walk order.
func (s *Scanner) TextFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.EqualFold(filepath.Ext(path), classExt) {
			return nil
		}
		binary, err := s.Content.IsBinary(path)
		if err != nil {
			return err
		}
		if !binary {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return out, nil
}

// MixinResources classifies the text files under dir. Reference maps are
// only looked for when includeRefmaps is set and access-wideners only when
// includeWideners is set; the privileged variant keeps both under their
// original names.
func (s *Scanner) MixinResources(dir string, includeRefmaps, includeWideners bool) (MixinResources, error) {
	var res MixinResources

	files, err := s.TextFiles(dir)
	if err != nil {
		return res, err
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return res, fmt.Errorf("failed to read %s: %w", path, err)
		}
		name := filepath.Base(path)

		switch {
		case includeRefmaps && s.Resources.IsRefmap(name, data):
			res.Refmaps = append(res.Refmaps, path)
		case s.Resources.IsMixinConfig(name, data):
			res.Mixins = append(res.Mixins, path)
		case includeWideners && s.Resources.IsAccessWidener(name, data):
			res.AccessWideners = append(res.AccessWideners, path)
		}
	}
	return res, nil
}

// Scan runs every walk over dir. privileged selects the privileged variant's
// rules (no reference maps, no access-wideners).
func (s *Scanner) Scan(dir, group string, privileged bool) (*Findings, error) {
	libs, err := s.EmbeddedLibraries(dir)
	if err != nil {
		return nil, err
	}
	services, err := s.PlatformServices(dir, group)
	if err != nil {
		return nil, err
	}
	mixins, err := s.MixinResources(dir, !privileged, !privileged)
	if err != nil {
		return nil, err
	}
	text, err := s.TextFiles(dir)
	if err != nil {
		return nil, err
	}
	return &Findings{
		EmbeddedLibraries: libs,
		Services:          services,
		MixinResources:    mixins,
		TextFiles:         text,
	}, nil
}

func readDirIfExists(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	return entries, nil
}
