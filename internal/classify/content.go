// SPDX-License-Identifier: MPL-2.0

package classify

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// DefaultSniffLimit is how many leading bytes NulSniffer inspects.
const DefaultSniffLimit = 4096

type (
	// ContentClassifier reports whether a file holds binary content and is
	// therefore ineligible for textual rewriting.
	ContentClassifier interface {
		IsBinary(path string) (bool, error)
	}

	// NulSniffer treats a file as binary when a NUL byte appears within its
	// first Limit bytes. Some valid text encodings (UTF-16) are misreported as
	// binary; that approximation is accepted.
	NulSniffer struct {
		// Limit defaults to DefaultSniffLimit when zero.
		Limit int
	}
)

// IsBinary implements ContentClassifier.
func (s NulSniffer) IsBinary(path string) (bool, error) {
	limit := s.Limit
	if limit <= 0 {
		limit = DefaultSniffLimit
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, limit)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return bytes.IndexByte(buf[:n], 0) >= 0, nil
}
