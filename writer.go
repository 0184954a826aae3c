// Package optimize implements a website archive optimization pipeline.
// This file contains the deterministic output archive writer.
package optimize

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// WriteArchive serializes the outcome sequence into a zip archive.
//
// Determinism contract: byte-identical inputs with identical transform
// versions produce byte-identical archives. To that end every entry uses
// fixed metadata (zero timestamp, 0644 mode), entries appear in outcome
// order (which the orchestrator keeps equal to input archive order), and
// deflate runs at a fixed level through klauspost/compress.
//
// Failed and Skipped outcomes carry their original bytes, so the archive
// always contains exactly one entry per input file.
func WriteArchive(w io.Writer, outcomes []TransformOutcome) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for _, o := range outcomes {
		hdr := &zip.FileHeader{
			Name:   o.Path,
			Method: zip.Deflate,
		}
		hdr.SetMode(0o644)

		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			return NewPipelineError("write", o.Path, fmt.Errorf("create entry: %w", err))
		}
		if _, err := fw.Write(o.Output); err != nil {
			return NewPipelineError("write", o.Path, fmt.Errorf("write entry: %w", err))
		}
	}

	if err := zw.Close(); err != nil {
		return NewPipelineError("write", "", fmt.Errorf("finalize archive: %w", err))
	}
	return nil
}
