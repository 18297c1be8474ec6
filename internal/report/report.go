// Package report serializes tempering progress to a line-oriented,
// tab-separated text stream: one quoted header line, then one data line per
// report interval carrying the step index, update factor, current level
// value, potential energy, and the full gauge-shifted weight vector.
package report

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Writer emits the tabular tempering report. The header is written at
// construction; the destination is closed explicitly via Close, never by
// finalization.
type Writer struct {
	out io.Writer
	gz  *gzip.Writer
	// file is non-nil when the writer opened the destination itself and
	// therefore owns its lifetime.
	file *os.File
}

// NewWriter writes the report to an existing stream. The caller keeps
// ownership of w; Close flushes but does not close it.
func NewWriter(w io.Writer, levelValues []float64) (*Writer, error) {
	rw := &Writer{out: w}
	if err := rw.writeHeader(levelValues); err != nil {
		return nil, err
	}
	return rw, nil
}

// Open creates the report file at path. A ".gz" suffix selects transparent
// gzip compression; ".bz2" is not supported. The file is owned by the
// writer and closed by Close.
func Open(path string, levelValues []float64) (*Writer, error) {
	if strings.HasSuffix(path, ".bz2") {
		return nil, fmt.Errorf("report: bzip2 compression is not supported, use .gz")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: create %s: %w", path, err)
	}

	rw := &Writer{out: f, file: f}
	if strings.HasSuffix(path, ".gz") {
		rw.gz = gzip.NewWriter(f)
		rw.out = rw.gz
	}

	if err := rw.writeHeader(levelValues); err != nil {
		f.Close()
		return nil, err
	}
	return rw, nil
}

func (w *Writer) writeHeader(levelValues []float64) error {
	fields := []string{"Steps", "weightUpdate", "Level", "PotentialEnergy"}
	for _, v := range levelValues {
		fields = append(fields, fmt.Sprintf("%g Weight", v))
	}

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('\t')
		}
		b.WriteByte('"')
		b.WriteString(f)
		b.WriteByte('"')
	}
	b.WriteByte('\n')

	if _, err := io.WriteString(w.out, b.String()); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}
	return nil
}

// WriteLine emits one data line: the step index, then the update factor,
// the current level's parameter value, its potential energy in kJ/mol, and
// every gauge-shifted weight, all tab-separated in compact %g format.
func (w *Writer) WriteLine(step int, updateFactor, levelValue, potentialEnergy float64, weights []float64) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", step)
	for _, v := range append([]float64{updateFactor, levelValue, potentialEnergy}, weights...) {
		fmt.Fprintf(&b, "\t%g", v)
	}
	b.WriteByte('\n')

	if _, err := io.WriteString(w.out, b.String()); err != nil {
		return fmt.Errorf("report: write line: %w", err)
	}
	return nil
}

// Close flushes any compression buffer and closes the destination if the
// writer owns it.
func (w *Writer) Close() error {
	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			return fmt.Errorf("report: close gzip stream: %w", err)
		}
	}
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("report: close file: %w", err)
		}
		w.file = nil
	}
	return nil
}
