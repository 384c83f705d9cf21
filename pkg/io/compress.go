package io

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/matzehuels/poa/pkg/errors"
)

// CompressedExt is the file extension that turns on zstd compression.
const CompressedExt = ".zst"

// Open opens path for reading, decompressing it when it ends in ".zst".
// A missing file is reported with code FILE_NOT_FOUND, any other failure
// to open with INVALID_INPUT, and undecodable compressed data with
// INVALID_FORMAT.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	if !strings.HasSuffix(path, CompressedExt) {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "zstd %s", path)
	}
	return &zstdReader{dec: dec, f: f, path: path}, nil
}

// Create creates path for writing, compressing it when it ends in ".zst".
// Close must be called to flush the output. Failures are reported with
// code INVALID_INPUT.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "create %s", path)
	}
	if !strings.HasSuffix(path, CompressedExt) {
		return f, nil
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "zstd %s", path)
	}
	return &zstdWriter{enc: enc, f: f}, nil
}

type zstdReader struct {
	dec  *zstd.Decoder
	f    *os.File
	path string
}

func (r *zstdReader) Read(p []byte) (int, error) {
	n, err := r.dec.Read(p)
	if err != nil && err != io.EOF {
		err = errors.Wrap(errors.ErrCodeInvalidFormat, err, "zstd %s", r.path)
	}
	return n, err
}

func (r *zstdReader) Close() error {
	r.dec.Close()
	return r.f.Close()
}

type zstdWriter struct {
	enc *zstd.Encoder
	f   *os.File
}

func (w *zstdWriter) Write(p []byte) (int, error) { return w.enc.Write(p) }

func (w *zstdWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// export creates path and runs write on it, reporting the first error of
// write or Close.
func export(path string, write func(io.Writer) error) (err error) {
	w, err := Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil && cerr != nil {
			err = errors.Wrap(errors.ErrCodeInvalidInput, cerr, "close %s", path)
		}
	}()
	return write(w)
}

// load opens path and runs read on it.
func load[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	r, err := Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer r.Close()
	return read(r)
}
