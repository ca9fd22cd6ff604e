package dictionary

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Source yields the readable byte range holding a system dictionary.
type Source interface {
	Open() (*io.SectionReader, io.Closer, error)
	String() string
}

type pathSource struct {
	path string
}

// PathSource reads the whole file at path.
func PathSource(path string) Source {
	return pathSource{path: path}
}

func (s pathSource) Open() (*io.SectionReader, io.Closer, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to stat %s: %w", s.path, err)
	}
	return io.NewSectionReader(file, 0, info.Size()), file, nil
}

func (s pathSource) String() string {
	return s.path
}

type descriptorSource struct {
	fd     uintptr
	offset int64
	length int64
}

// DescriptorSource reads length bytes at offset of an already open file
// descriptor, the form asset managers hand out for blobs packed in an archive.
// The descriptor is closed once loading finishes. A length of zero or less
// means up to the end of the file.
func DescriptorSource(fd uintptr, offset, length int64) Source {
	return descriptorSource{fd: fd, offset: offset, length: length}
}

func (s descriptorSource) Open() (*io.SectionReader, io.Closer, error) {
	if s.offset < 0 {
		return nil, nil, fmt.Errorf("negative offset %d", s.offset)
	}
	file := os.NewFile(s.fd, s.String())
	if file == nil {
		return nil, nil, fmt.Errorf("invalid descriptor %d", s.fd)
	}
	length := s.length
	if length <= 0 {
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("failed to stat descriptor %d: %w", s.fd, err)
		}
		length = info.Size() - s.offset
	}
	return io.NewSectionReader(file, s.offset, length), file, nil
}

func (s descriptorSource) String() string {
	return fmt.Sprintf("fd:%d@%d+%d", s.fd, s.offset, s.length)
}

type rangeSource struct {
	r      io.ReaderAt
	offset int64
	length int64
}

// RangeSource reads length bytes at offset of r.
func RangeSource(r io.ReaderAt, offset, length int64) Source {
	return rangeSource{r: r, offset: offset, length: length}
}

func (s rangeSource) Open() (*io.SectionReader, io.Closer, error) {
	if s.r == nil {
		return nil, nil, errors.New("nil reader")
	}
	if s.offset < 0 || s.length < 0 {
		return nil, nil, fmt.Errorf("invalid range %d+%d", s.offset, s.length)
	}
	return io.NewSectionReader(s.r, s.offset, s.length), io.NopCloser(nil), nil
}

func (s rangeSource) String() string {
	return fmt.Sprintf("range@%d+%d", s.offset, s.length)
}
