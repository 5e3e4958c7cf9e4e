package plot

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"
)

// Sentinel errors for the auxiliary output store.
var (
	ErrMissingApprox = errors.New("auxiliary output record missing")
	ErrShortApprox   = errors.New("auxiliary output record truncated")
)

// Directory permissions for the auxiliary storage root.
const storeDirPerm = 0o750

// blockHeaderSize is two uint32 fields: uncompressed and compressed length.
// A compressed length of zero marks a raw (incompressible) payload.
const blockHeaderSize = 8

// approxStore persists full running output buffers per checkpoint as LZ4
// block-framed binary files: one float64 record per document per dimension,
// document-major, appended in dataset-part order. The storage root is
// created lazily on first use and removed on cleanup only if this store
// created it.
type approxStore struct {
	tmpDir     string
	createdDir bool
	files      []string
	log        *slog.Logger
}

func newApproxStore(tmpDir string, logger *slog.Logger) *approxStore {
	return &approxStore{
		tmpDir: tmpDir,
		log:    logger,
	}
}

// fileName returns the auxiliary file path for a checkpoint, generating it
// (and the storage root) on first use. A stale file at a freshly generated
// path is removed.
func (s *approxStore) fileName(idx int) (string, error) {
	if idx >= len(s.files) {
		grown := make([]string, idx+1)
		copy(grown, s.files)
		s.files = grown
	}

	if s.files[idx] != "" {
		return s.files[idx], nil
	}

	_, statErr := os.Stat(s.tmpDir)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(s.tmpDir, storeDirPerm)
		if mkdirErr != nil {
			return "", fmt.Errorf("create tmp dir: %w", mkdirErr)
		}

		s.createdDir = true
	}

	suffix := make([]byte, 8)

	_, randErr := rand.Read(suffix)
	if randErr != nil {
		return "", fmt.Errorf("generate approx file name: %w", randErr)
	}

	path := filepath.Join(s.tmpDir, fmt.Sprintf("%s_approx_%d.tmp", hex.EncodeToString(suffix), idx))

	_, staleErr := os.Stat(path)
	if staleErr == nil {
		s.log.Info("approx file already exists, overwriting", slog.String("path", path))

		removeErr := os.Remove(path)
		if removeErr != nil {
			return "", fmt.Errorf("remove stale approx file: %w", removeErr)
		}
	}

	s.files[idx] = path

	return path, nil
}

// save appends the buffer's documents to the checkpoint's file as one
// LZ4-framed block.
func (s *approxStore) save(idx int, approx [][]float64) error {
	path, nameErr := s.fileName(idx)
	if nameErr != nil {
		return nameErr
	}

	payload, encodeErr := encodeRecords(approx)
	if encodeErr != nil {
		return encodeErr
	}

	block := frameBlock(payload)

	f, openErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if openErr != nil {
		return fmt.Errorf("open approx file: %w", openErr)
	}

	_, writeErr := f.Write(block)

	closeErr := f.Close()

	if writeErr != nil {
		return fmt.Errorf("write approx checkpoint %d: %w", idx, writeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close approx checkpoint %d: %w", idx, closeErr)
	}

	s.log.Debug("approx checkpoint spilled",
		slog.Int("checkpoint", idx),
		slog.String("block", humanize.Bytes(uint64(len(block)))),
		slog.String("raw", humanize.Bytes(uint64(len(payload)))))

	return nil
}

// load reads a checkpoint's full buffer back as [dim][doc].
func (s *approxStore) load(idx, docCount, dim int) ([][]float64, error) {
	buf := make([][]float64, dim)
	for d := range buf {
		buf[d] = make([]float64, docCount)
	}

	loadErr := s.loadInto(idx, 0, buf)
	if loadErr != nil {
		return nil, loadErr
	}

	return buf, nil
}

// loadInto fills buf ([dim][doc]) from the checkpoint's file, starting at
// record docOffset. Used both for batch evaluation (offset 0, full width)
// and for resuming accumulation of a later dataset part.
func (s *approxStore) loadInto(idx, docOffset int, buf [][]float64) error {
	if idx >= len(s.files) || s.files[idx] == "" {
		return fmt.Errorf("%w: checkpoint %d", ErrMissingApprox, idx)
	}

	data, readErr := os.ReadFile(s.files[idx])
	if readErr != nil {
		return fmt.Errorf("%w: checkpoint %d: %v", ErrMissingApprox, idx, readErr)
	}

	values, decodeErr := decodeBlocks(data)
	if decodeErr != nil {
		return fmt.Errorf("checkpoint %d: %w", idx, decodeErr)
	}

	dim := len(buf)
	docCount := len(buf[0])

	if len(values) < (docOffset+docCount)*dim {
		return fmt.Errorf("%w: checkpoint %d has %d values, want %d",
			ErrShortApprox, idx, len(values), (docOffset+docCount)*dim)
	}

	for i := 0; i < docCount; i++ {
		record := values[(docOffset+i)*dim:]
		for d := 0; d < dim; d++ {
			buf[d][i] = record[d]
		}
	}

	return nil
}

// remove deletes a consumed checkpoint's file.
func (s *approxStore) remove(idx int) error {
	if idx >= len(s.files) || s.files[idx] == "" {
		return nil
	}

	removeErr := os.Remove(s.files[idx])
	if removeErr != nil && !os.IsNotExist(removeErr) {
		return fmt.Errorf("remove approx checkpoint %d: %w", idx, removeErr)
	}

	s.files[idx] = ""

	return nil
}

// cleanup releases all auxiliary storage. Best effort: failures are logged,
// not returned, so it is safe on both success and failure paths.
func (s *approxStore) cleanup() {
	if s.createdDir {
		removeErr := os.RemoveAll(s.tmpDir)
		if removeErr != nil {
			s.log.Warn("failed to remove tmp dir", slog.String("dir", s.tmpDir), slog.Any("error", removeErr))
		}

		s.createdDir = false
		s.files = nil

		return
	}

	for idx := range s.files {
		if rmErr := s.remove(idx); rmErr != nil {
			s.log.Warn("failed to remove approx file", slog.Any("error", rmErr))
		}
	}

	s.files = nil
}

// encodeRecords serializes the buffer document-major: doc 0's values for
// every dimension, then doc 1, and so on.
func encodeRecords(approx [][]float64) ([]byte, error) {
	dim := len(approx)
	if dim == 0 {
		return nil, nil
	}

	docCount := len(approx[0])
	record := make([]float64, dim)
	payload := new(bytes.Buffer)
	payload.Grow(docCount * dim * 8)

	for i := 0; i < docCount; i++ {
		for d := 0; d < dim; d++ {
			record[d] = approx[d][i]
		}

		writeErr := binary.Write(payload, binary.LittleEndian, record)
		if writeErr != nil {
			return nil, fmt.Errorf("encode approx record %d: %w", i, writeErr)
		}
	}

	return payload.Bytes(), nil
}

// frameBlock wraps a payload in the store's block frame, compressing with
// LZ4 when it pays off. Compressed length zero marks a raw payload.
func frameBlock(payload []byte) []byte {
	compressed := make([]byte, lz4.CompressBlockBound(len(payload)))

	written, err := lz4.CompressBlock(payload, compressed, nil)
	if err != nil || written == 0 || written >= len(payload) {
		block := make([]byte, blockHeaderSize+len(payload))
		binary.LittleEndian.PutUint32(block[0:], uint32(len(payload)))
		binary.LittleEndian.PutUint32(block[4:], 0)
		copy(block[blockHeaderSize:], payload)

		return block
	}

	block := make([]byte, blockHeaderSize+written)
	binary.LittleEndian.PutUint32(block[0:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(block[4:], uint32(written))
	copy(block[blockHeaderSize:], compressed[:written])

	return block
}

// decodeBlocks walks the file's block frames and returns the concatenated
// float64 values of all records.
func decodeBlocks(data []byte) ([]float64, error) {
	var values []float64

	for len(data) > 0 {
		if len(data) < blockHeaderSize {
			return nil, fmt.Errorf("%w: dangling block header", ErrShortApprox)
		}

		rawLen := int(binary.LittleEndian.Uint32(data[0:]))
		compLen := int(binary.LittleEndian.Uint32(data[4:]))
		data = data[blockHeaderSize:]

		payload, rest, blockErr := readBlockPayload(data, rawLen, compLen)
		if blockErr != nil {
			return nil, blockErr
		}

		data = rest

		if rawLen%8 != 0 {
			return nil, fmt.Errorf("%w: payload not float64-aligned", ErrShortApprox)
		}

		chunk := make([]float64, rawLen/8)

		readErr := binary.Read(bytes.NewReader(payload), binary.LittleEndian, chunk)
		if readErr != nil {
			return nil, fmt.Errorf("decode approx block: %w", readErr)
		}

		values = append(values, chunk...)
	}

	return values, nil
}

func readBlockPayload(data []byte, rawLen, compLen int) (payload, rest []byte, err error) {
	if compLen == 0 {
		if len(data) < rawLen {
			return nil, nil, fmt.Errorf("%w: raw block", ErrShortApprox)
		}

		return data[:rawLen], data[rawLen:], nil
	}

	if len(data) < compLen {
		return nil, nil, fmt.Errorf("%w: compressed block", ErrShortApprox)
	}

	payload = make([]byte, rawLen)

	n, uncompressErr := lz4.UncompressBlock(data[:compLen], payload)
	if uncompressErr != nil {
		return nil, nil, fmt.Errorf("decompress approx block: %w", uncompressErr)
	}

	if n != rawLen {
		return nil, nil, fmt.Errorf("%w: decompressed %d of %d bytes", ErrShortApprox, n, rawLen)
	}

	return payload, data[compLen:], nil
}
