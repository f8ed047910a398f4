package vector

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/hyperjump/kotae/internal/models"
)

// Snapshot layout per collection <name> under the store directory:
//
//	<name>.vec            magic, dimensions, count (uint32 LE), then
//	                      count x dimensions float32 LE
//	<name>_metadata.json  JSON array of ChunkRecord in insertion order
//
// Both artifacts are written to temp files and renamed into place on every
// mutation. Loading requires both to exist with equal counts; one or neither
// present means the collection starts empty.
const vecMagic uint32 = 0x6b766563 // "kvec"

func (s *Store) vectorPath() string {
	return filepath.Join(s.dir, s.collection+".vec")
}

func (s *Store) metadataPath() string {
	return filepath.Join(s.dir, s.collection+"_metadata.json")
}

// persistLocked writes both snapshot artifacts. Callers hold the write lock.
func (s *Store) persistLocked() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	vecTmp := s.vectorPath() + ".tmp"
	if err := s.writeVectors(vecTmp); err != nil {
		return err
	}
	metaTmp := s.metadataPath() + ".tmp"
	if err := s.writeMetadata(metaTmp); err != nil {
		_ = os.Remove(vecTmp)
		return err
	}
	if err := os.Rename(vecTmp, s.vectorPath()); err != nil {
		_ = os.Remove(vecTmp)
		_ = os.Remove(metaTmp)
		return fmt.Errorf("commit vector artifact: %w", err)
	}
	if err := os.Rename(metaTmp, s.metadataPath()); err != nil {
		_ = os.Remove(metaTmp)
		return fmt.Errorf("commit metadata artifact: %w", err)
	}
	return nil
}

func (s *Store) writeVectors(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vector artifact: %w", err)
	}
	defer f.Close()

	header := []uint32{vecMagic, uint32(s.dimensions), uint32(len(s.vectors))}
	for _, v := range header {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write vector header: %w", err)
		}
	}
	buf := make([]byte, s.dimensions*4)
	for _, vec := range s.vectors {
		for i, v := range vec {
			binary.LittleEndian.PutUint32(buf[i*4:(i+1)*4], math.Float32bits(v))
		}
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

func (s *Store) writeMetadata(path string) error {
	records := s.records
	if records == nil {
		records = []models.ChunkRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write metadata artifact: %w", err)
	}
	return nil
}

// loadSnapshot restores vectors and metadata from disk. Both artifacts must
// be present; otherwise the store starts empty. A count mismatch between the
// two is ErrIntegrity.
func (s *Store) loadSnapshot() error {
	vectors, vecErr := s.readVectors(s.vectorPath())
	metaData, metaErr := os.ReadFile(s.metadataPath())
	if os.IsNotExist(vecErr) || os.IsNotExist(metaErr) {
		return nil
	}
	if vecErr != nil {
		return vecErr
	}
	if metaErr != nil {
		return fmt.Errorf("read metadata artifact: %w", metaErr)
	}

	var records []models.ChunkRecord
	if err := json.Unmarshal(metaData, &records); err != nil {
		return fmt.Errorf("parse metadata artifact: %w", err)
	}
	if len(records) != len(vectors) {
		return fmt.Errorf("%w: %d vectors, %d records", ErrIntegrity, len(vectors), len(records))
	}
	s.vectors = vectors
	s.records = records
	return nil
}

func (s *Store) readVectors(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var magic, dim, count uint32
	for _, p := range []*uint32{&magic, &dim, &count} {
		if err := binary.Read(f, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("read vector header: %w", err)
		}
	}
	if magic != vecMagic {
		return nil, fmt.Errorf("vector artifact has unknown format")
	}
	if int(dim) != s.dimensions {
		return nil, fmt.Errorf("vector artifact dimension %d, store expects %d", dim, s.dimensions)
	}
	vectors := make([][]float32, 0, count)
	buf := make([]byte, s.dimensions*4)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		vec := make([]float32, s.dimensions)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4 : (j+1)*4]))
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}
