package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// snapshotVersion is the on-disk format version this build writes. Readers
// accept this version and the legacy version lacking the command/sequence
// fields, loading those as (CommandUnknown, 0, false), so a re-saved legacy
// entry is written with commandDesc "unknown".
const snapshotVersion = "2.1"

type snapshotFile struct {
	Version   string           `json:"version"`
	Timestamp string           `json:"timestamp"`
	Entries   []snapshotEntry  `json:"entries"`
}

type snapshotEntry struct {
	Timestamp     string `json:"timestamp"`
	FileOffset    string `json:"fileOffset"`
	Size          uint32 `json:"size"`
	FileName      string `json:"fileName"`
	BatchID       uint32 `json:"batchId"`
	PacketIndex   uint32 `json:"packetIndex"`
	CommandType   uint8  `json:"commandType"`
	Sequence      uint32 `json:"sequence"`
	IsValidHeader bool   `json:"isValidHeader"`
	CommandDesc   string `json:"commandDesc"`
}

func toEntry(d PacketDescriptor) snapshotEntry {
	return snapshotEntry{
		Timestamp:     strconv.FormatUint(d.TimestampNs, 10),
		FileOffset:    strconv.FormatUint(d.FileOffset, 10),
		Size:          d.Size,
		FileName:      d.FilePath,
		BatchID:       d.BatchID,
		PacketIndex:   d.PacketIndex,
		CommandType:   uint8(d.CommandType),
		Sequence:      d.Sequence,
		IsValidHeader: d.ValidHeader,
		CommandDesc:   d.CommandType.String(),
	}
}

func fromEntry(e snapshotEntry, legacy bool) (PacketDescriptor, error) {
	ts, err := strconv.ParseUint(e.Timestamp, 10, 64)
	if err != nil {
		return PacketDescriptor{}, errors.Wrap(err, "index: bad timestamp in snapshot entry")
	}
	off, err := strconv.ParseUint(e.FileOffset, 10, 64)
	if err != nil {
		return PacketDescriptor{}, errors.Wrap(err, "index: bad fileOffset in snapshot entry")
	}
	d := PacketDescriptor{
		TimestampNs: ts,
		FilePath:    e.FileName,
		FileOffset:  off,
		Size:        e.Size,
		BatchID:     e.BatchID,
		PacketIndex: e.PacketIndex,
	}
	if legacy {
		d.CommandType = CommandUnknown
		d.Sequence = 0
		d.ValidHeader = false
	} else {
		d.CommandType = CommandType(e.CommandType)
		d.Sequence = e.Sequence
		d.ValidHeader = e.IsValidHeader
	}
	return d, nil
}

// writeSnapshot atomically replaces {path}.json with the current descriptor
// set: write to a temp file in the same directory, fsync, then rename. The
// rename is what makes a concurrent reader never observe a half-written
// snapshot, the same discipline the teacher's connectors use for durable
// single-writer files.
func writeSnapshot(path string, descs []PacketDescriptor) error {
	doc := snapshotFile{
		Version:   snapshotVersion,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Entries:   make([]snapshotEntry, len(descs)),
	}
	for i, d := range descs {
		doc.Entries[i] = toEntry(d)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "index: marshal snapshot")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "index: create temp snapshot")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "index: write temp snapshot")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "index: fsync temp snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "index: close temp snapshot")
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "index: rename temp snapshot into place")
	}
	return nil
}

// readSnapshot loads a snapshot file. A missing file is not an error: it
// simply yields an empty descriptor set, matching an empty-index open.
func readSnapshot(path string) ([]PacketDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "index: read snapshot")
	}

	var doc snapshotFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "index: parse snapshot json")
	}

	legacy := doc.Version != snapshotVersion
	out := make([]PacketDescriptor, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		d, err := fromEntry(e, legacy)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
