// Package importer runs the multi-file training data import pipeline: file
// classification, YAML parsing, quota and lock gating, cross-reference
// validation and the per-kind transactional commit, tracked end to end by an
// importer log.
package importer

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
)

// Upload is the classified content of one import request, keyed by file
// class. Unknown files are recorded but never parsed.
type Upload struct {
	Files   map[FileClass][]byte
	Names   []string
	Unknown []string
}

// FileClass identifies what a received file holds, derived from its name
// stem.
type FileClass string

const (
	FileNLU              FileClass = "nlu"
	FileDomain           FileClass = "domain"
	FileStories          FileClass = "stories"
	FileRules            FileClass = "rules"
	FileConfig           FileClass = "config"
	FileActions          FileClass = "actions"
	FileMultiflowStories FileClass = "multiflow_stories"
	FileBotContent       FileClass = "bot_content"
	FileChatClientConfig FileClass = "chat_client_config"
)

// maxZipEntrySize bounds decompressed zip entries to keep a hostile archive
// from exhausting memory.
const maxZipEntrySize = 64 << 20

// ClassifyFiles sorts uploaded files into classes by their name stem. Zip
// archives are extracted recursively and their entries classified in turn.
// A later file of the same class replaces an earlier one.
func ClassifyFiles(files map[string][]byte) (*Upload, error) {
	upload := &Upload{Files: make(map[FileClass][]byte)}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		upload.Names = append(upload.Names, name)
		if err := classifyOne(upload, name, files[name]); err != nil {
			return nil, err
		}
	}
	return upload, nil
}

func classifyOne(upload *Upload, name string, content []byte) error {
	base := path.Base(name)
	if strings.HasSuffix(strings.ToLower(base), ".zip") {
		return extractZip(upload, name, content)
	}

	class, ok := classForStem(base)
	if !ok {
		slog.Debug("importer: unclassified file in upload", "file", name)
		upload.Unknown = append(upload.Unknown, name)
		return nil
	}
	upload.Files[class] = content
	return nil
}

// classForStem maps a file base name to its class. The extension must be
// .yml or .yaml.
func classForStem(base string) (FileClass, bool) {
	ext := strings.ToLower(path.Ext(base))
	if ext != ".yml" && ext != ".yaml" {
		return "", false
	}
	stem := strings.ToLower(strings.TrimSuffix(base, ext))
	switch FileClass(stem) {
	case FileNLU, FileDomain, FileStories, FileRules, FileConfig,
		FileActions, FileMultiflowStories, FileBotContent, FileChatClientConfig:
		return FileClass(stem), true
	default:
		return "", false
	}
}

func extractZip(upload *Upload, name string, content []byte) error {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return fmt.Errorf("read archive %s: %w", name, err)
	}
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		file, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open archive entry %s: %w", entry.Name, err)
		}
		data, err := io.ReadAll(io.LimitReader(file, maxZipEntrySize))
		file.Close()
		if err != nil {
			return fmt.Errorf("read archive entry %s: %w", entry.Name, err)
		}
		if err := classifyOne(upload, entry.Name, data); err != nil {
			return err
		}
	}
	return nil
}
