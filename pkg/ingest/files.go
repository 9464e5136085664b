/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: files.go
Description: Plain-file ingestion. Reads hex-encoded messages one per line, or a corpus
directory holding one raw message per file.
*/

package ingest

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kleascm/protoinfer/pkg/core"
)

// ReadHexLines reads one hex-encoded message per line. Blank lines and lines starting
// with '#' are skipped; spaces and ':' separators inside a line are ignored.
func ReadHexLines(r io.Reader) ([]*core.Message, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var msgs []*core.Message
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(line)
		payload, err := hex.DecodeString(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid hex: %w", lineNo, err)
		}
		msgs = append(msgs, core.NewMessage(payload))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hex lines: %w", err)
	}
	return msgs, nil
}

// ReadHexFile opens a file and reads it with ReadHexLines
func ReadHexFile(path string) ([]*core.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hex file: %w", err)
	}
	defer f.Close()
	return ReadHexLines(f)
}

// ReadDir loads every regular file of a corpus directory as one message, in file name
// order. The file name becomes the message id.
func ReadDir(dir string) ([]*core.Message, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var msgs []*core.Message
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read sample %s: %w", e.Name(), err)
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat sample %s: %w", e.Name(), err)
		}
		msgs = append(msgs, core.NewMessage(data, core.WithID(e.Name()), core.WithTimestamp(info.ModTime())))
	}
	return msgs, nil
}
