package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var errEmptySelection = errors.New("select some code first (pass a file, --lines or stdin)")

// editorIDs maps extensions to editor language identifiers.
var editorIDs = map[string]string{
	".js": "javascript", ".jsx": "javascriptreact", ".ts": "typescript",
	".tsx": "typescriptreact", ".py": "python", ".java": "java",
	".c": "c", ".h": "c", ".cpp": "cpp", ".cc": "cpp", ".hpp": "cpp",
	".go": "go", ".rs": "rust", ".rb": "ruby", ".php": "php",
	".cs": "csharp", ".swift": "swift", ".kt": "kotlin", ".scala": "scala",
	".md": "markdown", ".yml": "yaml", ".yaml": "yaml", ".json": "json",
}

// languageID guesses the editor language of path, falling back to the bare
// extension or "plaintext".
func languageID(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if id, ok := editorIDs[ext]; ok {
		return id
	}
	if ext != "" {
		return ext[1:]
	}
	return "plaintext"
}

// readCode returns the code to send: the file at path, or stdin when path is
// empty or "-". lines, when set as "start:end" (1-based, inclusive), narrows
// the text to a selection.
func readCode(stdin io.Reader, path, lines string) (string, error) {
	var raw []byte
	var err error
	if path == "" || path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	text := string(raw)
	if lines != "" {
		text, err = selectLines(text, lines)
		if err != nil {
			return "", err
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", errEmptySelection
	}
	return text, nil
}

func selectLines(text, rng string) (string, error) {
	startRaw, endRaw, found := strings.Cut(rng, ":")
	start, err := strconv.Atoi(strings.TrimSpace(startRaw))
	if err != nil || start < 1 {
		return "", fmt.Errorf("invalid --lines %q", rng)
	}
	end := start
	if found {
		if end, err = strconv.Atoi(strings.TrimSpace(endRaw)); err != nil || end < start {
			return "", fmt.Errorf("invalid --lines %q", rng)
		}
	}
	all := strings.Split(text, "\n")
	if start > len(all) {
		return "", nil
	}
	end = min(end, len(all))
	return strings.Join(all[start-1:end], "\n"), nil
}
