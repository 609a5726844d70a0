package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// maxEnvFileDepth bounds the walk from the working directory to its parents.
const maxEnvFileDepth = 6

// LoadEnvFile looks for a .env file in dir or up to five of its parents and
// exports its entries. Variables already present in the environment win.
// It returns the path it loaded, or "" when there was none.
func LoadEnvFile(logger *slog.Logger, dir string) string {
	path := findEnvFile(dir)
	if path == "" {
		logger.Debug(".env not found", "start", dir)
		return ""
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Warn("open .env", "path", path, "error", err)
		return ""
	}
	defer file.Close()

	n, err := applyEnv(file)
	if err != nil {
		logger.Warn("load .env", "path", path, "error", err)
		return ""
	}
	logger.Info("loaded env file", "path", path, "vars", n)
	return path
}

func findEnvFile(dir string) string {
	for i := 0; i < maxEnvFileDepth; i++ {
		path := filepath.Join(dir, ".env")
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// applyEnv sets KEY=VALUE lines from r, skipping comments, blank lines and
// keys that are already set. It returns how many variables it set.
func applyEnv(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	set := 0
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, trimQuotes(strings.TrimSpace(value))); err != nil {
			return set, fmt.Errorf("line %d: %w", lineNum, err)
		}
		set++
	}
	return set, scanner.Err()
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	first, last := value[0], value[len(value)-1]
	if first == last && (first == '"' || first == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
