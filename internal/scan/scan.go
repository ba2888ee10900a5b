// Package scan locates the metadata tree root and enumerates metadata
// files in deterministic order: main.fmf first, then the remaining
// '*.fmf' files lexicographically, then subdirectories. Hidden
// directories are skipped unless listed in .fmf/config under
// explore.include.
package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.yaml.in/yaml/v4"
)

const (
	// MarkerDir is the directory identifying a tree root.
	MarkerDir = ".fmf"
	// Suffix is the metadata file extension.
	Suffix = ".fmf"
	// MainFile carries the directory's own metadata.
	MainFile = "main.fmf"
)

// ErrRootMissing is returned when no ancestor contains .fmf/version.
var ErrRootMissing = errors.New("unable to find tree root")

// File is one discovered metadata file.
type File struct {
	// Path is the absolute filesystem path.
	Path string
	// Name is the hierarchical node name the file contributes to,
	// e.g. '/' or '/tests/basic'.
	Name string
}

// Config holds the optional .fmf/config content.
type Config struct {
	Explore struct {
		// Include lists names always included in the walk, even
		// hidden ones or files without the metadata suffix.
		Include []string `mapstructure:"include"`
	} `mapstructure:"explore"`
}

func (c *Config) included(name string) bool {
	if c == nil {
		return false
	}
	for _, included := range c.Explore.Include {
		if included == name {
			return true
		}
	}
	return false
}

// FindRoot ascends from path looking for the first ancestor directory
// containing a readable .fmf/version file.
func FindRoot(path string) (string, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path '%s': %w", path, err)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		version := filepath.Join(dir, MarkerDir, "version")
		if info, err := os.Stat(version); err == nil && info.Mode().IsRegular() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: '%s' and its parents", ErrRootMissing, path)
		}
		dir = parent
	}
}

// ReadVersion reads the tree format version from .fmf/version.
func ReadVersion(root string) (int, error) {
	path := filepath.Join(root, MarkerDir, "version")
	buf, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("cannot read '%s': %w", path, err)
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(buf)))
	if err != nil {
		return 0, fmt.Errorf("invalid tree version in '%s': %w", path, err)
	}
	return version, nil
}

// ReadConfig reads the optional .fmf/config file. A missing file yields
// a nil config without error.
func ReadConfig(root string) (*Config, error) {
	path := filepath.Join(root, MarkerDir, "config")
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot read '%s': %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", path, err)
	}
	var config Config
	if err := mapstructure.Decode(raw, &config); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", path, err)
	}
	return &config, nil
}

// Walk enumerates metadata files under root in deterministic order:
// main.fmf first, then the remaining '*.fmf' files lexicographically,
// then subdirectories recursively. Symbolic link loops are detected by
// tracking canonical directory paths.
func Walk(root string, config *Config) ([]File, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve root '%s': %w", root, err)
	}
	visited := make(map[string]bool)
	var files []File
	if err := walkDir(absRoot, absRoot, config, visited, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func walkDir(dir, root string, config *Config, visited map[string]bool, files *[]File) error {
	// Canonical path guards against symlink loops.
	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return fmt.Errorf("cannot resolve directory '%s': %w", dir, err)
	}
	if visited[canonical] {
		return nil
	}
	visited[canonical] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("cannot explore directory '%s': %w", dir, err)
	}

	var metadata []string
	var subdirs []string
	hasMain := false
	for _, entry := range entries {
		name := entry.Name()
		isDir := entry.IsDir()
		if !isDir && entry.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(dir, name)); err == nil {
				isDir = info.IsDir()
			}
		}
		switch {
		case isDir:
			if name == MarkerDir {
				continue
			}
			if strings.HasPrefix(name, ".") && !config.included(name) {
				continue
			}
			subdirs = append(subdirs, name)
		case name == MainFile:
			hasMain = true
		case (strings.HasSuffix(name, Suffix) && name != Suffix) || config.included(name):
			metadata = append(metadata, name)
		}
	}
	sort.Strings(metadata)
	sort.Strings(subdirs)

	if hasMain {
		*files = append(*files, File{
			Path: filepath.Join(dir, MainFile),
			Name: nodeName(dir, root),
		})
	}
	for _, name := range metadata {
		*files = append(*files, File{
			Path: filepath.Join(dir, name),
			Name: childName(nodeName(dir, root), strings.TrimSuffix(name, Suffix)),
		})
	}
	for _, name := range subdirs {
		if err := walkDir(filepath.Join(dir, name), root, config, visited, files); err != nil {
			return err
		}
	}
	return nil
}

// nodeName maps a directory to its hierarchical node name. The root
// directory maps to '/'.
func nodeName(dir, root string) string {
	relative, err := filepath.Rel(root, dir)
	if err != nil || relative == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(relative)
}

// childName joins a parent node name with a child segment.
func childName(parent, segment string) string {
	if parent == "/" {
		return "/" + segment
	}
	return parent + "/" + segment
}
