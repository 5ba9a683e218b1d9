package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalProfile writes files under a root directory. The filename format
// supports {file_name}, {file_extension}, {Y}, {mm} and {dd} placeholders,
// expanded against the incoming name and the current date.
type LocalProfile struct {
	rootPath       string
	fileNameFormat string
	now            func() time.Time
}

func NewLocalProfile(rootPath, fileNameFormat string) *LocalProfile {
	if fileNameFormat == "" {
		fileNameFormat = "{file_name}"
	}
	return &LocalProfile{
		rootPath:       rootPath,
		fileNameFormat: fileNameFormat,
		now:            time.Now,
	}
}

func (p *LocalProfile) Save(filename string, data []byte) error {
	path, err := p.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (p *LocalProfile) Load(filename string) ([]byte, error) {
	path, err := p.resolve(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func (p *LocalProfile) List() ([]string, error) {
	var files []string
	err := filepath.WalkDir(p.rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == p.rootPath {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(p.rootPath, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

func (p *LocalProfile) Delete(filename string) error {
	path, err := p.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// resolve expands the filename format and rejects names that would escape
// the profile root. Incoming names must be bare file names: anything
// carrying a separator or a parent reference is rejected rather than
// silently sanitized.
func (p *LocalProfile) resolve(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.Contains(filename, "..") {
		return "", fmt.Errorf("invalid file name: %s", filename)
	}

	formatted := p.format(filename)
	path := filepath.Join(p.rootPath, formatted)

	root, err := filepath.Abs(p.rootPath)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file name: %s", filename)
	}
	return abs, nil
}

func (p *LocalProfile) format(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	now := p.now()

	replacer := strings.NewReplacer(
		"{file_name}", base,
		"{file_extension}", strings.TrimPrefix(ext, "."),
		"{Y}", now.Format("2006"),
		"{mm}", now.Format("01"),
		"{dd}", now.Format("02"),
	)
	formatted := replacer.Replace(p.fileNameFormat)
	if !strings.Contains(p.fileNameFormat, "{file_extension}") && ext != "" {
		formatted += ext
	}
	return formatted
}
