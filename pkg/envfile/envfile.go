// Package envfile resolves the API credential from a CLI override, .env files
// and the process environment. Resolution never fails: every problem is
// reported as a warning and only the final credential matters.
package envfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	loggerpkg "github.com/minhyannv/guardrails-demo-go/pkg/logger"
)

// DefaultFileName is the environment file looked up at every location.
const DefaultFileName = ".env"

// Credential sources reported in Result.Source.
const (
	SourceFlag        = "flag"
	SourceEnvironment = "environment"
)

// Resolver holds the lookup plan for a single credential variable.
type Resolver struct {
	// Key is the environment variable that carries the credential.
	Key string
	// Candidates are .env paths checked in priority order.
	Candidates []string
	// SearchFrom is the directory where the upward fallback search starts,
	// the harness directory by default.
	SearchFrom string
	// FileName is the name matched by the upward search.
	FileName string

	Logger  loggerpkg.Logger
	Verbose bool
}

// Result describes the outcome of one resolution.
type Result struct {
	Credential string
	Source     string
	LoadedFrom string
	Warnings   []string
}

// Found reports whether a credential is available.
func (r Result) Found() bool {
	return r.Credential != ""
}

// New builds a Resolver with the default candidate plan for key.
func New(key string) Resolver {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	harness := HarnessDir()
	return Resolver{
		Key:        key,
		Candidates: DefaultCandidates(harness, cwd),
		SearchFrom: harness,
		FileName:   DefaultFileName,
	}
}

// Resolve makes the credential available in the process environment and
// returns it. A non-empty cliValue is installed only when the variable is unset.
func (r Resolver) Resolve(cliValue string) Result {
	var res Result
	fileName := r.FileName
	if fileName == "" {
		fileName = DefaultFileName
	}

	cliValue = strings.TrimSpace(cliValue)
	if cliValue != "" {
		if r.lookup() == "" {
			if err := os.Setenv(r.Key, cliValue); err != nil {
				res.warn(fmt.Sprintf("Could not install %s from --api-key: %v", r.Key, err))
			} else {
				res.Source = SourceFlag
			}
		}
	}
	if res.Source == "" && r.lookup() != "" {
		res.Source = SourceEnvironment
	}

	if r.lookup() == "" {
		loadedFrom := r.loadCandidates()
		if loadedFrom != "" {
			res.LoadedFrom = loadedFrom
			if r.lookup() == "" {
				res.warn(fmt.Sprintf("Loaded %s from %s, but %s is missing.", fileName, loadedFrom, r.Key))
			}
		} else {
			envPath, ok := FindUp(r.SearchFrom, fileName)
			loaded := false
			if ok {
				var err error
				if loaded, err = loadVars(envPath); err != nil {
					r.reject(envPath, err)
				}
			}
			switch {
			case loaded:
				res.LoadedFrom = envPath
				if r.lookup() == "" {
					res.warn(fmt.Sprintf("%s not found after loading %s at %s.", r.Key, fileName, envPath))
				}
			default:
				res.warn(fmt.Sprintf("%s not found; set %s or create a %s file.", fileName, r.Key, fileName))
			}
		}
		if res.LoadedFrom != "" && r.lookup() != "" {
			res.Source = res.LoadedFrom
		}
	}

	if r.lookup() == "" {
		res.warn(fmt.Sprintf("%s not set. Set it if using OpenAI models.", r.Key))
	}
	res.Credential = r.lookup()

	for _, w := range res.Warnings {
		loggerpkg.Debug(r.Verbose, r.Logger, "env resolve warning", map[string]any{"warning": w})
	}
	loggerpkg.Debug(r.Verbose, r.Logger, "env resolved", map[string]any{
		"key":         r.Key,
		"found":       res.Found(),
		"source":      res.Source,
		"loaded_from": res.LoadedFrom,
	})
	return res
}

// loadCandidates loads the first candidate that is a regular file, parses
// cleanly and defines at least one variable, returning its path. Existing variables are never overwritten.
func (r Resolver) loadCandidates() string {
	for _, path := range r.Candidates {
		if strings.TrimSpace(path) == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		loaded, err := loadVars(path)
		if err != nil {
			r.reject(path, err)
			continue
		}
		if !loaded {
			loggerpkg.Debug(r.Verbose, r.Logger, "env candidate has no variables", map[string]any{"path": path})
			continue
		}
		return path
	}
	return ""
}

// loadVars loads path into the process environment when it defines at least
// one variable. A file with no entries is not a successful load.
func loadVars(path string) (bool, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return false, err
	}
	if len(vars) == 0 {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, err
	}
	return true, nil
}

func (r Resolver) reject(path string, err error) {
	loggerpkg.Warn(r.Logger, "env file rejected", map[string]any{
		"path":  path,
		"error": err.Error(),
	})
}

func (r Resolver) lookup() string {
	return strings.TrimSpace(os.Getenv(r.Key))
}

func (res *Result) warn(msg string) {
	res.Warnings = append(res.Warnings, msg)
}

// DefaultCandidates returns the repository root, harness directory and
// working directory .env paths, in that order, without duplicates.
func DefaultCandidates(harnessDir, cwd string) []string {
	dirs := []string{}
	if harnessDir != "" {
		dirs = append(dirs, filepath.Dir(harnessDir), harnessDir)
	}
	if cwd != "" {
		dirs = append(dirs, cwd)
	}

	out := make([]string, 0, len(dirs))
	seen := map[string]struct{}{}
	for _, dir := range dirs {
		path := filepath.Join(dir, DefaultFileName)
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	return out
}

// HarnessDir returns the directory holding the running executable, or the
// working directory when it cannot be determined.
func HarnessDir() string {
	exe, err := os.Executable()
	if err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// FindUp walks from start towards the filesystem root and returns the first
// regular file named name.
func FindUp(start, name string) (string, bool) {
	if start == "" {
		start = "."
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
