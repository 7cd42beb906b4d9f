package project

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"voicespec/pkg/logger"

	"go.uber.org/zap"
)

// ArtifactName is the fixed filename written inside every project folder.
const ArtifactName = "requirements.md"

// projectNamePattern is the identifier grammar for on-disk project names.
var projectNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Persister writes generated documents under a root projects directory,
// one folder per project, one artifact per folder. Overwriting an existing
// artifact is an accepted update, not a conflict.
type Persister struct {
	root string
}

func NewPersister(root string) *Persister {
	if root == "" {
		root = "projects"
	}
	return &Persister{root: root}
}

// Persist validates projectName, ensures <root>/<projectName> exists, writes
// content to the artifact file inside it, and verifies the write landed with
// non-zero size. Returns the artifact's path.
func (p *Persister) Persist(projectName, content string) (string, error) {
	projectName = strings.TrimSpace(projectName)
	if projectName == "" {
		return "", &Error{Kind: KindInvalidArgument, Op: "persist", Message: "project name cannot be empty"}
	}
	if strings.TrimSpace(content) == "" {
		return "", &Error{Kind: KindInvalidArgument, Op: "persist", Message: "content cannot be empty"}
	}

	// Traversal guard runs before the grammar check so a hostile name is
	// always reported as such.
	if strings.Contains(projectName, "..") || strings.ContainsAny(projectName, `/\`) {
		return "", &Error{Kind: KindInvalidArgument, Op: "persist", Message: "project name contains path traversal: " + projectName}
	}
	if !projectNamePattern.MatchString(projectName) {
		return "", &Error{Kind: KindInvalidArgument, Op: "persist", Message: "project name must contain only lowercase letters, digits, hyphens and underscores: " + projectName}
	}

	if err := p.ensureDir(p.root); err != nil {
		return "", err
	}

	projectDir := filepath.Join(p.root, projectName)
	if err := p.ensureDir(projectDir); err != nil {
		return "", err
	}

	artifactPath := filepath.Join(projectDir, ArtifactName)
	if err := os.WriteFile(artifactPath, []byte(content), 0o644); err != nil {
		return "", mapOSError("persist", "failed to write "+artifactPath, err)
	}

	info, err := os.Stat(artifactPath)
	if err != nil {
		return "", &Error{Kind: KindWriteVerificationFailed, Op: "persist", Message: "artifact missing after write: " + artifactPath, Err: err}
	}
	if info.Size() == 0 {
		return "", &Error{Kind: KindWriteVerificationFailed, Op: "persist", Message: "artifact is empty after write: " + artifactPath}
	}

	logger.Info("Document persisted",
		zap.String("project_name", projectName),
		zap.String("path", artifactPath),
		zap.Int64("size", info.Size()))

	return artifactPath, nil
}

// ensureDir creates dir if absent and rejects a non-directory occupying the
// same name.
func (p *Persister) ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return &Error{Kind: KindPathConflict, Op: "persist", Message: "path exists and is not a directory: " + dir}
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return mapOSError("persist", "failed to stat "+dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return mapOSError("persist", "failed to create "+dir, err)
	}
	return nil
}
