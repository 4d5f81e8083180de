package repo

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/ogit/pkg/object"
	"github.com/warpfork/go-errcat"
	format "gopkg.in/src-d/go-git.v4/plumbing/format/config"
)

func (r *Repo) configPath() string {
	return filepath.Join(r.GitDir, "config")
}

// initConfig writes the minimal config canonical git expects in a fresh
// non-bare repository.
func (r *Repo) initConfig() error {
	cfg := format.New()
	cfg.Section("core").
		SetOption("repositoryformatversion", "0").
		SetOption("filemode", "true").
		SetOption("bare", "false")
	return r.WriteConfig(cfg)
}

// ReadConfig reads .git/config. A missing file yields an empty config.
func (r *Repo) ReadConfig() (*format.Config, error) {
	cfg := format.New()
	data, err := os.ReadFile(r.configPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, errcat.Errorf(object.KindIO, "read config: %s", err)
	}
	if err := format.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
		return nil, errcat.Errorf(object.KindMalformed, "read config: %s", err)
	}
	return cfg, nil
}

// WriteConfig atomically replaces .git/config.
func (r *Repo) WriteConfig(cfg *format.Config) error {
	var buf bytes.Buffer
	if err := format.NewEncoder(&buf).Encode(cfg); err != nil {
		return errcat.Errorf(object.KindIO, "write config: encode: %s", err)
	}
	if err := writeFileAtomic(r.configPath(), buf.Bytes()); err != nil {
		return errcat.Errorf(object.KindIO, "write config: %s", err)
	}
	return nil
}

// SetRemote stores or updates a named remote and its default fetch
// refspec, +refs/heads/*:refs/remotes/<name>/*.
func (r *Repo) SetRemote(name, remoteURL string) error {
	name = strings.TrimSpace(name)
	if name == "" || validateRefName("refs/remotes/"+name) != nil {
		return errcat.Errorf(object.KindMalformed, "set remote: invalid remote name %q", name)
	}
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return errcat.Errorf(object.KindMalformed, "set remote: remote URL is required")
	}

	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	cfg.Section("remote").Subsection(name).
		SetOption("url", remoteURL).
		SetOption("fetch", "+refs/heads/*:refs/remotes/"+name+"/*")
	return r.WriteConfig(cfg)
}

// RemoteURL returns the configured URL for the given remote name.
func (r *Repo) RemoteURL(name string) (string, error) {
	cfg, err := r.ReadConfig()
	if err != nil {
		return "", err
	}
	if !cfg.Section("remote").HasSubsection(name) {
		return "", errcat.Errorf(object.KindNotFound, "remote %q is not configured", name)
	}
	url := cfg.Section("remote").Subsection(name).Option("url")
	if strings.TrimSpace(url) == "" {
		return "", errcat.Errorf(object.KindNotFound, "remote %q has no url", name)
	}
	return url, nil
}

// SetBranchUpstream records that branch tracks the same-named branch on
// remote.
func (r *Repo) SetBranchUpstream(branch, remote string) error {
	cfg, err := r.ReadConfig()
	if err != nil {
		return err
	}
	cfg.Section("branch").Subsection(branch).
		SetOption("remote", remote).
		SetOption("merge", "refs/heads/"+branch)
	return r.WriteConfig(cfg)
}
