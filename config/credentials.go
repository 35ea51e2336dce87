package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/astmerge/findmerges/vcs"
)

// TokenFile is the name, in the home directory, of a file whose first
// line is a GitHub user name and whose second line is a personal access
// token.
const TokenFile = ".github-personal-access-token"

// Credentials authenticate clones from GitHub.
type Credentials struct {
	User, Token string
	Source      string // where the credentials were found
}

// FindCredentials looks for GitHub credentials in home/TokenFile, then
// in the GITHUB_TOKEN variable of getenv. It returns ok == false if there
// are none, in which case clones are anonymous.
func FindCredentials(home string, getenv func(string) string) (c Credentials, ok bool, err error) {
	if home != "" {
		path := filepath.Join(home, TokenFile)
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			var lines []string
			s := bufio.NewScanner(f)
			for s.Scan() && len(lines) < 2 {
				lines = append(lines, strings.TrimSpace(s.Text()))
			}
			if err := s.Err(); err != nil {
				return Credentials{}, false, err
			}
			if len(lines) < 2 || lines[0] == "" || lines[1] == "" {
				return Credentials{}, false, fmt.Errorf("%s: want a user name line and a token line", path)
			}
			return Credentials{User: lines[0], Token: lines[1], Source: path}, true, nil
		case !errors.Is(err, os.ErrNotExist):
			return Credentials{}, false, err
		}
	}
	if tok := strings.TrimSpace(getenv("GITHUB_TOKEN")); tok != "" {
		return Credentials{User: "Bearer", Token: tok, Source: "GITHUB_TOKEN"}, true, nil
	}
	return Credentials{}, false, nil
}

// RemoteOpts returns the options that authenticate with c over HTTPS.
func (c Credentials) RemoteOpts() vcs.RemoteOpts {
	if c.Token == "" {
		return vcs.RemoteOpts{}
	}
	return vcs.RemoteOpts{HTTPS: &vcs.HTTPSConfig{User: c.User, Pass: c.Token}}
}

// SSHRemoteOpts adds the key in SSHKeyFile, if set, to opt.
func (c Config) SSHRemoteOpts(opt vcs.RemoteOpts) (vcs.RemoteOpts, error) {
	if c.SSHKeyFile == "" {
		return opt, nil
	}
	key, err := os.ReadFile(c.SSHKeyFile)
	if err != nil {
		return opt, err
	}
	opt.SSH = &vcs.SSHConfig{User: "git", PrivateKey: key}
	return opt, nil
}
