package gitcmd

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/crypto/ssh"

	"github.com/astmerge/findmerges/vcs"
)

// InsecureSkipCheckVerifySSH controls whether the client verifies the
// SSH server's certificate or host key. If InsecureSkipCheckVerifySSH
// is true, the program is susceptible to a man-in-the-middle
// attack. This should only be used for testing.
var InsecureSkipCheckVerifySSH bool

// configureSSH points cmd's GIT_SSH at a wrapper that authenticates with
// opt.SSH's private key. The returned cleanup func removes the wrapper
// and key files; it is never nil and must be called even if err is
// non-nil.
func configureSSH(cmd *exec.Cmd, opt vcs.RemoteOpts) (cleanup func(), err error) {
	var files []string
	cleanup = func() {
		for _, f := range files {
			os.Remove(f)
		}
	}
	if opt.SSH == nil {
		return cleanup, nil
	}

	if _, err := ssh.ParsePrivateKey(opt.SSH.PrivateKey); err != nil {
		return cleanup, fmt.Errorf("parsing SSH private key: %s", err)
	}

	keyFile, err := writeTempFile("findmerges-gitcmd-key", opt.SSH.PrivateKey, 0600)
	if keyFile != "" {
		files = append(files, keyFile)
	}
	if err != nil {
		return cleanup, err
	}

	var otherOpt string
	if InsecureSkipCheckVerifySSH {
		otherOpt = "-o StrictHostKeyChecking=no"
	}
	if opt.SSH.User != "" {
		otherOpt += " -l " + opt.SSH.User
	}
	script := "#!/bin/sh\nexec /usr/bin/ssh -o ControlMaster=no -o IdentitiesOnly=yes " + otherOpt + " -i " + keyFile + ` "$@"` + "\n"

	wrapper, err := writeTempFile("findmerges-gitcmd-ssh", []byte(script), 0500)
	if wrapper != "" {
		files = append(files, wrapper)
	}
	if err != nil {
		return cleanup, err
	}

	setEnv(cmd, "GIT_SSH="+wrapper)
	return cleanup, nil
}

func writeTempFile(prefix string, data []byte, mode os.FileMode) (string, error) {
	f, err := os.CreateTemp("", prefix)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Chmod(0600); err != nil {
		f.Close()
		return name, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return name, err
	}
	if err := f.Close(); err != nil {
		return name, err
	}
	return name, os.Chmod(name, mode)
}
