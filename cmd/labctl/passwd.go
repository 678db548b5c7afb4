package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/lychee-technology/labdb"
)

const defaultPasswdFile = "/etc/passwd"

// lookupPasswd finds login in the passwd file, then through getent for
// accounts served by NSS. The GECOS field is returned whole; os/user would
// cut it at the first comma and lose the "Last, First" form.
func lookupPasswd(ctx context.Context, path, login string) (labdb.PasswdEntry, error) {
	entry, found, err := readPasswdFile(path, login)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return labdb.PasswdEntry{}, err
	}
	if found {
		return entry, nil
	}

	out, err := exec.CommandContext(ctx, "getent", "passwd", login).Output()
	if err != nil {
		return labdb.PasswdEntry{}, labdb.NewNotFoundError("passwd entry", login)
	}
	entry, found, err = parsePasswd(bytes.NewReader(out), login)
	if err != nil {
		return labdb.PasswdEntry{}, err
	}
	if !found {
		return labdb.PasswdEntry{}, labdb.NewNotFoundError("passwd entry", login)
	}
	return entry, nil
}

func readPasswdFile(path, login string) (labdb.PasswdEntry, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return labdb.PasswdEntry{}, false, err
	}
	defer f.Close()
	return parsePasswd(f, login)
}

// parsePasswd scans name:passwd:uid:gid:gecos:dir:shell lines for login.
func parsePasswd(r io.Reader, login string) (labdb.PasswdEntry, bool, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 7 || fields[0] != login {
			continue
		}
		return labdb.PasswdEntry{Name: fields[0], Gecos: fields[4]}, true, nil
	}
	if err := scanner.Err(); err != nil {
		return labdb.PasswdEntry{}, false, fmt.Errorf("read passwd entries: %w", err)
	}
	return labdb.PasswdEntry{}, false, nil
}
