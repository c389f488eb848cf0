package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ps "github.com/mitchellh/go-ps"
)

// PidFile keeps a second copy of a worker from starting on the same
// host. Each worker has its own file, <workerName>.pid, in the working
// directory.
type PidFile struct {
	Path string
}

func NewPidFile(workingDir, workerName string) *PidFile {
	return &PidFile{Path: filepath.Join(workingDir, workerName+".pid")}
}

// Owner returns the pid recorded in the file, or 0 if the file is
// missing or does not hold a pid.
func (f *PidFile) Owner() int {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid < 1 {
		return 0
	}
	return pid
}

// Age returns the time since the file was last written.
func (f *PidFile) Age() (time.Duration, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return 0, err
	}
	return time.Since(info.ModTime()), nil
}

// Claim writes this process' pid to the file. It fails if the file
// belongs to another process that is still running. When it replaces
// the file of a process that has exited, it returns that pid and the
// age of its file so the caller can log it.
func (f *PidFile) Claim() (stalePid int, staleAge time.Duration, err error) {
	owner := f.Owner()
	if owner != 0 && owner != os.Getpid() {
		if ProcessIsRunning(owner) {
			return 0, 0, fmt.Errorf("%s is already running as pid %d (%s)",
				strings.TrimSuffix(filepath.Base(f.Path), ".pid"), owner, f.Path)
		}
		stalePid = owner
		staleAge, _ = f.Age()
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return 0, 0, err
	}
	err = os.WriteFile(f.Path, []byte(strconv.Itoa(os.Getpid())), 0664)
	return stalePid, staleAge, err
}

// Release removes the file if this process still owns it.
func (f *PidFile) Release() error {
	if f.Owner() != os.Getpid() {
		return fmt.Errorf("Pid file %s is not owned by pid %d", f.Path, os.Getpid())
	}
	if !LooksSafeToDelete(f.Path, 12, 2) {
		return fmt.Errorf("Pid file %s does not look safe to delete", f.Path)
	}
	return os.Remove(f.Path)
}

// ProcessIsRunning returns true if the process with pid is running.
// os.FindProcess cannot answer this on unix, where it always succeeds,
// so go-ps reads the process table instead.
func ProcessIsRunning(pid int) bool {
	proc, _ := ps.FindProcess(pid)
	return proc != nil
}
