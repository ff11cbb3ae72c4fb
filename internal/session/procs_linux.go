package session

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
)

// sessionMembers lists the live processes whose session id is sid.
// Zombies are skipped: they are already dead and only wait to be reaped.
func sessionMembers(sid int) []int {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}
	var out []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			continue
		}
		st, ok := readProcStat(pid)
		if !ok || st.state == 'Z' || st.session != sid {
			continue
		}
		out = append(out, pid)
	}
	return out
}

type procStat struct {
	state   byte
	session int
}

// readProcStat parses /proc/<pid>/stat. The command name may contain spaces
// and parentheses, so fields are read after the last ')'.
func readProcStat(pid int) (procStat, bool) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return procStat{}, false
	}
	i := bytes.LastIndexByte(data, ')')
	if i < 0 {
		return procStat{}, false
	}
	// state ppid pgrp session ...
	fields := bytes.Fields(data[i+1:])
	if len(fields) < 4 || len(fields[0]) == 0 {
		return procStat{}, false
	}
	session, err := strconv.Atoi(string(fields[3]))
	if err != nil {
		return procStat{}, false
	}
	return procStat{state: fields[0][0], session: session}, true
}
