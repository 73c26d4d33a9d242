package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var pageSize = uint64(os.Getpagesize())

// treeMemory sums the RSS and VMS of pid and every descendant it can still
// read from /proc. Processes that exit mid-walk are skipped rather than
// failing the sample, matching psutil's NoSuchProcess tolerance in the
// Python original.
func treeMemory(pid int) (rss, vms uint64) {
	visited := map[int]bool{}
	var walk func(int)
	walk = func(p int) {
		if visited[p] {
			return
		}
		visited[p] = true
		r, v, err := processMemory(p)
		if err == nil {
			rss += r
			vms += v
		}
		for _, child := range childPIDs(p) {
			walk(child)
		}
	}
	walk(pid)
	return rss, vms
}

// processMemory reads RSS/VMS for a single pid from /proc/<pid>/statm,
// whose first two whitespace-separated fields are total pages and resident
// pages respectively.
func processMemory(pid int) (rss, vms uint64, err error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/statm", pid))
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("supervisor: malformed statm for pid %d", pid)
	}
	sizePages, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	rssPages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return rssPages * pageSize, sizePages * pageSize, nil
}

// childPIDs walks /proc/<pid>/task/*/children, the kernel's own
// thread-group-aware descendant listing (Linux 3.5+), instead of scanning
// all of /proc for matching PPIDs.
func childPIDs(pid int) []int {
	taskDir := fmt.Sprintf("/proc/%d/task", pid)
	tasks, err := os.ReadDir(taskDir)
	if err != nil {
		return nil
	}
	var children []int
	for _, task := range tasks {
		data, err := os.ReadFile(filepath.Join(taskDir, task.Name(), "children"))
		if err != nil {
			continue
		}
		for _, s := range strings.Fields(string(data)) {
			if n, err := strconv.Atoi(s); err == nil {
				children = append(children, n)
			}
		}
	}
	return children
}
