//go:build linux || darwin || freebsd

package fs

import (
	"golang.org/x/sys/unix"

	"github.com/tendant/simple-ar/pkg/arcontent"
)

func diskUsage(path string) (arcontent.Usage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return arcontent.Usage{}, err
	}
	bsize := int64(st.Bsize)
	total := int64(st.Blocks) * bsize
	free := int64(st.Bfree) * bsize
	return arcontent.Usage{Used: total - free, Total: total}, nil
}
