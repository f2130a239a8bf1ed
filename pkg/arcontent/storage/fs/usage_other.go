//go:build !linux && !darwin && !freebsd

package fs

import (
	"errors"

	"github.com/tendant/simple-ar/pkg/arcontent"
)

func diskUsage(path string) (arcontent.Usage, error) {
	return arcontent.Usage{}, errors.New("disk usage is not supported on this platform")
}
