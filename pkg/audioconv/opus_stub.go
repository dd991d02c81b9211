//go:build !opus

package audioconv

import (
	"errors"
	"io"
)

func decodeOpus(io.ReadSeeker) (pcm, error) {
	return pcm{}, errors.New("opus support not built in (build with -tags opus)")
}
